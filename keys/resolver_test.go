package keys

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const identity = "Sample.Controllers.MainController.GetBook (Sample)"

type bookModel struct {
	ID    int    `json:"id"`
	Title string `cache:"title" json:"name"`
	Ptr   *int   `json:"ptr,omitempty"`
	hide  string

	UpdatedAt *time.Time `json:"updatedAt"`
}

type accessorModel struct{ fields map[string]any }

func (m accessorModel) Field(name string) (any, bool) {
	v, ok := m.fields[name]
	return v, ok
}

type wrapper struct {
	bookModel
	Extra string
}

func TestResolve(t *testing.T) {
	seven := 7
	updated := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		strategy Strategy
		prefix   string
		args     Arguments
		want     string
	}{
		{
			name:     "literal verbatim",
			strategy: Literal("book-key"),
			want:     "book-key",
		},
		{
			name:     "literal with explicit prefix",
			strategy: Literal("book-key"),
			prefix:   "books",
			want:     "books:book-key",
		},
		{
			name:     "blank literal falls back",
			strategy: Literal("  "),
			prefix:   "books",
			want:     identity,
		},
		{
			name:     "argument without prefix uses identity",
			strategy: FromArgument("bookId"),
			args:     Args{"bookId": 7},
			want:     identity + ":7",
		},
		{
			name:     "argument with explicit prefix",
			strategy: FromArgument("bookId"),
			prefix:   "GetBook",
			args:     Args{"bookId": "abc"},
			want:     "GetBook:abc",
		},
		{
			name:     "missing argument falls back",
			strategy: FromArgument("bookId"),
			prefix:   "GetBook",
			args:     Args{"other": 1},
			want:     identity,
		},
		{
			name:     "nil arguments fall back",
			strategy: FromArgument("bookId"),
			want:     identity,
		},
		{
			name:     "nil argument value falls back",
			strategy: FromArgument("bookId"),
			args:     Args{"bookId": nil},
			want:     identity,
		},
		{
			name:     "model property with prefix",
			strategy: FromModel("book.id"),
			prefix:   "GetBook",
			args:     Args{"book": bookModel{ID: 7}},
			want:     "GetBook:7",
		},
		{
			name:     "model property through pointer and go name",
			strategy: FromModelProperty("book", "ID"),
			args:     Args{"book": &bookModel{ID: 8}},
			want:     identity + ":8",
		},
		{
			name:     "cache tag wins over json tag",
			strategy: FromModel("book.title"),
			args:     Args{"book": bookModel{Title: "dune"}},
			want:     identity + ":dune",
		},
		{
			name:     "json tag",
			strategy: FromModel("book.name"),
			args:     Args{"book": bookModel{Title: "dune"}},
			want:     identity + ":dune",
		},
		{
			name:     "pointer field",
			strategy: FromModel("book.ptr"),
			prefix:   "p",
			args:     Args{"book": bookModel{Ptr: &seven}},
			want:     "p:7",
		},
		{
			name:     "nil pointer field falls back",
			strategy: FromModel("book.ptr"),
			prefix:   "p",
			args:     Args{"book": bookModel{}},
			want:     identity,
		},
		{
			name:     "nil stringer pointer field falls back",
			strategy: FromModel("book.updatedAt"),
			prefix:   "p",
			args:     Args{"book": bookModel{ID: 7}},
			want:     identity,
		},
		{
			name:     "stringer pointer field",
			strategy: FromModel("book.updatedAt"),
			prefix:   "p",
			args:     Args{"book": bookModel{UpdatedAt: &updated}},
			want:     "p:" + updated.String(),
		},
		{
			name:     "nil stringer pointer argument falls back",
			strategy: FromArgument("since"),
			args:     Args{"since": (*time.Time)(nil)},
			want:     identity,
		},
		{
			name:     "property lookup is case-sensitive",
			strategy: FromModel("book.Id"),
			args:     Args{"book": bookModel{ID: 7}},
			want:     identity,
		},
		{
			name:     "unexported field is invisible",
			strategy: FromModel("book.hide"),
			args:     Args{"book": bookModel{hide: "x"}},
			want:     identity,
		},
		{
			name:     "promoted field",
			strategy: FromModel("w.id"),
			args:     Args{"w": wrapper{bookModel: bookModel{ID: 3}}},
			want:     identity + ":3",
		},
		{
			name:     "malformed path without separator",
			strategy: FromModel("bookid"),
			prefix:   "GetBook",
			args:     Args{"book": bookModel{ID: 7}},
			want:     identity,
		},
		{
			name:     "malformed path with three segments",
			strategy: FromModel("book.id.x"),
			args:     Args{"book": bookModel{ID: 7}},
			want:     identity,
		},
		{
			name:     "missing model falls back",
			strategy: FromModel("book.id"),
			args:     Args{},
			want:     identity,
		},
		{
			name:     "missing property falls back",
			strategy: FromModel("book.isbn"),
			args:     Args{"book": bookModel{ID: 7}},
			want:     identity,
		},
		{
			name:     "field accessor capability",
			strategy: FromModel("book.id"),
			prefix:   "GetBook",
			args:     Args{"book": accessorModel{fields: map[string]any{"id": 42}}},
			want:     "GetBook:42",
		},
		{
			name:     "map model",
			strategy: FromModel("book.id"),
			args:     Args{"book": map[string]any{"id": "m-1"}},
			want:     identity + ":m-1",
		},
		{
			name:     "call site",
			strategy: CallSite(),
			want:     identity,
		},
		{
			name:     "call site with explicit prefix",
			strategy: CallSite(),
			prefix:   "v1",
			want:     "v1:" + identity,
		},
		{
			name:     "zero strategy is call site",
			strategy: Strategy{},
			want:     identity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.strategy, tt.prefix)
			assert.Equal(t, tt.want, r.Resolve(tt.args, identity))
		})
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	r := NewResolver(FromArgument("bookId"), "")
	args := Args{"bookId": 7}
	first := r.Resolve(args, identity)
	for i := 0; i < 3; i++ {
		require.Equal(t, first, r.Resolve(args, identity))
	}
}

func TestResolveTrimsValueAndIdentity(t *testing.T) {
	r := NewResolver(FromArgument("id"), "  ")
	assert.Equal(t, "GetBook:42", r.Resolve(Args{"id": " 42 "}, " GetBook "))
	assert.Empty(t, r.Prefix())
}

func TestStrategyValidate(t *testing.T) {
	require.NoError(t, Literal("book-key").Validate())
	require.NoError(t, FromArgument("bookId").Validate())
	require.NoError(t, FromModel("book.id").Validate())
	require.NoError(t, CallSite().Validate())

	assert.Error(t, Literal(" ").Validate())
	assert.Error(t, FromArgument("").Validate())
	assert.Error(t, FromModel("bookid").Validate())
	assert.Error(t, FromModel(".id").Validate())
	assert.Error(t, FromModel("book.").Validate())
	assert.Error(t, FromModel("a.b.c").Validate())
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "model(book.id)", FromModelProperty("book", "id").String())
	assert.Equal(t, "call_site", CallSite().String())
	assert.Equal(t, KindArgument, FromArgument("x").Kind())
	assert.Equal(t, "x", FromArgument("x").Value())
}

func TestField(t *testing.T) {
	v, ok := Field(&bookModel{ID: 5}, "id")
	require.True(t, ok)
	assert.Equal(t, 5, v)

	_, ok = Field(nil, "id")
	assert.False(t, ok)

	var nilBook *bookModel
	_, ok = Field(nilBook, "id")
	assert.False(t, ok)

	_, ok = Field(map[int]string{1: "x"}, "1")
	assert.False(t, ok)

	_, ok = Field(42, "id")
	assert.False(t, ok)
}
