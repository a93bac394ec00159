package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/cacheaside"
	"github.com/unkn0wn-root/cacheaside/provider/bigcache"
)

func newTestRouter(t *testing.T) (*http.ServeMux, cacheaside.Manager[Book]) {
	t.Helper()
	store, err := bigcache.New(bigcache.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	books, err := cacheaside.New[Book](cacheaside.Options[Book]{Store: store})
	require.NoError(t, err)
	mux, err := newRouter(books, cacheaside.NopLogger{})
	require.NoError(t, err)
	return mux, books
}

func do(t *testing.T, mux http.Handler, method, target, body string) (int, Book) {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, r)
	var b Book
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	}
	return rec.Code, b
}

func TestManualCacheAside(t *testing.T) {
	mux, books := newTestRouter(t)
	ctx := context.Background()

	code, b := do(t, mux, http.MethodGet, "/main/book", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, Book{ID: 1, Name: "Redis Cache Manager"}, b)

	cached, ok, err := books.Get(ctx, bookKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, b, cached)

	// the literal-key route shares the entry
	require.NoError(t, books.Set(ctx, bookKey, Book{ID: 99, Name: "seeded"}))
	_, b = do(t, mux, http.MethodGet, "/main/book/provided-key", "")
	assert.Equal(t, 99, b.ID)
}

func TestRouteKeys(t *testing.T) {
	mux, books := newTestRouter(t)
	ctx := context.Background()

	do(t, mux, http.MethodGet, "/main/book/call-site", "")
	do(t, mux, http.MethodGet, "/main/book/42", "")
	do(t, mux, http.MethodPost, "/main/book/from-model", `{"id":7,"name":"x"}`)
	do(t, mux, http.MethodPost, "/main/book/from-model-prefixed", `{"id":8,"name":"x"}`)

	want := map[string]Book{
		"GET /main/book/call-site":     {ID: 1, Name: "Redis Cache Manager"},
		"GET /main/book/{bookId}:42":   {ID: 42, Name: "Sample Book"},
		"POST /main/book/from-model:7": {ID: 7, Name: "Sample Book"},
		"GetBook:8":                    {ID: 8, Name: "Sample Book With Prefix"},
	}
	for key, book := range want {
		got, ok, err := books.Get(ctx, key)
		require.NoError(t, err, key)
		require.True(t, ok, key)
		assert.Equal(t, book, got, key)
	}
}

func TestCachedRouteShortCircuits(t *testing.T) {
	mux, books := newTestRouter(t)
	ctx := context.Background()

	require.NoError(t, books.Set(ctx, "GET /main/book/{bookId}:5", Book{ID: 5, Name: "from cache"}))
	code, b := do(t, mux, http.MethodGet, "/main/book/5", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "from cache", b.Name)
}

func TestInvalidRequestsAreNotCached(t *testing.T) {
	mux, books := newTestRouter(t)
	ctx := context.Background()

	code, _ := do(t, mux, http.MethodGet, "/main/book/abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
	_, ok, err := books.Get(ctx, "GET /main/book/{bookId}:abc")
	require.NoError(t, err)
	assert.False(t, ok)

	code, _ = do(t, mux, http.MethodPost, "/main/book/from-model", `{"id":`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCodecFor(t *testing.T) {
	for _, name := range []string{"", "json", "CBOR", "msgpack"} {
		c, err := codecFor[Book](name)
		require.NoError(t, err, name)
		raw, err := c.Encode(Book{ID: 1, Name: "n"})
		require.NoError(t, err)
		got, err := c.Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, Book{ID: 1, Name: "n"}, got)
	}
	_, err := codecFor[Book]("xml")
	assert.Error(t, err)
}
