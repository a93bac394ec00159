package codec

import (
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type book struct {
	ID   int    `json:"id" msgpack:"id" cbor:"id"`
	Name string `json:"name" msgpack:"name" cbor:"name"`
}

func TestCodecsRoundTrip(t *testing.T) {
	want := book{ID: 7, Name: "Redis Cache Manager"}

	codecs := map[string]Codec[book]{
		"default":      Default[book](),
		"json-strict":  NewJSON[book](JSONOptions{DisallowUnknownFields: true}),
		"msgpack":      Msgpack[book]{},
		"msgpack-json": Msgpack[book]{UseJSONTag: true},
		"cbor":         MustCBOR[book](CBOROptions{}),
		"cbor-det":     MustCBOR[book](CBOROptions{Deterministic: true, StrictMaps: true}),
		"limit":        Limit[book]{Inner: JSON[book]{}, MaxDecode: 1024},
	}
	for name, c := range codecs {
		b, err := c.Encode(want)
		if err != nil {
			t.Fatalf("%s: encode: %v", name, err)
		}
		got, err := c.Decode(b)
		if err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		if got != want {
			t.Fatalf("%s: got %+v want %+v", name, got, want)
		}
	}
}

func TestMsgpackJSONTag(t *testing.T) {
	type jsonOnly struct {
		BookID int `json:"book_id"`
	}
	c := Msgpack[jsonOnly]{UseJSONTag: true}
	b, err := c.Encode(jsonOnly{BookID: 7})
	if err != nil {
		t.Fatal(err)
	}

	var m map[string]any
	if err := msgpack.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["book_id"]; !ok {
		t.Fatalf("json tag not used as key: %v", m)
	}

	got, err := c.Decode(b)
	if err != nil || got.BookID != 7 {
		t.Fatalf("decode: got %+v err %v", got, err)
	}
}

func TestRawCodecs(t *testing.T) {
	raw := []byte{0x00, 0xff, 'k'}
	b, err := Bytes{}.Encode(raw)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Bytes{}.Decode(b)
	if err != nil || string(got) != string(raw) {
		t.Fatalf("bytes: got %v err %v", got, err)
	}

	b, err = String{}.Encode("book-key")
	if err != nil {
		t.Fatal(err)
	}
	s, err := String{}.Decode(b)
	if err != nil || s != "book-key" {
		t.Fatalf("string: got %q err %v", s, err)
	}
}

func TestJSONOptions(t *testing.T) {
	strict := NewJSON[book](JSONOptions{DisallowUnknownFields: true})
	if _, err := strict.Decode([]byte(`{"id":1,"extra":true}`)); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
	if _, err := strict.Decode([]byte(`{"id":1} {"id":2}`)); err == nil {
		t.Fatalf("expected trailing document to be rejected")
	}
	if _, err := (JSON[book]{}).Decode([]byte(`{"id":1,"extra":true}`)); err != nil {
		t.Fatalf("default JSON should ignore unknown fields: %v", err)
	}

	raw := NewJSON[string](JSONOptions{DisableHTMLEscape: true})
	b, err := raw.Encode("<b>&</b>")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(b) != `"<b>&</b>"` {
		t.Fatalf("unexpected escaping: %s", b)
	}

	num := NewJSON[map[string]any](JSONOptions{UseNumber: true})
	m, err := num.Decode([]byte(`{"n":12345678901234567890}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := m["n"].(interface{ String() string }); !ok {
		t.Fatalf("expected json.Number, got %T", m["n"])
	}
}

func TestJSONDecodeGarbage(t *testing.T) {
	if _, err := (JSON[book]{}).Decode([]byte("not-json")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLimitRejectsOversized(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxDecode: 4}
	if _, err := c.Decode([]byte("12345")); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected size error, got %v", err)
	}
	if v, err := c.Decode([]byte("1234")); err != nil || v != "1234" {
		t.Fatalf("expected pass-through, got %q %v", v, err)
	}
	unlimited := Limit[string]{Inner: String{}}
	if _, err := unlimited.Decode(make([]byte, 1<<16)); err != nil {
		t.Fatalf("MaxDecode<=0 should disable limit: %v", err)
	}
}

func TestProtobuf(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := c.Encode(wrapperspb.String("book-key"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := c.Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !proto.Equal(got, wrapperspb.String("book-key")) {
		t.Fatalf("got %v", got)
	}
	if _, err := c.Decode([]byte{0xff, 0xff, 0xff}); err == nil {
		t.Fatalf("expected error on garbage")
	}
}
