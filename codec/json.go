package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// JSONOptions tune JSON encoding. The zero value matches encoding/json defaults.
type JSONOptions struct {
	// DisallowUnknownFields rejects payloads carrying fields V does not declare.
	// Useful to treat an entry written by an older/newer shape of V as a miss.
	DisallowUnknownFields bool
	// UseNumber decodes numbers inside interface{} fields as json.Number.
	UseNumber bool
	// DisableHTMLEscape keeps <, > and & verbatim.
	DisableHTMLEscape bool
}

// JSON is a Codec backed by encoding/json. The zero value is ready to use.
type JSON[V any] struct {
	Options JSONOptions
}

var _ Codec[struct{}] = JSON[struct{}]{}

func NewJSON[V any](opts JSONOptions) JSON[V] { return JSON[V]{Options: opts} }

func (c JSON[V]) Encode(v V) ([]byte, error) {
	if !c.Options.DisableHTMLEscape {
		return json.Marshal(v)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

func (c JSON[V]) Decode(b []byte) (V, error) {
	var v V
	if c.Options == (JSONOptions{}) {
		err := json.Unmarshal(b, &v)
		return v, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	if c.Options.DisallowUnknownFields {
		dec.DisallowUnknownFields()
	}
	if c.Options.UseNumber {
		dec.UseNumber()
	}
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	// single document only
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		var zero V
		return zero, errors.New("codec: trailing data after JSON value")
	}
	return v, nil
}
