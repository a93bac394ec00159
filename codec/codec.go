// Package codec converts typed entities to and from the byte payloads kept in a store.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Default returns the library-wide codec used when a facade is built without one.
func Default[V any]() Codec[V] {
	return JSON[V]{}
}
