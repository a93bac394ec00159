package codec

import "google.golang.org/protobuf/proto"

// Protobuf serializes generated protobuf messages.
// Construct with NewProtobuf; the constructor yields a fresh message per Decode.
type Protobuf[T proto.Message] struct {
	new func() T // e.g. func() *mypb.Book { return &mypb.Book{} }
	mo   proto.MarshalOptions
	uo   proto.UnmarshalOptions
}

// NewProtobuf builds a codec with deterministic marshaling, so equal messages
// produce equal bytes.
func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{
		new: ctor,
		mo:  proto.MarshalOptions{Deterministic: true},
		uo:  proto.UnmarshalOptions{DiscardUnknown: true},
	}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return c.mo.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := c.uo.Unmarshal(b, m)
	return m, err
}
