package codec

import (
	"encoding"
	"fmt"
)

// BinaryCodec serializes through the standard encoding.BinaryMarshaler /
// encoding.BinaryUnmarshaler pair instead of reflection, so any message
// type — generated or hand-written — opts in just by implementing those
// two methods.
type BinaryCodec struct{}

func (c *BinaryCodec) Encode(v any) ([]byte, error) {
	m, ok := v.(encoding.BinaryMarshaler)
	if !ok {
		return nil, fmt.Errorf("codec: %T does not implement encoding.BinaryMarshaler", v)
	}
	return m.MarshalBinary()
}

func (c *BinaryCodec) Decode(data []byte, v any) error {
	m, ok := v.(encoding.BinaryUnmarshaler)
	if !ok {
		return fmt.Errorf("codec: %T does not implement encoding.BinaryUnmarshaler", v)
	}
	return m.UnmarshalBinary(data)
}

func (c *BinaryCodec) Type() CodecType {
	return CodecTypeBinary
}
