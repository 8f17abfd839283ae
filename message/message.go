// Package message defines a small concrete request/response envelope used
// as the stand-in message type in tests and examples throughout this
// module — the shape a generated-from-schema message would have, without
// requiring an actual schema compiler.
package message

import (
	"encoding/binary"
	"errors"
)

// RPCMessage is a generic serializable message: a service/method label, a
// payload, and an error string. It implements its own binary
// serialization by hand, the way a test double for a generated message
// type would.
type RPCMessage struct {
	ServiceMethod string // Format: "ServiceName.MethodName", e.g., "Arith.Add"
	Error         string // Non-empty if the handler reported a failure
	Payload       []byte // Serialized args (request) or reply (response)
}

// MarshalBinary implements encoding.BinaryMarshaler so RPCMessage can be
// round-tripped through codec.BinaryCodec without reflection.
func (m *RPCMessage) MarshalBinary() ([]byte, error) {
	total := 2 + len(m.ServiceMethod) + 4 + len(m.Payload) + 2 + len(m.Error)
	buf := make([]byte, total)

	offset := 0
	binary.BigEndian.PutUint16(buf[offset:offset+2], uint16(len(m.ServiceMethod)))
	offset += 2
	copy(buf[offset:offset+len(m.ServiceMethod)], m.ServiceMethod)
	offset += len(m.ServiceMethod)

	binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(len(m.Payload)))
	offset += 4
	copy(buf[offset:offset+len(m.Payload)], m.Payload)
	offset += len(m.Payload)

	binary.BigEndian.PutUint16(buf[offset:offset+2], uint16(len(m.Error)))
	offset += 2
	copy(buf[offset:offset+len(m.Error)], m.Error)

	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler, the inverse of
// MarshalBinary.
func (m *RPCMessage) UnmarshalBinary(data []byte) error {
	offset := 0

	if len(data) < offset+2 {
		return errors.New("message: truncated service method length")
	}
	strLen := binary.BigEndian.Uint16(data[offset : offset+2])
	offset += 2
	if len(data) < offset+int(strLen) {
		return errors.New("message: truncated service method")
	}
	m.ServiceMethod = string(data[offset : offset+int(strLen)])
	offset += int(strLen)

	if len(data) < offset+4 {
		return errors.New("message: truncated payload length")
	}
	payloadLen := binary.BigEndian.Uint32(data[offset : offset+4])
	offset += 4
	if len(data) < offset+int(payloadLen) {
		return errors.New("message: truncated payload")
	}
	m.Payload = append([]byte(nil), data[offset:offset+int(payloadLen)]...)
	offset += int(payloadLen)

	if len(data) < offset+2 {
		return errors.New("message: truncated error length")
	}
	errLen := binary.BigEndian.Uint16(data[offset : offset+2])
	offset += 2
	if len(data) < offset+int(errLen) {
		return errors.New("message: truncated error text")
	}
	m.Error = string(data[offset : offset+int(errLen)])

	return nil
}
