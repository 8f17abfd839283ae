// Package protocol implements the wire framing for prpc requests and
// responses.
//
// A request is three regions written in one stream write:
//
//	[header_length: u32 little-endian][RpcHeader bytes][args bytes]
//
// header_length is the byte length of the RpcHeader region; the args
// region is exactly ArgsSize bytes, as declared inside the header.
//
// A response carries no envelope at all — the server writes the raw
// serialized response message and nothing else. The client reads one
// chunk of up to MaxResponseChunk bytes. This is deliberate and is not a
// bug: see the doc comment on ReadResponse.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Ph0m1/Prpc/codec"
)

const (
	// HeaderLenFieldSize is the width of the length prefix in front of the header.
	HeaderLenFieldSize = 4

	// MaxHeaderLen bounds the serialized RpcHeader region.
	MaxHeaderLen = 1 << 20 // 1 MiB

	// MaxArgsLen bounds the args region of a request.
	MaxArgsLen = 16 << 20 // 16 MiB

	// MaxResponseChunk is how much of a response the client reads in one
	// Read call, since the response carries no length prefix.
	MaxResponseChunk = 64 * 1024 // 64 KiB
)

var (
	ErrHeaderTooLarge   = errors.New("protocol: header exceeds size limit")
	ErrArgsTooLarge     = errors.New("protocol: args exceed size limit")
	ErrZeroLengthHeader = errors.New("protocol: zero-length header")
)

// RpcHeader carries the routing metadata for one request: which service,
// which method, and how many bytes of args follow it.
type RpcHeader struct {
	ServiceName string
	MethodName  string
	ArgsSize    uint32
}

// MarshalBinary gives RpcHeader a compact wire form so codec.BinaryCodec
// can serialize it without reflection.
func (h RpcHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 2+len(h.ServiceName)+2+len(h.MethodName)+4)
	offset := 0
	binary.BigEndian.PutUint16(buf[offset:offset+2], uint16(len(h.ServiceName)))
	offset += 2
	copy(buf[offset:], h.ServiceName)
	offset += len(h.ServiceName)
	binary.BigEndian.PutUint16(buf[offset:offset+2], uint16(len(h.MethodName)))
	offset += 2
	copy(buf[offset:], h.MethodName)
	offset += len(h.MethodName)
	binary.BigEndian.PutUint32(buf[offset:offset+4], h.ArgsSize)
	return buf, nil
}

// UnmarshalBinary is the inverse of MarshalBinary.
func (h *RpcHeader) UnmarshalBinary(data []byte) error {
	offset := 0
	if len(data) < offset+2 {
		return errors.New("protocol: truncated header: service name length")
	}
	slen := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2
	if len(data) < offset+slen {
		return errors.New("protocol: truncated header: service name")
	}
	h.ServiceName = string(data[offset : offset+slen])
	offset += slen

	if len(data) < offset+2 {
		return errors.New("protocol: truncated header: method name length")
	}
	mlen := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2
	if len(data) < offset+mlen {
		return errors.New("protocol: truncated header: method name")
	}
	h.MethodName = string(data[offset : offset+mlen])
	offset += mlen

	if len(data) < offset+4 {
		return errors.New("protocol: truncated header: args size")
	}
	h.ArgsSize = binary.BigEndian.Uint32(data[offset : offset+4])
	return nil
}

// WriteRequest assembles and writes a complete request frame: the header
// length prefix, the serialized header, and the args bytes, in one
// Write call.
func WriteRequest(w io.Writer, cdc codec.Codec, serviceName, methodName string, args []byte) error {
	if len(args) > MaxArgsLen {
		return ErrArgsTooLarge
	}

	header := RpcHeader{ServiceName: serviceName, MethodName: methodName, ArgsSize: uint32(len(args))}
	headerBytes, err := cdc.Encode(&header)
	if err != nil {
		return fmt.Errorf("protocol: encode header: %w", err)
	}
	if len(headerBytes) > MaxHeaderLen {
		return ErrHeaderTooLarge
	}

	buf := make([]byte, HeaderLenFieldSize+len(headerBytes)+len(args))
	binary.LittleEndian.PutUint32(buf[:HeaderLenFieldSize], uint32(len(headerBytes)))
	copy(buf[HeaderLenFieldSize:], headerBytes)
	copy(buf[HeaderLenFieldSize+len(headerBytes):], args)

	_, err = w.Write(buf)
	return err
}

// ReadRequest parses one request frame from r: the 4-byte little-endian
// header length, then exactly that many header bytes, then exactly
// ArgsSize args bytes. Short reads are retried internally via
// io.ReadFull; a peer close or a malformed frame is returned as an error
// and the caller is expected to drop the connection.
func ReadRequest(r io.Reader, cdc codec.Codec) (*RpcHeader, []byte, error) {
	lenBuf := make([]byte, HeaderLenFieldSize)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, nil, err
	}

	headerLen := binary.LittleEndian.Uint32(lenBuf)
	if headerLen == 0 {
		return nil, nil, ErrZeroLengthHeader
	}
	if headerLen > MaxHeaderLen {
		return nil, nil, ErrHeaderTooLarge
	}

	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, nil, err
	}

	var header RpcHeader
	if err := cdc.Decode(headerBytes, &header); err != nil {
		return nil, nil, fmt.Errorf("protocol: decode header: %w", err)
	}

	if header.ArgsSize > MaxArgsLen {
		return nil, nil, ErrArgsTooLarge
	}

	args := make([]byte, header.ArgsSize)
	if header.ArgsSize > 0 {
		if _, err := io.ReadFull(r, args); err != nil {
			return nil, nil, err
		}
	}

	return &header, args, nil
}

// WriteResponse writes the raw serialized response bytes with no framing
// at all, and does not close or half-close the connection afterward.
func WriteResponse(w io.Writer, payload []byte) error {
	_, err := w.Write(payload)
	return err
}

// ReadResponse reads a single chunk of up to maxChunk bytes and returns
// exactly what was read.
//
// This is the protocol's one open design question (see the package
// comment): a response with no length prefix can't be distinguished from
// a response that was truncated by TCP segmentation. A response larger
// than maxChunk in one read is silently truncated here, by design,
// matching the specification this module implements rather than fixing
// it unasked.
func ReadResponse(r io.Reader, maxChunk int) ([]byte, error) {
	buf := make([]byte, maxChunk)
	n, err := r.Read(buf)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return nil, err
	}
	return buf[:n], nil
}
