package rpc

import (
	"fmt"
	"log"

	"github.com/Ph0m1/Prpc/codec"
	"github.com/Ph0m1/Prpc/protocol"
)

// ResponseSink is how a Dispatch's completion writes the serialized
// response back to wherever it came from. The provider runtime implements
// it as "write payload to the socket in one call"; tests can implement it
// as an in-memory recorder.
type ResponseSink interface {
	WriteResponse(payload []byte) error
}

// Dispatcher is the logic behind a provider's per-connection request
// handler, broken out so it can be exercised without a socket: given a
// parsed header, the raw args bytes, a controller, and a place to write
// the response, it looks the method up in a ServiceRegistry, builds
// request/response containers, invokes the handler, and writes back
// through sink.
type Dispatcher struct {
	registry *ServiceRegistry
	codec    codec.Codec
}

// NewDispatcher builds a Dispatcher over registry, encoding and decoding
// message bodies with cdc.
func NewDispatcher(registry *ServiceRegistry, cdc codec.Codec) *Dispatcher {
	return &Dispatcher{registry: registry, codec: cdc}
}

// Dispatch implements the lookup-decode-invoke-encode sequence. A non-nil
// error here means "drop the connection" — unknown service/method or a
// malformed args payload — matching the server's close-on-error contract.
// A business-logic error returned by the handler itself is NOT surfaced
// this way: it is logged and the response, whatever the handler left in
// it, is still sent.
func (d *Dispatcher) Dispatch(header *protocol.RpcHeader, args []byte, controller *Controller, sink ResponseSink) error {
	handle, method, err := d.registry.Lookup(header.ServiceName, header.MethodName)
	if err != nil {
		return err
	}

	request := handle.NewRequest(method)
	response := handle.NewResponse(method)

	// args_size 0 is valid: the request container stays at its zero value
	// rather than being run through Decode, since most codecs (JSON among
	// them) reject an empty byte string as malformed input.
	if len(args) > 0 {
		if err := d.codec.Decode(args, request); err != nil {
			return fmt.Errorf("rpc: decode args for %s.%s: %w", header.ServiceName, header.MethodName, err)
		}
	}

	done := func() {
		payload, err := d.codec.Encode(response)
		if err != nil {
			log.Printf("rpc: encode response for %s.%s: %v", header.ServiceName, header.MethodName, err)
			return
		}
		if err := sink.WriteResponse(payload); err != nil {
			log.Printf("rpc: write response for %s.%s: %v", header.ServiceName, header.MethodName, err)
		}
	}

	if err := handle.Invoke(method, controller, request, response, done); err != nil {
		log.Printf("rpc: handler %s.%s returned error: %v", header.ServiceName, header.MethodName, err)
	}

	return nil
}
