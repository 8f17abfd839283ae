// Package client implements the caller side: resolving a method to an
// endpoint through the coordination store, pooling connections per
// endpoint, and running the request/response exchange under the call
// controller's deadline.
package client

import (
	"net"
	"strings"
	"time"

	"github.com/Ph0m1/Prpc/codec"
	"github.com/Ph0m1/Prpc/protocol"
	"github.com/Ph0m1/Prpc/registry"
	"github.com/Ph0m1/Prpc/rpc"
)

// Channel is the client-side object used to invoke remote methods. A
// single Channel is safe for concurrent CallMethod calls; only the
// connection pool is shared across caller goroutines.
type Channel struct {
	coord registry.Registry
	codec codec.Codec
	pool  *connPool
}

// NewChannel builds a Channel that resolves endpoints through coord and
// encodes/decodes message bodies with cdc.
func NewChannel(coord registry.Registry, cdc codec.Codec) *Channel {
	return &Channel{coord: coord, codec: cdc, pool: newConnPool()}
}

// CallMethod runs the full client-side algorithm: serialize request,
// resolve method to endpoint via the coordination store, borrow or dial a
// connection, send the frame in one write, read the response under the
// controller's deadline, and deserialize into response.
//
// On success, response is populated and done (if non-nil) is invoked
// exactly once before CallMethod returns; controller.Failed() stays
// false. On failure, controller.SetFailed is called with a description
// and done is never invoked.
func (ch *Channel) CallMethod(method rpc.MethodDescriptor, controller *rpc.Controller, request, response any, done func()) {
	serviceName := method.Service().Name()
	methodName := method.Name()

	args, err := ch.codec.Encode(request)
	if err != nil {
		controller.SetFailed("serialize request error: " + err.Error())
		return
	}

	path := "/" + serviceName + "/" + methodName
	hostData := ch.coord.GetData(path)
	if hostData == "" {
		controller.SetFailed(path + " is not exist!")
		return
	}
	if !strings.Contains(hostData, ":") {
		controller.SetFailed(path + " address is invalid!")
		return
	}
	addr := hostData

	conn, err := ch.borrowOrDial(addr)
	if err != nil {
		controller.SetFailed("connect error: " + err.Error())
		return
	}

	timeout := time.Duration(controller.GetTimeout()) * time.Millisecond
	conn.SetReadDeadline(time.Now().Add(timeout))

	if err := protocol.WriteRequest(conn, ch.codec, serviceName, methodName, args); err != nil {
		conn.Close()
		controller.SetFailed("send error: " + err.Error())
		return
	}

	payload, err := protocol.ReadResponse(conn, protocol.MaxResponseChunk)
	if err != nil {
		conn.Close()
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			controller.SetFailed("recv timeout")
		} else {
			controller.SetFailed("recv error: " + err.Error())
		}
		return
	}

	if err := ch.codec.Decode(payload, response); err != nil {
		conn.Close()
		controller.SetFailed("parse error: " + err.Error())
		return
	}

	ch.pool.release(addr, conn)

	if done != nil {
		done()
	}
}

// borrowOrDial takes an idle connection for addr from the pool, or dials
// a fresh one if none is idle.
func (ch *Channel) borrowOrDial(addr string) (net.Conn, error) {
	if conn, ok := ch.pool.borrow(addr); ok {
		return conn, nil
	}
	return net.Dial("tcp", addr)
}
