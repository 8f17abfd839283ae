package client

import (
	"fmt"
	"net"
	"time"

	"github.com/Ph0m1/Prpc/loadbalance"
	"github.com/Ph0m1/Prpc/protocol"
	"github.com/Ph0m1/Prpc/rpc"
)

// CallBalanced is a supplementary call path, kept alongside the
// spec-mandated single-endpoint CallMethod: where CallMethod resolves a
// method to exactly one advertised "ip:port" (the first registration of
// a method is kept; a later one's create is a no-op), CallBalanced
// discovers every instance registered for a service and picks one with
// balancer — useful once a caller opts into running several providers
// behind one service name. It does not use GetData-based resolution; once
// an instance has been picked it borrows from, and on success releases
// back to, ch's connection pool under that instance's address.
func (ch *Channel) CallBalanced(method rpc.MethodDescriptor, balancer loadbalance.Balancer, controller *rpc.Controller, request, response any, done func()) {
	serviceName := method.Service().Name()
	methodName := method.Name()

	instances, err := ch.coord.Discover(serviceName)
	if err != nil {
		controller.SetFailed("discover error: " + err.Error())
		return
	}
	if len(instances) == 0 {
		controller.SetFailed(fmt.Sprintf("no instances registered for %s", serviceName))
		return
	}

	instance, err := balancer.Pick(instances)
	if err != nil {
		controller.SetFailed("pick instance error: " + err.Error())
		return
	}

	args, err := ch.codec.Encode(request)
	if err != nil {
		controller.SetFailed("serialize request error: " + err.Error())
		return
	}

	conn, err := ch.borrowOrDial(instance.Addr)
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

	ch.pool.release(instance.Addr, conn)

	if done != nil {
		done()
	}
}
