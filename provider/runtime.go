// Package provider implements the server side: advertising services into
// the coordination store, accepting connections, and dispatching each
// request to a registered method through a bounded worker pool.
package provider

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Ph0m1/Prpc/codec"
	"github.com/Ph0m1/Prpc/config"
	"github.com/Ph0m1/Prpc/middleware"
	"github.com/Ph0m1/Prpc/protocol"
	"github.com/Ph0m1/Prpc/registry"
	"github.com/Ph0m1/Prpc/rpc"
	"github.com/Ph0m1/Prpc/workerpool"
)

// Runtime hosts one or more services, advertises them into a
// coordination store, and serves RPC calls over TCP. A process needs at
// most one Runtime; there is no reason to run two.
type Runtime struct {
	services   *rpc.ServiceRegistry
	codec      codec.Codec
	dispatcher *rpc.Dispatcher
	pool       *workerpool.Pool

	middlewares []middleware.Middleware
	handler     middleware.HandlerFunc

	coord         registry.Registry
	advertiseAddr string

	listener net.Listener
	shutdown atomic.Bool
	wg       sync.WaitGroup // in-flight request handlers
}

// NewRuntime builds a Runtime that encodes/decodes message bodies with
// cdc and bounds concurrent request handling to poolSize workers
// (poolSize <= 0 defaults to the host's parallelism).
func NewRuntime(cdc codec.Codec, poolSize int) *Runtime {
	services := rpc.NewServiceRegistry()
	return &Runtime{
		services:   services,
		codec:      cdc,
		dispatcher: rpc.NewDispatcher(services, cdc),
		pool:       workerpool.New(poolSize),
	}
}

// NotifyService registers handle's methods. Every call must happen before
// Serve; the service registry is read-only once the accept loop starts.
func (rt *Runtime) NotifyService(handle rpc.ServiceHandle) {
	rt.services.NotifyService(handle)
}

// Use installs a middleware in front of the call dispatcher. Middlewares
// run in the order they were added.
func (rt *Runtime) Use(mw middleware.Middleware) {
	rt.middlewares = append(rt.middlewares, mw)
}

// Serve reads rpcserverip/rpcserverport from cfg, binds a listener on
// that address, announces every registered service into coord (unless
// coord is nil), and runs the accept loop until Shutdown is called or a
// fatal listener error occurs.
func (rt *Runtime) Serve(cfg config.Loader, coord registry.Registry) error {
	ip, ok := cfg.Load("rpcserverip")
	if !ok {
		return fmt.Errorf("provider: missing config key rpcserverip")
	}
	port, ok := cfg.Load("rpcserverport")
	if !ok {
		return fmt.Errorf("provider: missing config key rpcserverport")
	}
	addr := net.JoinHostPort(ip, port)

	// net.Listen already sets SO_REUSEADDR and picks a backlog comfortably
	// above the 20-connection floor; there is no hand-rolled socket setup
	// to do here the way a C provider does its own socket/setsockopt/bind/listen.
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("provider: listen on %s: %w", addr, err)
	}
	rt.listener = listener
	rt.advertiseAddr = addr
	rt.coord = coord
	rt.handler = middleware.Chain(rt.middlewares...)(rt.dispatchHandler)

	if coord != nil {
		if err := coord.Start(rt.onSessionExpired); err != nil {
			return fmt.Errorf("provider: start coordination store: %w", err)
		}
		if err := rt.registerServices(); err != nil {
			return fmt.Errorf("provider: register services: %w", err)
		}
	}

	log.Printf("provider: listening on %s", addr)
	for {
		conn, err := listener.Accept()
		if err != nil {
			if rt.shutdown.Load() {
				return nil
			}
			return err
		}
		go rt.handleConn(conn)
	}
}

// registerServices creates the persistent /<service> node and the
// ephemeral /<service>/<method> node (value "ip:port") for every
// registered service and method.
func (rt *Runtime) registerServices() error {
	for _, handle := range rt.services.Handles() {
		servicePath := "/" + handle.Name()
		if err := rt.coord.CreateNode(servicePath, nil, false); err != nil {
			return fmt.Errorf("provider: create %s: %w", servicePath, err)
		}
		for _, method := range handle.Methods() {
			methodPath := servicePath + "/" + method.Name()
			if err := rt.coord.CreateNode(methodPath, []byte(rt.advertiseAddr), true); err != nil {
				return fmt.Errorf("provider: create %s: %w", methodPath, err)
			}
		}
	}
	return nil
}

// onSessionExpired reconnects the coordination-store adapter and
// re-announces every service, recreating whatever ephemeral nodes were
// lost with the old session.
func (rt *Runtime) onSessionExpired() {
	log.Println("provider: coordination-store session expired, reconnecting")
	if err := rt.coord.Start(rt.onSessionExpired); err != nil {
		log.Printf("provider: reconnect failed: %v", err)
		return
	}
	if err := rt.registerServices(); err != nil {
		log.Printf("provider: re-registration failed: %v", err)
	}
}

// handleConn reads one frame at a time from conn and, for each, submits
// exactly one handler invocation to the worker pool — blocking until that
// invocation finishes before reading the next frame. This is what
// guarantees the readiness trigger for a given socket is never delivered
// to two workers concurrently: Go's blocking Read stands in for the
// readiness wait, and the per-frame block on the worker pool stands in
// for one-shot re-arming.
func (rt *Runtime) handleConn(conn net.Conn) {
	defer conn.Close()
	for {
		header, args, err := protocol.ReadRequest(conn, rt.codec)
		if err != nil {
			return
		}

		rt.wg.Add(1)
		done := make(chan struct{})
		var dropConn bool
		submitErr := rt.pool.Submit(func() {
			defer rt.wg.Done()
			defer close(done)
			dropConn = rt.handleRequest(header, args, conn)
		})
		if submitErr != nil {
			rt.wg.Done()
			return
		}
		<-done
		if dropConn {
			return
		}
	}
}

// handleRequest runs the request through the middleware chain and
// reports whether the connection must be dropped. A non-nil chain error
// here comes either from an installed middleware rejecting the call (for
// example a rate limit or a timeout) or from the dispatcher's "not found"
// or "malformed args" cases (see rpc.Dispatcher.Dispatch) — a business-logic error
// returned by the handler itself is swallowed by the dispatcher and never
// reaches here, so it never closes the connection.
func (rt *Runtime) handleRequest(header *protocol.RpcHeader, args []byte, conn net.Conn) (dropConn bool) {
	ctx := withSink(context.Background(), &connSink{conn: conn})
	req := &middleware.Request{
		ServiceName: header.ServiceName,
		MethodName:  header.MethodName,
		Args:        args,
	}

	result := rt.handler(ctx, req)
	if result.Err != nil {
		log.Printf("provider: %s.%s: %v", header.ServiceName, header.MethodName, result.Err)
		return true
	}
	return false
}

// dispatchHandler is the terminal link in the middleware chain: it builds
// the spec-mandated RpcHeader and a default no-op controller (the
// contract allows passing the user handler a null controller here; this
// implementation supplies a harmless stand-in instead so a handler that
// happens to query it does not crash) and hands off to the call
// dispatcher.
func (rt *Runtime) dispatchHandler(ctx context.Context, req *middleware.Request) *middleware.Result {
	header := &protocol.RpcHeader{
		ServiceName: req.ServiceName,
		MethodName:  req.MethodName,
		ArgsSize:    uint32(len(req.Args)),
	}
	controller := rpc.NewController()
	sink := sinkFromContext(ctx)

	if err := rt.dispatcher.Dispatch(header, req.Args, controller, sink); err != nil {
		return &middleware.Result{Err: err}
	}
	return &middleware.Result{}
}

// Shutdown stops accepting new connections, drains the worker pool, and
// waits up to timeout for in-flight requests to finish. Ephemeral service
// nodes are left to the coordination store's own session semantics
// (they disappear once the session ends) rather than explicitly deleted,
// since the C1 contract exposes no delete operation.
func (rt *Runtime) Shutdown(timeout time.Duration) error {
	rt.shutdown.Store(true)
	rt.listener.Close()

	done := make(chan struct{})
	go func() {
		rt.pool.Shutdown()
		rt.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("provider: timeout waiting for in-flight requests to finish")
	}
}

type sinkContextKey struct{}

func withSink(ctx context.Context, sink rpc.ResponseSink) context.Context {
	return context.WithValue(ctx, sinkContextKey{}, sink)
}

func sinkFromContext(ctx context.Context) rpc.ResponseSink {
	sink, _ := ctx.Value(sinkContextKey{}).(rpc.ResponseSink)
	return sink
}

// connSink writes a dispatched response back to the connection it
// arrived on, with a single unframed write — matching the spec's
// intentionally un-length-prefixed response.
type connSink struct {
	conn net.Conn
}

func (s *connSink) WriteResponse(payload []byte) error {
	return protocol.WriteResponse(s.conn, payload)
}
