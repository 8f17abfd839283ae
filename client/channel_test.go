package client

import (
	"testing"
	"time"

	"github.com/Ph0m1/Prpc/codec"
	"github.com/Ph0m1/Prpc/config"
	"github.com/Ph0m1/Prpc/provider"
	"github.com/Ph0m1/Prpc/registry"
	"github.com/Ph0m1/Prpc/rpc"
)

// fakeCoordStore is an in-memory stand-in for the coordination store,
// shared between a provider and a channel in these tests the way a real
// etcd cluster would be shared between separate processes.
type fakeCoordStore struct {
	nodes map[string]string
}

func newFakeCoordStore() *fakeCoordStore {
	return &fakeCoordStore{nodes: make(map[string]string)}
}

func (f *fakeCoordStore) Start(onSessionExpired func()) error { return nil }

func (f *fakeCoordStore) CreateNode(path string, data []byte, ephemeral bool) error {
	if _, exists := f.nodes[path]; exists {
		return nil
	}
	f.nodes[path] = string(data)
	return nil
}

func (f *fakeCoordStore) GetData(path string) string {
	return f.nodes[path]
}

func (f *fakeCoordStore) Register(serviceName string, instance registry.ServiceInstance, ttl int64) error {
	return nil
}
func (f *fakeCoordStore) Deregister(serviceName string, addr string) error { return nil }
func (f *fakeCoordStore) Discover(serviceName string) ([]registry.ServiceInstance, error) {
	return nil, nil
}
func (f *fakeCoordStore) Watch(serviceName string) <-chan []registry.ServiceInstance {
	return make(chan []registry.ServiceInstance)
}

type Args struct{ A, B int }
type Reply struct{ Result int }
type Arith struct{}

func (a *Arith) Add(args *Args, reply *Reply) error {
	reply.Result = args.A + args.B
	return nil
}

func (a *Arith) Sleep(args *Args, reply *Reply) error {
	time.Sleep(500 * time.Millisecond)
	reply.Result = args.A
	return nil
}

func startTestProvider(t *testing.T, coord registry.Registry, addrPort string) *provider.Runtime {
	rt := provider.NewRuntime(codec.GetCodec(codec.CodecTypeJSON), 4)
	svc, err := rpc.NewReflectService(&Arith{})
	if err != nil {
		t.Fatal(err)
	}
	rt.NotifyService(svc)

	cfg := config.MapLoader{"rpcserverip": "127.0.0.1", "rpcserverport": addrPort}
	go rt.Serve(cfg, coord)
	time.Sleep(100 * time.Millisecond)
	return rt
}

func arithMethod(t *testing.T, name string) rpc.MethodDescriptor {
	svc, err := rpc.NewReflectService(&Arith{})
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range svc.Methods() {
		if m.Name() == name {
			return m
		}
	}
	t.Fatalf("no method named %s", name)
	return nil
}

func TestCallMethodHappyPath(t *testing.T) {
	coord := newFakeCoordStore()
	rt := startTestProvider(t, coord, "18891")
	defer rt.Shutdown(time.Second)

	ch := NewChannel(coord, codec.GetCodec(codec.CodecTypeJSON))
	controller := rpc.NewController()
	request := &Args{A: 2, B: 3}
	response := &Reply{}

	var doneCalled bool
	ch.CallMethod(arithMethod(t, "Add"), controller, request, response, func() { doneCalled = true })

	if controller.Failed() {
		t.Fatalf("unexpected failure: %s", controller.ErrorText())
	}
	if !doneCalled {
		t.Fatal("expected done to be called")
	}
	if response.Result != 5 {
		t.Fatalf("expected 5, got %d", response.Result)
	}
}

func TestCallMethodUnknownEndpoint(t *testing.T) {
	coord := newFakeCoordStore()
	ch := NewChannel(coord, codec.GetCodec(codec.CodecTypeJSON))
	controller := rpc.NewController()

	ch.CallMethod(arithMethod(t, "Add"), controller, &Args{}, &Reply{}, nil)

	if !controller.Failed() {
		t.Fatal("expected failure for an unregistered method")
	}
}

func TestCallMethodTimeout(t *testing.T) {
	coord := newFakeCoordStore()
	rt := startTestProvider(t, coord, "18892")
	defer rt.Shutdown(time.Second)

	ch := NewChannel(coord, codec.GetCodec(codec.CodecTypeJSON))
	controller := rpc.NewController()
	controller.SetTimeout(100)

	ch.CallMethod(arithMethod(t, "Sleep"), controller, &Args{A: 1}, &Reply{}, nil)

	if !controller.Failed() {
		t.Fatal("expected the call to time out")
	}
	if controller.ErrorText() != "recv timeout" {
		t.Fatalf("expected %q, got %q", "recv timeout", controller.ErrorText())
	}
	if ch.pool.size() != 0 {
		t.Fatalf("expected the timed-out connection to be evicted, pool has %d entries", ch.pool.size())
	}
}

func TestCallMethodReusesConnection(t *testing.T) {
	coord := newFakeCoordStore()
	rt := startTestProvider(t, coord, "18893")
	defer rt.Shutdown(time.Second)

	ch := NewChannel(coord, codec.GetCodec(codec.CodecTypeJSON))

	for i := 0; i < 2; i++ {
		controller := rpc.NewController()
		ch.CallMethod(arithMethod(t, "Add"), controller, &Args{A: 1, B: 1}, &Reply{}, nil)
		if controller.Failed() {
			t.Fatalf("call %d failed: %s", i, controller.ErrorText())
		}
	}

	if ch.pool.size() != 1 {
		t.Fatalf("expected exactly 1 pooled connection after 2 back-to-back calls, got %d", ch.pool.size())
	}
}
