package provider

import (
	"net"
	"testing"
	"time"

	"github.com/Ph0m1/Prpc/codec"
	"github.com/Ph0m1/Prpc/config"
	"github.com/Ph0m1/Prpc/protocol"
	"github.com/Ph0m1/Prpc/registry"
	"github.com/Ph0m1/Prpc/rpc"
)

// fakeCoordStore is an in-memory stand-in for the coordination store,
// exercising the C1 contract (Start/CreateNode/GetData) without a live
// etcd cluster.
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

func TestRuntimeServeAndRegister(t *testing.T) {
	rt := NewRuntime(codec.GetCodec(codec.CodecTypeJSON), 2)

	svc, err := rpc.NewReflectService(&Arith{})
	if err != nil {
		t.Fatal(err)
	}
	rt.NotifyService(svc)

	coord := newFakeCoordStore()
	cfg := config.MapLoader{"rpcserverip": "127.0.0.1", "rpcserverport": "18881"}

	go rt.Serve(cfg, coord)
	defer rt.Shutdown(time.Second)
	time.Sleep(100 * time.Millisecond)

	if got := coord.GetData("/Arith/Add"); got != "127.0.0.1:18881" {
		t.Fatalf("expected the method node to advertise 127.0.0.1:18881, got %q", got)
	}

	conn, err := net.Dial("tcp", "127.0.0.1:18881")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	cdc := codec.GetCodec(codec.CodecTypeJSON)
	args, err := cdc.Encode(&Args{A: 2, B: 3})
	if err != nil {
		t.Fatal(err)
	}
	if err := protocol.WriteRequest(conn, cdc, "Arith", "Add", args); err != nil {
		t.Fatal(err)
	}

	payload, err := protocol.ReadResponse(conn, protocol.MaxResponseChunk)
	if err != nil {
		t.Fatal(err)
	}

	var reply Reply
	if err := cdc.Decode(payload, &reply); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if reply.Result != 5 {
		t.Fatalf("expected 5, got %d", reply.Result)
	}
}

func TestRuntimeUnknownMethodClosesConnection(t *testing.T) {
	rt := NewRuntime(codec.GetCodec(codec.CodecTypeJSON), 2)
	svc, err := rpc.NewReflectService(&Arith{})
	if err != nil {
		t.Fatal(err)
	}
	rt.NotifyService(svc)

	cfg := config.MapLoader{"rpcserverip": "127.0.0.1", "rpcserverport": "18882"}
	go rt.Serve(cfg, nil)
	defer rt.Shutdown(time.Second)
	time.Sleep(100 * time.Millisecond)

	conn, err := net.Dial("tcp", "127.0.0.1:18882")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	cdc := codec.GetCodec(codec.CodecTypeJSON)
	if err := protocol.WriteRequest(conn, cdc, "Arith", "Subtract", nil); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := conn.Read(buf); err == nil {
		t.Fatal("expected the connection to be closed for an unknown method")
	}
}
