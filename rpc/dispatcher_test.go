package rpc

import (
	"testing"

	"github.com/Ph0m1/Prpc/codec"
	"github.com/Ph0m1/Prpc/protocol"
)

type recordingSink struct {
	payload []byte
	err     error
}

func (s *recordingSink) WriteResponse(payload []byte) error {
	s.payload = payload
	return s.err
}

func newDispatcher() (*Dispatcher, *ServiceRegistry) {
	reg := NewServiceRegistry()
	svc, err := NewReflectService(&UserService{})
	if err != nil {
		panic(err)
	}
	reg.NotifyService(svc)
	return NewDispatcher(reg, codec.GetCodec(codec.CodecTypeJSON)), reg
}

func TestDispatchHappyPath(t *testing.T) {
	d, _ := newDispatcher()
	header := &protocol.RpcHeader{ServiceName: "UserService", MethodName: "Login"}
	args := []byte(`{"Name":"alice","Pwd":"pw"}`)

	sink := &recordingSink{}
	if err := d.Dispatch(header, args, NewController(), sink); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if sink.payload == nil {
		t.Fatal("expected a response to be written")
	}
}

func TestDispatchUnknownMethod(t *testing.T) {
	d, _ := newDispatcher()
	header := &protocol.RpcHeader{ServiceName: "UserService", MethodName: "Logout"}

	sink := &recordingSink{}
	if err := d.Dispatch(header, nil, NewController(), sink); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if sink.payload != nil {
		t.Fatal("expected no response written for an unknown method")
	}
}

func TestDispatchZeroArgsSizeSkipsDecode(t *testing.T) {
	d, _ := newDispatcher()
	header := &protocol.RpcHeader{ServiceName: "UserService", MethodName: "Login"}

	sink := &recordingSink{}
	if err := d.Dispatch(header, nil, NewController(), sink); err != nil {
		t.Fatalf("expected zero-length args to be accepted, got: %v", err)
	}
	if sink.payload == nil {
		t.Fatal("expected a response even for a zero-value request")
	}
}

func TestDispatchMalformedArgsClosesConnection(t *testing.T) {
	d, _ := newDispatcher()
	header := &protocol.RpcHeader{ServiceName: "UserService", MethodName: "Login"}

	sink := &recordingSink{}
	if err := d.Dispatch(header, []byte("not json"), NewController(), sink); err == nil {
		t.Fatal("expected a decode error for malformed args")
	}
	if sink.payload != nil {
		t.Fatal("expected no response written on a decode failure")
	}
}
