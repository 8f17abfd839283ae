package rpc

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type reflectMethod struct {
	method    reflect.Method
	argType   reflect.Type
	replyType reflect.Type
}

// ReflectService adapts a plain Go struct into a ServiceHandle by
// reflecting over its exported methods, the same way net/rpc-flavored
// frameworks do: any method shaped func(*Args, *Reply) error is picked up
// as an RPC method, named after the method itself.
type ReflectService struct {
	name    string
	rcvr    reflect.Value
	typ     reflect.Type
	methods map[string]*reflectMethod
	order   []string
}

// NewReflectService builds a ReflectService around rcvr, which must be a
// pointer to a struct. The service's name is the struct's type name.
func NewReflectService(rcvr any) (*ReflectService, error) {
	typ := reflect.TypeOf(rcvr)
	if typ == nil || typ.Kind() != reflect.Ptr {
		return nil, fmt.Errorf("rpc: rcvr must be a pointer, got %v", typ)
	}
	if typ.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("rpc: rcvr must point to a struct, got %s", typ.Elem().Kind())
	}

	s := &ReflectService{
		name:    typ.Elem().Name(),
		rcvr:    reflect.ValueOf(rcvr),
		typ:     typ,
		methods: make(map[string]*reflectMethod),
	}
	s.scanMethods()
	if len(s.order) == 0 {
		return nil, fmt.Errorf("rpc: %s exposes no methods shaped func(*Args, *Reply) error", s.name)
	}
	return s, nil
}

// scanMethods walks the receiver's method set, keeping only methods with
// exactly the RPC-compatible shape: two pointer arguments in, one error
// out.
func (s *ReflectService) scanMethods() {
	for i := 0; i < s.typ.NumMethod(); i++ {
		method := s.typ.Method(i)
		mtype := method.Type
		if mtype.NumIn() != 3 || mtype.NumOut() != 1 || mtype.Out(0) != errorType {
			continue
		}
		if mtype.In(1).Kind() != reflect.Ptr || mtype.In(2).Kind() != reflect.Ptr {
			continue
		}
		s.methods[method.Name] = &reflectMethod{
			method:    method,
			argType:   mtype.In(1).Elem(),
			replyType: mtype.In(2).Elem(),
		}
		s.order = append(s.order, method.Name)
	}
}

func (s *ReflectService) Name() string { return s.name }

func (s *ReflectService) Methods() []MethodDescriptor {
	out := make([]MethodDescriptor, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, &reflectMethodDescriptor{service: s, name: name})
	}
	return out
}

func (s *ReflectService) NewRequest(method MethodDescriptor) any {
	mt := s.methods[method.Name()]
	return reflect.New(mt.argType).Interface()
}

func (s *ReflectService) NewResponse(method MethodDescriptor) any {
	mt := s.methods[method.Name()]
	return reflect.New(mt.replyType).Interface()
}

// Invoke calls the underlying Go method by reflection, then fires done —
// the method has already populated response by the time done runs, so
// there is nothing asynchronous about this handle; done exists so the
// dispatcher's completion contract is uniform across handle
// implementations that might genuinely defer the response.
func (s *ReflectService) Invoke(method MethodDescriptor, controller *Controller, request, response any, done func()) error {
	mt, ok := s.methods[method.Name()]
	if !ok {
		return fmt.Errorf("rpc: %s has no method %s", s.name, method.Name())
	}

	args := [3]reflect.Value{s.rcvr, reflect.ValueOf(request), reflect.ValueOf(response)}
	results := mt.method.Func.Call(args[:])

	if done != nil {
		done()
	}

	if !results[0].IsNil() {
		return results[0].Interface().(error)
	}
	return nil
}

type reflectMethodDescriptor struct {
	service *ReflectService
	name    string
}

func (d *reflectMethodDescriptor) Name() string               { return d.name }
func (d *reflectMethodDescriptor) Service() ServiceDescriptor { return d.service }
