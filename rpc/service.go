package rpc

import "errors"

// ServiceDescriptor is the opaque handle the core uses to ask a service
// for its name and methods. Generated-code serializers and the
// reflection-based ReflectService both satisfy it.
type ServiceDescriptor interface {
	Name() string
	Methods() []MethodDescriptor
}

// MethodDescriptor names one method and points back at the service that
// owns it. The core never looks inside it beyond these two accessors.
type MethodDescriptor interface {
	Name() string
	Service() ServiceDescriptor
}

// ServiceHandle is a ServiceDescriptor that can also manufacture fresh
// request/response containers and run a method on behalf of the
// dispatcher.
type ServiceHandle interface {
	ServiceDescriptor

	// NewRequest and NewResponse return a fresh, empty container suitable
	// for codec.Decode / codec.Encode respectively.
	NewRequest(method MethodDescriptor) any
	NewResponse(method MethodDescriptor) any

	// Invoke runs method with the given controller, request and response,
	// and calls done exactly once once response holds the result to send
	// back. The returned error, if any, is a business-logic error from the
	// user's handler; it is logged by the caller and never travels over
	// the wire (there is no framework-level error channel in the response
	// envelope).
	Invoke(method MethodDescriptor, controller *Controller, request, response any, done func()) error
}

// ErrNotFound is returned by ServiceRegistry.Lookup when the service or
// the method within it is unknown.
var ErrNotFound = errors.New("rpc: service or method not found")

type registrationEntry struct {
	handle  ServiceHandle
	methods map[string]MethodDescriptor
}

// ServiceRegistry maps service name to its handle and method table. It is
// append-only: every NotifyService call must happen before the provider's
// accept loop starts, and no mutex guards the map — the happens-before
// edge between registration and the goroutines that later read it comes
// from the provider starting those goroutines only after registration
// completes, not from the registry itself.
type ServiceRegistry struct {
	entries map[string]*registrationEntry
}

// NewServiceRegistry returns an empty registry.
func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{entries: make(map[string]*registrationEntry)}
}

// NotifyService records handle under its own name, overwriting any
// previous registration under that name.
func (r *ServiceRegistry) NotifyService(handle ServiceHandle) {
	methods := make(map[string]MethodDescriptor)
	for _, m := range handle.Methods() {
		methods[m.Name()] = m
	}
	r.entries[handle.Name()] = &registrationEntry{handle: handle, methods: methods}
}

// Lookup returns the handle and method descriptor for serviceName.methodName,
// or ErrNotFound if either is unknown.
func (r *ServiceRegistry) Lookup(serviceName, methodName string) (ServiceHandle, MethodDescriptor, error) {
	entry, ok := r.entries[serviceName]
	if !ok {
		return nil, nil, ErrNotFound
	}
	method, ok := entry.methods[methodName]
	if !ok {
		return nil, nil, ErrNotFound
	}
	return entry.handle, method, nil
}

// Handles returns every registered service handle, for the provider to
// walk when announcing itself into the coordination store.
func (r *ServiceRegistry) Handles() []ServiceHandle {
	handles := make([]ServiceHandle, 0, len(r.entries))
	for _, entry := range r.entries {
		handles = append(handles, entry.handle)
	}
	return handles
}
