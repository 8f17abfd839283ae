package registry

// ServiceInstance describes one running instance of a service, as stored
// in the coordination store for the load-balanced discovery path.
type ServiceInstance struct {
	Addr    string
	Weight  int // Weight for load balancing
	Version string
}

// Registry is the coordination-store adapter. It serves two related
// purposes: the spec-mandated single-endpoint-per-method path
// (Start/CreateNode/GetData, mirroring a hierarchical store with
// ephemeral nodes and session events) and a supplementary
// multi-instance discovery path (Register/Deregister/Discover/Watch)
// used by the opt-in load-balanced client.
type Registry interface {
	// Start establishes a session against the coordination store and
	// blocks until the first connected state is observed. onSessionExpired
	// is invoked — on a goroutine, never while holding any internal lock —
	// when the session is lost, so the caller can reconnect and
	// re-announce.
	Start(onSessionExpired func()) error

	// CreateNode is idempotent: if the node already exists, it succeeds
	// without writing. Ephemeral nodes are tied to the session established
	// by Start and disappear if that session is lost.
	CreateNode(path string, data []byte, ephemeral bool) error

	// GetData returns the value at path, or the empty string if the path
	// does not exist or the read failed for any reason.
	GetData(path string) string

	Register(serviceName string, instance ServiceInstance, ttl int64) error
	Deregister(serviceName string, addr string) error
	Discover(serviceName string) ([]ServiceInstance, error)
	Watch(serviceName string) <-chan []ServiceInstance
}
