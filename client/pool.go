package client

import (
	"net"
	"sync"
)

// connPool caches idle connections keyed by endpoint address. An entry
// only ever sits in the pool while idle; borrow removes it, release puts
// it back. There is no per-endpoint cap: a second concurrent call to an
// endpoint that finds the pool empty simply dials its own connection, so
// the pool only caches idle connections and never serializes calls to
// one endpoint.
type connPool struct {
	mu   sync.Mutex
	idle map[string][]net.Conn
}

func newConnPool() *connPool {
	return &connPool{idle: make(map[string][]net.Conn)}
}

// borrow removes and returns one idle connection for addr, if any.
func (p *connPool) borrow(addr string) (net.Conn, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns := p.idle[addr]
	if len(conns) == 0 {
		return nil, false
	}
	conn := conns[len(conns)-1]
	p.idle[addr] = conns[:len(conns)-1]
	return conn, true
}

// release returns a known-good connection to the pool. A connection that
// caused any I/O failure must never be released — the caller closes it
// instead.
func (p *connPool) release(addr string, conn net.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idle[addr] = append(p.idle[addr], conn)
}

// size reports the total number of idle connections cached across every
// endpoint, for tests asserting on pool growth.
func (p *connPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, conns := range p.idle {
		n += len(conns)
	}
	return n
}
