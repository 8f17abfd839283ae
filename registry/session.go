package registry

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// sessionTTLSeconds is the TTL of the lease backing ephemeral nodes
// created through CreateNode, analogous to a ZooKeeper session timeout.
const sessionTTLSeconds = 10

// Start establishes the session lease used by ephemeral CreateNode
// calls, and blocks until a first round-trip to etcd succeeds — the
// "first connected state" spec.md's coordination-store adapter requires.
// onSessionExpired fires on its own goroutine, once, if the lease is
// lost (revoked, expired, or the keepalive stream breaks) — it never
// runs while r.mu is held.
func (r *EtcdRegistry) Start(onSessionExpired func()) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := r.client.Get(ctx, "/", clientv3.WithLimit(1)); err != nil {
		return fmt.Errorf("registry: connect: %w", err)
	}

	lease, err := r.client.Grant(context.Background(), sessionTTLSeconds)
	if err != nil {
		return fmt.Errorf("registry: grant session lease: %w", err)
	}

	keepAlive, err := r.client.KeepAlive(context.Background(), lease.ID)
	if err != nil {
		return fmt.Errorf("registry: keepalive session lease: %w", err)
	}

	r.mu.Lock()
	r.sessionLease = lease.ID
	r.mu.Unlock()

	go func() {
		for range keepAlive {
		}
		// The keepalive channel only closes when the lease is gone —
		// expired, revoked, or the watch stream broke. Either way, every
		// ephemeral node tied to it is gone too.
		if onSessionExpired != nil {
			onSessionExpired()
		}
	}()

	return nil
}

// CreateNode implements the idempotent exists-then-create contract as a
// single etcd transaction: put the key only if its CreateRevision is
// still zero. Unlike a separate exists-check followed by a separate
// create call, this closes the window where a node could appear between
// the two steps.
func (r *EtcdRegistry) CreateNode(path string, data []byte, ephemeral bool) error {
	var opts []clientv3.OpOption
	if ephemeral {
		r.mu.Lock()
		lease := r.sessionLease
		r.mu.Unlock()
		if lease == 0 {
			return fmt.Errorf("registry: CreateNode(%s): session not started", path)
		}
		opts = append(opts, clientv3.WithLease(lease))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	txn := r.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(path), "=", 0)).
		Then(clientv3.OpPut(path, string(data), opts...))

	if _, err := txn.Commit(); err != nil {
		return fmt.Errorf("registry: create %s: %w", path, err)
	}
	// txn.Succeeded == false means the node already existed — per spec,
	// that is success, not an error.
	return nil
}

// GetData returns the value stored at path, or the empty string if the
// path does not exist or the read failed for any reason — the caller
// distinguishes "missing" from "present" itself (spec.md has the client
// channel look for a colon separator).
func (r *EtcdRegistry) GetData(path string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	resp, err := r.client.Get(ctx, path)
	if err != nil || len(resp.Kvs) == 0 {
		return ""
	}
	return string(resp.Kvs[0].Value)
}
