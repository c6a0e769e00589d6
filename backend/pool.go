package backend

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// Pool hands out one backend net.Conn per accepted client connection and
// reclaims it (via Put) when the client disconnects, reusing idle
// connections instead of dialing fresh ones where possible.
//
// This is the "pool one backend connection per client" design spec.md
// flags as the robust fix for the hazard of sharing a single backend
// connection across concurrent client cycles: each client's connection
// driver is the sole user of the net.Conn it holds for as long as it holds
// it, so no cross-client interleaving on the wire can occur.
type Pool struct {
	mu      sync.Mutex
	idle    map[string][]net.Conn
	dial    func(addr string) (net.Conn, error)
	timeout time.Duration
}

// NewPool creates a Pool. dialTimeout bounds how long dialing a fresh
// backend connection may take; zero means no timeout.
func NewPool(dialTimeout time.Duration) *Pool {
	return &Pool{
		idle:    make(map[string][]net.Conn),
		timeout: dialTimeout,
		dial: func(addr string) (net.Conn, error) {
			d := net.Dialer{Timeout: dialTimeout}
			conn, err := d.Dial("tcp", addr)
			if err != nil {
				return nil, fmt.Errorf("backend: dial %s: %w", addr, err)
			}
			return conn, nil
		},
	}
}

// Get returns an idle connection to addr if one is available, or dials a
// fresh one.
func (p *Pool) Get(addr string) (net.Conn, error) {
	p.mu.Lock()
	if conns := p.idle[addr]; len(conns) > 0 {
		conn := conns[len(conns)-1]
		p.idle[addr] = conns[:len(conns)-1]
		p.mu.Unlock()
		return conn, nil
	}
	p.mu.Unlock()
	return p.dial(addr)
}

// Put returns conn to the idle pool for addr so a future Get can reuse it.
// A nil conn is a no-op.
func (p *Pool) Put(addr string, conn net.Conn) {
	if conn == nil {
		return
	}
	p.mu.Lock()
	p.idle[addr] = append(p.idle[addr], conn)
	p.mu.Unlock()
}

// Discard closes conn without returning it to the pool. Use this when the
// connection's framing state may no longer be trustworthy (§7: any
// transport/protocol error poisons the backend connection for that cycle).
func (p *Pool) Discard(conn net.Conn) error {
	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("backend: close: %w", err)
	}
	return nil
}

// Close closes every idle connection held by the pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for addr, conns := range p.idle {
		for _, c := range conns {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("backend: close idle conn for %s: %w", addr, err)
			}
		}
	}
	p.idle = make(map[string][]net.Conn)
	return firstErr
}
