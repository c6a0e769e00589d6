package text

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halvorsen/memcached-relay/backend"
	"github.com/halvorsen/memcached-relay/proxy"
)

// Proxy relays memcached text protocol connections to one backend,
// forwarding each client a pooled backend connection for the lifetime of
// its own connection.
type Proxy struct {
	listenAddr string
	picker     backend.Picker
	pool       *backend.Pool
	events     chan proxy.Event

	mu       sync.Mutex
	lis      net.Listener
	shutdown chan struct{}
}

// New creates a Proxy that listens on listenAddr and relays to backendAddr.
func New(listenAddr, backendAddr string) *Proxy {
	return &Proxy{
		listenAddr: listenAddr,
		picker:     backend.SingleBackend{Addr: backendAddr},
		pool:       backend.NewPool(5 * time.Second),
		events:     make(chan proxy.Event, 256),
		shutdown:   make(chan struct{}),
	}
}

// Events returns the channel of captured cycle events.
func (p *Proxy) Events() <-chan proxy.Event {
	return p.events
}

// ListenAndServe accepts client connections until ctx is canceled or Close
// is called.
func (p *Proxy) ListenAndServe(ctx context.Context) error {
	lis, err := net.Listen("tcp", p.listenAddr)
	if err != nil {
		return fmt.Errorf("text: listen: %w", err)
	}
	p.mu.Lock()
	p.lis = lis
	p.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = lis.Close()
		case <-p.shutdown:
		}
	}()

	for {
		conn, err := lis.Accept()
		if err != nil {
			if isClosedErr(err) {
				return nil
			}
			return fmt.Errorf("text: accept: %w", err)
		}
		go p.handleConn(ctx, conn)
	}
}

// Close stops accepting new connections and releases pooled backend
// connections.
func (p *Proxy) Close() error {
	close(p.shutdown)
	p.mu.Lock()
	lis := p.lis
	p.mu.Unlock()
	if lis != nil {
		if err := lis.Close(); err != nil && !isClosedErr(err) {
			return fmt.Errorf("text: close listener: %w", err)
		}
	}
	return p.pool.Close()
}

func (p *Proxy) generateID() string {
	return uuid.New().String()
}

func (p *Proxy) handleConn(ctx context.Context, clientConn net.Conn) {
	defer func() { _ = clientConn.Close() }()

	addr := p.picker.PickForKey(nil)
	backendConn, err := p.pool.Get(addr)
	if err != nil {
		p.emit(proxy.Event{ID: p.generateID(), Protocol: "text", Error: err.Error()})
		return
	}

	poisoned := false
	defer func() {
		if poisoned {
			_ = p.pool.Discard(backendConn)
			return
		}
		p.pool.Put(addr, backendConn)
	}()

	clientR := bufio.NewReader(clientConn)
	backendR := bufio.NewReader(backendConn)

	for {
		if ctx.Err() != nil {
			return
		}

		result, err := relayCycle(clientR, clientConn, backendR, backendConn)
		if err != nil {
			if isClosedErr(err) {
				return
			}
			poisoned = true
			p.emit(proxy.Event{
				ID:        p.generateID(),
				Protocol:  "text",
				StartTime: time.Now(),
				Error:     err.Error(),
			})
			return
		}

		p.emit(proxy.Event{
			ID:            p.generateID(),
			Protocol:      "text",
			Op:            result.op,
			Key:           result.key,
			KeyCount:      result.keyCount,
			RequestBytes:  result.requestBytes,
			ResponseBytes: result.responseBytes,
			StartTime:     time.Now().Add(-result.duration),
			Duration:      result.duration,
			NoReply:       result.noReply,
		})
	}
}

func (p *Proxy) emit(ev proxy.Event) {
	select {
	case p.events <- ev:
	default:
	}
}

func isClosedErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}
	return strings.Contains(err.Error(), "closed")
}
