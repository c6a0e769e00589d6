package backend_test

import (
	"net"
	"testing"
	"time"

	"github.com/halvorsen/memcached-relay/backend"
)

func startEcho(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = lis.Close() })
	go func() {
		for {
			conn, err := lis.Accept()
			if err != nil {
				return
			}
			go func() {
				defer func() { _ = conn.Close() }()
				buf := make([]byte, 64)
				for {
					n, err := conn.Read(buf)
					if err != nil {
						return
					}
					if _, err := conn.Write(buf[:n]); err != nil {
						return
					}
				}
			}()
		}
	}()
	return lis.Addr().String()
}

func TestPoolGetDialsFresh(t *testing.T) {
	t.Parallel()

	addr := startEcho(t)
	p := backend.NewPool(time.Second)
	t.Cleanup(func() { _ = p.Close() })

	conn, err := p.Get(addr)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if conn == nil {
		t.Fatal("Get returned nil conn")
	}
	_ = conn.Close()
}

func TestPoolPutThenGetReusesConn(t *testing.T) {
	t.Parallel()

	addr := startEcho(t)
	p := backend.NewPool(time.Second)
	t.Cleanup(func() { _ = p.Close() })

	first, err := p.Get(addr)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	p.Put(addr, first)

	second, err := p.Get(addr)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if second != first {
		t.Fatal("expected Get to reuse the put-back connection")
	}
}

func TestPoolDiscardCloses(t *testing.T) {
	t.Parallel()

	addr := startEcho(t)
	p := backend.NewPool(time.Second)
	t.Cleanup(func() { _ = p.Close() })

	conn, err := p.Get(addr)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := p.Discard(conn); err != nil {
		t.Fatalf("Discard: %v", err)
	}

	if _, err := conn.Write([]byte("x")); err == nil {
		t.Fatal("expected write on discarded conn to fail")
	}
}
