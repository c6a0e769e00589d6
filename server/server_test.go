package server_test

import (
	"context"
	"testing"
	"time"

	"github.com/halvorsen/memcached-relay/broker"
	"github.com/halvorsen/memcached-relay/detect"
	"github.com/halvorsen/memcached-relay/proxy"
	"github.com/halvorsen/memcached-relay/server"
)

type fakeProxy struct {
	events chan proxy.Event
}

func (f *fakeProxy) ListenAndServe(context.Context) error { return nil }
func (f *fakeProxy) Events() <-chan proxy.Event           { return f.events }
func (f *fakeProxy) Close() error                         { close(f.events); return nil }

func TestPipelinePublishesEnrichedEvents(t *testing.T) {
	t.Parallel()

	fp := &fakeProxy{events: make(chan proxy.Event, 4)}
	b := broker.New(8)
	det := detect.New(2, time.Second, 10*time.Second)
	p := server.New(fp, b, det)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	ch, unsub := b.Subscribe()
	defer unsub()

	now := time.Now()
	fp.events <- proxy.Event{Key: "user:1:profile", StartTime: now}
	fp.events <- proxy.Event{Key: "user:2:profile", StartTime: now.Add(10 * time.Millisecond)}

	var last proxy.Event
	for range 2 {
		select {
		case last = <-ch:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for published event")
		}
	}

	if !last.HotKey {
		t.Fatalf("expected second event for template user:#:profile to be flagged hot, got %+v", last)
	}
}

func TestPipelineStopsOnProxyClose(t *testing.T) {
	t.Parallel()

	fp := &fakeProxy{events: make(chan proxy.Event)}
	b := broker.New(8)
	p := server.New(fp, b, nil)

	done := make(chan error, 1)
	go func() { done <- p.Run(t.Context()) }()

	_ = fp.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Run to return after proxy close")
	}
}
