package broker_test

import (
	"testing"
	"time"

	"github.com/halvorsen/memcached-relay/broker"
	"github.com/halvorsen/memcached-relay/proxy"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	t.Parallel()

	b := broker.New(8)
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Publish(proxy.Event{ID: "1", Op: "GET"})

	select {
	case ev := <-ch:
		if ev.ID != "1" {
			t.Fatalf("ID = %q, want 1", ev.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	b := broker.New(8)
	ch, unsub := b.Subscribe()
	unsub()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestPublishDoesNotBlockWithoutSubscribers(t *testing.T) {
	t.Parallel()

	b := broker.New(1)
	done := make(chan struct{})
	go func() {
		for range 10 {
			b.Publish(proxy.Event{Op: "GET"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked with no subscribers")
	}
}

func TestMultipleSubscribersEachGetEvent(t *testing.T) {
	t.Parallel()

	b := broker.New(8)
	ch1, unsub1 := b.Subscribe()
	defer unsub1()
	ch2, unsub2 := b.Subscribe()
	defer unsub2()

	b.Publish(proxy.Event{ID: "x"})

	for _, ch := range []<-chan proxy.Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.ID != "x" {
				t.Fatalf("ID = %q, want x", ev.ID)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}
