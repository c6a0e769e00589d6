package detect_test

import (
	"testing"
	"time"

	"github.com/halvorsen/memcached-relay/detect"
)

func TestBelowThreshold(t *testing.T) {
	t.Parallel()
	d := detect.New(5, time.Second, 10*time.Second)
	now := time.Now()
	key := "user:42:profile"

	for i := range 4 {
		r := d.Record(key, now.Add(time.Duration(i)*100*time.Millisecond), 1)
		if r.Matched {
			t.Fatal("unexpected match before threshold")
		}
		if r.Alert != nil {
			t.Fatal("unexpected alert before threshold")
		}
	}
}

func TestAtThreshold(t *testing.T) {
	t.Parallel()
	d := detect.New(5, time.Second, 10*time.Second)
	now := time.Now()
	key := "user:42:profile"

	for i := range 4 {
		d.Record(key, now.Add(time.Duration(i)*100*time.Millisecond), 1)
	}

	r := d.Record(key, now.Add(400*time.Millisecond), 1)
	if !r.Matched {
		t.Fatal("expected matched at threshold")
	}
	if r.Alert == nil {
		t.Fatal("expected alert at threshold")
	}
	if r.Alert.Count != 5 {
		t.Fatalf("got count %d, want 5", r.Alert.Count)
	}
	if r.Alert.Key != key {
		t.Fatalf("got key %q, want %q", r.Alert.Key, key)
	}
}

func TestMatchedAfterThreshold(t *testing.T) {
	t.Parallel()
	d := detect.New(5, time.Second, 10*time.Second)
	now := time.Now()
	key := "user:42:profile"

	for i := range 5 {
		d.Record(key, now.Add(time.Duration(i)*100*time.Millisecond), 1)
	}

	for i := range 5 {
		r := d.Record(key, now.Add(time.Duration(500+i*100)*time.Millisecond), 1)
		if !r.Matched {
			t.Fatalf("event %d: expected matched after threshold", i)
		}
		if r.Alert != nil {
			t.Fatalf("event %d: expected cooldown to suppress alert", i)
		}
	}
}

func TestWindowExpiry(t *testing.T) {
	t.Parallel()
	d := detect.New(5, time.Second, 10*time.Second)
	now := time.Now()
	key := "user:42:profile"

	for i := range 3 {
		d.Record(key, now.Add(time.Duration(i)*100*time.Millisecond), 1)
	}

	after := now.Add(2 * time.Second)
	for i := range 3 {
		r := d.Record(key, after.Add(time.Duration(i)*100*time.Millisecond), 1)
		if r.Matched {
			t.Fatal("unexpected match: only 3 in window")
		}
	}
}

func TestCooldownExpiry(t *testing.T) {
	t.Parallel()
	d := detect.New(5, 2*time.Second, time.Second)
	now := time.Now()
	key := "user:42:profile"

	for i := range 5 {
		d.Record(key, now.Add(time.Duration(i)*100*time.Millisecond), 1)
	}

	after := now.Add(1500 * time.Millisecond)
	r := d.Record(key, after, 1)
	if !r.Matched {
		t.Fatal("expected matched after cooldown expired")
	}
	if r.Alert == nil {
		t.Fatal("expected alert after cooldown expired")
	}
}

func TestDifferentKeys(t *testing.T) {
	t.Parallel()
	d := detect.New(3, time.Second, 10*time.Second)
	now := time.Now()
	k1 := "user:42:profile"
	k2 := "post:7:comments"

	d.Record(k1, now, 1)
	d.Record(k2, now.Add(100*time.Millisecond), 1)
	d.Record(k1, now.Add(200*time.Millisecond), 1)
	d.Record(k2, now.Add(300*time.Millisecond), 1)

	r := d.Record(k1, now.Add(400*time.Millisecond), 1)
	if r.Alert == nil {
		t.Fatal("expected alert for k1")
	}
	if r.Alert.Key != k1 {
		t.Fatalf("got key %q, want %q", r.Alert.Key, k1)
	}

	r = d.Record(k2, now.Add(500*time.Millisecond), 1)
	if r.Alert == nil {
		t.Fatal("expected alert for k2")
	}
	if r.Alert.Key != k2 {
		t.Fatalf("got key %q, want %q", r.Alert.Key, k2)
	}
}

func TestEmptyKey(t *testing.T) {
	t.Parallel()
	d := detect.New(1, time.Second, 10*time.Second)
	r := d.Record("", time.Now(), 1)
	if r.Matched {
		t.Fatal("expected no match for empty key")
	}
}

func TestZeroWeightIgnored(t *testing.T) {
	t.Parallel()
	d := detect.New(1, time.Second, 10*time.Second)
	r := d.Record("user:1", time.Now(), 0)
	if r.Matched {
		t.Fatal("expected no match for zero weight")
	}
}

func TestBurstWeightCountsAsMultipleHits(t *testing.T) {
	t.Parallel()
	d := detect.New(10, time.Second, 10*time.Second)
	now := time.Now()

	// A single quiet burst of 10 GETQ requests folded into one Event
	// should trip the threshold on its own, the same as 10 separate
	// GETs would.
	r := d.Record("user:1", now, 10)
	if !r.Matched {
		t.Fatal("expected burst weight to satisfy threshold in one call")
	}
	if r.Alert == nil || r.Alert.Count != 10 {
		t.Fatalf("got alert %+v, want count 10", r.Alert)
	}
}

func TestInvalidateClearsHistory(t *testing.T) {
	t.Parallel()
	d := detect.New(3, time.Second, 10*time.Second)
	now := time.Now()
	key := "user:1"

	d.Record(key, now, 1)
	d.Record(key, now.Add(100*time.Millisecond), 1)

	d.Invalidate(key)

	r := d.Record(key, now.Add(200*time.Millisecond), 1)
	if r.Matched {
		t.Fatal("expected invalidate to reset history below threshold")
	}
}

func TestInvalidateEmptyKeyNoop(t *testing.T) {
	t.Parallel()
	d := detect.New(1, time.Second, 10*time.Second)
	d.Invalidate("")
}

func TestIsWriteOp(t *testing.T) {
	t.Parallel()

	writes := []string{"SET", "set", "ADD", "REPLACE", "DELETE", "INCREMENT", "incr", "decr", "TOUCH", "SETQ", "DELETEQ"}
	for _, op := range writes {
		if !detect.IsWriteOp(op) {
			t.Errorf("IsWriteOp(%q) = false, want true", op)
		}
	}

	reads := []string{"GET", "get", "GETQ", "gets", ""}
	for _, op := range reads {
		if detect.IsWriteOp(op) {
			t.Errorf("IsWriteOp(%q) = true, want false", op)
		}
	}
}
