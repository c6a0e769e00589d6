// Package server wires a running proxy's event stream into key
// normalization, hot-key detection, and the broker that fans events out to
// the web UI and terminal tap client.
package server

import (
	"context"
	"fmt"

	"github.com/halvorsen/memcached-relay/broker"
	"github.com/halvorsen/memcached-relay/detect"
	"github.com/halvorsen/memcached-relay/keytemplate"
	"github.com/halvorsen/memcached-relay/proxy"
)

// Pipeline consumes a proxy's events, enriches them, and publishes them to
// a Broker. It is the seam between a protocol-specific proxy and every
// observability consumer (web SSE, the tap TUI).
type Pipeline struct {
	proxy    proxy.Proxy
	broker   *broker.Broker
	detector *detect.Detector
}

// New creates a Pipeline for p, publishing enriched events to b. det may be
// nil to disable hot-key detection.
func New(p proxy.Proxy, b *broker.Broker, det *detect.Detector) *Pipeline {
	return &Pipeline{proxy: p, broker: b, detector: det}
}

// Run consumes events from the proxy until its event channel closes or ctx
// is canceled, normalizing each key to its template, recording it for
// hot-key detection, and publishing the result to the broker.
func (s *Pipeline) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("server: pipeline: %w", ctx.Err())
		case ev, ok := <-s.proxy.Events():
			if !ok {
				return nil
			}
			s.enrich(&ev)
			s.broker.Publish(ev)
		}
	}
}

func (s *Pipeline) enrich(ev *proxy.Event) {
	if ev.Key == "" {
		return
	}
	template := keytemplate.Normalize(ev.Key)
	if s.detector == nil {
		return
	}
	if detect.IsWriteOp(ev.Op) {
		s.detector.Invalidate(template)
		return
	}
	weight := max(ev.BurstSize, 1)
	r := s.detector.Record(template, ev.StartTime, weight)
	ev.HotKey = r.Matched
}
