// Package web serves the memcached-relay web UI and its event API.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/halvorsen/memcached-relay/broker"
	"github.com/halvorsen/memcached-relay/proxy"
)

//go:embed static
var staticFS embed.FS

// Server serves the memcached-relay web UI and API endpoints.
type Server struct {
	httpServer *http.Server
	broker     *broker.Broker
}

// New creates a new web Server backed by the given Broker.
func New(b *broker.Broker) *Server {
	s := &Server{broker: b}

	mux := http.NewServeMux()

	sub, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /", http.FileServer(http.FS(sub)))
	mux.HandleFunc("GET /api/events", s.handleSSE)

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Serve starts the HTTP server on the given listener.
func (s *Server) Serve(lis net.Listener) error {
	if err := s.httpServer.Serve(lis); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web: serve: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	return nil
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

type eventJSON struct {
	ID            string  `json:"id"`
	Protocol      string  `json:"protocol"`
	Op            string  `json:"op"`
	Key           string  `json:"key"`
	KeyCount      int     `json:"key_count,omitempty"`
	Quiet         bool    `json:"quiet,omitempty"`
	BurstSize     int     `json:"burst_size,omitempty"`
	RequestBytes  int     `json:"request_bytes"`
	ResponseBytes int     `json:"response_bytes"`
	StartTime     string  `json:"start_time"`
	DurationMs    float64 `json:"duration_ms"`
	NoReply       bool    `json:"no_reply,omitempty"`
	HotKey        bool    `json:"hot_key,omitempty"`
	Error         string  `json:"error,omitempty"`
}

func eventToJSON(ev proxy.Event) eventJSON {
	return eventJSON{
		ID:            ev.ID,
		Protocol:      ev.Protocol,
		Op:            ev.Op,
		Key:           ev.Key,
		KeyCount:      ev.KeyCount,
		Quiet:         ev.Quiet,
		BurstSize:     ev.BurstSize,
		RequestBytes:  ev.RequestBytes,
		ResponseBytes: ev.ResponseBytes,
		StartTime:     ev.StartTime.Format(time.RFC3339Nano),
		DurationMs:    float64(ev.Duration.Microseconds()) / 1000,
		NoReply:       ev.NoReply,
		HotKey:        ev.HotKey,
		Error:         ev.Error,
	}
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	flusher.Flush() // send headers immediately

	ch, unsub := s.broker.Subscribe()
	defer unsub()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(eventToJSON(ev))
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
