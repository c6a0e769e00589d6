// Command memcached-proxy runs the transparent memcached proxy daemon: it
// accepts client connections, relays them to one backend over either the
// binary or text protocol, and optionally exposes a web UI and hot-key
// alerting over the captured event stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/halvorsen/memcached-relay/broker"
	"github.com/halvorsen/memcached-relay/detect"
	"github.com/halvorsen/memcached-relay/proxy"
	proxybinary "github.com/halvorsen/memcached-relay/proxy/binary"
	proxytext "github.com/halvorsen/memcached-relay/proxy/text"
	"github.com/halvorsen/memcached-relay/server"
	"github.com/halvorsen/memcached-relay/web"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("memcached-proxy", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "memcached-proxy — transparent memcached proxy\n\nUsage:\n  memcached-proxy [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	port := fs.Int("port", 22322, "client listen port")
	fs.IntVar(port, "p", 22322, "client listen port (shorthand)")
	address := fs.String("address", "localhost", "client listen address")
	fs.StringVar(address, "a", "localhost", "client listen address (shorthand)")
	backend := fs.String("backend", "127.0.0.1:11211", "backend memcached address")
	textProtocol := fs.Bool("text-protocol", false, "speak the memcached text protocol instead of binary")
	fs.BoolVar(textProtocol, "t", false, "speak the memcached text protocol instead of binary (shorthand)")
	httpAddr := fs.String("http", "", "HTTP server address for the web UI (e.g. :8080)")
	hotKeyThreshold := fs.Int("hotkey-threshold", 100, "hot-key detection threshold (0 to disable)")
	hotKeyWindow := fs.Duration("hotkey-window", time.Second, "hot-key detection time window")
	hotKeyCooldown := fs.Duration("hotkey-cooldown", 10*time.Second, "hot-key alert cooldown per key template")
	showVersion := fs.Bool("version", false, "show version and exit")

	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("memcached-proxy %s\n", version)
		return
	}

	if *backend == "" {
		fs.Usage()
		os.Exit(1)
	}
	listen := net.JoinHostPort(*address, fmt.Sprint(*port))

	if err := run(listen, *backend, *textProtocol, *httpAddr, *hotKeyThreshold, *hotKeyWindow, *hotKeyCooldown); err != nil {
		log.Fatal(err)
	}
}

func run(
	listen, backendAddr string, textProtocol bool, httpAddr string,
	hotKeyThreshold int, hotKeyWindow, hotKeyCooldown time.Duration,
) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := broker.New(256)

	var p proxy.Proxy
	if textProtocol {
		p = proxytext.New(listen, backendAddr)
	} else {
		p = proxybinary.New(listen, backendAddr)
	}

	var det *detect.Detector
	if hotKeyThreshold > 0 {
		det = detect.New(hotKeyThreshold, hotKeyWindow, hotKeyCooldown)
		log.Printf("hot-key detection enabled (threshold=%d, window=%s, cooldown=%s)",
			hotKeyThreshold, hotKeyWindow, hotKeyCooldown)
	}

	pipeline := server.New(p, b, det)
	go func() {
		if err := pipeline.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("pipeline: %v", err)
		}
	}()

	if httpAddr != "" {
		var lc net.ListenConfig
		httpLis, err := lc.Listen(ctx, "tcp", httpAddr)
		if err != nil {
			return fmt.Errorf("listen http %s: %w", httpAddr, err)
		}
		webSrv := web.New(b)
		go func() {
			log.Printf("HTTP server listening on %s", httpAddr)
			if err := webSrv.Serve(httpLis); err != nil {
				log.Printf("http serve: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = webSrv.Shutdown(shutdownCtx)
		}()
	}

	protocolName := "binary"
	if textProtocol {
		protocolName = "text"
	}
	log.Printf("proxying %s -> %s (protocol=%s)", listen, backendAddr, protocolName)
	if err := p.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("proxy: %w", err)
	}

	return p.Close()
}
