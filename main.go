// Command memcached-tap watches live memcached proxy traffic in a terminal UI.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/halvorsen/memcached-relay/tui"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("memcached-tap", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "memcached-tap — watch memcached proxy traffic in real-time\n\nUsage:\n  memcached-tap [flags] <http-addr>\n\nFlags:\n")
		fs.PrintDefaults()
	}

	showVersion := fs.Bool("version", false, "show version and exit")

	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("memcached-tap %s\n", version)
		return
	}

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	monitor(fs.Arg(0))
}

func monitor(addr string) {
	m := tui.New(addr)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "memcached-tap: %v\n", err)
		os.Exit(1)
	}
}
