package tui

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// copyToSystemClipboard writes text to the system clipboard. It uses pbcopy
// on macOS, xclip/xsel on Linux, and clip.exe on Windows.
func copyToSystemClipboard(ctx context.Context, text string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "pbcopy")
	case "linux":
		if _, err := exec.LookPath("xclip"); err == nil {
			cmd = exec.CommandContext(ctx, "xclip", "-selection", "clipboard")
		} else if _, err := exec.LookPath("xsel"); err == nil {
			cmd = exec.CommandContext(ctx, "xsel", "--clipboard", "--input")
		} else {
			return errors.New("xclip or xsel is required on Linux")
		}
	case "windows":
		cmd = exec.CommandContext(ctx, "clip.exe")
	}

	if cmd == nil {
		return fmt.Errorf("clipboard not supported on %s", runtime.GOOS)
	}

	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("clipboard copy: %w", err)
	}
	return nil
}

// replayCommand renders the text-protocol command line a user could paste
// into a memcached client (e.g. nc/telnet, or the `memcached-cli` tool) to
// reissue ev's request by hand. Binary-protocol events render the text
// equivalent too, since there's no human-typable binary wire syntax.
func replayCommand(ev Event) string {
	op := strings.ToLower(ev.Op)
	switch op {
	case "get", "gets":
		return fmt.Sprintf("get %s", ev.Key)
	case "delete":
		return fmt.Sprintf("delete %s", ev.Key)
	case "incr", "increment":
		return fmt.Sprintf("incr %s 1", ev.Key)
	case "decr", "decrement":
		return fmt.Sprintf("decr %s 1", ev.Key)
	case "set", "add", "replace":
		return fmt.Sprintf("%s %s 0 0 <bytes>", op, ev.Key)
	default:
		return ev.Key
	}
}
