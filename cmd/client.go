package cmd

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// baseDir resolves the daemon base directory: --base-dir flag, then
// UART_MONITOR_BASE_DIR, then defaultBaseDir.
func baseDir(cmd *cobra.Command) string {
	if cmd.Flags().Changed("base-dir") {
		if v, _ := cmd.Flags().GetString("base-dir"); v != "" {
			return v
		}
	}
	if v := os.Getenv("UART_MONITOR_BASE_DIR"); v != "" {
		return v
	}
	return defaultBaseDir
}

// overridePath resolves the board-override file at $HOME/.boards.
func overridePath() string {
	return os.Getenv("HOME") + "/.boards"
}

// sendCommand dials the control socket at base, writes line terminated with
// a newline, and returns the single response line the daemon writes back.
// The control plane is one-request-one-response-then-close.
func sendCommand(base, line string) (string, error) {
	sockPath := base + "/uart-monitor.sock"
	conn, err := net.DialTimeout("unix", sockPath, 2*time.Second)
	if err != nil {
		return "", fmt.Errorf("connect to %s: %w", sockPath, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
		return "", fmt.Errorf("send command: %w", err)
	}

	resp, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}
