package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"syscall"

	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/dgarske/uart-monitor/internal/daemon"
	"github.com/dgarske/uart-monitor/metrics"
)

// daemonizedEnv marks a re-exec'd child so it doesn't daemonize again.
const daemonizedEnv = "_UART_MONITOR_DAEMONIZED"

func init() {
	c := &cobra.Command{
		Use:   "monitor",
		Short: "Run the UART monitor event core",
		RunE:  runMonitor,
	}
	c.Flags().BoolP("foreground", "f", false, "stay attached instead of daemonizing")
	c.Flags().Bool("systemd", false, "send sd_notify READY/STOPPING over NOTIFY_SOCKET")
	c.Flags().IntP("baud", "b", daemon.DefaultBaud, "default baud rate for opened ports")
	c.Flags().String("only", "", "comma-separated dev_path/tty-name filter")
	c.Flags().Bool("proxy", false, "expose a forwarding PTY per port under pty/<label>")
	c.Flags().String("metrics-addr", "", "serve Prometheus /metrics on this address (empty disables)")
	Root.AddCommand(c)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	foreground, _ := cmd.Flags().GetBool("foreground")
	systemd, _ := cmd.Flags().GetBool("systemd")
	baud, _ := cmd.Flags().GetInt("baud")
	only, _ := cmd.Flags().GetString("only")
	proxy, _ := cmd.Flags().GetBool("proxy")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	if !foreground && os.Getenv(daemonizedEnv) == "" {
		return daemonize(cmd)
	}

	cfg := daemon.Config{
		BaseDir:      baseDir(cmd),
		Baud:         baud,
		Systemd:      systemd,
		OnlyFilter:   only,
		OverridePath: overridePath(),
		Proxy:        proxy,
	}

	if err := metrics.Init(); err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	if metricsAddr != "" {
		handler, err := metrics.InitPrometheus()
		if err != nil {
			return fmt.Errorf("init prometheus exporter: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", handler)
		corsHandler := cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		})
		go func() {
			if err := http.ListenAndServe(metricsAddr, corsHandler.Handler(mux)); err != nil {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
	}

	return daemon.Run(cfg, slog.Default().With("module", "daemon"))
}

// daemonize re-execs the current command in a new session, detached from
// the controlling terminal, and returns once the child has started. The
// single-instance guarantee comes from the pidfile the child acquires,
// not from the process tree, so the parent doesn't wait on the child.
func daemonize(cmd *cobra.Command) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer devnull.Close()

	child := exec.Command(exe, os.Args[1:]...)
	child.Env = append(os.Environ(), daemonizedEnv+"=1")
	child.Stdin = devnull
	child.Stdout = devnull
	child.Stderr = devnull
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := child.Start(); err != nil {
		return fmt.Errorf("daemonize: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "uart-monitor started, pid %d\n", child.Process.Pid)
	return child.Process.Release()
}
