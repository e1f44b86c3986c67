package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// statusDoc mirrors internal/daemon's status.json shape just enough for
// the tail command to resolve a dev/label argument to its log file path.
type statusDoc struct {
	Ports []struct {
		Device  string `json:"device"`
		Label   string `json:"label"`
		LogFile string `json:"log_file"`
	} `json:"ports"`
}

func init() {
	c := &cobra.Command{
		Use:   "tail <dev|label>",
		Short: "Follow a port's log file",
		Args:  cobra.ExactArgs(1),
		RunE:  runTail,
	}
	Root.AddCommand(c)
}

func runTail(cmd *cobra.Command, args []string) error {
	resp, err := sendCommand(baseDir(cmd), "STATUS")
	if err != nil {
		return err
	}

	var doc statusDoc
	if err := json.Unmarshal([]byte(resp), &doc); err != nil {
		return fmt.Errorf("parse status: %w", err)
	}

	want := args[0]
	var logPath string
	for _, p := range doc.Ports {
		if p.Device == want || p.Label == want {
			logPath = p.LogFile
			break
		}
	}
	if logPath == "" {
		return fmt.Errorf("no monitored port matches %q", want)
	}

	return followFile(logPath, os.Stdout)
}

// followFile implements a `tail -f`-equivalent: print the file's existing
// content, then poll for appended bytes until interrupted.
func followFile(path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(out, f); err != nil {
		return err
	}

	for {
		n, err := io.Copy(out, f)
		if err != nil {
			return err
		}
		if n == 0 {
			time.Sleep(250 * time.Millisecond)
		}
	}
}
