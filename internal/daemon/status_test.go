package daemon

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgarske/uart-monitor/internal/catalog"
	"github.com/dgarske/uart-monitor/internal/identity"
	"github.com/dgarske/uart-monitor/internal/logwriter"
)

func TestStatusJSONShape(t *testing.T) {
	dir := t.TempDir()
	w, err := logwriter.Open(filepath.Join(dir, "ZYNQMP_ZCU102_UART0.log"), "")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	dev, _ := catalog.Lookup(0x10c4, 0xea71)
	s := &State{SessionDir: filepath.Join(dir, "session-20260731-120000")}
	s.Ports[0] = &MonitoredPort{
		Port: identity.Port{
			DevPath:      "/dev/ttyUSB0",
			Label:        "ZYNQMP_ZCU102_UART0",
			FunctionName: "UART0",
			VID:          0x10c4,
			PID:          0xea71,
			Known:        &dev,
		},
		Log: w,
	}
	s.PortCount = 1

	body, err := s.StatusJSON(4242)
	if err != nil {
		t.Fatal(err)
	}

	// Key order is fixed for reproducible output.
	if !strings.HasPrefix(body, `{"pid":4242,"session":"session-20260731-120000","port_count":1,"ports":[`) {
		t.Fatalf("unexpected document prefix: %s", body)
	}

	var doc struct {
		Pid   int `json:"pid"`
		Ports []struct {
			Device string `json:"device"`
			Board  string `json:"board"`
			VID    string `json:"vid"`
			PID    string `json:"pid"`
			Status string `json:"status"`
		} `json:"ports"`
	}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		t.Fatal(err)
	}
	p := doc.Ports[0]
	if p.Device != "/dev/ttyUSB0" || p.VID != "10c4" || p.PID != "ea71" {
		t.Fatalf("unexpected port entry: %+v", p)
	}
	if p.Board != "ZynqMP ZCU102" {
		t.Fatalf("board = %q, want catalog's first candidate", p.Board)
	}
	if p.Status != "monitoring" {
		t.Fatalf("status = %q, want monitoring", p.Status)
	}
}

func TestStatusJSONYieldedPort(t *testing.T) {
	dir := t.TempDir()
	w, err := logwriter.Open(filepath.Join(dir, "ttyUSB1.log"), "")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	s := &State{SessionDir: dir}
	s.Ports[0] = &MonitoredPort{
		Port:    identity.Port{DevPath: "/dev/ttyUSB1", Label: "ttyUSB1"},
		Log:     w,
		Yielded: true,
	}
	s.PortCount = 1

	body, err := s.StatusJSON(1)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body, `"status":"yielded"`) {
		t.Fatalf("expected yielded status, got %s", body)
	}
	if !strings.Contains(body, `"board":"Unknown"`) {
		t.Fatalf("expected Unknown board, got %s", body)
	}
}
