package daemon

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/dgarske/uart-monitor/internal/sysutil"
	"github.com/dgarske/uart-monitor/metrics"
)

// statusPortEntry is one port's entry in the status document, with a
// fixed field order so scripts scraping status.json see stable output.
type statusPortEntry struct {
	Device      string `json:"device"`
	Label       string `json:"label"`
	Board       string `json:"board"`
	Function    string `json:"function"`
	VID         string `json:"vid"`
	PID         string `json:"pid"`
	Status      string `json:"status"`
	LogFile     string `json:"log_file"`
	BytesLogged int64  `json:"bytes_logged"`
}

// statusDoc is the top-level status.json shape.
type statusDoc struct {
	Pid       int               `json:"pid"`
	Session   string            `json:"session"`
	PortCount int               `json:"port_count"`
	Ports     []statusPortEntry `json:"ports"`
}

// StatusJSON renders the current status document as a JSON payload with
// a fixed key order.
func (s *State) StatusJSON(pid int) (string, error) {
	doc := statusDoc{
		Pid:       pid,
		Session:   filepath.Base(s.SessionDir),
		PortCount: s.PortCount,
		Ports:     make([]statusPortEntry, 0, s.PortCount),
	}
	for i := 0; i < s.PortCount; i++ {
		p := s.Ports[i]
		doc.Ports = append(doc.Ports, statusPortEntry{
			Device:      p.Port.DevPath,
			Label:       p.Port.Label,
			Board:       p.Board(),
			Function:    p.Port.FunctionName,
			VID:         fmt.Sprintf("%04x", p.Port.VID),
			PID:         fmt.Sprintf("%04x", p.Port.PID),
			Status:      p.Status(),
			LogFile:     p.Log.Path(),
			BytesLogged: p.Log.BytesWritten(),
		})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal status: %w", err)
	}
	return string(data), nil
}

// WriteStatus atomically replaces <base>/status.json with the current
// snapshot, and refreshes the bytes-logged metric gauge alongside it so
// the status document's port_count/bytes_logged fields stay in lockstep
// with the metrics package.
func (s *State) WriteStatus(pid int) error {
	metrics.SetPortsActive(s.PortCount)
	metrics.SetBytesLogged(s.TotalBytesLogged())
	body, err := s.StatusJSON(pid)
	if err != nil {
		return err
	}
	return sysutil.AtomicWriteFile(filepath.Join(s.BaseDir, "status.json"), []byte(body), 0644)
}
