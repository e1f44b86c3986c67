package logwriter

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

func newTestWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")
	w, err := Open(path, "")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })
	return w, path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

var linePrefix = regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3}\] `)

func TestCRLFPairCollapses(t *testing.T) {
	w, path := newTestWriter(t)
	w.Write([]byte("A\r\nB\r\n"))

	content := readFile(t, path)
	lines := nonEmptyLines(content)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), content)
	}
	if !strings.HasSuffix(lines[0], "A") || !strings.HasSuffix(lines[1], "B") {
		t.Fatalf("unexpected line content: %v", lines)
	}
	for _, l := range lines {
		if !linePrefix.MatchString(l) {
			t.Fatalf("line missing timestamp prefix: %q", l)
		}
	}
}

func TestBareCRTreatedAsNewline(t *testing.T) {
	w, path := newTestWriter(t)
	w.Write([]byte("A\rB\n"))

	content := readFile(t, path)
	lines := nonEmptyLines(content)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), content)
	}
	if !strings.HasSuffix(lines[0], "A") || !strings.HasSuffix(lines[1], "B") {
		t.Fatalf("unexpected line content: %v", lines)
	}
}

func TestPartialLineNotTerminatedUntilNewline(t *testing.T) {
	w, path := newTestWriter(t)
	w.Write([]byte("A"))
	w.Flush()

	// The prefix goes to the file as soon as the first byte of a line
	// arrives; the byte itself stays buffered until a terminator.
	content := readFile(t, path)
	if strings.Contains(content, "\n") {
		t.Fatalf("expected no newline yet, got %q", content)
	}
	if !linePrefix.MatchString(content) {
		t.Fatalf("expected a timestamp prefix for the in-progress line, got %q", content)
	}
	if strings.Contains(content, "A") {
		t.Fatalf("buffered byte must not reach the file before a terminator, got %q", content)
	}

	w.Write([]byte("\n"))
	content = readFile(t, path)
	if !strings.HasSuffix(strings.TrimRight(content, "\n"), "A") {
		t.Fatalf("expected line ending in A, got %q", content)
	}
}

func TestStaleFlushAfterIdle(t *testing.T) {
	w, path := newTestWriter(t)
	w.Write([]byte("A"))
	w.lastByte = time.Now().Add(-300 * time.Millisecond)

	w.FlushStale(200 * time.Millisecond)

	content := readFile(t, path)
	lines := nonEmptyLines(content)
	if len(lines) != 1 || !strings.HasSuffix(lines[0], "A") {
		t.Fatalf("expected one flushed line ending in A, got %q", content)
	}
}

func TestForcedFlushAtCapacity(t *testing.T) {
	w, path := newTestWriter(t)
	long := strings.Repeat("x", LineBufSize+10)
	w.Write([]byte(long))
	w.Flush()

	content := readFile(t, path)
	lines := nonEmptyLines(content)
	if len(lines) < 2 {
		t.Fatalf("expected a forced break producing >=2 lines, got %d: len=%d", len(lines), len(content))
	}
	for _, l := range lines {
		if !linePrefix.MatchString(l) {
			t.Fatalf("line missing timestamp prefix after forced flush: %q", l)
		}
	}
}

func TestBlankLinesPreserved(t *testing.T) {
	w, path := newTestWriter(t)
	w.Write([]byte("A\n\nB\n"))

	content := readFile(t, path)
	if strings.Count(content, "\n") != 3 {
		t.Fatalf("got %d newlines, want 3: %q", strings.Count(content, "\n"), content)
	}
	lines := strings.Split(content, "\n")
	if lines[1] != "" {
		t.Fatalf("expected blank middle line, got %q", lines[1])
	}
}

func TestSplitCRLFWithEmptyBuffer(t *testing.T) {
	w, path := newTestWriter(t)
	// A \r landing with nothing buffered still terminates a (blank) line;
	// the \n of the pair is then collapsed.
	w.Write([]byte("\r"))
	w.Write([]byte("\n"))
	w.Write([]byte("B\n"))

	content := readFile(t, path)
	if strings.Count(content, "\n") != 2 {
		t.Fatalf("got %d newlines, want 2: %q", strings.Count(content, "\n"), content)
	}
	if !strings.HasPrefix(content, "\n") {
		t.Fatalf("expected leading blank line, got %q", content)
	}
	lines := nonEmptyLines(content)
	if len(lines) != 1 || !strings.HasSuffix(lines[0], "B") {
		t.Fatalf("expected one data line ending in B, got %q", content)
	}
}

func TestMarkerIsolatesDataLines(t *testing.T) {
	w, path := newTestWriter(t)
	w.Write([]byte("before\n"))
	w.Marker("PORT YIELDED")
	w.Write([]byte("after\n"))

	content := readFile(t, path)
	beforeIdx := strings.Index(content, "before")
	markerIdx := strings.Index(content, "PORT YIELDED")
	afterIdx := strings.Index(content, "after")
	if !(beforeIdx >= 0 && markerIdx > beforeIdx && afterIdx > markerIdx) {
		t.Fatalf("expected before < marker < after, got content: %q", content)
	}
}

func TestBanner(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "banner.log")
	w, err := Open(path, "Device: /dev/ttyUSB0\nBoard: Test\n")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	content := readFile(t, path)
	if !strings.Contains(content, "=== UART Monitor Session ===") {
		t.Fatalf("missing banner header: %q", content)
	}
	if !strings.Contains(content, "Board: Test") {
		t.Fatalf("missing header content: %q", content)
	}
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
