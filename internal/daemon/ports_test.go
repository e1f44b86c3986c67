package daemon

import (
	"os"
	"strings"
	"testing"

	"github.com/creack/pty"

	"github.com/dgarske/uart-monitor/internal/identity"
)

// openTestTTY allocates a PTY pair and returns the slave path as a stand-in
// serial device. The master is held open for the test's duration so the
// slave stays usable.
func openTestTTY(t *testing.T) string {
	t.Helper()
	master, slave, err := pty.Open()
	if err != nil {
		t.Fatalf("pty.Open: %v", err)
	}
	t.Cleanup(func() {
		master.Close()
		slave.Close()
	})
	return slave.Name()
}

func newTestState(t *testing.T) (*State, *readinessFacility) {
	t.Helper()
	rf, err := newReadinessFacility()
	if err != nil {
		t.Fatalf("newReadinessFacility: %v", err)
	}
	t.Cleanup(func() { rf.Close() })
	return &State{
		BaseDir:     t.TempDir(),
		SessionDir:  t.TempDir(),
		DefaultBaud: DefaultBaud,
		Running:     true,
	}, rf
}

func testPort(devPath, label string) identity.Port {
	return identity.Port{
		DevPath:      devPath,
		TTYName:      strings.TrimPrefix(devPath, "/dev/"),
		FunctionName: "Main UART",
		Label:        label,
	}
}

func TestAddPortRejectsDuplicateDevPath(t *testing.T) {
	s, rf := newTestState(t)
	dev := openTestTTY(t)

	if err := s.AddPort(rf, testPort(dev, "FIRST"), false); err != nil {
		t.Fatalf("first AddPort: %v", err)
	}
	if err := s.AddPort(rf, testPort(dev, "SECOND"), false); err != ErrDuplicate {
		t.Fatalf("got %v, want ErrDuplicate", err)
	}
	if s.PortCount != 1 {
		t.Fatalf("port count = %d, want 1", s.PortCount)
	}
}

func TestAddPortHonorsFilter(t *testing.T) {
	s, rf := newTestState(t)
	s.Filter = "ttyUSB7"
	dev := openTestTTY(t)

	if err := s.AddPort(rf, testPort(dev, "X"), false); err != ErrFilterExcluded {
		t.Fatalf("got %v, want ErrFilterExcluded", err)
	}
}

func TestYieldReclaimRoundtrip(t *testing.T) {
	s, rf := newTestState(t)
	dev := openTestTTY(t)

	if err := s.AddPort(rf, testPort(dev, "RT"), false); err != nil {
		t.Fatalf("AddPort: %v", err)
	}
	mp := s.Ports[0]
	logPath := mp.Log.Path()

	if already := s.YieldPort(rf, 0); already {
		t.Fatal("first yield reported already-yielded")
	}
	if !mp.Yielded {
		t.Fatal("port not marked yielded")
	}
	if already := s.YieldPort(rf, 0); !already {
		t.Fatal("second yield should be idempotent")
	}

	already, err := s.ReclaimPort(rf, 0)
	if err != nil {
		t.Fatalf("ReclaimPort: %v", err)
	}
	if already {
		t.Fatal("reclaim of a yielded port reported already-monitoring")
	}
	if mp.Yielded {
		t.Fatal("port still marked yielded after reclaim")
	}
	if already, err := s.ReclaimPort(rf, 0); err != nil || !already {
		t.Fatalf("second reclaim = (%v, %v), want idempotent success", already, err)
	}

	mp.Log.Flush()
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "PORT YIELDED") || !strings.Contains(string(data), "PORT RECLAIMED") {
		t.Fatalf("expected yield and reclaim markers, got %q", data)
	}
}

func TestRemovePortCompactsAndRetagsLaterEntries(t *testing.T) {
	s, rf := newTestState(t)
	devA := openTestTTY(t)
	devB := openTestTTY(t)
	devC := openTestTTY(t)

	for i, dev := range []string{devA, devB, devC} {
		if err := s.AddPort(rf, testPort(dev, "P"+strings.Repeat("X", i)), false); err != nil {
			t.Fatalf("AddPort %d: %v", i, err)
		}
	}

	s.RemovePort(rf, 0)

	if s.PortCount != 2 {
		t.Fatalf("port count = %d, want 2", s.PortCount)
	}
	if s.Ports[0].Port.DevPath != devB || s.Ports[1].Port.DevPath != devC {
		t.Fatalf("unexpected order after compaction: %q, %q",
			s.Ports[0].Port.DevPath, s.Ports[1].Port.DevPath)
	}
	for i := 0; i < s.PortCount; i++ {
		if s.Ports[i].Tag.PortIndex != i {
			t.Fatalf("port %d tag index = %d, want %d", i, s.Ports[i].Tag.PortIndex, i)
		}
	}
	if s.Ports[2] != nil {
		t.Fatal("freed slot not cleared")
	}
}

func TestRemovePortMiddleOfTable(t *testing.T) {
	s, rf := newTestState(t)
	devA := openTestTTY(t)
	devB := openTestTTY(t)
	devC := openTestTTY(t)

	for _, dev := range []string{devA, devB, devC} {
		if err := s.AddPort(rf, testPort(dev, "M"), false); err != nil {
			t.Fatalf("AddPort: %v", err)
		}
	}

	s.RemovePort(rf, 1)

	if s.PortCount != 2 {
		t.Fatalf("port count = %d, want 2", s.PortCount)
	}
	if s.findByDevPath(devB) != -1 {
		t.Fatal("removed port still findable")
	}
	if s.findByDevPath(devA) != 0 || s.findByDevPath(devC) != 1 {
		t.Fatalf("unexpected table layout: A=%d C=%d", s.findByDevPath(devA), s.findByDevPath(devC))
	}
}

func TestFindByFilterToken(t *testing.T) {
	s, rf := newTestState(t)
	dev := openTestTTY(t)
	p := testPort(dev, "F")

	if err := s.AddPort(rf, p, false); err != nil {
		t.Fatalf("AddPort: %v", err)
	}
	if idx := s.findByFilterToken(dev); idx != 0 {
		t.Fatalf("lookup by dev path = %d, want 0", idx)
	}
	if idx := s.findByFilterToken(p.TTYName); idx != 0 {
		t.Fatalf("lookup by tty name = %d, want 0", idx)
	}
	if idx := s.findByFilterToken("ttyUSB99"); idx != -1 {
		t.Fatalf("lookup of unknown token = %d, want -1", idx)
	}
}

func TestEncodeDecodeKey(t *testing.T) {
	for _, kind := range []sourceKind{sourceSignal, sourceHotplug, sourceControl, sourcePort, sourcePTY, sourceControlConn} {
		for _, idx := range []int{0, 1, 63} {
			k, i := decodeKey(encodeKey(kind, idx))
			if k != kind || i != idx {
				t.Fatalf("round-trip (%v,%d) = (%v,%d)", kind, idx, k, i)
			}
		}
	}
}
