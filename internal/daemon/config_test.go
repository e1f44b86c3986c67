package daemon

import "testing"

func TestMatchesFilterEmptyMatchesAll(t *testing.T) {
	if !MatchesFilter("", "/dev/ttyUSB0", "ttyUSB0") {
		t.Fatal("empty filter should match everything")
	}
}

func TestMatchesFilterByFullDevPath(t *testing.T) {
	if !MatchesFilter("/dev/ttyUSB0,/dev/ttyACM0", "/dev/ttyUSB0", "ttyUSB0") {
		t.Fatal("expected match on full dev path")
	}
}

func TestMatchesFilterByTrailingTTYName(t *testing.T) {
	if !MatchesFilter(" ttyUSB0 , ttyACM0 ", "/dev/ttyUSB0", "ttyUSB0") {
		t.Fatal("expected match on trimmed trailing tty name")
	}
}

func TestMatchesFilterNoMatch(t *testing.T) {
	if MatchesFilter("ttyACM0", "/dev/ttyUSB0", "ttyUSB0") {
		t.Fatal("expected no match")
	}
}

func TestBaudOrDefault(t *testing.T) {
	if got := (Config{}).BaudOrDefault(); got != DefaultBaud {
		t.Fatalf("got %d, want %d", got, DefaultBaud)
	}
	if got := (Config{Baud: 9600}).BaudOrDefault(); got != 9600 {
		t.Fatalf("got %d, want 9600", got)
	}
}
