package control

import (
	"errors"
	"testing"
)

func TestDispatchStatus(t *testing.T) {
	ops := Ops{Status: func() (string, error) { return `{"pid":1}`, nil }}
	if got := Dispatch("STATUS", ops); got != "{\"pid\":1}\n" {
		t.Fatalf("got %q", got)
	}
}

func TestDispatchStatusError(t *testing.T) {
	ops := Ops{Status: func() (string, error) { return "", errors.New("boom") }}
	if got := Dispatch("STATUS", ops); got != "ERROR cannot read status\n" {
		t.Fatalf("got %q", got)
	}
}

func TestDispatchYieldSuccess(t *testing.T) {
	ops := Ops{Yield: func(dev string) (bool, bool, error) { return false, true, nil }}
	if got := Dispatch("YIELD /dev/ttyUSB0", ops); got != "OK yielded /dev/ttyUSB0\n" {
		t.Fatalf("got %q", got)
	}
}

func TestDispatchYieldIdempotent(t *testing.T) {
	ops := Ops{Yield: func(dev string) (bool, bool, error) { return true, true, nil }}
	if got := Dispatch("YIELD ttyUSB0", ops); got != "OK already yielded ttyUSB0\n" {
		t.Fatalf("got %q", got)
	}
}

func TestDispatchYieldNotFound(t *testing.T) {
	ops := Ops{Yield: func(dev string) (bool, bool, error) { return false, false, nil }}
	if got := Dispatch("YIELD ttyUSB9", ops); got != "ERROR port not found: ttyUSB9\n" {
		t.Fatalf("got %q", got)
	}
}

func TestDispatchReclaimCannotReopen(t *testing.T) {
	ops := Ops{Reclaim: func(dev string) (bool, bool, error) {
		return false, true, errors.New("cannot reopen " + dev)
	}}
	if got := Dispatch("RECLAIM ttyUSB0", ops); got != "ERROR cannot reopen ttyUSB0\n" {
		t.Fatalf("got %q", got)
	}
}

func TestDispatchReclaimIdempotent(t *testing.T) {
	ops := Ops{Reclaim: func(dev string) (bool, bool, error) { return true, true, nil }}
	if got := Dispatch("RECLAIM ttyUSB0", ops); got != "OK already monitoring ttyUSB0\n" {
		t.Fatalf("got %q", got)
	}
}

func TestDispatchQuit(t *testing.T) {
	called := false
	ops := Ops{Quit: func() { called = true }}
	if got := Dispatch("QUIT", ops); got != "OK shutting down\n" {
		t.Fatalf("got %q", got)
	}
	if !called {
		t.Fatal("expected Quit to be invoked")
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	if got := Dispatch("BOGUS", Ops{}); got != "ERROR unknown command: BOGUS\n" {
		t.Fatalf("got %q", got)
	}
}
