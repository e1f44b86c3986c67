package identity

import (
	"testing"

	"github.com/dgarske/uart-monitor/internal/catalog"
)

func TestLabelWithOverride(t *testing.T) {
	p := Port{
		VID: 0x10c4, PID: 0xea71, InterfaceIndex: 0,
		BoardOverride: "ZynqMP ZCU102",
	}
	got := synthesizeLabel(p)
	want := "ZYNQMP_ZCU102_UART0"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLabelKnownDeviceMultiPort(t *testing.T) {
	dev, ok := catalog.Lookup(0x10c4, 0xea71)
	if !ok {
		t.Fatal("expected catalog hit")
	}
	p := Port{
		VID: 0x10c4, PID: 0xea71, InterfaceIndex: 1,
		Known: &dev,
	}
	got := synthesizeLabel(p)
	want := "ZYNQMP_ZCU102_UART1"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLabelFallback(t *testing.T) {
	p := Port{TTYName: "ttyUSB99"}
	got := synthesizeLabel(p)
	if got != "ttyUSB99" {
		t.Fatalf("got %q, want ttyUSB99", got)
	}
}

func TestLabelSinglePortKnownDevice(t *testing.T) {
	dev, ok := catalog.Lookup(0x0403, 0x6001)
	if !ok {
		t.Fatal("expected catalog hit")
	}
	p := Port{VID: 0x0403, PID: 0x6001, InterfaceIndex: 0, Known: &dev}
	got := synthesizeLabel(p)
	if got != "ARTY_A7_UART" {
		t.Fatalf("got %q, want ARTY_A7_UART", got)
	}
}
