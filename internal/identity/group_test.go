package identity

import "testing"

func TestGroupPorts(t *testing.T) {
	ports := []Port{
		{VID: 0x10c4, PID: 0xea71, SerialString: "ABC123", USBPath: "1-6", InterfaceIndex: 1},
		{VID: 0x10c4, PID: 0xea71, SerialString: "ABC123", USBPath: "1-6", InterfaceIndex: 0},
		{VID: 0x0403, PID: 0x6001, SerialString: "XYZ789", USBPath: "1-4", InterfaceIndex: 0},
	}
	groups := GroupPorts(ports)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	sizes := map[int]bool{}
	for _, g := range groups {
		sizes[len(g.Ports)] = true
	}
	if !sizes[2] || !sizes[1] {
		t.Fatalf("unexpected group sizes: %v", groups)
	}
	for _, g := range groups {
		if len(g.Ports) != 2 {
			continue
		}
		if g.Ports[0].InterfaceIndex != 0 || g.Ports[1].InterfaceIndex != 1 {
			t.Fatalf("group not sorted by interface index: %+v", g.Ports)
		}
	}
}
