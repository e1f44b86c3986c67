// Package catalog holds the static tables of known USB VID:PID tuples and
// their per-interface function names. Both tables are compile-time
// constants — the daemon never mutates them at runtime; board overrides
// layer on top via internal/identity.
package catalog

// Device describes one known (vid, pid) tuple.
type Device struct {
	VID               uint16
	PID               uint16
	Name              string
	ExpectedPortCount int
	CandidateBoards   []string
}

// PortFunction names a single USB interface of a known device, e.g.
// interface 2 of a CP210x quad-UART being "UART2".
type PortFunction struct {
	Name           string
	InterfaceIndex int
	Function       string
}

// knownDevices is keyed by (vid, pid); at most one entry per tuple.
var knownDevices = []Device{
	{
		VID: 0x10c4, PID: 0xea71,
		Name:              "Silicon Labs CP210x",
		ExpectedPortCount: 4,
		CandidateBoards:   []string{"ZynqMP ZCU102", "PolarFire SoC", "Versal VCK190"},
	},
	{
		VID: 0x0403, PID: 0x6001,
		Name:              "FTDI FT232",
		ExpectedPortCount: 1,
		CandidateBoards:   []string{"Arty A7"},
	},
	{
		VID: 0x0403, PID: 0x6011,
		Name:              "FTDI FT4232H",
		ExpectedPortCount: 4,
		CandidateBoards:   []string{"KR260", "KR260 Robotics Starter Kit"},
	},
	{
		VID: 0x0403, PID: 0x6014,
		Name:              "FTDI FT232H",
		ExpectedPortCount: 1,
		CandidateBoards:   []string{},
	},
	{
		VID: 0x067b, PID: 0x2303,
		Name:              "Prolific PL2303",
		ExpectedPortCount: 1,
		CandidateBoards:   []string{},
	},
	{
		VID: 0x1a86, PID: 0x7523,
		Name:              "QinHeng CH340",
		ExpectedPortCount: 1,
		CandidateBoards:   []string{"ESP32 DevKit"},
	},
	{
		VID: 0x2341, PID: 0x0043,
		Name:              "Arduino Uno",
		ExpectedPortCount: 1,
		CandidateBoards:   []string{"Arduino Uno"},
	},
}

// portFunctions maps (device name, interface index) to a human label. Devices
// not listed here, or interfaces beyond those listed, fall back to
// "Main UART".
var portFunctions = []PortFunction{
	{Name: "Silicon Labs CP210x", InterfaceIndex: 0, Function: "UART0"},
	{Name: "Silicon Labs CP210x", InterfaceIndex: 1, Function: "UART1"},
	{Name: "Silicon Labs CP210x", InterfaceIndex: 2, Function: "UART2"},
	{Name: "Silicon Labs CP210x", InterfaceIndex: 3, Function: "UART3"},
	{Name: "FTDI FT4232H", InterfaceIndex: 0, Function: "UART0"},
	{Name: "FTDI FT4232H", InterfaceIndex: 1, Function: "UART1"},
	{Name: "FTDI FT4232H", InterfaceIndex: 2, Function: "UART2"},
	{Name: "FTDI FT4232H", InterfaceIndex: 3, Function: "UART3"},
}

// Lookup returns the known-device record for (vid, pid), if any.
func Lookup(vid, pid uint16) (Device, bool) {
	for _, d := range knownDevices {
		if d.VID == vid && d.PID == pid {
			return d, true
		}
	}
	return Device{}, false
}

// FunctionName returns the per-interface function label for a known device
// name and interface index, defaulting to "Main UART" when unlisted.
func FunctionName(name string, interfaceIndex int) string {
	for _, pf := range portFunctions {
		if pf.Name == name && pf.InterfaceIndex == interfaceIndex {
			return pf.Function
		}
	}
	return "Main UART"
}
