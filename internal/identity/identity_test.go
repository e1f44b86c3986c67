package identity

import "testing"

func TestExtractUSBPath(t *testing.T) {
	cases := map[string]string{
		"/sys/devices/pci0000:00/0000:00:14.0/usb1/1-6.2/1-6.2:1.0/ttyUSB0": "1-6.2",
		"/sys/devices/pci0000:00/0000:00:14.0/usb1/1-4/1-4:1.0":             "1-4",
		"/sys/devices/platform/soc/usb2/2-1:1.2/tty/ttyACM0":                "2-1",
		"/sys/devices/no/usb/ancestor/here":                                 "",
	}
	for path, want := range cases {
		if got := extractUSBPath(path); got != want {
			t.Errorf("extractUSBPath(%q) = %q, want %q", path, got, want)
		}
	}
}
