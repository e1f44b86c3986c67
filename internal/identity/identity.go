// Package identity derives a stable board label for a tty device node by
// walking its sysfs topology up to the owning USB device and interface,
// looking up the (vid, pid) in the static catalog, and folding in any
// user-supplied board override. The ascent also captures the interface
// index and USB topology path needed to tell sibling ports on the same
// device apart.
package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgarske/uart-monitor/internal/catalog"
	"github.com/dgarske/uart-monitor/internal/sysutil"
)

// maxAscent bounds the sysfs walk from the tty device node up to its USB
// device directory.
const maxAscent = 12

// Port is an identified serial device, immutable once constructed and
// consumed by the rest of the system.
type Port struct {
	DevPath        string
	TTYName        string
	VID            uint16
	PID            uint16
	InterfaceIndex int
	SerialString   string
	Manufacturer   string
	Product        string
	USBPath        string

	Known        *catalog.Device // nil when (vid,pid) is unknown
	FunctionName string
	BoardOverride string // "" when none applies
	Label        string
}

// ErrNotIdentified is returned by Identify when dev_path does not resolve to
// a USB-backed tty.
var ErrNotIdentified = fmt.Errorf("not identified: no USB device ancestor")

// Identify resolves devPath (e.g. "/dev/ttyUSB0") to a Port by walking its
// sysfs ancestry. overrides may be nil.
func Identify(devPath string, overrides Overrides) (Port, error) {
	ttyName := filepath.Base(devPath)
	deviceLink := filepath.Join("/sys/class/tty", ttyName, "device")
	resolved, err := filepath.EvalSymlinks(deviceLink)
	if err != nil {
		return Port{}, fmt.Errorf("resolve %s: %w", deviceLink, err)
	}

	p := Port{
		DevPath: devPath,
		TTYName: ttyName,
	}

	dir := resolved
	foundInterface := false
	foundDevice := false
	for i := 0; i < maxAscent && dir != "/" && dir != "."; i++ {
		if !foundInterface {
			// bInterfaceNumber is printed %02x by the kernel.
			if s := sysutil.ReadSysfsString(filepath.Join(dir, "bInterfaceNumber")); s != "" {
				if n, err := strconv.ParseInt(s, 16, 32); err == nil {
					p.InterfaceIndex = int(n)
					foundInterface = true
				}
			}
		}
		if sysutil.HasAttr(filepath.Join(dir, "idVendor")) {
			foundDevice = true
			if vid, ok := sysutil.ReadSysfsHex(filepath.Join(dir, "idVendor")); ok {
				p.VID = vid
			}
			if pid, ok := sysutil.ReadSysfsHex(filepath.Join(dir, "idProduct")); ok {
				p.PID = pid
			}
			p.SerialString = sysutil.ReadSysfsString(filepath.Join(dir, "serial"))
			p.Manufacturer = sysutil.ReadSysfsString(filepath.Join(dir, "manufacturer"))
			p.Product = sysutil.ReadSysfsString(filepath.Join(dir, "product"))
			p.USBPath = extractUSBPath(dir)
			break
		}
		dir = filepath.Dir(dir)
	}

	if !foundDevice {
		return Port{}, ErrNotIdentified
	}

	if p.Manufacturer == "" {
		p.Manufacturer = "Unknown"
	}
	if p.Product == "" {
		p.Product = "Unknown"
	}

	if dev, ok := catalog.Lookup(p.VID, p.PID); ok {
		p.Known = &dev
		p.FunctionName = catalog.FunctionName(dev.Name, p.InterfaceIndex)
	} else {
		p.FunctionName = "Main UART"
	}

	if ov, ok := overrides.Lookup(p.SerialString); ok {
		p.BoardOverride = ov
	}

	p.Label = synthesizeLabel(p)

	return p, nil
}

// extractUSBPath locates "/usbN/" in path and returns the path component
// immediately following it, up to the next '/' or ':' (e.g. "1-6.2").
func extractUSBPath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if len(part) > 3 && strings.HasPrefix(part, "usb") {
			if _, err := strconv.Atoi(part[3:]); err == nil && i+1 < len(parts) {
				next := parts[i+1]
				if idx := strings.IndexAny(next, ":"); idx >= 0 {
					next = next[:idx]
				}
				return next
			}
		}
	}
	return ""
}

// Scan identifies every currently-present USB-serial tty matching the
// ttyUSB*/ttyACM*/ttyUART* glob set.
func Scan(overrides Overrides) ([]Port, error) {
	var out []Port
	for _, pattern := range []string{"ttyUSB*", "ttyACM*", "ttyUART*"} {
		matches, err := filepath.Glob(filepath.Join("/dev", pattern))
		if err != nil {
			return nil, err
		}
		for _, devPath := range matches {
			if _, err := os.Stat(devPath); err != nil {
				continue
			}
			p, err := Identify(devPath, overrides)
			if err != nil {
				continue
			}
			out = append(out, p)
		}
	}
	return out, nil
}
