// Package sysutil holds small filesystem helpers shared by the identifier,
// session manager, and log writer: sysfs attribute reads, atomic symlink
// replacement, and bounded string copies.
package sysutil

import (
	"os"
	"strconv"
	"strings"
)

// ReadSysfsString reads a sysfs attribute file and trims trailing whitespace.
// Returns "" if the attribute does not exist or cannot be read.
func ReadSysfsString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(data), "\r\n\t ")
}

// ReadSysfsHex reads a hex-encoded sysfs attribute (e.g. "0x10c4" or "10c4")
// and returns its value. Returns 0 and false if the attribute is missing or
// not parseable.
func ReadSysfsHex(path string) (uint16, bool) {
	s := ReadSysfsString(path)
	if s == "" {
		return 0, false
	}
	s = strings.TrimPrefix(s, "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}

// HasAttr reports whether a sysfs attribute file exists at path.
func HasAttr(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// BoundedCopy copies at most max bytes of s, truncating if necessary. Used
// for the filesystem-safe label, which is capped at 48 characters.
func BoundedCopy(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
