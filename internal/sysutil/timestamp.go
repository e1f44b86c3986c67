package sysutil

import "time"

// LogTimestamp formats t the way the log writer prefixes each line:
// "2006-01-02 15:04:05.000".
func LogTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.000")
}

// SessionTimestamp formats t the way session directory names are composed:
// "20060102-150405".
func SessionTimestamp(t time.Time) string {
	return t.Format("20060102-150405")
}
