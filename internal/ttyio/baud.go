package ttyio

import "golang.org/x/sys/unix"

// baudConstants maps a numeric baud rate to the platform termios speed
// constant. Unrecognized values fall back to 115200.
var baudConstants = map[int]uint32{
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
}

// baudConstant returns the termios speed constant for baud, defaulting to
// B115200 for unrecognized rates.
func baudConstant(baud int) uint32 {
	if c, ok := baudConstants[baud]; ok {
		return c
	}
	return unix.B115200
}
