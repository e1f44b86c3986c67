package identity

import (
	"fmt"
	"strings"

	"github.com/dgarske/uart-monitor/internal/sysutil"
)

const maxLabelLen = 48

// synthesizeLabel applies a three-tier priority: board override, then the
// known device's first candidate board, then the bare tty name.
func synthesizeLabel(p Port) string {
	var label string
	switch {
	case p.BoardOverride != "":
		label = upperUnderscore(p.BoardOverride) + "_UART" + fmt.Sprint(p.InterfaceIndex)
	case p.Known != nil && len(p.Known.CandidateBoards) > 0:
		base := upperUnderscore(p.Known.CandidateBoards[0])
		if p.Known.ExpectedPortCount > 1 {
			label = base + "_UART" + fmt.Sprint(p.InterfaceIndex)
		} else {
			label = base + "_UART"
		}
	default:
		label = p.TTYName
	}
	return sysutil.BoundedCopy(label, maxLabelLen)
}

// upperUnderscore turns spaces into underscores and lowercase ASCII into
// uppercase, leaving other characters verbatim.
func upperUnderscore(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
