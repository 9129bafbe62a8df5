package tty

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jwgranville/parrotty/pkg/domain"
)

// Formatter renders one event as two physical lines: a fixed-order header
// and the escaped payload. All field formatting lives here so a format
// change is a single-point edit.
type Formatter struct{}

// NewFormatter returns a formatter for the standard line format.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format renders ev. The header field order is fixed; time is the
// calibrated wall-clock timestamp and rawtime the original monotonic
// value, always emitted together so either clock can be audited. The
// payload is escaped with Go string quoting, which keeps arbitrary binary
// content on a single line.
func (f *Formatter) Format(ev *domain.TTYEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<%s pid=%d tid=%d time=%d rawtime=%d cgid=%d inode=%d pidtgid=%d nsid=%d comm=%s len=%d>\n",
		ev.Direction,
		ev.PID(),
		ev.TID(),
		ev.Time,
		ev.RawTime,
		ev.CgroupID,
		ev.Inode,
		ev.PidTgid,
		ev.NamespaceID,
		ev.Comm,
		ev.Len,
	)
	b.WriteString(strconv.Quote(string(ev.Payload)))
	b.WriteByte('\n')
	return b.String()
}
