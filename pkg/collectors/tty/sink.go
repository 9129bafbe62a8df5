package tty

import (
	"bufio"
	"io"

	"github.com/jwgranville/parrotty/pkg/domain"
)

// Sink consumes fully calibrated events. Sinks are driven by the single
// collector loop only; adding a second writer requires adding
// synchronization first.
type Sink interface {
	Write(ev *domain.TTYEvent) error
	Close() error
}

// LineSink renders events with the standard formatter and appends them to
// a stream. Every write is flushed immediately so output stays visible
// under termination or piping.
type LineSink struct {
	w         *bufio.Writer
	formatter *Formatter
}

// NewLineSink wraps w. The caller retains ownership of the underlying
// stream; Close flushes but does not close it.
func NewLineSink(w io.Writer) *LineSink {
	return &LineSink{
		w:         bufio.NewWriter(w),
		formatter: NewFormatter(),
	}
}

func (s *LineSink) Write(ev *domain.TTYEvent) error {
	if _, err := s.w.WriteString(s.formatter.Format(ev)); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *LineSink) Close() error {
	return s.w.Flush()
}
