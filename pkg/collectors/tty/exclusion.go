package tty

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ExclusionFilter suppresses captures that originate from the collector's
// own output streams. Without it every emitted line is itself TTY output,
// observable by the same probes, and the pipeline amplifies its own
// feedback without bound.
//
// Inodes are resolved once at startup and used read-only afterwards. If
// the output stream is redirected to a different device mid-run the filter
// is not re-resolved; that is a known limitation of the resolve-once
// contract.
type ExclusionFilter struct {
	inodes map[uint64]struct{}
}

// NewExclusionFilter resolves the inode backing each given stream. The
// collector passes its stdout and stderr; when those are redirected to a
// regular file the resolved inodes simply never match a TTY capture.
func NewExclusionFilter(streams ...*os.File) (*ExclusionFilter, error) {
	f := &ExclusionFilter{inodes: make(map[uint64]struct{}, len(streams))}
	for _, s := range streams {
		var st unix.Stat_t
		if err := unix.Fstat(int(s.Fd()), &st); err != nil {
			return nil, fmt.Errorf("stat output stream %q: %w", s.Name(), err)
		}
		f.inodes[st.Ino] = struct{}{}
	}
	return f, nil
}

// Excluded reports whether an event's backing inode belongs to one of the
// collector's own output streams. O(1), no side effects.
func (f *ExclusionFilter) Excluded(inode uint64) bool {
	_, ok := f.inodes[inode]
	return ok
}

// exclusionFilterOf builds a filter over literal inode values. Used by
// tests that have no real device to stat.
func exclusionFilterOf(inodes ...uint64) *ExclusionFilter {
	f := &ExclusionFilter{inodes: make(map[uint64]struct{}, len(inodes))}
	for _, ino := range inodes {
		f.inodes[ino] = struct{}{}
	}
	return f
}
