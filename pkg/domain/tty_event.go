package domain

// Direction identifies which side of the TTY a capture came from. The
// naming is from the terminal's perspective: OUTPUT is bytes delivered to
// the TTY for display (kernel receive path), INPUT is bytes written toward
// the TTY by a process (kernel write path).
type Direction string

const (
	DirectionOutput Direction = "OUTPUT"
	DirectionInput  Direction = "INPUT"
)

// MaxPayloadSize is the largest payload a single capture can carry. The
// probe reserves one page per event and keeps the last byte for a
// terminator, so 4095 bytes are usable.
const MaxPayloadSize = 4095

// TTYEvent is one decoded TTY capture. Events are immutable once decoded;
// the pipeline fills Time exactly once before dispatching to sinks and
// never touches the event again.
type TTYEvent struct {
	Direction   Direction `json:"direction"`
	Time        int64     `json:"time_ns"`    // calibrated wall-clock, nanoseconds
	RawTime     uint64    `json:"rawtime_ns"` // kernel monotonic clock at capture
	CgroupID    uint64    `json:"cgroup_id"`
	Inode       uint64    `json:"inode"`
	PidTgid     uint64    `json:"pidtgid"`
	NamespaceID uint64    `json:"namespace_id"`
	Comm        string    `json:"comm"`
	Payload     []byte    `json:"payload"`
	Len         uint32    `json:"len"`
}

// PID returns the process id half of the combined pid/tgid value.
func (e *TTYEvent) PID() uint32 {
	return uint32(e.PidTgid >> 32)
}

// TID returns the thread id half of the combined pid/tgid value.
func (e *TTYEvent) TID() uint32 {
	return uint32(e.PidTgid & 0xFFFFFFFF)
}
