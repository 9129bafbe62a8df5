package tty

import (
	"bytes"
	"errors"
	"fmt"
	"unsafe"

	"github.com/jwgranville/parrotty/pkg/domain"
)

const (
	commLen    = 16
	payloadCap = 4096
)

// rawTTYEvent mirrors struct event_t submitted by the capture probes.
// Field order, widths, and native endianness must match the kernel side
// exactly; the struct is naturally aligned with no compiler padding.
type rawTTYEvent struct {
	RawTime     uint64
	CgroupID    uint64
	Inode       uint64
	PidTgid     uint64
	NamespaceID uint64
	Comm        [commLen]byte
	Buf         [payloadCap]byte
	Len         uint32
	Etype       int32
}

const rawTTYEventSize = int(unsafe.Sizeof(rawTTYEvent{}))

var (
	errShortRecord      = errors.New("record shorter than event layout")
	errInvalidDirection = errors.New("invalid event direction")
)

// decodeTTYEvent decodes one ring buffer sample into a domain event. The
// payload is copied out, so the sample buffer may be reused by the caller.
// Malformed records return an error and are expected to be dropped.
func decodeTTYEvent(sample []byte) (*domain.TTYEvent, error) {
	if len(sample) < rawTTYEventSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", errShortRecord, len(sample), rawTTYEventSize)
	}

	var raw rawTTYEvent
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&raw)), rawTTYEventSize), sample[:rawTTYEventSize])

	var direction domain.Direction
	switch raw.Etype {
	case 0:
		direction = domain.DirectionOutput
	case 1:
		direction = domain.DirectionInput
	default:
		return nil, fmt.Errorf("%w: %d", errInvalidDirection, raw.Etype)
	}

	// The declared length is authoritative; never scan for a terminator.
	// The probe keeps the last buffer byte for a NUL, so clamp to one
	// under capacity.
	n := raw.Len
	if n > domain.MaxPayloadSize {
		n = domain.MaxPayloadSize
	}
	payload := make([]byte, n)
	copy(payload, raw.Buf[:n])

	return &domain.TTYEvent{
		Direction:   direction,
		RawTime:     raw.RawTime,
		CgroupID:    raw.CgroupID,
		Inode:       raw.Inode,
		PidTgid:     raw.PidTgid,
		NamespaceID: raw.NamespaceID,
		Comm:        commString(raw.Comm[:]),
		Payload:     payload,
		Len:         n,
	}, nil
}

// commString truncates a fixed-width comm field at the first NUL. Comm is
// display metadata only; payload handling never goes through here.
func commString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
