package tty

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwgranville/parrotty/pkg/domain"
)

// encodeRaw serializes a raw event exactly the way the probe submits it.
func encodeRaw(t *testing.T, raw *rawTTYEvent) []byte {
	t.Helper()
	buf := make([]byte, rawTTYEventSize)
	copy(buf, unsafe.Slice((*byte)(unsafe.Pointer(raw)), rawTTYEventSize))
	return buf
}

func sampleRaw(payload []byte, etype int32) *rawTTYEvent {
	raw := &rawTTYEvent{
		RawTime:     111222333,
		CgroupID:    9,
		Inode:       42,
		PidTgid:     uint64(4242)<<32 | 7,
		NamespaceID: 11,
		Len:         uint32(len(payload)),
		Etype:       etype,
	}
	copy(raw.Comm[:], "bash")
	copy(raw.Buf[:], payload)
	return raw
}

func TestDecodeTTYEvent(t *testing.T) {
	raw := sampleRaw([]byte("ls\n"), 0)

	ev, err := decodeTTYEvent(encodeRaw(t, raw))
	require.NoError(t, err)

	assert.Equal(t, domain.DirectionOutput, ev.Direction)
	assert.Equal(t, uint64(111222333), ev.RawTime)
	assert.Equal(t, uint64(9), ev.CgroupID)
	assert.Equal(t, uint64(42), ev.Inode)
	assert.Equal(t, uint32(4242), ev.PID())
	assert.Equal(t, uint32(7), ev.TID())
	assert.Equal(t, uint64(11), ev.NamespaceID)
	assert.Equal(t, "bash", ev.Comm)
	assert.Equal(t, []byte("ls\n"), ev.Payload)
	assert.Equal(t, uint32(3), ev.Len)
}

func TestDecodeTTYEventInput(t *testing.T) {
	ev, err := decodeTTYEvent(encodeRaw(t, sampleRaw([]byte("l"), 1)))
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionInput, ev.Direction)
}

func TestDecodeTTYEventShortRecord(t *testing.T) {
	_, err := decodeTTYEvent(make([]byte, 32))
	require.ErrorIs(t, err, errShortRecord)
}

func TestDecodeTTYEventInvalidDirection(t *testing.T) {
	_, err := decodeTTYEvent(encodeRaw(t, sampleRaw([]byte("x"), 7)))
	require.ErrorIs(t, err, errInvalidDirection)
}

func TestDecodeTTYEventEmptyPayload(t *testing.T) {
	ev, err := decodeTTYEvent(encodeRaw(t, sampleRaw(nil, 0)))
	require.NoError(t, err)
	assert.Empty(t, ev.Payload)
	assert.Equal(t, uint32(0), ev.Len)
}

func TestDecodeTTYEventLenIsAuthoritative(t *testing.T) {
	// An embedded NUL must not truncate the payload; only Len decides.
	raw := sampleRaw([]byte{'l', 0x00, 's'}, 0)

	ev, err := decodeTTYEvent(encodeRaw(t, raw))
	require.NoError(t, err)
	assert.Equal(t, []byte{'l', 0x00, 's'}, ev.Payload)
}

func TestDecodeTTYEventMaxPayload(t *testing.T) {
	payload := bytes.Repeat([]byte{'a'}, domain.MaxPayloadSize)
	ev, err := decodeTTYEvent(encodeRaw(t, sampleRaw(payload, 0)))
	require.NoError(t, err)
	assert.Len(t, ev.Payload, domain.MaxPayloadSize)
}

func TestDecodeTTYEventClampsOversizedLen(t *testing.T) {
	raw := sampleRaw(nil, 0)
	raw.Len = payloadCap + 100

	ev, err := decodeTTYEvent(encodeRaw(t, raw))
	require.NoError(t, err)
	assert.Equal(t, uint32(domain.MaxPayloadSize), ev.Len)
	assert.Len(t, ev.Payload, domain.MaxPayloadSize)
}

func TestDecodeTTYEventToleratesTrailingBytes(t *testing.T) {
	// Ring buffer records may round up; trailing bytes are ignored.
	sample := append(encodeRaw(t, sampleRaw([]byte("ok"), 0)), 0, 0, 0, 0)
	ev, err := decodeTTYEvent(sample)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), ev.Payload)
}

func TestCommWithoutTerminator(t *testing.T) {
	raw := sampleRaw(nil, 0)
	copy(raw.Comm[:], "sixteen_bytes_xx") // fills the field, no NUL

	ev, err := decodeTTYEvent(encodeRaw(t, raw))
	require.NoError(t, err)
	assert.Equal(t, "sixteen_bytes_xx", ev.Comm)
}
