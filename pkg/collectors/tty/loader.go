package tty

import (
	"fmt"
	"time"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/ringbuf"
	"github.com/cilium/ebpf/rlimit"
	"go.uber.org/zap"
)

// Probe program and map names inside the prebuilt BPF object.
const (
	progTTYWrite   = "capture_tty_write"
	progTTYReceive = "capture_tty_receive"
	mapEvents      = "events"

	symTTYWrite   = "tty_write"
	symTTYReceive = "n_tty_receive_buf_common"
)

// recordReader is the collector's view of the transport: a bounded
// blocking read that yields one raw sample. The ring buffer implementation
// returns os.ErrDeadlineExceeded when the wait expires so the loop can
// observe cancellation between records.
type recordReader interface {
	ReadRecord() ([]byte, error)
	Close() error
}

// loader owns the kernel side of the pipeline: the loaded collection and
// the kprobe attachments on the TTY write and receive paths.
type loader struct {
	coll   *ebpf.Collection
	links  []link.Link
	logger *zap.Logger
}

func newLoader(cfg *Config, logger *zap.Logger) (*loader, error) {
	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, fmt.Errorf("remove memlock: %w", err)
	}

	spec, err := ebpf.LoadCollectionSpec(cfg.BPFObjectPath)
	if err != nil {
		return nil, fmt.Errorf("load BPF object %q: %w", cfg.BPFObjectPath, err)
	}

	coll, err := ebpf.NewCollection(spec)
	if err != nil {
		return nil, fmt.Errorf("create BPF collection: %w", err)
	}

	l := &loader{coll: coll, logger: logger}

	attachments := []struct {
		prog   string
		symbol string
	}{
		{progTTYWrite, symTTYWrite},
		{progTTYReceive, symTTYReceive},
	}
	for _, a := range attachments {
		prog := coll.Programs[a.prog]
		if prog == nil {
			l.Close()
			return nil, fmt.Errorf("program %q not found in BPF object", a.prog)
		}
		kp, err := link.Kprobe(a.symbol, prog, nil)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("attach kprobe %s: %w", a.symbol, err)
		}
		l.links = append(l.links, kp)
		logger.Debug("attached kprobe", zap.String("symbol", a.symbol))
	}

	return l, nil
}

// eventReader opens the ring buffer the probes submit into.
func (l *loader) eventReader(pollTimeout time.Duration) (recordReader, error) {
	m := l.coll.Maps[mapEvents]
	if m == nil {
		return nil, fmt.Errorf("map %q not found in BPF object", mapEvents)
	}
	rd, err := ringbuf.NewReader(m)
	if err != nil {
		return nil, fmt.Errorf("open ring buffer: %w", err)
	}
	return &ringbufRecordReader{reader: rd, pollTimeout: pollTimeout}, nil
}

func (l *loader) Close() {
	for _, lnk := range l.links {
		lnk.Close()
	}
	l.links = nil
	if l.coll != nil {
		l.coll.Close()
	}
}

// ringbufRecordReader adapts ringbuf.Reader to recordReader with a
// per-read deadline.
type ringbufRecordReader struct {
	reader      *ringbuf.Reader
	pollTimeout time.Duration
}

func (r *ringbufRecordReader) ReadRecord() ([]byte, error) {
	r.reader.SetDeadline(time.Now().Add(r.pollTimeout))
	record, err := r.reader.Read()
	if err != nil {
		return nil, err
	}
	return record.RawSample, nil
}

func (r *ringbufRecordReader) Close() error {
	return r.reader.Close()
}
