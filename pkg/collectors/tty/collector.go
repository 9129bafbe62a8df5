package tty

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// State is the collector lifecycle position.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// CollectorStats is a snapshot of pipeline counters.
type CollectorStats struct {
	EventsProcessed uint64
	EventsFiltered  uint64
	DecodeErrors    uint64
	SinkErrors      uint64
	Recalibrations  uint64
	StartTime       time.Time
	LastEventTime   time.Time
}

// Collector runs the capture pipeline: a single poll loop that reads raw
// records from the ring buffer, decodes them, drops the collector's own
// output, calibrates timestamps, and hands events to the sinks in arrival
// order. There is no intermediate queue; per-event work is cheap and the
// single-consumer design preserves ordering for free.
type Collector struct {
	cfg    *Config
	logger *zap.Logger

	loader     *loader
	reader     recordReader
	filter     *ExclusionFilter
	calibrator *Calibrator
	sinks      []Sink

	wallNow func() int64

	state    atomic.Int32
	started  atomic.Bool
	done     chan struct{}
	stopOnce sync.Once

	mu    sync.RWMutex
	stats CollectorStats
	err   error
}

// NewCollector creates a collector that writes to the given sinks. The
// transport is attached on Start.
func NewCollector(cfg *Config, logger *zap.Logger, sinks ...Sink) (*Collector, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		var err error
		logger, err = zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("create logger: %w", err)
		}
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("at least one sink is required")
	}

	c := &Collector{
		cfg:     cfg,
		logger:  logger,
		sinks:   sinks,
		wallNow: func() int64 { return time.Now().UnixNano() },
		done:    make(chan struct{}),
	}
	c.state.Store(int32(StateStarting))
	return c, nil
}

// Start resolves the exclusion inodes, initializes calibration, attaches
// the transport, and launches the poll loop. The loop drains and stops
// when ctx is cancelled.
func (c *Collector) Start(ctx context.Context) error {
	if c.State() != StateStarting {
		return fmt.Errorf("collector already started (state %s)", c.State())
	}

	if c.filter == nil {
		filter, err := NewExclusionFilter(os.Stdout, os.Stderr)
		if err != nil {
			return fmt.Errorf("resolve exclusion inodes: %w", err)
		}
		c.filter = filter
	}

	calibrator, err := NewCalibrator(c.cfg.CalibrationInterval, c.cfg.DriftThreshold)
	if err != nil {
		return err
	}
	c.calibrator = calibrator

	if c.reader == nil {
		ld, err := newLoader(c.cfg, c.logger)
		if err != nil {
			return err
		}
		reader, err := ld.eventReader(c.cfg.PollTimeout)
		if err != nil {
			ld.Close()
			return err
		}
		c.loader = ld
		c.reader = reader
	}

	c.mu.Lock()
	c.stats.StartTime = time.Now()
	c.mu.Unlock()

	c.started.Store(true)
	c.state.Store(int32(StateRunning))
	c.logger.Info("tty capture running",
		zap.String("collector", c.cfg.Name),
		zap.String("bpf_object", c.cfg.BPFObjectPath),
	)

	go c.run()
	go c.watchContext(ctx)
	go c.reportStats()
	return nil
}

// Stop drains the poll loop and releases the transport. Idempotent: a
// second call while draining waits for the same shutdown and does not
// disturb an in-flight record.
func (c *Collector) Stop() error {
	c.beginDrain()
	c.stopOnce.Do(func() {
		if c.started.Load() {
			<-c.done
		}
		if c.reader != nil {
			c.reader.Close()
		}
		if c.loader != nil {
			c.loader.Close()
		}
		for _, s := range c.sinks {
			if err := s.Close(); err != nil {
				c.logger.Warn("sink close failed", zap.Error(err))
			}
		}
		c.state.Store(int32(StateStopped))

		stats := c.Statistics()
		c.logger.Info("tty capture stopped",
			zap.Uint64("events", stats.EventsProcessed),
			zap.Uint64("filtered", stats.EventsFiltered),
			zap.Uint64("decode_errors", stats.DecodeErrors),
		)
	})
	return c.Err()
}

// Done is closed when the poll loop has finished draining.
func (c *Collector) Done() <-chan struct{} {
	return c.done
}

// Err returns the fatal pipeline error, if any.
func (c *Collector) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// State returns the current lifecycle state.
func (c *Collector) State() State {
	return State(c.state.Load())
}

// Statistics returns a snapshot of the pipeline counters.
func (c *Collector) Statistics() CollectorStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := c.stats
	if c.calibrator != nil {
		stats.Recalibrations = c.calibrator.Recalibrations()
	}
	return stats
}

// beginDrain moves a running collector into draining. The poll loop
// observes the state at the top of the next iteration; the record it is
// currently processing completes through the sinks first.
func (c *Collector) beginDrain() {
	c.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
}

func (c *Collector) watchContext(ctx context.Context) {
	select {
	case <-ctx.Done():
		c.beginDrain()
	case <-c.done:
	}
}

// run is the single consumer loop. Only this goroutine touches the
// calibrator, the decoder scratch state, and the sinks.
func (c *Collector) run() {
	defer close(c.done)

	for c.State() == StateRunning {
		sample, err := c.reader.ReadRecord()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if c.State() != StateRunning {
				return
			}
			// The transport itself failed; nothing further can be
			// read, so surface the error and drain.
			c.setErr(fmt.Errorf("ring buffer poll: %w", err))
			c.beginDrain()
			return
		}
		c.handleRecord(sample)
	}
}

// handleRecord runs one record through decode, exclusion, calibration,
// and the sinks. Decode failures drop the single record; the kernel side
// already drops under contention, so sub-visible loss is expected here.
func (c *Collector) handleRecord(sample []byte) {
	ev, err := decodeTTYEvent(sample)
	if err != nil {
		c.mu.Lock()
		c.stats.DecodeErrors++
		c.mu.Unlock()
		return
	}

	// Exclusion runs before calibration so self-feedback costs nothing
	// beyond the decode.
	if c.filter.Excluded(ev.Inode) {
		c.mu.Lock()
		c.stats.EventsFiltered++
		c.mu.Unlock()
		return
	}

	calibrated, err := c.calibrator.Calibrate(ev.RawTime, c.wallNow())
	if err != nil {
		// A stale offset past the drift threshold is a correctness
		// violation, so a failed clock read is fatal rather than
		// silently reusing the old offset.
		c.setErr(err)
		c.beginDrain()
		return
	}
	ev.Time = calibrated

	for _, s := range c.sinks {
		if err := s.Write(ev); err != nil {
			c.mu.Lock()
			c.stats.SinkErrors++
			c.mu.Unlock()
			c.logger.Warn("sink write failed", zap.Error(err))
		}
	}

	c.mu.Lock()
	c.stats.EventsProcessed++
	c.stats.LastEventTime = time.Now()
	c.mu.Unlock()
}

func (c *Collector) reportStats() {
	ticker := time.NewTicker(c.cfg.StatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			stats := c.Statistics()
			c.logger.Info("capture stats",
				zap.Uint64("events", stats.EventsProcessed),
				zap.Uint64("filtered", stats.EventsFiltered),
				zap.Uint64("decode_errors", stats.DecodeErrors),
				zap.Uint64("sink_errors", stats.SinkErrors),
				zap.Uint64("recalibrations", stats.Recalibrations),
			)
		}
	}
}

func (c *Collector) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}
