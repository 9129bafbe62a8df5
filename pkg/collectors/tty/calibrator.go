package tty

import (
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// Calibrator translates kernel monotonic timestamps into wall-clock time.
// The probe runs in a context that cannot read the wall clock, so events
// arrive stamped with CLOCK_MONOTONIC; the calibrator maintains the offset
// between the two clocks and refreshes it on a schedule or when observed
// drift exceeds a threshold. Single-writer: only the collector's poll loop
// may touch it.
type Calibrator struct {
	offsetNS       int64
	lastCalibrated int64 // wall-clock ns of the last offset refresh

	updateInterval time.Duration
	driftThreshold time.Duration

	// Counter only; read concurrently by the stats reporter.
	recalibrations atomic.Uint64

	wallNow func() int64
	monoNow func() (int64, error)
}

// NewCalibrator samples both clocks once and returns a calibrator ready
// for use. A clock read failure here is fatal for pipeline startup.
func NewCalibrator(updateInterval, driftThreshold time.Duration) (*Calibrator, error) {
	c := &Calibrator{
		updateInterval: updateInterval,
		driftThreshold: driftThreshold,
		wallNow:        func() int64 { return time.Now().UnixNano() },
		monoNow:        monotonicNow,
	}
	if err := c.recalibrate(); err != nil {
		return nil, err
	}
	c.recalibrations.Store(0)
	return c, nil
}

// Calibrate converts a raw monotonic timestamp to wall-clock nanoseconds
// using the current offset, then refreshes the offset if the update
// interval has elapsed or the drift threshold is exceeded. Refreshing
// never retroactively corrects events already emitted.
func (c *Calibrator) Calibrate(rawNS uint64, wallNS int64) (int64, error) {
	calibrated := int64(rawNS) + c.offsetNS

	drift := wallNS - calibrated
	if drift < 0 {
		drift = -drift
	}
	if wallNS > c.lastCalibrated+int64(c.updateInterval) || drift > int64(c.driftThreshold) {
		if err := c.recalibrate(); err != nil {
			return 0, err
		}
	}
	return calibrated, nil
}

// Recalibrations reports how many offset refreshes have happened since
// construction.
func (c *Calibrator) Recalibrations() uint64 {
	return c.recalibrations.Load()
}

func (c *Calibrator) recalibrate() error {
	mono, err := c.monoNow()
	if err != nil {
		return fmt.Errorf("clock calibration: %w", err)
	}
	wall := c.wallNow()
	c.offsetNS = wall - mono
	c.lastCalibrated = wall
	c.recalibrations.Add(1)
	return nil
}

// monotonicNow reads CLOCK_MONOTONIC, the same clock bpf_ktime_get_ns
// stamps events with.
func monotonicNow() (int64, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0, fmt.Errorf("read monotonic clock: %w", err)
	}
	return ts.Nano(), nil
}
