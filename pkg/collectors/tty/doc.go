// Package tty implements the user-space half of host-wide TTY capture:
// it consumes raw capture records from a kernel ring buffer, decodes them,
// suppresses the collector's own output device, calibrates kernel
// monotonic timestamps against the wall clock, and emits structured
// events to one or more sinks.
package tty
