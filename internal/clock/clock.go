// Package clock wraps benbjohnson/clock so the trading-window and
// time-priority logic in the rest of the engine can be driven by a mock
// clock in tests instead of sleeping on a wall-clock timer.
package clock

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Clock yields the current time in Unix milliseconds, the unit every
// timestamp in the data model (§3) is expressed in.
type Clock interface {
	NowMillis() int64
}

type real struct {
	c clock.Clock
}

// New returns the production clock, backed by the real wall clock.
func New() Clock {
	return &real{c: clock.New()}
}

func (r *real) NowMillis() int64 {
	return r.c.Now().UnixMilli()
}

// Mock is a settable clock for deterministic tests.
type Mock struct {
	c *clock.Mock
}

// NewMock returns a Clock pinned at Unix epoch until advanced.
func NewMock() *Mock {
	return &Mock{c: clock.NewMock()}
}

func (m *Mock) NowMillis() int64 {
	return m.c.Now().UnixMilli()
}

// Set pins the mock clock to the given Unix-ms timestamp.
func (m *Mock) Set(unixMilli int64) {
	m.c.Set(time.UnixMilli(unixMilli))
}

// Advance moves the mock clock forward by the given number of milliseconds.
func (m *Mock) Advance(deltaMillis int64) {
	m.c.Add(time.Duration(deltaMillis) * time.Millisecond)
}
