package crdt

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock выдает write timestamps (unix ms) для lastUpdated.
// Значения строго возрастают даже если системные часы стоят на месте или идут назад.
type Clock struct {
	now    func() time.Time // источник физического времени
	nodeID string           // идентификатор устройства
	last   int64            // последний выданный timestamp
	mu     sync.Mutex
}

// NewClock creates a clock backed by time.Now with a random node id.
func NewClock() *Clock {
	return NewClockWithSource(uuid.New().String(), time.Now)
}

// NewClockWithSource creates a clock with a fixed node id and time source.
// Используется в тестах и при восстановлении состояния.
func NewClockWithSource(nodeID string, now func() time.Time) *Clock {
	return &Clock{
		now:    now,
		nodeID: nodeID,
	}
}

// Tick returns the next write timestamp: max(now, last+1).
func (c *Clock) Tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now().UnixMilli()
	if ts <= c.last {
		ts = c.last + 1
	}
	c.last = ts

	return ts
}

// Observe records a timestamp seen from another store so later ticks are larger.
func (c *Clock) Observe(remote int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remote > c.last {
		c.last = remote
	}
}

// Now returns the current physical time of the clock's source.
func (c *Clock) Now() time.Time {
	return c.now()
}

// Last returns the last issued or observed timestamp.
func (c *Clock) Last() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.last
}

// NodeID returns the device identifier.
func (c *Clock) NodeID() string {
	return c.nodeID
}
