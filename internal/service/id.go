package service

import (
	"sync"
	"time"
)

// idClock hands out Unix-millisecond ids that never repeat or go backwards
// within the process.
type idClock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func newIDClock() *idClock {
	return &idClock{now: time.Now}
}

func (c *idClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.now().UnixMilli()
	if id <= c.last {
		id = c.last + 1
	}
	c.last = id
	return id
}
