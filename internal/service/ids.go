package service

import (
	"sync"
	"time"
)

// IDGenerator hands out time based service line ids. Ids are millisecond
// timestamps bumped forward on collision, so they never repeat within a
// process even when several lines are booked in the same millisecond.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
