package batch

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/text"
)

// budget tracks the wall-clock and memory limits of one chunk call. The soft
// limit is checked between units of work; the hard limit bounds store calls
// through the request context.
type budget struct {
	start    time.Time
	soft     time.Duration
	hard     time.Duration
	memLimit uint64
	now      func() time.Time
	memUsage func() uint64
	reason   string
}

// newBudget starts a budget. A zero memLimit disables the memory check.
func (o *Orchestrator) newBudget(soft, hard time.Duration, memLimit uint64) *budget {
	return &budget{
		start:    o.now(),
		soft:     soft,
		hard:     hard,
		memLimit: memLimit,
		now:      o.now,
		memUsage: o.memUsage,
	}
}

func (b *budget) elapsed() time.Duration {
	return b.now().Sub(b.start)
}

// exceeded reports whether the call should yield. The first reason found is
// kept for metrics.
func (b *budget) exceeded() bool {
	if b.reason != "" {
		return true
	}
	if b.elapsed() >= b.soft {
		b.reason = "time"
		return true
	}
	if b.memLimit > 0 && b.memUsage != nil && b.memUsage() >= b.memLimit {
		b.reason = "memory"
		return true
	}
	return false
}

// remaining is the time left before the hard limit.
func (b *budget) remaining() time.Duration {
	left := b.hard - b.elapsed()
	if left < 0 {
		return 0
	}
	return left
}

func toUTF8(content string) string {
	return text.ToUTF8([]byte(content), "")
}
