package checkpoint

import (
	"context"

	"bmexport/pkg/models"
)

// DefaultEvery is the number of collected posts between two flushes
const DefaultEvery = 500

// Flusher persists a snapshot of the posts collected so far
type Flusher interface {
	Flush(ctx context.Context, posts []*models.Post) error
}

// FlushFunc adapts a function to Flusher
type FlushFunc func(ctx context.Context, posts []*models.Post) error

// Flush calls f
func (f FlushFunc) Flush(ctx context.Context, posts []*models.Post) error {
	return f(ctx, posts)
}

// Policy decides when the collection loop writes intermediate output
type Policy struct {
	Every int

	lastFlushed int
}

// NewPolicy creates a policy flushing every n posts. n <= 0 disables flushing.
func NewPolicy(n int) *Policy {
	return &Policy{Every: n}
}

// Due reports whether count has crossed a multiple of Every since the last
// flush, landing on it or jumping past it. A true result records count as
// flushed.
func (p *Policy) Due(count int) bool {
	if p == nil || p.Every <= 0 || count <= 0 {
		return false
	}
	if count/p.Every <= p.lastFlushed/p.Every {
		return false
	}
	p.lastFlushed = count
	return true
}
