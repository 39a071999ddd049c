// Package dedupe remembers callback delivery ids so a redelivered callback is
// acknowledged without being applied twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const defaultMaxSize = 10000

// Deduper records seen delivery ids.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a later delivery is applied. Used when the first
	// delivery was recorded but could not be applied.
	Unrecord(ctx context.Context, id string)

	// Size returns the number of ids currently held.
	Size() int64
}

type entry struct {
	id string
	at time.Time
}

// inMemoryDeduper keeps ids in insertion order and evicts the oldest once
// maxSize is reached. Entries older than ttl are treated as unseen.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryDeduper creates a bounded deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		seen:    make(map[string]*list.Element),
		order:   list.New(),
		maxSize: defaultMaxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Key joins the parts that make a delivery unique.
func Key(jobID, kind, deliveryID string) string {
	return jobID + "|" + kind + "|" + deliveryID
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if el, ok := d.seen[id]; ok {
		e := el.Value.(*entry)
		if d.ttl <= 0 || now.Sub(e.at) < d.ttl {
			return true
		}
		d.remove(el)
	}

	for d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.remove(d.order.Front())
	}
	d.seen[id] = d.order.PushBack(&entry{id: id, at: now})
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.seen[id]; ok {
		d.remove(el)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}

// must hold d.mu
func (d *inMemoryDeduper) remove(el *list.Element) {
	delete(d.seen, el.Value.(*entry).id)
	d.order.Remove(el)
}
