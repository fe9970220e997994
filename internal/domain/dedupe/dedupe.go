// Package dedupe suppresses repeated notifications for the same recipient and subject.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const defaultMaxSize = 50000

// Deduper records notification keys to ensure at-most-once delivery within a window.
type Deduper interface {
	// SeenAndRecord reports whether key was already recorded and still fresh.
	// A new or expired key is recorded and false is returned.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so a failed delivery can be retried.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key string
	at  time.Time
}

// inMemoryDeduper keeps keys in insertion order. When full, the oldest key is evicted.
type inMemoryDeduper struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List
	maxSize int
	window  time.Duration
	now     func() time.Time
}

// NewInMemoryDeduper creates a bounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		index:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: defaultMaxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if el, ok := d.index[key]; ok {
		e := el.Value.(*entry) //nolint:forcetypeassert // list only holds *entry
		if d.window <= 0 || now.Sub(e.at) < d.window {
			return true
		}
		e.at = now
		d.order.MoveToBack(el)
		return false
	}

	d.index[key] = d.order.PushBack(&entry{key: key, at: now})
	if d.maxSize > 0 {
		for d.order.Len() > d.maxSize {
			d.remove(d.order.Front())
		}
	}
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.index[key]; ok {
		d.remove(el)
	}
}

// remove must be called with d.mu held.
func (d *inMemoryDeduper) remove(el *list.Element) {
	e := d.order.Remove(el).(*entry) //nolint:forcetypeassert // list only holds *entry
	delete(d.index, e.key)
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
