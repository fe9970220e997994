package dedupe

import "time"

// Option configures an in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds the number of remembered keys. Zero or negative means unbounded.
func WithMaxSize(size int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = size
	}
}

// WithWindow makes recorded keys expire after w. Zero keeps them until evicted.
func WithWindow(w time.Duration) Option {
	return func(d *inMemoryDeduper) {
		if w >= 0 {
			d.window = w
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *inMemoryDeduper) {
		if now != nil {
			d.now = now
		}
	}
}
