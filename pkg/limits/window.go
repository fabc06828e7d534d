package limits

import (
	"sync"
	"time"
)

// rollingWindow accumulates spend over a fixed window using a circular
// buffer of buckets. Granularity is a tradeoff between accuracy and memory:
// the hourly window uses minute buckets, the daily window hour buckets.
type rollingWindow struct {
	mu         sync.Mutex
	window     time.Duration
	bucketSize time.Duration
	buckets    []windowBucket
}

type windowBucket struct {
	start  time.Time
	amount float64
}

func newRollingWindow(window, bucketSize time.Duration) *rollingWindow {
	n := int(window / bucketSize)
	if n < 1 {
		n = 1
	}
	return &rollingWindow{
		window:     window,
		bucketSize: bucketSize,
		buckets:    make([]windowBucket, n),
	}
}

// add books an amount into the current bucket.
func (w *rollingWindow) add(amount float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	slot := w.slotFor(now)
	if now.Sub(w.buckets[slot].start) >= w.bucketSize {
		w.buckets[slot] = windowBucket{start: now.Truncate(w.bucketSize)}
	}
	w.buckets[slot].amount += amount
}

// sum totals the spend still inside the window.
func (w *rollingWindow) sum() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	var total float64
	for _, b := range w.buckets {
		if !b.start.IsZero() && now.Sub(b.start) < w.window {
			total += b.amount
		}
	}
	return total
}

// nextExpiry is how long until the oldest live bucket leaves the window,
// used as a retry hint when the budget is exhausted.
func (w *rollingWindow) nextExpiry() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	var oldest time.Time
	for _, b := range w.buckets {
		if b.start.IsZero() || b.amount == 0 || now.Sub(b.start) >= w.window {
			continue
		}
		if oldest.IsZero() || b.start.Before(oldest) {
			oldest = b.start
		}
	}
	if oldest.IsZero() {
		return w.bucketSize
	}
	wait := oldest.Add(w.window).Sub(now)
	if wait < 0 {
		wait = w.bucketSize
	}
	return wait
}

// slotFor maps a timestamp to its circular buffer slot.
func (w *rollingWindow) slotFor(t time.Time) int {
	return int(t.UnixNano()/int64(w.bucketSize)) % len(w.buckets)
}
