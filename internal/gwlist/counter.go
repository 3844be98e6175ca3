package gwlist

import "sync/atomic"

// Counter is a monotonic atomic counter used for sequence numbers,
// connection ids, and similar bookkeeping shared across goroutines.
type Counter struct {
	value int64
}

// Increase adds 1 to the counter and returns the new value.
func (c *Counter) Increase() int64 {
	return atomic.AddInt64(&c.value, 1)
}

// Add adds delta to the counter and returns the new value.
func (c *Counter) Add(delta int64) int64 {
	return atomic.AddInt64(&c.value, delta)
}

// Value returns the current value.
func (c *Counter) Value() int64 {
	return atomic.LoadInt64(&c.value)
}

// Set forces the counter to a specific value.
func (c *Counter) Set(v int64) {
	atomic.StoreInt64(&c.value, v)
}
