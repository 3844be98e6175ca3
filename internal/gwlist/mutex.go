// Package gwlist provides the small set of concurrency primitives the
// bearerbox core relies on: a producer/consumer List, a thread-safe Dict,
// an atomic Counter, and a Mutex that refuses recursive acquisition.
package gwlist

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
	"sync"
)

// Mutex is a mutual-exclusion lock that panics if the calling goroutine
// attempts to acquire it while already holding it. Plain sync.Mutex
// silently deadlocks on self-recursion; every lock in this package is
// held only around field access, never across I/O, so a recursive
// acquisition is always a bug worth crashing on immediately.
type Mutex struct {
	mu    sync.Mutex
	owner int64 // goroutine id currently holding mu, 0 if unlocked
}

// Lock acquires the mutex, panicking if the current goroutine already
// holds it.
func (m *Mutex) Lock() {
	id := goroutineID()
	m.mu.Lock()
	if m.owner == id {
		m.mu.Unlock()
		panic(fmt.Sprintf("gwlist: recursive Lock by goroutine %d", id))
	}
	m.mu.Unlock()

	m.mu.Lock()
	m.owner = id
}

// Unlock releases the mutex.
func (m *Mutex) Unlock() {
	m.owner = 0
	m.mu.Unlock()
}

// goroutineID extracts the calling goroutine's id from its stack trace
// header. It is used only for recursive-lock detection, never for
// scheduling decisions.
func goroutineID() int64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	// "goroutine 123 [running]:"
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	if i := bytes.IndexByte(buf, ' '); i >= 0 {
		buf = buf[:i]
	}
	id, err := strconv.ParseInt(string(buf), 10, 64)
	if err != nil {
		return -1
	}
	return id
}
