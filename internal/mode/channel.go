// Package mode holds the display mode shared between the control listener
// and the render loop.
package mode

import "sync/atomic"

// None selects no overlay
const None = 0

// Channel is a thread-safe integer cell holding the current display mode.
// It has one writer (the control listener) and one reader (the render loop);
// all access is atomic so a reader never observes a partial write.
type Channel struct {
	v atomic.Int64
}

// NewChannel returns a channel holding None
func NewChannel() *Channel {
	return &Channel{}
}

// Set overwrites the current mode
func (c *Channel) Set(m int) {
	c.v.Store(int64(m))
}

// Get returns the most recently set mode
func (c *Channel) Get() int {
	return int(c.v.Load())
}

// CompareAndSwap stores next only if the current mode is prev
func (c *Channel) CompareAndSwap(prev, next int) bool {
	return c.v.CompareAndSwap(int64(prev), int64(next))
}
