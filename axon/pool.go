package axon

import "sync"

// ============================================================
// Scratch Buffer Pool
// ============================================================

// maxPooledScratch caps the capacity of buffers returned to the pool so one
// huge row does not pin memory for the life of the process.
const maxPooledScratch = 64 * 1024

// scratchPool provides reusable byte buffers for unescaping and formatting.
var scratchPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 256)
		return &b
	},
}

// getScratch returns an empty buffer from the pool. Every call must be paired
// with putScratch, normally via defer.
func getScratch() *[]byte {
	b := scratchPool.Get().(*[]byte)
	*b = (*b)[:0]
	return b
}

// putScratch returns a buffer to the pool.
func putScratch(b *[]byte) {
	if cap(*b) > maxPooledScratch {
		return
	}
	scratchPool.Put(b)
}
