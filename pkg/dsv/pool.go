package dsv

import "sync"

// linePool holds buffers a Writer assembles output lines in.
var linePool = sync.Pool{
	New: func() interface{} {
		// typical line of a few dozen short fields
		b := make([]byte, 0, 256)
		return &b
	},
}

// getLine gets an empty buffer from the pool.
func getLine() []byte {
	p := linePool.Get().(*[]byte)
	return (*p)[:0]
}

// putLine returns a buffer to the pool.
func putLine(buf []byte) {
	// avoid keeping huge buffers alive
	const maxCapacity = 64 * 1024
	if cap(buf) > maxCapacity {
		return
	}
	buf = buf[:0]
	linePool.Put(&buf)
}
