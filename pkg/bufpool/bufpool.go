// Package bufpool recycles the byte slices used to move file data between
// disk and the wire.
//
// Buffers come in size classes; Get returns a slice backed by the smallest
// class that fits and Put returns it to that class. Requests larger than
// the biggest class are allocated directly and never pooled.
//
//	buf := bufpool.Get(protocol.MaxChunkSize)
//	defer bufpool.Put(buf)
package bufpool

import (
	"sort"
	"sync"
)

const (
	// DefaultChunkSize covers one wire chunk plus framing overhead.
	DefaultChunkSize = 2 << 10

	// DefaultBlockSize is used for buffered file I/O.
	DefaultBlockSize = 64 << 10
)

// Pool is a set of sync.Pools keyed by buffer capacity. Safe for
// concurrent use.
type Pool struct {
	sizes []int
	pools []*sync.Pool
}

// NewPool creates a pool with the given size classes. With no sizes the
// defaults are used.
func NewPool(sizes ...int) *Pool {
	if len(sizes) == 0 {
		sizes = []int{DefaultChunkSize, DefaultBlockSize}
	}
	sorted := make([]int, 0, len(sizes))
	for _, s := range sizes {
		if s > 0 {
			sorted = append(sorted, s)
		}
	}
	sort.Ints(sorted)

	p := &Pool{sizes: sorted, pools: make([]*sync.Pool, len(sorted))}
	for i, size := range sorted {
		size := size
		p.pools[i] = &sync.Pool{New: func() any {
			b := make([]byte, size)
			return &b
		}}
	}
	return p
}

// Get returns a slice of length size.
func (p *Pool) Get(size int) []byte {
	for i, class := range p.sizes {
		if size <= class {
			b := *(p.pools[i].Get().(*[]byte))
			return b[:size]
		}
	}
	return make([]byte, size)
}

// Put returns buf to its size class. Slices that did not come from the
// pool are dropped.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}
	for i, class := range p.sizes {
		if cap(buf) == class {
			b := buf[:class]
			p.pools[i].Put(&b)
			return
		}
	}
}

var globalPool = NewPool()

// Get returns a buffer of length size from the process-wide pool.
func Get(size int) []byte {
	return globalPool.Get(size)
}

// Put returns a buffer to the process-wide pool.
func Put(buf []byte) {
	globalPool.Put(buf)
}
