// Package bufpool recycles byte slices used for document copies and
// protocol line buffers.
//
// Two size classes are pooled:
//   - Line buffers (4KiB): one protocol line or a small response
//   - Copy buffers (64KiB): streaming a document between directories
//
// Requests above the copy size are allocated directly and dropped on Put.
//
// Usage:
//
//	buf := bufpool.Get(bufpool.CopySize)
//	defer bufpool.Put(buf)
package bufpool

import "sync"

const (
	// LineSize matches the default maximum protocol line.
	LineSize = 4 << 10

	// CopySize is the chunk used when staging a document file.
	CopySize = 64 << 10
)

// Pool hands out byte slices from two size classes.
type Pool struct {
	line     sync.Pool
	copy     sync.Pool
	lineSize int
	copySize int
}

// NewPool creates a pool with the given class sizes. Non-positive sizes fall
// back to LineSize and CopySize.
func NewPool(lineSize, copySize int) *Pool {
	if lineSize <= 0 {
		lineSize = LineSize
	}
	if copySize <= 0 {
		copySize = CopySize
	}
	if copySize < lineSize {
		copySize = lineSize
	}

	p := &Pool{lineSize: lineSize, copySize: copySize}
	p.line.New = func() any {
		buf := make([]byte, p.lineSize)
		return &buf
	}
	p.copy.New = func() any {
		buf := make([]byte, p.copySize)
		return &buf
	}
	return p
}

// Get returns a slice of length size. Its capacity may be larger. Callers
// must hand it back with Put once done.
func (p *Pool) Get(size int) []byte {
	if size < 0 {
		size = 0
	}

	var ptr *[]byte
	switch {
	case size <= p.lineSize:
		ptr = p.line.Get().(*[]byte)
	case size <= p.copySize:
		ptr = p.copy.Get().(*[]byte)
	default:
		return make([]byte, size)
	}
	return (*ptr)[:size]
}

// Put returns buf to its size class. Slices that match no class are dropped.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}

	full := buf[:cap(buf)]
	switch cap(buf) {
	case p.lineSize:
		p.line.Put(&full)
	case p.copySize:
		p.copy.Put(&full)
	}
}

// Sizes returns the line and copy class sizes.
func (p *Pool) Sizes() (lineSize, copySize int) {
	return p.lineSize, p.copySize
}

var global = NewPool(LineSize, CopySize)

// Get returns a slice of length size from the global pool.
func Get(size int) []byte {
	return global.Get(size)
}

// Put returns buf to the global pool.
func Put(buf []byte) {
	global.Put(buf)
}

// GetCopyBuffer returns a full copy-sized buffer from the global pool.
func GetCopyBuffer() []byte {
	return global.Get(CopySize)
}
