// Package bufpool recycles fixed-size chunk buffers.
package bufpool

import (
	"fmt"
	"sync"
)

// Pool hands out buffers of exactly Size bytes.
type Pool struct {
	pool sync.Pool
	size int
}

// New returns a pool of size-byte buffers. size must be positive.
func New(size int) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("buffer size %d must be positive", size)
	}
	p := &Pool{size: size}
	p.pool.New = func() any {
		buf := make([]byte, size)
		return &buf
	}
	return p, nil
}

// Get returns a buffer of length Size. Its contents are unspecified.
func (p *Pool) Get() *[]byte {
	buf, _ := p.pool.Get().(*[]byte)
	if buf == nil || cap(*buf) < p.size {
		b := make([]byte, p.size)
		return &b
	}
	*buf = (*buf)[:p.size]
	return buf
}

// Put returns buf for reuse. Buffers smaller than Size are dropped.
func (p *Pool) Put(buf *[]byte) {
	if buf == nil || cap(*buf) < p.size {
		return
	}
	p.pool.Put(buf)
}

// Size is the length of every buffer Get returns.
func (p *Pool) Size() int { return p.size }
