package bufpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_GetSizes(t *testing.T) {
	p := NewPool(0, 0)

	tests := []struct {
		name    string
		size    int
		wantCap int
	}{
		{"zero", 0, LineSize},
		{"small line", 100, LineSize},
		{"exact line", LineSize, LineSize},
		{"copy", LineSize + 1, CopySize},
		{"exact copy", CopySize, CopySize},
		{"oversized", CopySize + 1, CopySize + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := p.Get(tt.size)
			assert.Len(t, buf, tt.size)
			assert.Equal(t, tt.wantCap, cap(buf))
			p.Put(buf)
		})
	}
}

func TestPool_NegativeSize(t *testing.T) {
	p := NewPool(0, 0)
	buf := p.Get(-5)
	assert.Empty(t, buf)
	p.Put(buf)
}

func TestPool_CustomSizes(t *testing.T) {
	p := NewPool(128, 1024)
	line, cp := p.Sizes()
	assert.Equal(t, 128, line)
	assert.Equal(t, 1024, cp)

	assert.Equal(t, 128, cap(p.Get(10)))
	assert.Equal(t, 1024, cap(p.Get(129)))
}

func TestPool_CopyNeverSmallerThanLine(t *testing.T) {
	p := NewPool(2048, 512)
	line, cp := p.Sizes()
	assert.Equal(t, 2048, line)
	assert.Equal(t, 2048, cp)
}

func TestPool_PutIgnoresForeignSlices(t *testing.T) {
	p := NewPool(0, 0)
	p.Put(nil)
	p.Put(make([]byte, 10))
	p.Put(make([]byte, CopySize+1))

	buf := p.Get(10)
	assert.Equal(t, LineSize, cap(buf))
}

func TestPool_ReusedBufferKeepsFullCapacity(t *testing.T) {
	p := NewPool(0, 0)
	buf := p.Get(10)
	p.Put(buf)

	again := p.Get(LineSize)
	require.Len(t, again, LineSize)
}

func TestGlobal(t *testing.T) {
	buf := GetCopyBuffer()
	assert.Len(t, buf, CopySize)
	Put(buf)

	small := Get(32)
	assert.Len(t, small, 32)
	Put(small)
}

func TestPool_Concurrent(t *testing.T) {
	p := NewPool(0, 0)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				buf := p.Get((i*j)%CopySize + 1)
				buf[0] = byte(i)
				p.Put(buf)
			}
		}(i)
	}
	wg.Wait()
}
