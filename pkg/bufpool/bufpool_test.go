package bufpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetReturnsRequestedLength(t *testing.T) {
	for _, size := range []int{0, 1, 1024, DefaultChunkSize, DefaultChunkSize + 1, DefaultBlockSize} {
		buf := Get(size)
		assert.Len(t, buf, size)
		Put(buf)
	}
}

func TestSizeClasses(t *testing.T) {
	p := NewPool(16, 64)

	assert.Equal(t, 16, cap(p.Get(1)))
	assert.Equal(t, 16, cap(p.Get(16)))
	assert.Equal(t, 64, cap(p.Get(17)))
	assert.Equal(t, 100, cap(p.Get(100)), "oversized buffers are allocated exactly")
}

func TestPutIgnoresForeignBuffers(t *testing.T) {
	p := NewPool(16)
	p.Put(nil)
	p.Put(make([]byte, 10))
	p.Put(make([]byte, 32))

	assert.Equal(t, 16, cap(p.Get(8)))
}

func TestNewPoolSortsAndDropsInvalidSizes(t *testing.T) {
	p := NewPool(64, 0, -3, 16)
	assert.Equal(t, []int{16, 64}, p.sizes)
}

func TestConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				buf := Get(1024)
				buf[0] = byte(i)
				assert.Equal(t, byte(i), buf[0])
				Put(buf)
			}
		}(i)
	}
	wg.Wait()
}
