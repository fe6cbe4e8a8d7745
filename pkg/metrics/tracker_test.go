package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformanceTracker_Counts(t *testing.T) {
	tr := NewPerformanceTracker()
	assert.Equal(t, Snapshot{}, tr.Snapshot())

	tr.ConnectionOpened()
	tr.ConnectionOpened()
	tr.TransferCompleted()
	tr.ConnectionClosed()

	assert.Equal(t, Snapshot{ActiveConnections: 1, TotalConnections: 2, FileTransfers: 1}, tr.Snapshot())
}

func TestPerformanceTracker_ActiveNeverNegative(t *testing.T) {
	var tr PerformanceTracker
	tr.ConnectionClosed()
	assert.Zero(t, tr.Snapshot().ActiveConnections)
}

func TestPerformanceTracker_Concurrent(t *testing.T) {
	tr := NewPerformanceTracker()
	const workers = 50
	const perWorker = 200

	var wg sync.WaitGroup
	stop := make(chan struct{})
	violations := make(chan Snapshot, 1)

	// observer checks total >= active >= 0 while counters move
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			s := tr.Snapshot()
			if s.ActiveConnections < 0 || s.TotalConnections < s.ActiveConnections {
				select {
				case violations <- s:
				default:
				}
			}
		}
	}()

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				tr.ConnectionOpened()
				tr.TransferCompleted()
				tr.ConnectionClosed()
			}
		}()
	}
	wg.Wait()
	close(stop)

	s := tr.Snapshot()
	assert.Zero(t, s.ActiveConnections)
	assert.Equal(t, int64(workers*perWorker), s.TotalConnections)
	assert.Equal(t, int64(workers*perWorker), s.FileTransfers)

	select {
	case v := <-violations:
		require.Failf(t, "invariant violated", "%+v", v)
	default:
	}
}

func TestPerformanceTracker_ConcurrentPartialClose(t *testing.T) {
	tr := NewPerformanceTracker()
	const workers = 40
	const opens = 200
	const closes = 130

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < opens; j++ {
				tr.ConnectionOpened()
				if j < closes {
					tr.ConnectionClosed()
				}
			}
		}()
	}
	wg.Wait()

	s := tr.Snapshot()
	assert.Equal(t, int64(workers*opens), s.TotalConnections)
	assert.Equal(t, int64(workers*(opens-closes)), s.ActiveConnections)
	assert.Zero(t, s.FileTransfers)
}

func TestRegistry_Lifecycle(t *testing.T) {
	ResetRegistry()
	t.Cleanup(ResetRegistry)

	assert.False(t, IsEnabled())
	assert.Nil(t, GetRegistry())

	reg := InitRegistry()
	require.NotNil(t, reg)
	assert.True(t, IsEnabled())
	assert.Same(t, reg, InitRegistry())
	assert.Same(t, reg, GetRegistry())
}
