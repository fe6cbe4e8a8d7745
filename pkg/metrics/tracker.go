package metrics

import "sync"

// Snapshot is a consistent copy of the tracker counters.
type Snapshot struct {
	ActiveConnections int64 `json:"active_connections" yaml:"active_connections"`
	TotalConnections  int64 `json:"total_connections" yaml:"total_connections"`
	FileTransfers     int64 `json:"file_transfers" yaml:"file_transfers"`
}

// PerformanceTracker counts connections and completed transfers.
//
// All counters live under one mutex so a snapshot never observes a
// connection counted in total but not yet in active. The lock is never
// held across I/O. The zero value is ready to use.
type PerformanceTracker struct {
	mu        sync.Mutex
	active    int64
	total     int64
	transfers int64
}

// NewPerformanceTracker returns a tracker with all counters at zero.
func NewPerformanceTracker() *PerformanceTracker {
	return &PerformanceTracker{}
}

// ConnectionOpened records an accepted connection.
func (t *PerformanceTracker) ConnectionOpened() {
	t.mu.Lock()
	t.active++
	t.total++
	t.mu.Unlock()
}

// ConnectionClosed records the end of a connection. Unbalanced calls never
// drive the active count below zero.
func (t *PerformanceTracker) ConnectionClosed() {
	t.mu.Lock()
	if t.active > 0 {
		t.active--
	}
	t.mu.Unlock()
}

// TransferCompleted records a finished upload or download.
func (t *PerformanceTracker) TransferCompleted() {
	t.mu.Lock()
	t.transfers++
	t.mu.Unlock()
}

// Snapshot returns the current counters.
func (t *PerformanceTracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		ActiveConnections: t.active,
		TotalConnections:  t.total,
		FileTransfers:     t.transfers,
	}
}
