package server

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrop/internal/logger"
	"github.com/marmos91/dittodrop/pkg/credentials"
	"github.com/marmos91/dittodrop/pkg/metrics"
	"github.com/marmos91/dittodrop/pkg/protocol"
	"github.com/marmos91/dittodrop/pkg/session"
	"github.com/marmos91/dittodrop/pkg/storage"
)

// ============================================================================
// Helpers
// ============================================================================

func newEnv(t *testing.T) session.Env {
	t.Helper()
	st, err := storage.New(storage.DefaultConfig(filepath.Join(t.TempDir(), "server_storage")))
	require.NoError(t, err)
	return session.Env{
		Credentials: credentials.NewMemoryStore(
			credentials.Entry{Username: "alice", Secret: "wonderland"},
			credentials.Entry{Username: "bob", Secret: "builder"},
		),
		Storage: st,
		Tracker: metrics.NewPerformanceTracker(),
	}
}

// startServer runs a server on a free loopback port until the test ends.
func startServer(t *testing.T, cfg Config) (*Server, context.CancelFunc, <-chan error) {
	t.Helper()
	cfg.BindAddress = "127.0.0.1"
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	srv := New(cfg, newEnv(t))
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()
	require.NotEmpty(t, srv.Addr())

	t.Cleanup(func() {
		cancel()
		stopCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		_ = srv.Stop(stopCtx)
	})
	return srv, cancel, errCh
}

func dial(t *testing.T, addr string) (*protocol.Conn, net.Conn) {
	t.Helper()
	raw, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return protocol.NewConn(raw), raw
}

func login(t *testing.T, c *protocol.Conn, user, password string) {
	t.Helper()
	require.NoError(t, c.Expect(protocol.PromptUsername))
	require.NoError(t, c.SendMessage(user))
	require.NoError(t, c.Expect(protocol.PromptPassword))
	require.NoError(t, c.SendMessage(password))
	require.NoError(t, c.Expect(protocol.AuthSuccess))
}

func exit(t *testing.T, c *protocol.Conn) {
	t.Helper()
	require.NoError(t, c.Expect(protocol.PromptCommand))
	require.NoError(t, c.SendMessage(protocol.CommandExit))
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	assert.Eventually(t, cond, 5*time.Second, 10*time.Millisecond)
}

// ============================================================================
// Serving
// ============================================================================

func TestServer_ServesSessions(t *testing.T) {
	srv, _, _ := startServer(t, Config{})

	c, _ := dial(t, srv.Addr())
	login(t, c, "alice", "wonderland")

	require.NoError(t, c.Expect(protocol.PromptCommand))
	require.NoError(t, c.SendMessage(protocol.CommandUpload))
	require.NoError(t, c.Expect(protocol.UploadReadyName))
	require.NoError(t, c.SendMessage("hello.txt"))
	require.NoError(t, c.Expect(protocol.UploadReadyData))
	_, err := c.SendAcked(strings.NewReader("hello, world"))
	require.NoError(t, err)
	require.NoError(t, c.Expect(protocol.UploadComplete))
	exit(t, c)

	eventually(t, func() bool { return srv.Tracker().Snapshot().ActiveConnections == 0 })
	snap := srv.Tracker().Snapshot()
	assert.Equal(t, int64(1), snap.TotalConnections)
	assert.Equal(t, int64(1), snap.FileTransfers)
}

func TestServer_ConcurrentSessions(t *testing.T) {
	srv, _, _ := startServer(t, Config{MaxWorkers: 4})

	const clients = 8
	errs := make(chan error, clients)
	for i := 0; i < clients; i++ {
		go func(i int) {
			raw, err := net.Dial("tcp", srv.Addr())
			if err != nil {
				errs <- err
				return
			}
			defer raw.Close()
			c := protocol.NewConn(raw)

			steps := []func() error{
				func() error { return c.Expect(protocol.PromptUsername) },
				func() error { return c.SendMessage("bob") },
				func() error { return c.Expect(protocol.PromptPassword) },
				func() error { return c.SendMessage("builder") },
				func() error { return c.Expect(protocol.AuthSuccess) },
				func() error { return c.Expect(protocol.PromptCommand) },
				func() error { return c.SendMessage(protocol.CommandUpload) },
				func() error { return c.Expect(protocol.UploadReadyName) },
				func() error { return c.SendMessage("file-" + strconv.Itoa(i)) },
				func() error { return c.Expect(protocol.UploadReadyData) },
				func() error {
					_, err := c.SendAcked(strings.NewReader(strings.Repeat("x", 3000+i)))
					return err
				},
				func() error { return c.Expect(protocol.UploadComplete) },
				func() error { return c.Expect(protocol.PromptCommand) },
				func() error { return c.SendMessage(protocol.CommandExit) },
			}
			for _, step := range steps {
				if err := step(); err != nil {
					errs <- err
					return
				}
			}
			errs <- nil
		}(i)
	}

	for i := 0; i < clients; i++ {
		require.NoError(t, <-errs)
	}
	eventually(t, func() bool { return srv.Tracker().Snapshot().ActiveConnections == 0 })

	snap := srv.Tracker().Snapshot()
	assert.Equal(t, int64(clients), snap.TotalConnections)
	assert.Equal(t, int64(clients), snap.FileTransfers)

	entries, err := os.ReadDir(filepath.Join(srv.env.Storage.Root(), "bob"))
	require.NoError(t, err)
	assert.Len(t, entries, clients)
}

func TestServer_WorkerPoolBound(t *testing.T) {
	srv, _, _ := startServer(t, Config{MaxWorkers: 1})

	first, _ := dial(t, srv.Addr())
	login(t, first, "alice", "wonderland")

	// the second peer sits in the backlog until the first leaves
	second, raw := dial(t, srv.Addr())
	require.NoError(t, raw.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, err := second.ReadMessage()
	var netErr net.Error
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "got %v", err)

	exit(t, first)

	require.NoError(t, raw.SetReadDeadline(time.Time{}))
	login(t, second, "bob", "builder")
	exit(t, second)
}

func TestServer_RejectedClientFreesSlot(t *testing.T) {
	srv, _, _ := startServer(t, Config{MaxWorkers: 1})

	c, _ := dial(t, srv.Addr())
	for i := 0; i < session.DefaultMaxAuthAttempts; i++ {
		require.NoError(t, c.Expect(protocol.PromptUsername))
		require.NoError(t, c.SendMessage("alice"))
		require.NoError(t, c.Expect(protocol.PromptPassword))
		require.NoError(t, c.SendMessage("guess"))
		require.NoError(t, c.Expect(protocol.AuthFailure))
	}

	next, _ := dial(t, srv.Addr())
	login(t, next, "alice", "wonderland")
	exit(t, next)
}

// ============================================================================
// Shutdown
// ============================================================================

func TestServer_GracefulShutdown(t *testing.T) {
	srv, cancel, errCh := startServer(t, Config{})

	c, _ := dial(t, srv.Addr())
	login(t, c, "alice", "wonderland")
	require.NoError(t, c.Expect(protocol.PromptCommand))

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	_, err := c.ReadMessage()
	assert.Error(t, err)
	assert.Zero(t, srv.Tracker().Snapshot().ActiveConnections)

	_, err = net.DialTimeout("tcp", srv.Addr(), 200*time.Millisecond)
	assert.Error(t, err)
}

func TestServer_ShutdownInterruptsTransferWithIdleTimeout(t *testing.T) {
	srv, cancel, errCh := startServer(t, Config{
		ShutdownTimeout: 3 * time.Second,
		Session:         session.Config{IdleTimeout: 10 * time.Second},
	})

	c, raw := dial(t, srv.Addr())
	login(t, c, "alice", "wonderland")
	require.NoError(t, c.Expect(protocol.PromptCommand))
	require.NoError(t, c.SendMessage(protocol.CommandUpload))
	require.NoError(t, c.Expect(protocol.UploadReadyName))
	require.NoError(t, c.SendMessage("stream.bin"))
	require.NoError(t, c.Expect(protocol.UploadReadyData))

	// Keep the transfer busy until the server drops it.
	chunk := bytes.Repeat([]byte{'d'}, 1024)
	acked := make(chan struct{}, 1)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for {
			if err := c.SendChunk(chunk); err != nil {
				return
			}
			if _, err := c.ReadMessage(); err != nil {
				return
			}
			select {
			case acked <- struct{}{}:
			default:
			}
		}
	}()
	<-acked

	start := time.Now()
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
		assert.Less(t, time.Since(start), 2*time.Second)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	_ = raw.Close()
	<-stopped

	assert.Zero(t, srv.Tracker().Snapshot().FileTransfers)
}

func TestServer_StopIsIdempotent(t *testing.T) {
	srv, _, errCh := startServer(t, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, srv.Stop(ctx))
	assert.NoError(t, <-errCh)
}

func TestServer_StopBeforeServe(t *testing.T) {
	srv := New(Config{}, newEnv(t))
	assert.NoError(t, srv.Stop(context.Background()))
}

func TestServer_ListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	srv := New(Config{BindAddress: "127.0.0.1", Port: port}, newEnv(t))
	err = srv.Serve(context.Background())
	require.Error(t, err)
	assert.Empty(t, srv.Addr())
}

// ============================================================================
// Logging
// ============================================================================

// lockedBuffer lets the test read log output while sessions write it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServer_LogsStatsAndReport(t *testing.T) {
	var out lockedBuffer
	logger.InitWithWriter(&out, "INFO", "text", false)
	t.Cleanup(func() { logger.InitWithWriter(os.Stdout, "INFO", "text", false) })

	srv, cancel, errCh := startServer(t, Config{StatsLogInterval: 20 * time.Millisecond})

	c, _ := dial(t, srv.Addr())
	login(t, c, "alice", "wonderland")
	exit(t, c)

	eventually(t, func() bool { return strings.Contains(out.String(), "Server stats") })

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	logs := out.String()
	assert.Contains(t, logs, "Server stopped")
	assert.Contains(t, logs, "cpu_percent=")
	assert.Contains(t, logs, "process_rss=")
}
