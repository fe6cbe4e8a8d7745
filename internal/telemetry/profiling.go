package telemetry

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
	"github.com/marmos91/dittodrop/internal/logger"
)

// ProfilingConfig configures Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the Pyroscope server URL, e.g. http://localhost:4040.
	Endpoint string

	// ProfileTypes selects what is collected. Empty means
	// DefaultProfileTypes.
	ProfileTypes []string
}

// DefaultProfileTypes covers CPU, heap and goroutines. Sessions spend most
// of their time blocked on the network, so goroutine profiles show where.
var DefaultProfileTypes = []string{"cpu", "inuse_space", "alloc_space", "goroutines"}

var profileTypes = map[string]pyroscope.ProfileType{
	"cpu":            pyroscope.ProfileCPU,
	"alloc_objects":  pyroscope.ProfileAllocObjects,
	"alloc_space":    pyroscope.ProfileAllocSpace,
	"inuse_objects":  pyroscope.ProfileInuseObjects,
	"inuse_space":    pyroscope.ProfileInuseSpace,
	"goroutines":     pyroscope.ProfileGoroutines,
	"mutex_count":    pyroscope.ProfileMutexCount,
	"mutex_duration": pyroscope.ProfileMutexDuration,
	"block_count":    pyroscope.ProfileBlockCount,
	"block_duration": pyroscope.ProfileBlockDuration,
}

// runtime sampling rate for the mutex and block profiles
const contentionRate = 5

var profilingEnabled bool

// InitProfiling starts the profiler. The returned function stops it.
func InitProfiling(cfg ProfilingConfig) (shutdown func() error, err error) {
	profilingEnabled = false
	if !cfg.Enabled {
		return func() error { return nil }, nil
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = DefaultProfileTypes
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}

	types := make([]pyroscope.ProfileType, 0, len(cfg.ProfileTypes))
	for _, name := range cfg.ProfileTypes {
		pt, err := parseProfileType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, pt)

		switch {
		case strings.HasPrefix(name, "mutex_"):
			runtime.SetMutexProfileFraction(contentionRate)
		case strings.HasPrefix(name, "block_"):
			runtime.SetBlockProfileRate(contentionRate)
		}
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ServiceName,
		ServerAddress:   cfg.Endpoint,
		Tags:            map[string]string{"version": cfg.ServiceVersion},
		Logger:          profilerLogger{},
		ProfileTypes:    types,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}
	profilingEnabled = true

	return func() error {
		profilingEnabled = false
		return profiler.Stop()
	}, nil
}

// IsProfilingEnabled reports whether the profiler is running.
func IsProfilingEnabled() bool {
	return profilingEnabled
}

func parseProfileType(name string) (pyroscope.ProfileType, error) {
	if pt, ok := profileTypes[name]; ok {
		return pt, nil
	}
	known := make([]string, 0, len(profileTypes))
	for k := range profileTypes {
		known = append(known, k)
	}
	sort.Strings(known)
	return pyroscope.ProfileCPU, fmt.Errorf("invalid profile type %q (valid: %s)", name, strings.Join(known, ", "))
}

// profilerLogger routes the profiler's own diagnostics to the server log.
type profilerLogger struct{}

func (profilerLogger) Infof(format string, args ...any) {
	logger.Debug(fmt.Sprintf(format, args...), "component", "pyroscope")
}

func (profilerLogger) Debugf(format string, args ...any) {
	logger.Debug(fmt.Sprintf(format, args...), "component", "pyroscope")
}

func (profilerLogger) Errorf(format string, args ...any) {
	logger.Warn(fmt.Sprintf(format, args...), "component", "pyroscope")
}
