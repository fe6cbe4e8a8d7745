// Package sysstats samples host and process resource usage for the
// shutdown report.
package sysstats

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// Stats is one resource sample. Fields that could not be read are zero.
type Stats struct {
	CPUPercent        float64 // host CPU utilisation over the sample interval
	MemoryPercent     float64 // host memory in use
	ProcessRSS        uint64  // resident set size of this process in bytes
	ProcessCPUPercent float64 // CPU used by this process since it started
}

// Sample measures CPU over interval (zero compares against the previous
// call, like a bare cpu_percent()) and reads memory figures. It returns
// whatever could be collected together with the joined errors.
func Sample(ctx context.Context, interval time.Duration) (Stats, error) {
	var (
		st   Stats
		errs []error
	)

	if pct, err := cpu.PercentWithContext(ctx, interval, false); err != nil {
		errs = append(errs, err)
	} else if len(pct) > 0 {
		st.CPUPercent = pct[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		errs = append(errs, err)
	} else {
		st.MemoryPercent = vm.UsedPercent
	}

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		errs = append(errs, err)
		return st, errors.Join(errs...)
	}
	if mi, err := proc.MemoryInfoWithContext(ctx); err != nil {
		errs = append(errs, err)
	} else {
		st.ProcessRSS = mi.RSS
	}
	if pct, err := proc.CPUPercentWithContext(ctx); err != nil {
		errs = append(errs, err)
	} else {
		st.ProcessCPUPercent = pct
	}

	return st, errors.Join(errs...)
}
