package system

import (
	"context"
	"errors"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Stats is a snapshot of host and process load.
type Stats struct {
	NumCPU         int     `json:"numCpu"`
	CPUPercent     float64 `json:"cpuPercent"`
	MemTotal       uint64  `json:"memTotal"`
	MemUsedPercent float64 `json:"memUsedPercent"`
	ProcessRSS     uint64  `json:"processRss"`
	ProcessCPU     float64 `json:"processCpu"`
	Goroutines     int     `json:"goroutines"`
}

// CollectStats samples host CPU over sample (0 compares with the previous
// call) and reads memory and process counters. Fields that could not be
// read stay zero and their errors are joined.
func CollectStats(ctx context.Context, sample time.Duration) (Stats, error) {
	s := Stats{
		NumCPU:     runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
	}
	var errs []error

	if pct, err := cpu.PercentWithContext(ctx, sample, false); err != nil {
		errs = append(errs, err)
	} else if len(pct) > 0 {
		s.CPUPercent = pct[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		errs = append(errs, err)
	} else {
		s.MemTotal = vm.Total
		s.MemUsedPercent = vm.UsedPercent
	}

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		errs = append(errs, err)
		return s, errors.Join(errs...)
	}
	if mi, err := proc.MemoryInfoWithContext(ctx); err != nil {
		errs = append(errs, err)
	} else {
		s.ProcessRSS = mi.RSS
	}
	if pct, err := proc.CPUPercentWithContext(ctx); err != nil {
		errs = append(errs, err)
	} else {
		s.ProcessCPU = pct
	}

	return s, errors.Join(errs...)
}
