package observability

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/process"
)

// SelfStats captures the server's own resource usage for the health endpoint.
type SelfStats struct {
	Pid        int     `json:"pid"`
	Status     string  `json:"status"`
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
	AllocMemMb uint64  `json:"alloc_mem_mb"`
	NumGC      uint32  `json:"num_gc"`
}

// Collect gathers OS-level metrics (via the process table) and Go runtime
// metrics for the current process.
func Collect() (SelfStats, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return SelfStats{}, err
	}

	stats := SelfStats{Pid: os.Getpid()}

	if memInfo, err := p.MemoryInfo(); err == nil {
		stats.RSSBytes = memInfo.RSS
	}
	if cpu, err := p.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	if status, err := p.Status(); err == nil {
		stats.Status = status
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	stats.AllocMemMb = mem.Alloc / 1024 / 1024
	stats.NumGC = mem.NumGC

	return stats, nil
}
