package metrics

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	goprocess "github.com/shirou/gopsutil/v4/process"
)

type ioSnapshot struct {
	at         time.Time
	readCount  uint64
	writeCount uint64
}

// SelfCollector scrapes resource usage of the running agent process.
// Params: metricName used as the point source name.
// Returns: self collector instance.
type SelfCollector struct {
	metricName string

	mu   sync.Mutex
	proc *goprocess.Process
	name string
	prev *ioSnapshot
}

// NewSelfCollector creates a collector bound to the current process.
// Params: metricName logical source name.
// Returns: configured self collector.
func NewSelfCollector(metricName string) *SelfCollector {
	return &SelfCollector{metricName: metricName}
}

// Name returns logical metric name.
// Params: none.
// Returns: metric name string.
func (c *SelfCollector) Name() string {
	return c.metricName
}

// Scrape reads CPU, memory, thread and IO figures for the agent process.
// Params: ctx for cancellation.
// Returns: one point keyed by process name or error.
func (c *SelfCollector) Scrape(ctx context.Context) ([]Point, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proc == nil {
		proc, err := goprocess.NewProcessWithContext(ctx, int32(os.Getpid()))
		if err != nil {
			return nil, fmt.Errorf("open self process: %w", err)
		}
		name, err := proc.NameWithContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("read self process name: %w", err)
		}
		c.proc = proc
		c.name = name
	}

	cpuUtil, err := c.proc.PercentWithContext(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("read self cpu: %w", err)
	}
	memInfo, err := c.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("read self memory: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("read host memory: %w", err)
	}

	values := map[string]float64{
		"cpu_util":      cpuUtil,
		"rss":           float64(memInfo.RSS),
		"num_goroutine": float64(runtime.NumGoroutine()),
	}
	if vm.Total > 0 {
		values["ram_util"] = (float64(memInfo.RSS) / float64(vm.Total)) * 100
	}
	if threads, threadErr := c.proc.NumThreadsWithContext(ctx); threadErr == nil {
		values["num_threads"] = float64(threads)
	}
	if uptime, uptimeErr := host.UptimeWithContext(ctx); uptimeErr == nil {
		values["host_uptime"] = float64(uptime)
	}

	now := time.Now()
	if ioStat, ioErr := c.proc.IOCountersWithContext(ctx); ioErr == nil {
		if c.prev != nil {
			seconds := now.Sub(c.prev.at).Seconds()
			delta := positiveDelta(ioStat.ReadCount, c.prev.readCount) + positiveDelta(ioStat.WriteCount, c.prev.writeCount)
			values["iops"] = float64(ratePerSecond(delta, seconds))
		}
		c.prev = &ioSnapshot{at: now, readCount: ioStat.ReadCount, writeCount: ioStat.WriteCount}
	}

	return []Point{{Key: c.name, Values: values}}, nil
}

// positiveDelta returns monotonic counter delta with reset protection.
// Params: current and previous counter values.
// Returns: non-negative delta.
func positiveDelta(current, previous uint64) uint64 {
	if current < previous {
		return 0
	}
	return current - previous
}

// ratePerSecond converts delta over elapsed seconds into per-second rate.
// Params: delta value and elapsed seconds.
// Returns: per-second rate as uint64.
func ratePerSecond(delta uint64, seconds float64) uint64 {
	if seconds <= 0 {
		return 0
	}
	return uint64(float64(delta) / seconds)
}
