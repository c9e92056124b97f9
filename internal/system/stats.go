// Package system reports host resource usage for the admin dashboard.
package system

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"essops/internal/execx"
)

const commandTimeout = 10 * time.Second

// Stats holds the human-readable figures shown on the dashboard. A field is
// empty when its source command failed.
type Stats struct {
	CPUUsage         string `json:"cpu_usage,omitempty"`
	MemoryTotal      string `json:"memory_total,omitempty"`
	MemoryUsed       string `json:"memory_used,omitempty"`
	MemoryFree       string `json:"memory_free,omitempty"`
	DiskTotal        string `json:"disk_total,omitempty"`
	DiskUsed         string `json:"disk_used,omitempty"`
	DiskFree         string `json:"disk_free,omitempty"`
	DiskUsagePercent string `json:"disk_usage_percent,omitempty"`
}

type Provider interface {
	Stats(ctx context.Context) Stats
}

// ShellProvider samples top, free and df.
type ShellProvider struct {
	runner execx.Runner
	group  singleflight.Group
}

func NewShellProvider(runner execx.Runner) *ShellProvider {
	return &ShellProvider{runner: runner}
}

// Stats never fails; concurrent callers share one sample. The sample is not
// tied to any single caller, so one caller going away leaves the others with
// full results. A caller whose ctx ends first gets empty Stats.
func (p *ShellProvider) Stats(ctx context.Context) Stats {
	ch := p.group.DoChan("stats", func() (interface{}, error) {
		return p.sample(context.WithoutCancel(ctx)), nil
	})

	select {
	case res := <-ch:
		return res.Val.(Stats)
	case <-ctx.Done():
		return Stats{}
	}
}

func (p *ShellProvider) sample(ctx context.Context) Stats {
	var stats Stats

	if out, ok := p.output(ctx, "top", "-bn1"); ok {
		stats.CPUUsage = ParseCPU(out)
	}
	if out, ok := p.output(ctx, "free", "-h"); ok {
		stats.MemoryTotal, stats.MemoryUsed, stats.MemoryFree = ParseMemory(out)
	}
	if out, ok := p.output(ctx, "df", "-h", "/"); ok {
		stats.DiskTotal, stats.DiskUsed, stats.DiskFree, stats.DiskUsagePercent = ParseDisk(out)
	}

	return stats
}

func (p *ShellProvider) output(ctx context.Context, name string, args ...string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	out, err := p.runner.Output(ctx, name, args...)
	if err != nil {
		log.Debug("system stat command failed", "command", name, "error", err)
		return "", false
	}
	return out, true
}

// ParseCPU returns the second field of the "Cpu(s)" line of top's batch output.
func ParseCPU(out string) string {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "Cpu(s)") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) > 1 {
			return fields[1]
		}
		return ""
	}
	return ""
}

// ParseMemory reads total, used and free from the "Mem:" row of free -h.
func ParseMemory(out string) (total, used, free string) {
	fields := secondLine(out)
	if len(fields) < 4 {
		return "", "", ""
	}
	return fields[1], fields[2], fields[3]
}

// ParseDisk reads size, used, available and use% from df -h output.
func ParseDisk(out string) (total, used, free, percent string) {
	fields := secondLine(out)
	if len(fields) < 5 {
		return "", "", "", ""
	}
	return fields[1], fields[2], fields[3], fields[4]
}

func secondLine(out string) []string {
	lines := strings.Split(out, "\n")
	if len(lines) < 2 {
		return nil
	}
	return strings.Fields(lines[1])
}
