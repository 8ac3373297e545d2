package collector

import (
	"context"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	psnet "github.com/shirou/gopsutil/v4/net"
)

type HostStats struct {
	CPUPercent        float64
	MemoryPercent     float64
	DiskPercent       float64
	ActiveConnections int
}

func (c *Collector) hostStats(ctx context.Context) HostStats {
	var hs HostStats

	if pcts, err := cpu.PercentWithContext(ctx, c.cfg.CPUWindow, false); err != nil {
		c.log.Warn("read cpu", "err", err)
	} else if len(pcts) > 0 {
		hs.CPUPercent = pcts[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		c.log.Warn("read memory", "err", err)
	} else {
		hs.MemoryPercent = vm.UsedPercent
	}

	if du, err := disk.UsageWithContext(ctx, "/"); err != nil {
		c.log.Warn("read disk", "err", err)
	} else {
		hs.DiskPercent = du.UsedPercent
	}

	if conns, err := psnet.ConnectionsWithContext(ctx, "tcp"); err != nil {
		c.log.Warn("read connections", "err", err)
	} else {
		hs.ActiveConnections = len(conns)
	}

	return hs
}
