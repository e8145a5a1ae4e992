// Package observability aggregates process and store metrics for the
// debug inspector. Read-only; nothing here touches domain state.
package observability

import (
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/shirou/gopsutil/process"
)

type Monitor struct {
	log     *slog.Logger
	db      *badger.DB
	proc    *process.Process
	started time.Time
}

func NewMonitor(log *slog.Logger, db *badger.DB) *Monitor {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Process metrics unavailable", "err", err)
		proc = nil
	}
	return &Monitor{log: log, db: db, proc: proc, started: time.Now().UTC()}
}

// Stats snapshots runtime, process, and store figures for the
// inspector's header line.
func (m *Monitor) Stats() map[string]any {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := map[string]any{
		"uptime":       time.Since(m.started).Round(time.Second).String(),
		"goroutines":   runtime.NumGoroutine(),
		"alloc_mem_mb": ms.Alloc / 1024 / 1024,
		"num_gc":       ms.NumGC,
	}

	if m.proc != nil {
		if cpu, err := m.proc.CPUPercent(); err == nil {
			stats["cpu_percent"] = int(cpu)
		}
		if mem, err := m.proc.MemoryInfo(); err == nil {
			stats["rss_mb"] = mem.RSS / 1024 / 1024
		}
	}

	if m.db != nil {
		lsm, vlog := m.db.Size()
		stats["badger_lsm_mb"] = lsm / 1024 / 1024
		stats["badger_vlog_mb"] = vlog / 1024 / 1024
	}
	return stats
}
