package workers

import (
	"context"
	"log/slog"
	"os"
	goruntime "runtime"
	"time"

	"marketplace-chat/contract"
	"marketplace-chat/observability"

	"github.com/shirou/gopsutil/process"
)

// TelemetryWorker samples hub and process statistics into the metrics on every tick.
type TelemetryWorker struct {
	log            *slog.Logger
	registry       contract.IRegistry
	metrics        *observability.Metrics
	metricInterval time.Duration
	proc           *process.Process
}

func NewTelemetryWorker(log *slog.Logger, registry contract.IRegistry,
	metrics *observability.Metrics, metricInterval time.Duration) *TelemetryWorker {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Process statistics unavailable", "error", err)
	}
	return &TelemetryWorker{
		log:            log,
		registry:       registry,
		metrics:        metrics,
		metricInterval: metricInterval,
		proc:           proc,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping telemetry")
			return nil
		case <-ticker.C:
			w.metrics.Update(w.Sample())
		}
	}
}

// Sample collects one snapshot. Process figures stay at zero when the OS refuses them.
func (w *TelemetryWorker) Sample() observability.MonitoringStats {
	identities, connections := w.registry.Stats()

	var mem goruntime.MemStats
	goruntime.ReadMemStats(&mem)

	stats := observability.MonitoringStats{
		OnlineIdentities: identities,
		LiveConnections:  connections,
		AllocMemMb:       mem.Alloc / 1024 / 1024,
		NumGC:            mem.NumGC,
		Goroutines:       goruntime.NumGoroutine(),
		Timestamp:        time.Now().UTC(),
	}

	if w.proc == nil {
		return stats
	}
	if cpu, err := w.proc.CPUPercent(); err != nil {
		w.log.Debug("Error while finding process cpu usage", "error", err)
	} else {
		stats.CPUPercent = cpu
	}
	if info, err := w.proc.MemoryInfo(); err != nil {
		w.log.Debug("Error while finding process memory usage", "error", err)
	} else {
		stats.RSSMb = info.RSS / 1024 / 1024
	}
	return stats
}
