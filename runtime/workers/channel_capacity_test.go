package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"marketplace-chat/domain/chat"
	"marketplace-chat/observability"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestChannelCapacityWorker_Sample(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	// Given a fan-out queue holding two events out of eight
	events := make(chan chat.MessagePersisted, 8)
	events <- newPersisted()
	events <- newPersisted()

	worker := NewChannelCapacityWorker(log, []NamedChannel{
		{Name: "message_persisted", Channel: events},
		{Name: "not_a_channel", Channel: 42},
	}, metrics, time.Hour)

	// When sampling
	worker.Sample()

	// Then the gauges describe the queue and the invalid entry is skipped
	req.Equal(float64(2), testutil.ToFloat64(metrics.QueueLength.WithLabelValues("message_persisted")))
	req.Equal(float64(8), testutil.ToFloat64(metrics.QueueCapacity.WithLabelValues("message_persisted")))
	req.Equal(1, testutil.CollectAndCount(metrics.QueueLength))
}

func TestChannelCapacityWorker_Run_Stops_With_Context(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := NewChannelCapacityWorker(log, nil, metrics, 10*time.Millisecond).Run(ctx)

	req.NoError(err)
}
