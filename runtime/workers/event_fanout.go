package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"marketplace-chat/contract"
	"marketplace-chat/domain/chat"
	"marketplace-chat/observability"
)

// EventFanout broadcasts persisted messages to the permanent in-process sinks.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// durability, or retries. EventFanout is not a message broker: messages are
// already durable and delivered when they reach it, sinks only build
// derived views (search index).
type EventFanout struct {
	log         *slog.Logger
	events      <-chan chat.MessagePersisted
	sinks       []contract.EventSink[chat.MessagePersisted]
	metrics     *observability.Metrics
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, events <-chan chat.MessagePersisted,
	metrics *observability.Metrics, sinkTimeout time.Duration,
	sinks ...contract.EventSink[chat.MessagePersisted]) *EventFanout {
	return &EventFanout{
		log:         log,
		events:      events,
		sinks:       sinks,
		metrics:     metrics,
		sinkTimeout: sinkTimeout,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fan-out")
			return nil
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Event channel is closed")
				return nil
			}
			w.Fanout(ctx, evt)
		}
	}
}

// Fanout hands the event to every sink, each bounded by the sink timeout.
// A failing sink never prevents the others from receiving the event.
func (w *EventFanout) Fanout(ctx context.Context, evt chat.MessagePersisted) {
	for _, sink := range w.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		err := sink.Consume(sinkCtx, evt)
		cancel()
		if err != nil {
			name := fmt.Sprintf("%T", sink)
			w.metrics.SinkFailures.WithLabelValues(name).Inc()
			w.log.Warn("Sink failed to consume event",
				"sink", name, "message_id", evt.Message.ID, "error", err)
		}
	}
}
