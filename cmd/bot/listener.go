package main

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"boss-spawn-board/internal/mq"
)

type announcer interface {
	Announce(msg mq.ReportsUpdatedMsg) bool
}

type deliverySource interface {
	Consume(queue string) (<-chan amqp.Delivery, error)
}

// listener consumes reports-updated events and hands them to the announcer.
type listener struct {
	announcer announcer
	consumer  deliverySource
	logger    *zap.Logger
}

func newListener(a announcer, consumer deliverySource, logger *zap.Logger) *listener {
	return &listener{announcer: a, consumer: consumer, logger: logger}
}

func (l *listener) start(ctx context.Context) {
	updates, err := l.consumer.Consume(mq.QueueReportsUpdated)
	if err != nil {
		l.logger.Fatal("failed to consume", zap.String("queue", mq.QueueReportsUpdated), zap.Error(err))
	}

	l.logger.Info("consuming", zap.String("queue", mq.QueueReportsUpdated))

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("stopped")
			return
		case d, ok := <-updates:
			if !ok {
				l.logger.Warn("delivery channel closed")
				return
			}
			l.handleReportsUpdated(d.Body)
			d.Ack(false)
		}
	}
}

// ── Reports updated handler ──────────────────────────────────────────

func (l *listener) handleReportsUpdated(payload []byte) {
	var msg mq.ReportsUpdatedMsg
	if err := json.Unmarshal(payload, &msg); err != nil {
		l.logger.Warn("bad reports_updated message", zap.Error(err))
		return
	}
	if l.announcer.Announce(msg) {
		l.logger.Info("announced update",
			zap.String("snapshot_id", msg.SnapshotID),
			zap.Int("active", msg.Active),
		)
	}
}
