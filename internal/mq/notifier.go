package mq

import (
	"context"
	"time"

	"go.uber.org/zap"

	"boss-spawn-board/internal/clock"
	"boss-spawn-board/internal/lookup"
	"boss-spawn-board/internal/models"
	"boss-spawn-board/internal/view"
)

type publisher interface {
	Publish(ctx context.Context, routingKey string, msg any) error
}

// ReportsNotifier publishes a ReportsUpdatedMsg for every fetched dataset.
type ReportsNotifier struct {
	pub    publisher
	tables *lookup.Tables
	now    func() time.Time
	logger *zap.Logger
}

// NewReportsNotifier creates a notifier that publishes report updates to RabbitMQ.
func NewReportsNotifier(pub *Publisher, tables *lookup.Tables, logger *zap.Logger) *ReportsNotifier {
	return &ReportsNotifier{pub: pub, tables: tables, now: time.Now, logger: logger}
}

// NewReportsUpdated summarizes reports as seen at now.
func NewReportsUpdated(reports []models.MonsterReport, fetchedAt time.Time, tables *lookup.Tables, now time.Time) ReportsUpdatedMsg {
	stats := view.SummaryStats(reports, tables, now)
	msg := ReportsUpdatedMsg{
		FetchedAt:      fetchedAt,
		Total:          stats.Total,
		Active:         stats.Active,
		CommonLocation: stats.CommonLocation,
	}

	if r, ok := view.NextExpiring(reports, now); ok {
		rem := view.Remaining(r, now)
		msg.Next = &NextReport{
			MonsterID: r.MonsterID,
			Name:      tables.Monster(r.MonsterID).Name,
			Place:     tables.RegionName(r.RegionID) + "-" + r.LocationName,
			Window:    clock.FormatTime(r.StartHour, r.StartMinute) + " - " + clock.FormatTime(r.EndHour, r.EndMinute),
			Remaining: rem.Label,
			Urgency:   string(rem.Urgency),
			Reporter:  r.ReporterName,
		}
	}
	return msg
}

// NotifyReportsUpdated publishes the summary of reports. snapshotID is empty
// when the dataset was not archived.
func (n *ReportsNotifier) NotifyReportsUpdated(ctx context.Context, snapshotID string, reports []models.MonsterReport, fetchedAt time.Time) {
	msg := NewReportsUpdated(reports, fetchedAt, n.tables, n.now())
	msg.SnapshotID = snapshotID
	if err := n.pub.Publish(ctx, RoutingReportsUpdated, msg); err != nil {
		n.logger.Warn("failed to publish reports update", zap.Int("reports", len(reports)), zap.Error(err))
		return
	}
	n.logger.Debug("published reports update", zap.Int("active", msg.Active), zap.Int("total", msg.Total))
}
