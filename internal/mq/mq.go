package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Exchange and queue/routing key constants.
const (
	ExchangeName = "boss"

	RoutingReportsUpdated = "reports.updated"

	QueueReportsUpdated = "boss.reports_updated"
)

// ── Message types ────────────────────────────────────────────────────

// NextReport describes the report expiring soonest at publish time.
type NextReport struct {
	MonsterID int    `json:"monster_id"`
	Name      string `json:"name"`
	Place     string `json:"place"`
	Window    string `json:"window"`
	Remaining string `json:"remaining"`
	Urgency   string `json:"urgency"`
	Reporter  string `json:"reporter"`
}

// ReportsUpdatedMsg is published by the server after every refresh that
// fetched new data from the feed.
type ReportsUpdatedMsg struct {
	SnapshotID     string      `json:"snapshot_id,omitempty"`
	FetchedAt      time.Time   `json:"fetched_at"`
	Total          int         `json:"total"`
	Active         int         `json:"active"`
	CommonLocation string      `json:"common_location"`
	Next           *NextReport `json:"next,omitempty"`
}

// ── Topology setup ───────────────────────────────────────────────────

// queues maps queue names to their routing keys.
var queues = map[string]string{
	QueueReportsUpdated: RoutingReportsUpdated,
}

// SetupTopology declares the exchange, all queues, and bindings.
// Safe to call multiple times (all declarations are idempotent).
func SetupTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	for queue, key := range queues {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		if err := ch.QueueBind(queue, key, ExchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}
	return nil
}

// ── Publisher ────────────────────────────────────────────────────────

// Publisher publishes messages to the RabbitMQ exchange.
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher connects to RabbitMQ, sets up topology, and returns a Publisher.
func NewPublisher(url string, logger *zap.Logger) (*Publisher, error) {
	conn, ch, err := open(url, logger)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch}, nil
}

// Publish serializes msg to JSON and publishes it with the given routing key.
func (p *Publisher) Publish(ctx context.Context, routingKey string, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return p.ch.PublishWithContext(ctx, ExchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         data,
	})
}

// Close closes the channel and connection.
func (p *Publisher) Close() {
	closeAll(p.conn, p.ch)
}

// ── Consumer ─────────────────────────────────────────────────────────

// Consumer consumes messages from RabbitMQ queues.
type Consumer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewConsumer connects to RabbitMQ, sets up topology, and returns a Consumer.
func NewConsumer(url string, logger *zap.Logger) (*Consumer, error) {
	conn, ch, err := open(url, logger)
	if err != nil {
		return nil, err
	}
	// Process one message at a time per consumer.
	if err := ch.Qos(1, 0, false); err != nil {
		closeAll(conn, ch)
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return &Consumer{conn: conn, ch: ch}, nil
}

// Consume starts consuming from the given queue and returns a delivery channel.
func (c *Consumer) Consume(queue string) (<-chan amqp.Delivery, error) {
	return c.ch.Consume(queue, "", false, false, false, false, nil)
}

// Close closes the channel and connection.
func (c *Consumer) Close() {
	closeAll(c.conn, c.ch)
}

// ── Helpers ──────────────────────────────────────────────────────────

func open(url string, logger *zap.Logger) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := dialWithRetry(url, logger)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := SetupTopology(ch); err != nil {
		closeAll(conn, ch)
		return nil, nil, err
	}
	return conn, ch, nil
}

func closeAll(conn *amqp.Connection, ch *amqp.Channel) {
	if ch != nil {
		ch.Close()
	}
	if conn != nil {
		conn.Close()
	}
}

// dialWithRetry attempts to connect to RabbitMQ with exponential backoff.
func dialWithRetry(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for i := range 5 {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		wait := time.Duration(1<<uint(i)) * time.Second
		logger.Warn("rabbitmq connection attempt failed",
			zap.Int("attempt", i+1),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
		time.Sleep(wait)
	}
	return nil, fmt.Errorf("connect to rabbitmq after 5 attempts: %w", err)
}
