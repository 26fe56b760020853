package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"boss-spawn-board/internal/mq"
)

type recordingAnnouncer struct {
	got chan mq.ReportsUpdatedMsg
}

func (a *recordingAnnouncer) Announce(msg mq.ReportsUpdatedMsg) bool {
	a.got <- msg
	return true
}

type chanSource struct {
	ch chan amqp.Delivery
}

func (s chanSource) Consume(string) (<-chan amqp.Delivery, error) { return s.ch, nil }

func TestListener_AnnouncesUpdates(t *testing.T) {
	a := &recordingAnnouncer{got: make(chan mq.ReportsUpdatedMsg, 1)}
	src := chanSource{ch: make(chan amqp.Delivery, 2)}
	l := newListener(a, src, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.start(ctx)

	body, err := json.Marshal(mq.ReportsUpdatedMsg{SnapshotID: "s1", Total: 2, Active: 1})
	require.NoError(t, err)
	src.ch <- amqp.Delivery{Body: []byte("{not json")}
	src.ch <- amqp.Delivery{Body: body}

	select {
	case msg := <-a.got:
		assert.Equal(t, "s1", msg.SnapshotID)
		assert.Equal(t, 1, msg.Active)
	case <-time.After(time.Second):
		t.Fatal("update was not announced")
	}
}

func TestListener_StopsOnClosedChannel(t *testing.T) {
	src := chanSource{ch: make(chan amqp.Delivery)}
	l := newListener(&recordingAnnouncer{}, src, zap.NewNop())
	done := make(chan struct{})

	go func() {
		l.start(context.Background())
		close(done)
	}()
	close(src.ch)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
}
