package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/medflow/report-explainer/pkg/logger"
	"github.com/medflow/report-explainer/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (c *recordingChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange = exchange
	c.key = key
	c.msg = msg
	return c.err
}

func TestPublisher_Publish(t *testing.T) {
	ch := &recordingChannel{}
	p := messaging.NewChannelPublisher(ch, messaging.ExchangeReportEvents, "report-service", logger.Nop())

	ctx := messaging.WithCorrelationID(context.Background(), "req-42")
	err := p.Publish(ctx, messaging.EventReportExplained, messaging.ReportExplainedEvent{
		RequestID:      "req-42",
		ImageGenerated: true,
	})
	require.NoError(t, err)

	assert.Equal(t, messaging.ExchangeReportEvents, ch.exchange)
	assert.Equal(t, messaging.EventReportExplained, ch.key)
	assert.Equal(t, "req-42", ch.msg.CorrelationId)
	assert.Equal(t, amqp.Transient, ch.msg.DeliveryMode)

	var event messaging.Event
	require.NoError(t, json.Unmarshal(ch.msg.Body, &event))
	assert.Equal(t, messaging.EventReportExplained, event.Type)
	assert.Equal(t, "report-service", event.Source)
	assert.Equal(t, ch.msg.MessageId, event.ID)

	var data messaging.ReportExplainedEvent
	require.NoError(t, event.UnmarshalData(&data))
	assert.Equal(t, "req-42", data.RequestID)
	assert.True(t, data.ImageGenerated)
}

func TestPublisher_PublishError(t *testing.T) {
	ch := &recordingChannel{err: errors.New("channel closed")}
	p := messaging.NewChannelPublisher(ch, messaging.ExchangeReportEvents, "report-service", logger.Nop())

	err := p.Publish(context.Background(), messaging.EventReportFailed, messaging.ReportFailedEvent{Kind: "generation"})
	assert.ErrorContains(t, err, "channel closed")
}
