package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"storefront-admin/internal/config"
	"storefront-admin/internal/logger"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []Event
	err    error
}

func (r *recorder) Publish(_ context.Context, evt Event) error {
	r.events = append(r.events, evt)
	return r.err
}

func TestNewEvent(t *testing.T) {
	ctx := logger.WithRequestID(context.Background(), "req-1")
	evt, err := NewEvent(ctx, EventOrderCreated, "order-1", "user-1", map[string]string{"total": "12.00"})
	require.NoError(t, err)

	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, "req-1", evt.CorrelationID)

	var data map[string]string
	require.NoError(t, json.Unmarshal(evt.Data, &data))
	assert.Equal(t, "12.00", data["total"])
}

func TestFanoutDeliversToAll(t *testing.T) {
	a := &recorder{err: errors.New("down")}
	b := &recorder{}
	err := Fanout{a, b}.Publish(context.Background(), Event{ID: "e1"})

	assert.EqualError(t, err, "down")
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestNewPublisherWithoutBrokers(t *testing.T) {
	p := NewPublisher(config.KafkaConfig{}, logrus.New())
	assert.IsType(t, Nop{}, p)
	assert.NoError(t, p.Publish(context.Background(), Event{}))
}

func TestTopicRouting(t *testing.T) {
	p := NewKafkaPublisher(config.KafkaConfig{
		Brokers:     []string{"localhost:9092"},
		OrdersTopic: "orders",
		RulesTopic:  "rules",
	}, logrus.New())
	defer p.Close()

	assert.Equal(t, "orders", p.TopicFor(EventOrderStatusChanged))
	assert.Equal(t, "rules", p.TopicFor(EventTaxRuleChanged))
	assert.Equal(t, "rules", p.TopicFor(EventChannelChanged))
}
