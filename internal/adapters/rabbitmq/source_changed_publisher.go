package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cost-engine-service/internal/constants"
	"cost-engine-service/internal/contextkeys"
	"cost-engine-service/internal/contracts"
	"cost-engine-service/internal/core/port"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessagePublisher is the part of rabbitmq_producer.Publisher the adapter uses.
type MessagePublisher interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
}

// SourceChangedEventDTO matches schemas/events/cost-factor-source-changed/v1.json.
type SourceChangedEventDTO struct {
	PreviousSource string    `json:"previousSource,omitempty"`
	CurrentSource  string    `json:"currentSource"`
	ChangedAt      time.Time `json:"changedAt"`
}

// SourceChangedPublisherAdapter announces switches of the active cost-factor source.
type SourceChangedPublisherAdapter struct {
	producer   MessagePublisher
	routingKey string
	now        func() time.Time
}

func NewSourceChangedPublisherAdapter(producer MessagePublisher, routingKey string) (*SourceChangedPublisherAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("producer cannot be nil")
	}
	if routingKey == "" {
		return nil, fmt.Errorf("routingKey cannot be empty")
	}
	return &SourceChangedPublisherAdapter{producer: producer, routingKey: routingKey, now: time.Now}, nil
}

func (a *SourceChangedPublisherAdapter) PublishSourceChanged(ctx context.Context, previous, current string) error {
	body, err := json.Marshal(SourceChangedEventDTO{
		PreviousSource: previous,
		CurrentSource:  current,
		ChangedAt:      a.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal source changed event: %w", err)
	}

	headers := amqp.Table{
		constants.HeaderEventType:    contracts.EventCostFactorSourceChanged,
		constants.HeaderEventVersion: contracts.SchemaVersion1,
	}
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		headers[constants.HeaderTraceID] = traceID
	}

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = a.producer.Publish(publishCtx, a.routingKey, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		Headers:      headers,
		DeliveryMode: amqp.Persistent,
		Timestamp:    a.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish source change to %s: %w", current, err)
	}

	contextkeys.LoggerFromContext(ctx).Info("Source change published", port.Fields{
		"previous": previous,
		"current":  current,
	})
	return nil
}

// NoopSourceChangedPublisher is used when messaging is disabled.
type NoopSourceChangedPublisher struct{}

func (NoopSourceChangedPublisher) PublishSourceChanged(context.Context, string, string) error {
	return nil
}
