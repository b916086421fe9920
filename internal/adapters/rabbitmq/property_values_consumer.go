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
	"cost-engine-service/internal/core/port/usecases_port"
	"cost-engine-service/pkg/rabbitmq/rabbitmq_common"
	"cost-engine-service/pkg/rabbitmq/rabbitmq_consumer"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// PropertyValuesUpdatedDTO matches schemas/events/property-values-updated/v1.json.
type PropertyValuesUpdatedDTO struct {
	UpdatedAt     time.Time `json:"updatedAt"`
	Level         string    `json:"level,omitempty"`
	AffectedIDs   []string  `json:"affectedIds,omitempty"`
	PropertyCount int       `json:"propertyCount,omitempty"`
}

// PropertyValuesConsumerAdapter drops cached heatmaps whenever the property
// store announces changed values.
type PropertyValuesConsumerAdapter struct {
	consumer *rabbitmq_consumer.DistributingConsumer
	heatmaps usecases_port.HeatmapUseCase
	logger   port.LoggerPort
}

func NewPropertyValuesConsumerAdapter(
	consumerCfg rabbitmq_consumer.ConsumerConfig,
	heatmaps usecases_port.HeatmapUseCase,
	connManager *rabbitmq_common.ConnectionManager,
	logger port.LoggerPort,
) (*PropertyValuesConsumerAdapter, error) {
	if heatmaps == nil {
		return nil, fmt.Errorf("heatmap use case cannot be nil")
	}
	adapter := &PropertyValuesConsumerAdapter{
		heatmaps: heatmaps,
		logger:   logger.WithFields(port.Fields{"component": "PropertyValuesConsumerAdapter"}),
	}

	consumer, err := rabbitmq_consumer.NewDistributingConsumer(consumerCfg, adapter.handleMessage, connManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ consumer for property value events: %w", err)
	}
	adapter.consumer = consumer
	return adapter, nil
}

func (a *PropertyValuesConsumerAdapter) handleMessage(d amqp.Delivery) error {
	traceID, _ := d.Headers[constants.HeaderTraceID].(string)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	msgLogger := a.logger.WithFields(port.Fields{
		"trace_id":     traceID,
		"delivery_tag": d.DeliveryTag,
	})

	ctx := contextkeys.ContextWithTraceID(context.Background(), traceID)
	ctx = contextkeys.ContextWithLogger(ctx, msgLogger)

	event, err := a.decode(d)
	if err != nil {
		msgLogger.Error("Message rejected", err, nil)
		return err
	}

	cleared := a.heatmaps.ClearCaches(ctx)
	msgLogger.Info("Property values updated, heatmaps invalidated", port.Fields{
		"level":          event.Level,
		"property_count": event.PropertyCount,
		"updated_at":     event.UpdatedAt,
		"cleared":        cleared,
	})
	return nil
}

// decode validates the body against the event schema named by the message headers.
func (a *PropertyValuesConsumerAdapter) decode(d amqp.Delivery) (*PropertyValuesUpdatedDTO, error) {
	eventType, _ := d.Headers[constants.HeaderEventType].(string)
	eventVersion, _ := d.Headers[constants.HeaderEventVersion].(string)
	if eventType == "" {
		eventType = contracts.EventPropertyValuesUpdated
	}
	if eventVersion == "" {
		eventVersion = contracts.SchemaVersion1
	}
	if eventType != contracts.EventPropertyValuesUpdated {
		return nil, fmt.Errorf("unexpected event type %q", eventType)
	}
	if err := contracts.ValidateEvent(eventType, eventVersion, d.Body); err != nil {
		return nil, err
	}

	var dto PropertyValuesUpdatedDTO
	if err := json.Unmarshal(d.Body, &dto); err != nil {
		return nil, fmt.Errorf("failed to unmarshal property values event: %w", err)
	}
	return &dto, nil
}

// Start implements EventListenerPort.
func (a *PropertyValuesConsumerAdapter) Start(ctx context.Context) error {
	return a.consumer.StartConsuming(ctx)
}

// Close implements EventListenerPort.
func (a *PropertyValuesConsumerAdapter) Close() error {
	return a.consumer.Close()
}
