package constants

// Exchanges
const (
	ExchangePropertyEvents   = "property_events"
	ExchangeCostFactorEvents = "cost_factor_events"
)

// Queues
const (
	QueuePropertyValuesUpdated = "cost_engine.property_values_updated"
)

// Routing keys
const (
	RoutingKeyPropertyValuesUpdated = "property.values.updated"
	RoutingKeySourceChanged         = "cost_factors.source.changed"
)

const (
	RetryExchange      = "cost_engine_retry"
	RetryQueue         = "cost_engine_retry_wait"
	FinalDLXExchange   = "cost_engine_final_dlx"
	FinalDLQ           = "cost_engine_final_dlq"
	FinalDLQRoutingKey = "cost_engine.dlq.key"
)

// Message headers
const (
	HeaderEventType    = "event-type"
	HeaderEventVersion = "event-version"
	HeaderTraceID      = "x-trace-id"
)
