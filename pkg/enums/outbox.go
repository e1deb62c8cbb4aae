package enums

// OutboxAggregateType is the aggregate_type column of outbox_events.
type OutboxAggregateType string

const AggregatePayment OutboxAggregateType = "payment"

// OutboxEventType is the event_type column of outbox_events.
type OutboxEventType string

const EventPaymentCreated OutboxEventType = "payment_created"

var (
	aggregateTypes = set[OutboxAggregateType]{AggregatePayment}
	eventTypes     = set[OutboxEventType]{EventPaymentCreated}
)

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

func (e OutboxEventType) IsValid() bool { return eventTypes.has(e) }
