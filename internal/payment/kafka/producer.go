package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"ms-payments/internal/models"
)

// Sink is the generic producer this typed publisher writes through.
type Sink interface {
	Publish(topic string, key string, value []byte) error
}

// Publisher fans payment lifecycle events out to Kafka so downstream services
// (notifications, ticket issuance, analytics) can react to them.
type Publisher struct {
	sink         Sink
	createdTopic string
	statusTopic  string
}

func NewPublisher(sink Sink, createdTopic, statusTopic string) *Publisher {
	return &Publisher{
		sink:         sink,
		createdTopic: createdTopic,
		statusTopic:  statusTopic,
	}
}

func (p *Publisher) PublishPaymentCreated(payment models.Payment) error {
	event := models.PaymentEvent{
		EventID:   uuid.NewString(),
		Type:      "payment.created",
		OrderID:   payment.OrderID,
		Payment:   &payment,
		Timestamp: time.Now(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.sink.Publish(p.createdTopic, payment.OrderID, value)
}

func (p *Publisher) PublishPaymentStatusChanged(payment models.Payment, oldStatus models.PaymentStatus) error {
	event := models.PaymentEvent{
		EventID:   uuid.NewString(),
		Type:      "payment.status_changed",
		OrderID:   payment.OrderID,
		OldStatus: oldStatus,
		Payment:   &payment,
		Timestamp: time.Now(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.sink.Publish(p.statusTopic, payment.OrderID, value)
}
