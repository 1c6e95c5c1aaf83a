package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/payroll"
	kafkago "github.com/segmentio/kafka-go"
)

const EventTypeStatusChanged = "payroll.entry_status_changed"

// MessageWriter is the subset of *kafkago.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// StatusPublisher sends payroll status changes to the notification dispatcher.
type StatusPublisher struct {
	writer MessageWriter
	topic  string
}

var _ payroll.EventPublisher = (*StatusPublisher)(nil)

func NewStatusPublisher(writer MessageWriter, topic string) *StatusPublisher {
	return &StatusPublisher{writer: writer, topic: topic}
}

// NewWriter builds a writer that keys messages by employee, so one employee's
// status changes stay ordered within a partition.
func NewWriter(brokers []string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func (p *StatusPublisher) PublishStatusChanged(ctx context.Context, event payroll.StatusChangedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode status changed event: %w", err)
	}

	msg := kafkago.Message{
		Topic: p.topic,
		Key:   []byte(event.EmployeeID),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(EventTypeStatusChanged)},
			{Key: "event_id", Value: []byte(event.EventID)},
			{Key: "company_id", Value: []byte(event.CompanyID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish status changed event: %w", err)
	}
	return nil
}
