package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/reward"
	kafkago "github.com/segmentio/kafka-go"
)

// MessageReader is the subset of *kafkago.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// BonusConsumer feeds reward.bonus_posted events into the bonus posting flow.
type BonusConsumer struct {
	reader        MessageReader
	rewardService reward.RewardService
	logger        *slog.Logger
	retryBackoff  time.Duration
}

func NewBonusConsumer(reader MessageReader, rewardService reward.RewardService, logger *slog.Logger) *BonusConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &BonusConsumer{
		reader:        reader,
		rewardService: rewardService,
		logger:        logger.With(slog.String("component", "kafka.consumer.bonus_posted")),
		retryBackoff:  time.Second,
	}
}

func NewReader(brokers []string, groupID, topic string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		CommitInterval: time.Second,
		StartOffset:    kafkago.FirstOffset,
	})
}

// Run blocks until ctx is cancelled. Messages are committed once handled,
// and also when they can never succeed (undecodable, invalid or duplicate).
// Any other failure is retried in place, so later offsets are never
// committed past an unprocessed bonus.
func (c *BonusConsumer) Run(ctx context.Context) {
	c.logger.Info("bonus consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("bonus consumer stopped")
				return
			}
			c.logger.Error("fetch bonus message failed", slog.Any("error", err))
			c.sleep(ctx)
			continue
		}

		for !c.handle(ctx, msg) {
			c.sleep(ctx)
			if ctx.Err() != nil {
				c.logger.Info("bonus consumer stopped", slog.Int64("pending_offset", msg.Offset))
				return
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit bonus message failed",
				slog.Int64("offset", msg.Offset),
				slog.Any("error", err),
			)
		}
	}
}

// handle reports whether the message should be committed.
func (c *BonusConsumer) handle(ctx context.Context, msg kafkago.Message) bool {
	var event reward.BonusPostedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("decode bonus_posted event failed",
			slog.Int64("offset", msg.Offset),
			slog.Any("error", err),
		)
		return true
	}

	log := c.logger.With(
		slog.String("event_id", event.EventID),
		slog.String("company_id", event.CompanyID),
		slog.String("employee_id", event.EmployeeID),
	)

	result, err := c.rewardService.PostBonusFromEvent(ctx, event)
	switch {
	case err == nil:
		attrs := []any{slog.String("reward_id", result.ID), slog.String("pay_period", result.PayPeriod.String())}
		if result.Entry != nil {
			attrs = append(attrs, slog.String("entry_id", result.Entry.ID))
		}
		log.Info("bonus posted from event", attrs...)
		return true
	case errors.Is(err, reward.ErrDuplicateEvent):
		log.Warn("bonus event already processed, skipping")
		return true
	case errors.Is(err, reward.ErrInvalidEvent):
		log.Warn("invalid bonus event, skipping", slog.Any("error", err))
		return true
	default:
		log.Error("post bonus from event failed", slog.Any("error", err))
		return false
	}
}

func (c *BonusConsumer) sleep(ctx context.Context) {
	t := time.NewTimer(c.retryBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
