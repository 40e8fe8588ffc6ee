package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/bigmove/backend/internal/models"
)

type EventHandler interface {
	Notify(ctx context.Context, ev models.OrderEvent) error
}

// ConsumerGroupHandler hands every order event to the handler. Messages that
// fail to decode or to handle are logged and marked, so one bad event does
// not block the partition.
type ConsumerGroupHandler struct {
	handler EventHandler
}

func NewConsumerGroupHandler(h EventHandler) ConsumerGroupHandler {
	return ConsumerGroupHandler{handler: h}
}

func (ConsumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (ConsumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		h.handle(session.Context(), msg)
		session.MarkMessage(msg, "")
	}
	return nil
}

func (h ConsumerGroupHandler) handle(ctx context.Context, msg *sarama.ConsumerMessage) {
	var ev models.OrderEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		slog.ErrorContext(ctx, "decode order event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return
	}
	if err := h.handler.Notify(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "handle order event", "order_id", ev.OrderID, "type", ev.Type, "error", err)
		return
	}
	slog.InfoContext(ctx, "order event handled",
		"order_id", ev.OrderID, "type", ev.Type, "partition", msg.Partition, "offset", msg.Offset)
}

func NewConsumerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	return cfg
}

// StartSaramaConsumer blocks until ctx is done.
func StartSaramaConsumer(ctx context.Context, cfg *sarama.Config, brokers []string, groupID string, topics []string, handler EventHandler) error {
	consumerGroup, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := consumerGroup.Close(); err != nil {
			slog.Error("closing consumer group", "error", err)
		}
	}()

	h := NewConsumerGroupHandler(handler)
	for {
		if err := consumerGroup.Consume(ctx, topics, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			slog.Error("kafka consume error", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
