package kafka

import (
	"context"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"

	"github.com/BotCoder254/projects254/internal/logging"
)

// ErrPoison marks a message that can never be processed; it is committed and
// skipped.
var ErrPoison = errors.New("poison message")

// HandlerFunc processes one message.
type HandlerFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

// Consumer consumes a topic with a single handler.
type Consumer struct {
	Group  sarama.ConsumerGroup
	Topics []string
	Handle HandlerFunc
	Logger *slog.Logger
}

func NewConsumer(group sarama.ConsumerGroup, topics []string, h HandlerFunc) *Consumer {
	return &Consumer{
		Group:  group,
		Topics: topics,
		Handle: h,
		Logger: logging.New("kafka-consumer"),
	}
}

// Start blocks until ctx is cancelled or the group fails.
func (c *Consumer) Start(ctx context.Context) error {
	go func() {
		for err := range c.Group.Errors() {
			c.Logger.Warn("consumer group error", "err", err)
		}
	}()

	handler := &cgHandler{handle: c.Handle, logger: c.Logger}
	for {
		if err := c.Group.Consume(ctx, c.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		// When Consume returns, it's because ctx was cancelled or a rebalance happened.
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

type cgHandler struct {
	handle HandlerFunc
	logger *slog.Logger
}

func (h *cgHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *cgHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *cgHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		log := h.logger.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
		err := h.handle(logging.WithCtx(sess.Context(), log), msg)
		switch {
		case err == nil:
			sess.MarkMessage(msg, "")
		case errors.Is(err, ErrPoison):
			log.Warn("dropping undecodable message", "err", err)
			// mark to avoid reprocessing poison
			sess.MarkMessage(msg, "decode-error")
		default:
			// Not marked: the message is redelivered after the next rebalance.
			log.Error("handler error", "key", string(msg.Key), "err", err)
		}
	}
	return nil
}
