package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/BotCoder254/projects254/internal/adapter/mpesa"
	"github.com/BotCoder254/projects254/internal/usecase"
)

type callbackRecorder interface {
	Execute(ctx context.Context, cb usecase.CallbackResult) error
}

// STKCallbackHandler ingests provider callbacks relayed onto a topic by a
// receiver outside this service.
type STKCallbackHandler struct {
	record callbackRecorder
}

func NewSTKCallbackHandler(record callbackRecorder) *STKCallbackHandler {
	return &STKCallbackHandler{record: record}
}

func (h *STKCallbackHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	cb, err := mpesa.ParseCallback(msg.Value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPoison, err)
	}
	if err := h.record.Execute(ctx, cb); err != nil {
		if errors.Is(err, usecase.ErrValidation) {
			return fmt.Errorf("%w: %v", ErrPoison, err)
		}
		return err
	}
	return nil
}
