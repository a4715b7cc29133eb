package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/BotCoder254/projects254/internal/logging"
	"github.com/BotCoder254/projects254/internal/usecase"
)

const msgPaymentNotStarted = "payment could not be started"

// classify maps a usecase error to a status code and a message that is safe
// to show the client.
func classify(err error) (int, string) {
	var authErr *usecase.AuthError
	var initErr *usecase.PaymentInitiationError
	switch {
	case errors.Is(err, usecase.ErrValidation):
		return http.StatusBadRequest, oneLine(err)
	case errors.As(err, &initErr):
		return http.StatusBadGateway, msgPaymentNotStarted + ": " + initErr.Description
	case errors.As(err, &authErr):
		return http.StatusBadGateway, msgPaymentNotStarted
	case errors.Is(err, usecase.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, usecase.ErrConflict):
		return http.StatusConflict, oneLine(err)
	}
	return http.StatusInternalServerError, "internal error"
}

// fail records err on the context for the request logger and returns the
// mapped status and message.
func fail(c *gin.Context, err error) (int, string) {
	status, msg := classify(err)
	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		logging.From(c).Error("request failed", "err", err)
	}
	return status, msg
}

func oneLine(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", ": ")
}

func bindError(c *gin.Context, err error) string {
	_ = c.Error(err).SetType(gin.ErrorTypeBind)
	return "invalid request body"
}
