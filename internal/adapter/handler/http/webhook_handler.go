package http

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/studyloop/billing-service/internal/domain/errors"
	"github.com/studyloop/billing-service/internal/usecase"
)

type WebhookHandler struct {
	logger         *zap.Logger
	webhookService *usecase.WebhookService
}

func NewWebhookHandler(logger *zap.Logger, webhookService *usecase.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		logger:         logger,
		webhookService: webhookService,
	}
}

// HandleWebhook receives processor event deliveries. 2xx acknowledges the
// event; any 5xx asks the processor to redeliver, so processing failures must
// never be swallowed into a 200.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error("Error reading webhook body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Error reading request body"})
	}

	sig := c.Request().Header.Get("Stripe-Signature")

	if err := h.webhookService.Handle(c.Request().Context(), body, sig); err != nil {
		status := apperrors.StatusOf(err)
		if status < 500 && apperrors.CodeOf(err) != apperrors.CodeSignature {
			// Anything that is not a signature rejection must come back as a
			// retryable failure.
			status = http.StatusInternalServerError
		}
		return c.JSON(status, echo.Map{
			"error": apperrors.MessageOf(err),
			"code":  apperrors.CodeOf(err),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
