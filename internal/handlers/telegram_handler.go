package handlers

import (
	"errors"
	"strings"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/config"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/dto"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/services"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/telegram"
	"github.com/gofiber/fiber/v2"
)

type TelegramHandler struct {
	telegramService *services.TelegramAuthService
	cfg             *config.Config
}

func NewTelegramHandler(telegramService *services.TelegramAuthService, cfg *config.Config) *TelegramHandler {
	return &TelegramHandler{telegramService: telegramService, cfg: cfg}
}

// Validate handles every method on the reconciliation endpoint so that
// non-POST requests get 405 with a JSON body instead of the router default.
func (h *TelegramHandler) Validate(c *fiber.Ctx) error {
	switch c.Method() {
	case fiber.MethodOptions:
		return c.Status(fiber.StatusOK).Send(nil)
	case fiber.MethodPost:
	default:
		return c.Status(fiber.StatusMethodNotAllowed).JSON(dto.ValidationErrorResponse{
			Error: "Method not allowed",
		})
	}

	var req dto.TelegramValidateRequest
	if len(strings.TrimSpace(string(c.Body()))) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ValidationErrorResponse{
				Error: "Invalid request body",
			})
		}
	}

	resp, err := h.telegramService.Validate(c.UserContext(), req.InitData)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

func (h *TelegramHandler) fail(c *fiber.Ctx, err error) error {
	status, message := fiber.StatusInternalServerError, "Internal server error"

	var establishErr *services.EstablishError
	var persistErr *services.PersistenceError
	switch {
	case errors.Is(err, telegram.ErrMissingPayload):
		status, message = fiber.StatusBadRequest, "Missing initData"
	case errors.Is(err, telegram.ErrMalformedPayload):
		status, message = fiber.StatusBadRequest, "Invalid initData: malformed query string"
	case errors.Is(err, telegram.ErrMissingHash):
		status, message = fiber.StatusBadRequest, "Invalid initData: missing hash"
	case errors.Is(err, telegram.ErrMalformedUser):
		status, message = fiber.StatusBadRequest, "Invalid user data"
	case errors.Is(err, telegram.ErrInvalidSignature):
		status, message = fiber.StatusUnauthorized, "Invalid hash"
	case errors.Is(err, telegram.ErrStale):
		status, message = fiber.StatusUnauthorized, "Authentication data is outdated"
	case errors.Is(err, telegram.ErrMissingBotToken):
		message = "Bot token not configured"
	case errors.As(err, &establishErr):
		message = "Failed to establish session"
	case errors.As(err, &persistErr), errors.Is(err, services.ErrIdentityMismatch):
		message = "Database error"
	}

	body := dto.ValidationErrorResponse{Error: message}
	if status >= fiber.StatusInternalServerError {
		reportServerError(c, "telegram_validate", err)
		if !h.cfg.IsProduction() {
			body.Details = err.Error()
		}
	}
	return c.Status(status).JSON(body)
}
