package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/interview-simulator/internal/services"
)

var kindStatus = map[error]int{
	services.ErrInvalidPersona:           fiber.StatusBadRequest,
	services.ErrEmptyAnswer:              fiber.StatusBadRequest,
	services.ErrSessionNotFound:          fiber.StatusNotFound,
	services.ErrSessionAlreadyCompleted:  fiber.StatusConflict,
	services.ErrSessionNotComplete:       fiber.StatusConflict,
	services.ErrSessionBusy:              fiber.StatusConflict,
	services.ErrPlanningFailed:           fiber.StatusBadGateway,
	services.ErrMalformedGatewayResponse: fiber.StatusBadGateway,
	services.ErrGatewayUnavailable:       fiber.StatusServiceUnavailable,
}

var kindMessage = map[error]string{
	services.ErrInvalidPersona:           "Unknown persona. Use supportive, neutral or adversarial.",
	services.ErrEmptyAnswer:              "Answer must not be empty.",
	services.ErrSessionNotFound:          "Interview session not found.",
	services.ErrSessionAlreadyCompleted:  "Interview session is already completed.",
	services.ErrSessionNotComplete:       "Interview session is not completed yet.",
	services.ErrSessionBusy:              "Another answer for this session is being processed.",
	services.ErrPlanningFailed:           "Could not generate interview questions. Please try again.",
	services.ErrMalformedGatewayResponse: "The interviewer returned an unexpected response. Please try again.",
	services.ErrGatewayUnavailable:       "The interviewer is temporarily unavailable. Please try again.",
}

// respondError renders service errors with their stable code and a safe
// message. Unknown errors become a 500 without detail.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	kind := services.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		log.Error("❌ Request failed", zap.String("path", c.Path()), zap.Error(err))
		return errorJSON(c, fiber.StatusInternalServerError, "internal_error", "Internal server error.")
	}

	fields := []zap.Field{zap.String("path", c.Path()), zap.String("kind", services.ErrorCode(err))}
	var svcErr *services.Error
	if errors.As(err, &svcErr) && svcErr.Cause() != nil {
		fields = append(fields, zap.NamedError("cause", svcErr.Cause()))
	}
	if status >= fiber.StatusInternalServerError {
		log.Warn("request failed upstream", fields...)
	} else {
		log.Debug("request rejected", fields...)
	}

	return errorJSON(c, status, services.ErrorCode(err), kindMessage[kind])
}

func badRequest(c *fiber.Ctx, code, message string) error {
	return errorJSON(c, fiber.StatusBadRequest, code, message)
}

func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
		"code":    status,
	})
}

// ErrorHandler is the fiber fallback for errors no handler rendered.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error."

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	return errorJSON(c, code, "http_error", message)
}
