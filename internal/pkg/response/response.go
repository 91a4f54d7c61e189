package response

import (
	"errors"

	"broker-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// SuccessBody is the standardized success JSON shape.
type SuccessBody struct {
	Status   string      `json:"status"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data"`
	Metadata interface{} `json:"metadata,omitempty"`
}

// ErrorBody is the standardized error JSON shape.
type ErrorBody struct {
	Status string      `json:"status"`
	Error  ErrorDetail `json:"error"`
}

// ErrorDetail is the nested error object.
type ErrorDetail struct {
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Details    interface{} `json:"details,omitempty"`
}

const statusSuccess = "success"
const statusError = "error"

// Success sends a 200 OK response with the standard success format.
func Success(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return c.Status(fiber.StatusOK).JSON(SuccessBody{
		Status:   statusSuccess,
		Message:  message,
		Data:     data,
		Metadata: metadata,
	})
}

// SuccessCreated sends a 201 Created response with the standard success format.
func SuccessCreated(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return c.Status(fiber.StatusCreated).JSON(SuccessBody{
		Status:   statusSuccess,
		Message:  message,
		Data:     data,
		Metadata: metadata,
	})
}

// Error sends a response with the standard error format.
func Error(c *fiber.Ctx, message string, statusCode int, details interface{}) error {
	if details == nil {
		details = map[string]interface{}{}
	}
	return c.Status(statusCode).JSON(ErrorBody{
		Status: statusError,
		Error: ErrorDetail{
			Message:    message,
			StatusCode: statusCode,
			Details:    details,
		},
	})
}

// Unauthorized sends 401 with the same shape as other errors.
func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, message, fiber.StatusUnauthorized, nil)
}

// DomainError maps the error taxonomy to HTTP responses:
// ValidationError 400 (with field detail), TransitionError 409,
// PreconditionError 412, ProviderError 502 with a generic message (cause is
// logged, never sent to the client). Anything else is a 500.
func DomainError(c *fiber.Ctx, err error) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return Error(c, ve.Reason, fiber.StatusBadRequest, fiber.Map{"field": ve.Field})
	}
	var te *domain.TransitionError
	if errors.As(err, &te) {
		return Error(c, te.Error(), fiber.StatusConflict, nil)
	}
	var pe *domain.PreconditionError
	if errors.As(err, &pe) {
		return Error(c, pe.Reason, fiber.StatusPreconditionFailed, nil)
	}
	var pre *domain.ProviderError
	if errors.As(err, &pre) {
		log.Error().Err(pre.Err).Str("provider", pre.Provider).Msg("external provider failure")
		return Error(c, "Service temporarily unavailable, please try again", fiber.StatusBadGateway, nil)
	}
	return Error(c, err.Error(), fiber.StatusInternalServerError, nil)
}
