package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/domain"
)

// RetryAfterSeconds es el valor de Retry-After ante contención.
const RetryAfterSeconds = "1"

// respondError traduce errores de dominio a códigos HTTP.
// Solo la contención es reintentable (503 con Retry-After).
func respondError(c *fiber.Ctx, err error) error {
	resp := dto.ErrorResponse{Message: err.Error()}
	status := fiber.StatusInternalServerError

	switch {
	case errors.Is(err, domain.ErrContention):
		status, resp.Code, resp.Retryable = fiber.StatusServiceUnavailable, "CONTENTION", true
		c.Set(fiber.HeaderRetryAfter, RetryAfterSeconds)
	case errors.Is(err, domain.ErrInvalidInput):
		status, resp.Code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrUnauthorized):
		status, resp.Code = fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		status, resp.Code = fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrNotFound):
		status, resp.Code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInsufficientStock):
		status, resp.Code = fiber.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, domain.ErrInvariantViolation):
		status, resp.Code = fiber.StatusConflict, "INVARIANT_VIOLATION"
	case errors.Is(err, domain.ErrInvalidStateTransition):
		status, resp.Code = fiber.StatusConflict, "INVALID_STATE"
	case errors.Is(err, domain.ErrDuplicate):
		status, resp.Code = fiber.StatusConflict, "DUPLICATE"
	case errors.Is(err, domain.ErrInactive):
		status, resp.Code = fiber.StatusConflict, "INACTIVE"
	default:
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error interno")
		resp.Code, resp.Message = "INTERNAL", "error interno"
	}

	var se *domain.StockError
	if errors.As(err, &se) {
		resp.Stock = &dto.StockErrorDTO{ProductID: se.ProductID, BranchID: se.BranchID, Requested: se.Requested, Available: se.Available}
	}
	return c.Status(status).JSON(resp)
}

func badRequest(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

// ErrorHandler responde errores de Fiber (ruta inexistente, panic recuperado) con el mismo formato.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := "HTTP_ERROR"
		switch fe.Code {
		case fiber.StatusNotFound:
			code = "NOT_FOUND"
		case fiber.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		}
		return c.Status(fe.Code).JSON(dto.ErrorResponse{Code: code, Message: fe.Message})
	}
	return respondError(c, err)
}
