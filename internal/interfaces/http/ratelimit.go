package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
)

// RateLimit limita peticiones por IP con el formato de ulule/limiter ("300-M" = 300 por minuto).
func RateLimit(formatted string) (fiber.Handler, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	instance := limiter.New(memory.NewStore(), rate)

	return func(c *fiber.Ctx) error {
		lc, err := instance.Get(c.UserContext(), c.IP())
		if err != nil {
			// Ante error del store la petición pasa sin límite.
			return c.Next()
		}
		c.Set("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(lc.Reset, 10))
		if lc.Reached {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Code:      "RATE_LIMITED",
				Message:   "demasiadas peticiones",
				Retryable: true,
			})
		}
		return c.Next()
	}, nil
}
