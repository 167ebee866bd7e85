package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// branchChecker es el contrato mínimo para verificar la sucursal del token.
// Lo implementa repository.BranchRepository.
type branchChecker interface {
	GetByID(ctx context.Context, id string) (*entity.Branch, error)
}

// RequireActiveBranch rechaza operaciones de usuarios cuya sucursal fue desactivada.
// Debe usarse DESPUÉS de AuthMiddleware. Usuarios sin sucursal (admin) pasan.
//
//   - 403 Forbidden → sucursal inexistente o inactiva.
//   - 503 Service Unavailable → fallo al consultar el almacén.
func RequireActiveBranch(checker branchChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID := GetBranchID(c)
		if branchID == "" {
			return c.Next()
		}
		b, err := checker.GetByID(c.UserContext(), branchID)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:      "BRANCH_CHECK_FAILED",
				Message:   "no se pudo verificar la sucursal, intente más tarde",
				Retryable: true,
			})
		}
		if b == nil || !b.Active {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "BRANCH_INACTIVE",
				Message: "la sucursal del usuario no está activa",
			})
		}
		return c.Next()
	}
}
