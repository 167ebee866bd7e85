package repository

import (
	"context"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// BranchRepository define el puerto de persistencia para sucursales.
type BranchRepository interface {
	Create(ctx context.Context, branch *entity.Branch) error
	GetByID(ctx context.Context, id string) (*entity.Branch, error)
	Update(ctx context.Context, branch *entity.Branch) error
	SetActive(ctx context.Context, id string, active bool) error
	List(ctx context.Context, includeInactive bool) ([]*entity.Branch, error)
}
