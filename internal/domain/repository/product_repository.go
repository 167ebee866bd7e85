package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// ProductFilter filtra el listado del catálogo.
type ProductFilter struct {
	Search          string // se compara contra SearchKey, SKU y código de barras
	IncludeInactive bool
	Limit           int
	Offset          int
}

// ProductRepository define el puerto de persistencia para Product (DIP).
// Los Get devuelven (nil, nil) cuando no existe el registro.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetByCode busca por SKU o por código de barras.
	GetByCode(ctx context.Context, code string) (*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	UpdateCost(ctx context.Context, productID string, cost decimal.Decimal) error
	SetActive(ctx context.Context, id string, active bool) error
	List(ctx context.Context, filter ProductFilter) ([]*entity.Product, error)
}
