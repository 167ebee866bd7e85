package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// BranchUseCase casos de uso de sucursales.
type BranchUseCase struct {
	repo           repository.BranchRepository
	defaultTaxRate decimal.Decimal
	now            func() time.Time
}

// NewBranchUseCase construye el caso de uso; defaultTaxRate se usa si la sucursal no trae tasa.
func NewBranchUseCase(repo repository.BranchRepository, defaultTaxRate decimal.Decimal) *BranchUseCase {
	return &BranchUseCase{repo: repo, defaultTaxRate: defaultTaxRate, now: func() time.Time { return time.Now().UTC() }}
}

// Create registra una sucursal activa.
func (uc *BranchUseCase) Create(ctx context.Context, in dto.CreateBranchRequest) (*dto.BranchResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: nombre requerido", domain.ErrInvalidInput)
	}
	rate := uc.defaultTaxRate
	if in.TaxRate != nil {
		rate = *in.TaxRate
	}
	if err := validateTaxRate(rate); err != nil {
		return nil, err
	}
	now := uc.now()
	b := &entity.Branch{
		ID:        uuid.New().String(),
		Name:      name,
		Address:   in.Address,
		TaxRate:   rate,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return toBranchResponse(b), nil
}

// GetByID obtiene una sucursal por ID.
func (uc *BranchUseCase) GetByID(ctx context.Context, id string) (*dto.BranchResponse, error) {
	b, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toBranchResponse(b), nil
}

// SetTaxRate cambia la tasa de impuesto. Las ventas ya registradas guardan la tasa con la que se cobraron.
func (uc *BranchUseCase) SetTaxRate(ctx context.Context, id string, rate decimal.Decimal) (*dto.BranchResponse, error) {
	if err := validateTaxRate(rate); err != nil {
		return nil, err
	}
	b, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	b.TaxRate = rate
	b.UpdatedAt = uc.now()
	if err := uc.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return toBranchResponse(b), nil
}

// SetActive activa o da de baja una sucursal.
func (uc *BranchUseCase) SetActive(ctx context.Context, id string, active bool) error {
	if _, err := uc.get(ctx, id); err != nil {
		return err
	}
	return uc.repo.SetActive(ctx, id, active)
}

// List lista sucursales.
func (uc *BranchUseCase) List(ctx context.Context, includeInactive bool) ([]dto.BranchResponse, error) {
	list, err := uc.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	items := make([]dto.BranchResponse, 0, len(list))
	for _, b := range list {
		items = append(items, *toBranchResponse(b))
	}
	return items, nil
}

func (uc *BranchUseCase) get(ctx context.Context, id string) (*entity.Branch, error) {
	b, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: sucursal %s", domain.ErrNotFound, id)
	}
	return b, nil
}

// validateTaxRate acepta fracciones en [0, 1): 0.16 es 16 %.
func validateTaxRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: tasa de impuesto %s fuera de rango", domain.ErrInvalidInput, rate)
	}
	return nil
}

func toBranchResponse(b *entity.Branch) *dto.BranchResponse {
	return &dto.BranchResponse{
		ID:        b.ID,
		Name:      b.Name,
		Address:   b.Address,
		TaxRate:   b.TaxRate,
		Active:    b.Active,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}
