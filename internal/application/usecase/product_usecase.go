package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/catalog"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// ProductUseCase administra el catálogo. El stock vive por sucursal y solo cambia vía el motor de inventario.
type ProductUseCase struct {
	repo repository.ProductRepository
	now  func() time.Time
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository) *ProductUseCase {
	return &ProductUseCase{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Create registra un producto activo. SKU y código de barras se normalizan a mayúsculas.
func (uc *ProductUseCase) Create(ctx context.Context, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	sku := catalog.NormalizeCode(in.SKU)
	name := strings.TrimSpace(in.Name)
	if sku == "" || name == "" {
		return nil, fmt.Errorf("%w: sku y nombre son requeridos", domain.ErrInvalidInput)
	}
	if in.Price.IsNegative() || in.Cost.IsNegative() {
		return nil, fmt.Errorf("%w: precio y costo no pueden ser negativos", domain.ErrInvalidInput)
	}
	unit := in.Unit
	if unit == "" {
		unit = "pza"
	}
	now := uc.now()
	p := &entity.Product{
		ID:          uuid.New().String(),
		SKU:         sku,
		Barcode:     catalog.NormalizeCode(in.Barcode),
		Name:        name,
		Description: in.Description,
		Price:       in.Price,
		Cost:        in.Cost,
		Unit:        unit,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.SearchKey = searchKey(p)
	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return toProductResponse(p), nil
}

// GetByID obtiene un producto por ID.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	p, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toProductResponse(p), nil
}

// Lookup busca por SKU o código de barras (lector de mostrador).
func (uc *ProductUseCase) Lookup(ctx context.Context, code string) (*dto.ProductResponse, error) {
	code = catalog.NormalizeCode(code)
	if code == "" {
		return nil, fmt.Errorf("%w: código vacío", domain.ErrInvalidInput)
	}
	p, err := uc.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: código %s", domain.ErrNotFound, code)
	}
	return toProductResponse(p), nil
}

// Update modifica datos de catálogo. El costo solo cambia con recepciones.
func (uc *ProductUseCase) Update(ctx context.Context, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	p, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: nombre vacío", domain.ErrInvalidInput)
		}
		p.Name = name
	}
	if in.Barcode != nil {
		p.Barcode = catalog.NormalizeCode(*in.Barcode)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, fmt.Errorf("%w: precio negativo", domain.ErrInvalidInput)
		}
		p.Price = *in.Price
	}
	if in.Unit != nil {
		p.Unit = *in.Unit
	}
	p.SearchKey = searchKey(p)
	p.UpdatedAt = uc.now()
	if err := uc.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return toProductResponse(p), nil
}

// SetActive activa o da de baja un producto. Nunca se borra: las ventas lo referencian.
func (uc *ProductUseCase) SetActive(ctx context.Context, id string, active bool) error {
	if _, err := uc.get(ctx, id); err != nil {
		return err
	}
	return uc.repo.SetActive(ctx, id, active)
}

// List busca sin distinguir acentos ni mayúsculas.
func (uc *ProductUseCase) List(ctx context.Context, search string, includeInactive bool, page dto.PageRequest) (*dto.ProductListResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.List(ctx, repository.ProductFilter{
		Search:          catalog.SearchKey(search),
		IncludeInactive: includeInactive,
		Limit:           page.Limit,
		Offset:          page.Offset,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

func (uc *ProductUseCase) get(ctx context.Context, id string) (*entity.Product, error) {
	p, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, id)
	}
	return p, nil
}

func searchKey(p *entity.Product) string {
	return catalog.SearchKey(p.Name + " " + p.SKU + " " + p.Barcode)
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:          p.ID,
		SKU:         p.SKU,
		Barcode:     p.Barcode,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Cost:        p.Cost,
		Unit:        p.Unit,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
