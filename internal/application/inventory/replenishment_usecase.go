package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// ReplenishmentUseCase genera la lista de reposición de una sucursal.
// Combina el stock bajo mínimo con el historial de márgenes para priorizar los SKUs críticos.
type ReplenishmentUseCase struct {
	stockRepo  repository.StockRepository
	reportRepo repository.ReportRepository
	now        func() time.Time
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(stockRepo repository.StockRepository, reportRepo repository.ReportRepository) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{
		stockRepo:  stockRepo,
		reportRepo: reportRepo,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type skuHistory struct {
	units   int64
	revenue decimal.Decimal
	profit  decimal.Decimal
}

// LowStock devuelve los productos cuyo disponible quedó en o bajo el mínimo, con la
// cantidad sugerida de pedido y prioridad por margen histórico y volumen de ventas.
func (uc *ReplenishmentUseCase) LowStock(ctx context.Context, branchID string) ([]dto.ReplenishmentSuggestionDTO, error) {
	if branchID == "" {
		return nil, fmt.Errorf("%w: sucursal requerida", domain.ErrInvalidInput)
	}

	// 1. Productos por debajo del mínimo
	rawItems, err := uc.stockRepo.ListBelowMinimum(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if len(rawItems) == 0 {
		return []dto.ReplenishmentSuggestionDTO{}, nil
	}

	// 2. Historial de ventas de la sucursal (últimos 90 días)
	end := uc.now()
	lines, err := uc.reportRepo.SaleLines(ctx, repository.ReportFilter{BranchID: branchID, From: end.AddDate(0, 0, -90), To: end})
	if err != nil {
		return nil, err
	}
	history := make(map[string]*skuHistory)
	for _, l := range lines {
		h, ok := history[l.ProductID]
		if !ok {
			h = &skuHistory{}
			history[l.ProductID] = h
		}
		qty := decimal.NewFromInt(l.Quantity)
		h.units += l.Quantity
		h.revenue = h.revenue.Add(l.UnitPrice.Mul(qty))
		h.profit = h.profit.Add(l.UnitPrice.Sub(l.UnitCost).Mul(qty))
	}

	// 3. Construir las sugerencias
	hundred := decimal.NewFromInt(100)
	suggestions := make([]dto.ReplenishmentSuggestionDTO, 0, len(rawItems))
	for _, item := range rawItems {
		s := item.Stock
		target := s.MaxStock
		if target <= 0 {
			target = s.MinStock + s.MinStock/2
		}
		suggested := target - s.Available()
		if suggested < 0 {
			suggested = 0
		}

		var marginPct decimal.Decimal
		var units int64
		if h, ok := history[s.ProductID]; ok {
			units = h.units
			if h.revenue.IsPositive() {
				marginPct = h.profit.Div(h.revenue).Mul(hundred).Round(2)
			}
		}

		suggestions = append(suggestions, dto.ReplenishmentSuggestionDTO{
			ProductID:           s.ProductID,
			SKU:                 item.SKU,
			ProductName:         item.Name,
			Stock:               s.Stock,
			Reserved:            s.Reserved,
			Available:           s.Available(),
			MinStock:            s.MinStock,
			TargetStock:         target,
			SuggestedOrderQty:   suggested,
			UnitCost:            item.Cost,
			EstimatedOrderCost:  item.Cost.Mul(decimal.NewFromInt(suggested)),
			GrossMarginPct:      marginPct,
			UnitsSoldLast90Days: units,
		})
	}

	// 4. Ordenar: mayor margen, luego mayor volumen, luego mayor déficit bajo el mínimo
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if !a.GrossMarginPct.Equal(b.GrossMarginPct) {
			return a.GrossMarginPct.GreaterThan(b.GrossMarginPct)
		}
		if a.UnitsSoldLast90Days != b.UnitsSoldLast90Days {
			return a.UnitsSoldLast90Days > b.UnitsSoldLast90Days
		}
		return a.MinStock-a.Available > b.MinStock-b.Available
	})

	// 5. Asignar prioridad (1 = más urgente)
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}
