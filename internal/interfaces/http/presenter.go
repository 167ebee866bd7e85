package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

func toStockResponse(s *entity.BranchStock) dto.StockResponse {
	return dto.StockResponse{
		ProductID: s.ProductID,
		BranchID:  s.BranchID,
		Stock:     s.Stock,
		Reserved:  s.Reserved,
		Available: s.Available(),
		MinStock:  s.MinStock,
		MaxStock:  s.MaxStock,
		UpdatedAt: s.UpdatedAt,
	}
}

func toLogResponse(e *entity.InventoryLogEntry) dto.InventoryLogResponse {
	return dto.InventoryLogResponse{
		ID:        e.ID,
		ProductID: e.ProductID,
		BranchID:  e.BranchID,
		Delta:     e.Delta,
		Reason:    e.Reason,
		Actor:     e.Actor,
		RefType:   e.RefType,
		RefID:     e.RefID,
		CreatedAt: e.CreatedAt,
	}
}

func toSaleResponse(s *entity.Sale) *dto.SaleResponse {
	out := &dto.SaleResponse{
		ID:               s.ID,
		BranchID:         s.BranchID,
		CustomerID:       s.CustomerID,
		UserID:           s.UserID,
		LayawayID:        s.LayawayID,
		Subtotal:         s.Subtotal,
		Discount:         s.Discount,
		TaxRate:          s.TaxRate,
		Tax:              s.Tax,
		Total:            s.Total,
		PaymentMethod:    s.PaymentMethod,
		PaymentReference: s.PaymentReference,
		AmountTendered:   s.AmountTendered,
		Change:           s.Change,
		CreatedAt:        s.CreatedAt,
	}
	for _, it := range s.Items {
		out.Items = append(out.Items, dto.SaleItemResponse{
			Line: it.Line, ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice, Subtotal: it.Subtotal,
		})
	}
	return out
}

func toLayawayResponse(l *entity.Layaway, payments []*entity.LayawayPayment) dto.LayawayResponse {
	out := dto.LayawayResponse{
		ID:         l.ID,
		BranchID:   l.BranchID,
		CustomerID: l.CustomerID,
		Status:     l.Status,
		Subtotal:   l.Subtotal,
		Discount:   l.Discount,
		Tax:        l.Tax,
		Total:      l.Total,
		Paid:       l.Paid,
		Balance:    l.Balance,
		DueDate:    l.DueDate,
		Notes:      l.Notes,
		SaleID:     l.SaleID,
		CreatedAt:  l.CreatedAt,
		ClosedAt:   l.ClosedAt,
	}
	for _, it := range l.Items {
		out.Items = append(out.Items, dto.LayawayItemResponse{
			Line: it.Line, ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice, Subtotal: it.Subtotal,
		})
	}
	for _, p := range payments {
		out.Payments = append(out.Payments, dto.LayawayPaymentResponse{
			ID: p.ID, Amount: p.Amount, UserID: p.UserID, Notes: p.Notes, CreatedAt: p.CreatedAt,
		})
	}
	return out
}

// pageQuery lee limit/offset con los valores por defecto de dto.PageRequest.
func pageQuery(c *fiber.Ctx) dto.PageRequest {
	p := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	p.DefaultPage()
	return p
}

// timeQuery acepta RFC3339 o YYYY-MM-DD (medianoche UTC). Vacío devuelve nil.
func timeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, domain.ErrInvalidInput
}
