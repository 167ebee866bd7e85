package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// ReportRepo implementa repository.ReportRepository. Devuelve hechos sin agregar:
// sumar importes TEXT en SQLite perdería precisión.
type ReportRepo struct {
	q sqlx.ExtContext
}

var _ repository.ReportRepository = (*ReportRepo)(nil)

func (r *ReportRepo) SaleHeaders(ctx context.Context, f repository.ReportFilter) ([]repository.SaleHeaderFact, error) {
	query := `SELECT id, branch_id, payment_method, subtotal, discount, tax, total, created_at
		FROM sales WHERE created_at >= ? AND created_at < ?`
	args := []any{f.From.UTC(), f.To.UTC()}
	if f.BranchID != "" {
		query += ` AND branch_id = ?`
		args = append(args, f.BranchID)
	}
	var rows []struct {
		ID            string          `db:"id"`
		BranchID      string          `db:"branch_id"`
		PaymentMethod string          `db:"payment_method"`
		Subtotal      decimal.Decimal `db:"subtotal"`
		Discount      decimal.Decimal `db:"discount"`
		Tax           decimal.Decimal `db:"tax"`
		Total         decimal.Decimal `db:"total"`
		CreatedAt     time.Time       `db:"created_at"`
	}
	if err := sqlx.SelectContext(ctx, r.q, &rows, query+` ORDER BY created_at`, args...); err != nil {
		return nil, mapError(err)
	}
	out := make([]repository.SaleHeaderFact, 0, len(rows))
	for _, row := range rows {
		out = append(out, repository.SaleHeaderFact{
			SaleID: row.ID, BranchID: row.BranchID, PaymentMethod: row.PaymentMethod,
			Subtotal: row.Subtotal, Discount: row.Discount, Tax: row.Tax, Total: row.Total, CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (r *ReportRepo) SaleLines(ctx context.Context, f repository.ReportFilter) ([]repository.SaleLineFact, error) {
	query := `SELECT s.id AS sale_id, s.branch_id, i.product_id, p.sku, p.name, i.quantity, i.unit_price, i.unit_cost, s.created_at
		FROM sale_items i
		JOIN sales s ON s.id = i.sale_id
		JOIN products p ON p.id = i.product_id
		WHERE s.created_at >= ? AND s.created_at < ?`
	args := []any{f.From.UTC(), f.To.UTC()}
	if f.BranchID != "" {
		query += ` AND s.branch_id = ?`
		args = append(args, f.BranchID)
	}
	var rows []struct {
		SaleID    string          `db:"sale_id"`
		BranchID  string          `db:"branch_id"`
		ProductID string          `db:"product_id"`
		SKU       string          `db:"sku"`
		Name      string          `db:"name"`
		Quantity  int64           `db:"quantity"`
		UnitPrice decimal.Decimal `db:"unit_price"`
		UnitCost  decimal.Decimal `db:"unit_cost"`
		CreatedAt time.Time       `db:"created_at"`
	}
	if err := sqlx.SelectContext(ctx, r.q, &rows, query+` ORDER BY s.created_at, i.line`, args...); err != nil {
		return nil, mapError(err)
	}
	out := make([]repository.SaleLineFact, 0, len(rows))
	for _, row := range rows {
		out = append(out, repository.SaleLineFact{
			SaleID: row.SaleID, BranchID: row.BranchID, ProductID: row.ProductID, SKU: row.SKU, Name: row.Name,
			Quantity: row.Quantity, UnitPrice: row.UnitPrice, UnitCost: row.UnitCost, CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return out, nil
}
