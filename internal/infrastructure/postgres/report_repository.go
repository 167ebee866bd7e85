package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

var _ repository.ReportRepository = (*ReportRepo)(nil)

// ReportRepo entrega hechos de venta sin agregar, igual que el almacén SQLite,
// para que ambos produzcan reportes idénticos.
type ReportRepo struct {
	q Querier
}

func NewReportRepository(q Querier) *ReportRepo {
	return &ReportRepo{q: q}
}

func (r *ReportRepo) SaleHeaders(ctx context.Context, f repository.ReportFilter) ([]repository.SaleHeaderFact, error) {
	args := params{f.From.UTC(), f.To.UTC()}
	query := `SELECT id, branch_id, payment_method, subtotal, discount, tax, total, created_at
		FROM sales WHERE created_at >= $1 AND created_at < $2`
	if f.BranchID != "" {
		query += ` AND branch_id = ` + args.add(f.BranchID)
	}
	rows, err := r.q.Query(ctx, query+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("report sale headers: %w", mapError(err))
	}
	defer rows.Close()
	var out []repository.SaleHeaderFact
	for rows.Next() {
		var h repository.SaleHeaderFact
		if err := rows.Scan(&h.SaleID, &h.BranchID, &h.PaymentMethod, &h.Subtotal, &h.Discount, &h.Tax,
			&h.Total, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.CreatedAt = h.CreatedAt.UTC()
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *ReportRepo) SaleLines(ctx context.Context, f repository.ReportFilter) ([]repository.SaleLineFact, error) {
	args := params{f.From.UTC(), f.To.UTC()}
	query := `SELECT s.id, s.branch_id, i.product_id, p.sku, p.name, i.quantity, i.unit_price, i.unit_cost, s.created_at
		FROM sale_items i
		JOIN sales s ON s.id = i.sale_id
		JOIN products p ON p.id = i.product_id
		WHERE s.created_at >= $1 AND s.created_at < $2`
	if f.BranchID != "" {
		query += ` AND s.branch_id = ` + args.add(f.BranchID)
	}
	rows, err := r.q.Query(ctx, query+` ORDER BY s.created_at, i.line`, args...)
	if err != nil {
		return nil, fmt.Errorf("report sale lines: %w", mapError(err))
	}
	defer rows.Close()
	var out []repository.SaleLineFact
	for rows.Next() {
		var l repository.SaleLineFact
		if err := rows.Scan(&l.SaleID, &l.BranchID, &l.ProductID, &l.SKU, &l.Name, &l.Quantity,
			&l.UnitPrice, &l.UnitCost, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.CreatedAt = l.CreatedAt.UTC()
		out = append(out, l)
	}
	return out, rows.Err()
}
