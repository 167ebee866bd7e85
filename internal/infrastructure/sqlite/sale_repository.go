package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// SaleRepo implementa repository.SaleRepository.
type SaleRepo struct {
	q sqlx.ExtContext
}

var _ repository.SaleRepository = (*SaleRepo)(nil)

type saleRow struct {
	ID               string          `db:"id"`
	BranchID         string          `db:"branch_id"`
	CustomerID       sql.NullString  `db:"customer_id"`
	UserID           string          `db:"user_id"`
	LayawayID        sql.NullString  `db:"layaway_id"`
	Subtotal         decimal.Decimal `db:"subtotal"`
	Discount         decimal.Decimal `db:"discount"`
	TaxRate          decimal.Decimal `db:"tax_rate"`
	Tax              decimal.Decimal `db:"tax"`
	Total            decimal.Decimal `db:"total"`
	PaymentMethod    string          `db:"payment_method"`
	PaymentReference string          `db:"payment_reference"`
	AmountTendered   decimal.Decimal `db:"amount_tendered"`
	Change           decimal.Decimal `db:"change_due"`
	CreatedAt        time.Time       `db:"created_at"`
}

func (r saleRow) entity() *entity.Sale {
	return &entity.Sale{
		ID:               r.ID,
		BranchID:         r.BranchID,
		CustomerID:       r.CustomerID.String,
		UserID:           r.UserID,
		LayawayID:        r.LayawayID.String,
		Subtotal:         r.Subtotal,
		Discount:         r.Discount,
		TaxRate:          r.TaxRate,
		Tax:              r.Tax,
		Total:            r.Total,
		PaymentMethod:    r.PaymentMethod,
		PaymentReference: r.PaymentReference,
		AmountTendered:   r.AmountTendered,
		Change:           r.Change,
		CreatedAt:        r.CreatedAt.UTC(),
	}
}

type lineRow struct {
	ID        string          `db:"id"`
	ParentID  string          `db:"parent_id"`
	Line      int             `db:"line"`
	ProductID string          `db:"product_id"`
	Quantity  int64           `db:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price"`
	UnitCost  decimal.Decimal `db:"unit_cost"`
	Subtotal  decimal.Decimal `db:"subtotal"`
}

const saleColumns = `id, branch_id, customer_id, user_id, layaway_id, subtotal, discount, tax_rate, tax, total,
	payment_method, payment_reference, amount_tendered, change_due, created_at`

func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO sales (`+saleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.BranchID, nullString(s.CustomerID), s.UserID, nullString(s.LayawayID),
		s.Subtotal, s.Discount, s.TaxRate, s.Tax, s.Total,
		s.PaymentMethod, s.PaymentReference, s.AmountTendered, s.Change, s.CreatedAt.UTC())
	if err != nil {
		return mapError(err)
	}
	for _, it := range s.Items {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO sale_items (id, sale_id, line, product_id, quantity, unit_price, unit_cost, subtotal)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, s.ID, it.Line, it.ProductID, it.Quantity, it.UnitPrice, it.UnitCost, it.Subtotal)
		if err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	var row saleRow
	err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+saleColumns+` FROM sales WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	sale := row.entity()

	var lines []lineRow
	err = sqlx.SelectContext(ctx, r.q, &lines, `
		SELECT id, sale_id AS parent_id, line, product_id, quantity, unit_price, unit_cost, subtotal
		FROM sale_items WHERE sale_id = ? ORDER BY line`, id)
	if err != nil {
		return nil, mapError(err)
	}
	for _, l := range lines {
		sale.Items = append(sale.Items, entity.SaleItem{
			ID: l.ID, SaleID: l.ParentID, Line: l.Line, ProductID: l.ProductID, Quantity: l.Quantity,
			UnitPrice: l.UnitPrice, UnitCost: l.UnitCost, Subtotal: l.Subtotal,
		})
	}
	return sale, nil
}

func (r *SaleRepo) List(ctx context.Context, f repository.SaleFilter) ([]*entity.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE 1=1`
	var args []any
	if f.BranchID != "" {
		query += ` AND branch_id = ?`
		args = append(args, f.BranchID)
	}
	if f.CustomerID != "" {
		query += ` AND customer_id = ?`
		args = append(args, f.CustomerID)
	}
	if f.From != nil {
		query += ` AND created_at >= ?`
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		query += ` AND created_at < ?`
		args = append(args, f.To.UTC())
	}
	limit, offset := page(f.Limit, f.Offset)
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var rows []saleRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, mapError(err)
	}
	out := make([]*entity.Sale, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entity())
	}
	return out, nil
}
