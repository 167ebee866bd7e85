package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// LayawayRepo implementa repository.LayawayRepository.
type LayawayRepo struct {
	q sqlx.ExtContext
}

var _ repository.LayawayRepository = (*LayawayRepo)(nil)

type layawayRow struct {
	ID         string          `db:"id"`
	BranchID   string          `db:"branch_id"`
	CustomerID string          `db:"customer_id"`
	Status     string          `db:"status"`
	Subtotal   decimal.Decimal `db:"subtotal"`
	Discount   decimal.Decimal `db:"discount"`
	TaxRate    decimal.Decimal `db:"tax_rate"`
	Tax        decimal.Decimal `db:"tax"`
	Total      decimal.Decimal `db:"total"`
	Paid       decimal.Decimal `db:"paid"`
	Balance    decimal.Decimal `db:"balance"`
	DueDate    sql.NullTime    `db:"due_date"`
	Notes      string          `db:"notes"`
	CreatedBy  string          `db:"created_by"`
	SaleID     sql.NullString  `db:"sale_id"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
	ClosedAt   sql.NullTime    `db:"closed_at"`
}

func (r layawayRow) entity() *entity.Layaway {
	return &entity.Layaway{
		ID:         r.ID,
		BranchID:   r.BranchID,
		CustomerID: r.CustomerID,
		Status:     r.Status,
		Subtotal:   r.Subtotal,
		Discount:   r.Discount,
		TaxRate:    r.TaxRate,
		Tax:        r.Tax,
		Total:      r.Total,
		Paid:       r.Paid,
		Balance:    r.Balance,
		DueDate:    timePtr(r.DueDate),
		Notes:      r.Notes,
		CreatedBy:  r.CreatedBy,
		SaleID:     r.SaleID.String,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
		ClosedAt:   timePtr(r.ClosedAt),
	}
}

const layawayColumns = `id, branch_id, customer_id, status, subtotal, discount, tax_rate, tax, total, paid, balance,
	due_date, notes, created_by, sale_id, created_at, updated_at, closed_at`

func (r *LayawayRepo) Create(ctx context.Context, l *entity.Layaway) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO layaways (`+layawayColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.BranchID, l.CustomerID, l.Status, l.Subtotal, l.Discount, l.TaxRate, l.Tax, l.Total, l.Paid, l.Balance,
		nullTime(l.DueDate), l.Notes, l.CreatedBy, nullString(l.SaleID), l.CreatedAt.UTC(), l.UpdatedAt.UTC(), nullTime(l.ClosedAt))
	if err != nil {
		return mapError(err)
	}
	for _, it := range l.Items {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO layaway_items (id, layaway_id, line, product_id, quantity, unit_price, unit_cost, subtotal)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, l.ID, it.Line, it.ProductID, it.Quantity, it.UnitPrice, it.UnitCost, it.Subtotal)
		if err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (r *LayawayRepo) GetByID(ctx context.Context, id string) (*entity.Layaway, error) {
	var row layawayRow
	err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+layawayColumns+` FROM layaways WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	l := row.entity()

	var lines []lineRow
	err = sqlx.SelectContext(ctx, r.q, &lines, `
		SELECT id, layaway_id AS parent_id, line, product_id, quantity, unit_price, unit_cost, subtotal
		FROM layaway_items WHERE layaway_id = ? ORDER BY line`, id)
	if err != nil {
		return nil, mapError(err)
	}
	for _, ln := range lines {
		l.Items = append(l.Items, entity.LayawayItem{
			ID: ln.ID, LayawayID: ln.ParentID, Line: ln.Line, ProductID: ln.ProductID, Quantity: ln.Quantity,
			UnitPrice: ln.UnitPrice, UnitCost: ln.UnitCost, Subtotal: ln.Subtotal,
		})
	}
	return l, nil
}

// GetForUpdate equivale a GetByID: la transacción ya es exclusiva (BEGIN IMMEDIATE).
func (r *LayawayRepo) GetForUpdate(ctx context.Context, id string) (*entity.Layaway, error) {
	return r.GetByID(ctx, id)
}

func (r *LayawayRepo) Save(ctx context.Context, l *entity.Layaway, expectedStatus string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE layaways SET status = ?, paid = ?, balance = ?, sale_id = ?, updated_at = ?, closed_at = ?
		WHERE id = ? AND status = ?`,
		l.Status, l.Paid, l.Balance, nullString(l.SaleID), l.UpdatedAt.UTC(), nullTime(l.ClosedAt), l.ID, expectedStatus)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: apartado %s ya no está en %q", domain.ErrInvalidStateTransition, l.ID, expectedStatus)
	}
	return nil
}

func (r *LayawayRepo) AddPayment(ctx context.Context, p *entity.LayawayPayment) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO layaway_payments (id, layaway_id, amount, user_id, notes, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.LayawayID, p.Amount, p.UserID, p.Notes, p.CreatedAt.UTC())
	return mapError(err)
}

func (r *LayawayRepo) ListPayments(ctx context.Context, layawayID string) ([]*entity.LayawayPayment, error) {
	var rows []struct {
		ID        string          `db:"id"`
		LayawayID string          `db:"layaway_id"`
		Amount    decimal.Decimal `db:"amount"`
		UserID    string          `db:"user_id"`
		Notes     string          `db:"notes"`
		CreatedAt time.Time       `db:"created_at"`
	}
	err := sqlx.SelectContext(ctx, r.q, &rows, `
		SELECT id, layaway_id, amount, user_id, notes, created_at FROM layaway_payments
		WHERE layaway_id = ? ORDER BY created_at, rowid`, layawayID)
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]*entity.LayawayPayment, 0, len(rows))
	for _, row := range rows {
		out = append(out, &entity.LayawayPayment{
			ID: row.ID, LayawayID: row.LayawayID, Amount: row.Amount, UserID: row.UserID, Notes: row.Notes, CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (r *LayawayRepo) List(ctx context.Context, f repository.LayawayFilter) ([]*entity.Layaway, error) {
	query := `SELECT ` + layawayColumns + ` FROM layaways WHERE 1=1`
	var args []any
	if f.BranchID != "" {
		query += ` AND branch_id = ?`
		args = append(args, f.BranchID)
	}
	if f.CustomerID != "" {
		query += ` AND customer_id = ?`
		args = append(args, f.CustomerID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	limit, offset := page(f.Limit, f.Offset)
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var rows []layawayRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, mapError(err)
	}
	out := make([]*entity.Layaway, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entity())
	}
	return out, nil
}
