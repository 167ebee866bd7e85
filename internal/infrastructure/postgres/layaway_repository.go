package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

var _ repository.LayawayRepository = (*LayawayRepo)(nil)

// LayawayRepo implementación del puerto LayawayRepository.
type LayawayRepo struct {
	q Querier
}

func NewLayawayRepository(q Querier) *LayawayRepo {
	return &LayawayRepo{q: q}
}

const layawayColumns = `id, branch_id, customer_id, status, subtotal, discount, tax_rate, tax, total, paid, balance,
	due_date, notes, created_by, sale_id, created_at, updated_at, closed_at`

func scanLayaway(row rowScanner) (*entity.Layaway, error) {
	var l entity.Layaway
	var saleID *string
	err := row.Scan(&l.ID, &l.BranchID, &l.CustomerID, &l.Status, &l.Subtotal, &l.Discount, &l.TaxRate, &l.Tax,
		&l.Total, &l.Paid, &l.Balance, &l.DueDate, &l.Notes, &l.CreatedBy, &saleID, &l.CreatedAt, &l.UpdatedAt, &l.ClosedAt)
	if err != nil {
		return nil, err
	}
	l.SaleID = deref(saleID)
	l.DueDate = utcPtr(l.DueDate)
	l.ClosedAt = utcPtr(l.ClosedAt)
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	return &l, nil
}

func (r *LayawayRepo) Create(ctx context.Context, l *entity.Layaway) error {
	_, err := r.q.Exec(ctx, `INSERT INTO layaways (`+layawayColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		l.ID, l.BranchID, l.CustomerID, l.Status, l.Subtotal, l.Discount, l.TaxRate, l.Tax, l.Total, l.Paid, l.Balance,
		nullTime(l.DueDate), l.Notes, l.CreatedBy, nullString(l.SaleID), l.CreatedAt.UTC(), l.UpdatedAt.UTC(), nullTime(l.ClosedAt))
	if err != nil {
		return fmt.Errorf("insert layaway: %w", mapError(err))
	}
	batch := &pgx.Batch{}
	for _, it := range l.Items {
		batch.Queue(`
			INSERT INTO layaway_items (id, layaway_id, line, product_id, quantity, unit_price, unit_cost, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			it.ID, l.ID, it.Line, it.ProductID, it.Quantity, it.UnitPrice, it.UnitCost, it.Subtotal)
	}
	return execBatch(ctx, r.q, batch, "insert layaway item")
}

func (r *LayawayRepo) get(ctx context.Context, id, suffix string) (*entity.Layaway, error) {
	l, err := scanLayaway(r.q.QueryRow(ctx, `SELECT `+layawayColumns+` FROM layaways WHERE id = $1`+suffix, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get layaway: %w", mapError(err))
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, layaway_id, line, product_id, quantity, unit_price, unit_cost, subtotal
		FROM layaway_items WHERE layaway_id = $1 ORDER BY line`, id)
	if err != nil {
		return nil, fmt.Errorf("get layaway items: %w", mapError(err))
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.LayawayItem
		if err := rows.Scan(&it.ID, &it.LayawayID, &it.Line, &it.ProductID, &it.Quantity,
			&it.UnitPrice, &it.UnitCost, &it.Subtotal); err != nil {
			return nil, err
		}
		l.Items = append(l.Items, it)
	}
	return l, rows.Err()
}

func (r *LayawayRepo) GetByID(ctx context.Context, id string) (*entity.Layaway, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate bloquea la cabecera: dos liquidaciones o cancelaciones del mismo apartado se serializan.
func (r *LayawayRepo) GetForUpdate(ctx context.Context, id string) (*entity.Layaway, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *LayawayRepo) Save(ctx context.Context, l *entity.Layaway, expectedStatus string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE layaways SET status = $1, paid = $2, balance = $3, sale_id = $4, updated_at = $5, closed_at = $6
		WHERE id = $7 AND status = $8`,
		l.Status, l.Paid, l.Balance, nullString(l.SaleID), l.UpdatedAt.UTC(), nullTime(l.ClosedAt), l.ID, expectedStatus)
	if err != nil {
		return fmt.Errorf("update layaway: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: apartado %s ya no está en %q", domain.ErrInvalidStateTransition, l.ID, expectedStatus)
	}
	return nil
}

func (r *LayawayRepo) AddPayment(ctx context.Context, p *entity.LayawayPayment) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO layaway_payments (id, layaway_id, amount, user_id, notes, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.LayawayID, p.Amount, p.UserID, p.Notes, p.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert layaway payment: %w", mapError(err))
	}
	return nil
}

func (r *LayawayRepo) ListPayments(ctx context.Context, layawayID string) ([]*entity.LayawayPayment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, layaway_id, amount, user_id, notes, created_at FROM layaway_payments
		WHERE layaway_id = $1 ORDER BY created_at, seq`, layawayID)
	if err != nil {
		return nil, fmt.Errorf("list layaway payments: %w", mapError(err))
	}
	defer rows.Close()
	var out []*entity.LayawayPayment
	for rows.Next() {
		var p entity.LayawayPayment
		if err := rows.Scan(&p.ID, &p.LayawayID, &p.Amount, &p.UserID, &p.Notes, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *LayawayRepo) List(ctx context.Context, f repository.LayawayFilter) ([]*entity.Layaway, error) {
	var args params
	query := `SELECT ` + layawayColumns + ` FROM layaways WHERE TRUE`
	if f.BranchID != "" {
		query += ` AND branch_id = ` + args.add(f.BranchID)
	}
	if f.CustomerID != "" {
		query += ` AND customer_id = ` + args.add(f.CustomerID)
	}
	if f.Status != "" {
		query += ` AND status = ` + args.add(f.Status)
	}
	query += ` ORDER BY created_at DESC, id` + args.page(f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list layaways: %w", mapError(err))
	}
	defer rows.Close()
	var out []*entity.Layaway
	for rows.Next() {
		l, err := scanLayaway(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
