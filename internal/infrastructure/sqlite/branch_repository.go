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

// BranchRepo implementa repository.BranchRepository.
type BranchRepo struct {
	q sqlx.ExtContext
}

var _ repository.BranchRepository = (*BranchRepo)(nil)

type branchRow struct {
	ID        string          `db:"id"`
	Name      string          `db:"name"`
	Address   string          `db:"address"`
	TaxRate   decimal.Decimal `db:"tax_rate"`
	Active    bool            `db:"active"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func (r branchRow) entity() *entity.Branch {
	return &entity.Branch{
		ID:        r.ID,
		Name:      r.Name,
		Address:   r.Address,
		TaxRate:   r.TaxRate,
		Active:    r.Active,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (r *BranchRepo) Create(ctx context.Context, b *entity.Branch) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO branches (id, name, address, tax_rate, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Address, b.TaxRate, b.Active, b.CreatedAt.UTC(), b.UpdatedAt.UTC())
	return mapError(err)
}

func (r *BranchRepo) GetByID(ctx context.Context, id string) (*entity.Branch, error) {
	var row branchRow
	err := sqlx.GetContext(ctx, r.q, &row, `
		SELECT id, name, address, tax_rate, active, created_at, updated_at FROM branches WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return row.entity(), nil
}

func (r *BranchRepo) Update(ctx context.Context, b *entity.Branch) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE branches SET name = ?, address = ?, tax_rate = ?, updated_at = ? WHERE id = ?`,
		b.Name, b.Address, b.TaxRate, b.UpdatedAt.UTC(), b.ID)
	return mapError(err)
}

func (r *BranchRepo) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.q.ExecContext(ctx, `UPDATE branches SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id)
	return mapError(err)
}

func (r *BranchRepo) List(ctx context.Context, includeInactive bool) ([]*entity.Branch, error) {
	query := `SELECT id, name, address, tax_rate, active, created_at, updated_at FROM branches`
	if !includeInactive {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name`
	var rows []branchRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query); err != nil {
		return nil, mapError(err)
	}
	out := make([]*entity.Branch, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entity())
	}
	return out, nil
}
