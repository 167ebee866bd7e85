package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

var _ repository.BranchRepository = (*BranchRepo)(nil)

// BranchRepo implementación del puerto BranchRepository.
type BranchRepo struct {
	q Querier
}

func NewBranchRepository(q Querier) *BranchRepo {
	return &BranchRepo{q: q}
}

const branchColumns = `id, name, address, tax_rate, active, created_at, updated_at`

func scanBranch(row rowScanner) (*entity.Branch, error) {
	var b entity.Branch
	if err := row.Scan(&b.ID, &b.Name, &b.Address, &b.TaxRate, &b.Active, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

func (r *BranchRepo) Create(ctx context.Context, b *entity.Branch) error {
	_, err := r.q.Exec(ctx, `INSERT INTO branches (`+branchColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.Name, b.Address, b.TaxRate, b.Active, b.CreatedAt.UTC(), b.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert branch: %w", mapError(err))
	}
	return nil
}

func (r *BranchRepo) GetByID(ctx context.Context, id string) (*entity.Branch, error) {
	b, err := scanBranch(r.q.QueryRow(ctx, `SELECT `+branchColumns+` FROM branches WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get branch: %w", mapError(err))
	}
	return b, nil
}

func (r *BranchRepo) Update(ctx context.Context, b *entity.Branch) error {
	_, err := r.q.Exec(ctx, `UPDATE branches SET name = $1, address = $2, tax_rate = $3, updated_at = $4 WHERE id = $5`,
		b.Name, b.Address, b.TaxRate, b.UpdatedAt.UTC(), b.ID)
	return mapError(err)
}

func (r *BranchRepo) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.q.Exec(ctx, `UPDATE branches SET active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now().UTC(), id)
	return mapError(err)
}

func (r *BranchRepo) List(ctx context.Context, includeInactive bool) ([]*entity.Branch, error) {
	query := `SELECT ` + branchColumns + ` FROM branches`
	if !includeInactive {
		query += ` WHERE active`
	}
	rows, err := r.q.Query(ctx, query+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", mapError(err))
	}
	defer rows.Close()
	var out []*entity.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
