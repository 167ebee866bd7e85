package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// CustomerRepo implementa repository.CustomerRepository.
type CustomerRepo struct {
	q sqlx.ExtContext
}

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

type customerRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Phone     string    `db:"phone"`
	Email     string    `db:"email"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r customerRow) entity() *entity.Customer {
	return &entity.Customer{
		ID: r.ID, Name: r.Name, Phone: r.Phone, Email: r.Email, Active: r.Active,
		CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (r *CustomerRepo) Create(ctx context.Context, c *entity.Customer) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, email, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Phone, c.Email, c.Active, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	return mapError(err)
}

func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	var row customerRow
	err := sqlx.GetContext(ctx, r.q, &row, `
		SELECT id, name, phone, email, active, created_at, updated_at FROM customers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return row.entity(), nil
}

func (r *CustomerRepo) Update(ctx context.Context, c *entity.Customer) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE customers SET name = ?, phone = ?, email = ?, active = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Phone, c.Email, c.Active, c.UpdatedAt.UTC(), c.ID)
	return mapError(err)
}

func (r *CustomerRepo) List(ctx context.Context, search string, limit, offset int) ([]*entity.Customer, error) {
	query := `SELECT id, name, phone, email, active, created_at, updated_at FROM customers`
	var args []any
	if search != "" {
		query += ` WHERE name LIKE ? ESCAPE '\' OR phone = ? OR email = ?`
		args = append(args, likePattern(search), search, search)
	}
	limit, offset = page(limit, offset)
	query += ` ORDER BY name LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var rows []customerRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, mapError(err)
	}
	out := make([]*entity.Customer, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entity())
	}
	return out, nil
}
