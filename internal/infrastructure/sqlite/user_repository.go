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

// UserRepo implementa repository.UserRepository.
type UserRepo struct {
	q sqlx.ExtContext
}

var _ repository.UserRepository = (*UserRepo)(nil)

type userRow struct {
	ID           string         `db:"id"`
	Username     string         `db:"username"`
	PasswordHash string         `db:"password_hash"`
	Name         string         `db:"name"`
	Role         string         `db:"role"`
	BranchID     sql.NullString `db:"branch_id"`
	Active       bool           `db:"active"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r userRow) entity() *entity.User {
	return &entity.User{
		ID: r.ID, Username: r.Username, PasswordHash: r.PasswordHash, Name: r.Name, Role: r.Role,
		BranchID: r.BranchID.String, Active: r.Active, CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC(),
	}
}

const userColumns = `id, username, password_hash, name, role, branch_id, active, created_at, updated_at`

func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.Name, u.Role, nullString(u.BranchID), u.Active, u.CreatedAt.UTC(), u.UpdatedAt.UTC())
	return mapError(err)
}

func (r *UserRepo) get(ctx context.Context, where string, arg any) (*entity.User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return row.entity(), nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.get(ctx, `id = ?`, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.get(ctx, `username = ?`, username)
}

func (r *UserRepo) List(ctx context.Context, branchID string, limit, offset int) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if branchID != "" {
		query += ` WHERE branch_id = ?`
		args = append(args, branchID)
	}
	limit, offset = page(limit, offset)
	query += ` ORDER BY username LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	var rows []userRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, mapError(err)
	}
	out := make([]*entity.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entity())
	}
	return out, nil
}
