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

// StockRepo implementa repository.StockRepository.
type StockRepo struct {
	q sqlx.ExtContext
}

var _ repository.StockRepository = (*StockRepo)(nil)

type stockRow struct {
	ProductID string    `db:"product_id"`
	BranchID  string    `db:"branch_id"`
	Stock     int64     `db:"stock"`
	Reserved  int64     `db:"reserved"`
	MinStock  int64     `db:"min_stock"`
	MaxStock  int64     `db:"max_stock"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r stockRow) entity() *entity.BranchStock {
	return &entity.BranchStock{
		ProductID: r.ProductID,
		BranchID:  r.BranchID,
		Stock:     r.Stock,
		Reserved:  r.Reserved,
		MinStock:  r.MinStock,
		MaxStock:  r.MaxStock,
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

const stockColumns = `product_id, branch_id, stock, reserved, min_stock, max_stock, updated_at`

func (r *StockRepo) Get(ctx context.Context, productID, branchID string) (*entity.BranchStock, error) {
	var row stockRow
	err := sqlx.GetContext(ctx, r.q, &row,
		`SELECT `+stockColumns+` FROM branch_stock WHERE product_id = ? AND branch_id = ?`, productID, branchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return row.entity(), nil
}

// GetForUpdate en SQLite equivale a Get: la transacción ya tiene el bloqueo de escritura (BEGIN IMMEDIATE).
func (r *StockRepo) GetForUpdate(ctx context.Context, productID, branchID string) (*entity.BranchStock, error) {
	return r.Get(ctx, productID, branchID)
}

func (r *StockRepo) Insert(ctx context.Context, s *entity.BranchStock) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO branch_stock (`+stockColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ProductID, s.BranchID, s.Stock, s.Reserved, s.MinStock, s.MaxStock, s.UpdatedAt.UTC())
	return mapError(err)
}

func (r *StockRepo) Update(ctx context.Context, s *entity.BranchStock) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE branch_stock SET stock = ?, reserved = ?, min_stock = ?, max_stock = ?, updated_at = ?
		WHERE product_id = ? AND branch_id = ?`,
		s.Stock, s.Reserved, s.MinStock, s.MaxStock, s.UpdatedAt.UTC(), s.ProductID, s.BranchID)
	return mapError(err)
}

func (r *StockRepo) ListByBranch(ctx context.Context, branchID string, limit, offset int) ([]*entity.BranchStock, error) {
	limit, offset = page(limit, offset)
	var rows []stockRow
	err := sqlx.SelectContext(ctx, r.q, &rows, `
		SELECT `+stockColumns+` FROM branch_stock WHERE branch_id = ?
		ORDER BY product_id LIMIT ? OFFSET ?`, branchID, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]*entity.BranchStock, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entity())
	}
	return out, nil
}

func (r *StockRepo) ListBelowMinimum(ctx context.Context, branchID string) ([]repository.LowStockItem, error) {
	type lowRow struct {
		stockRow
		SKU  string          `db:"sku"`
		Name string          `db:"name"`
		Cost decimal.Decimal `db:"cost"`
	}
	var rows []lowRow
	err := sqlx.SelectContext(ctx, r.q, &rows, `
		SELECT s.product_id, s.branch_id, s.stock, s.reserved, s.min_stock, s.max_stock, s.updated_at,
		       p.sku, p.name, p.cost
		FROM branch_stock s
		JOIN products p ON p.id = s.product_id
		WHERE s.branch_id = ? AND p.active = 1 AND s.min_stock > 0 AND (s.stock - s.reserved) <= s.min_stock
		ORDER BY p.name`, branchID)
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]repository.LowStockItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, repository.LowStockItem{Stock: *row.stockRow.entity(), SKU: row.SKU, Name: row.Name, Cost: row.Cost})
	}
	return out, nil
}
