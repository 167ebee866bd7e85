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

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación del puerto StockRepository sobre branch_stock.
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock por sucursal. Pasar pool o tx.
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

const stockColumns = `product_id, branch_id, stock, reserved, min_stock, max_stock, updated_at`

func scanStock(row rowScanner, extra ...any) (*entity.BranchStock, error) {
	var s entity.BranchStock
	dest := append([]any{&s.ProductID, &s.BranchID, &s.Stock, &s.Reserved, &s.MinStock, &s.MaxStock, &s.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

func (r *StockRepo) get(ctx context.Context, suffix, productID, branchID string) (*entity.BranchStock, error) {
	s, err := scanStock(r.q.QueryRow(ctx,
		`SELECT `+stockColumns+` FROM branch_stock WHERE product_id = $1 AND branch_id = $2`+suffix, productID, branchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock: %w", mapError(err))
	}
	return s, nil
}

// Get obtiene el stock sin bloquear.
func (r *StockRepo) Get(ctx context.Context, productID, branchID string) (*entity.BranchStock, error) {
	return r.get(ctx, "", productID, branchID)
}

// GetForUpdate bloquea la fila (SELECT ... FOR UPDATE) hasta el fin de la transacción.
func (r *StockRepo) GetForUpdate(ctx context.Context, productID, branchID string) (*entity.BranchStock, error) {
	return r.get(ctx, " FOR UPDATE", productID, branchID)
}

// Insert da de alta la fila. Si otra transacción la insertó primero devuelve ErrContention:
// la operación se puede reintentar y encontrará la fila ya creada.
func (r *StockRepo) Insert(ctx context.Context, s *entity.BranchStock) error {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO branch_stock (`+stockColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (product_id, branch_id) DO NOTHING`,
		s.ProductID, s.BranchID, s.Stock, s.Reserved, s.MinStock, s.MaxStock, s.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert stock: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: alta concurrente de %s", domain.ErrContention, s.Key())
	}
	return nil
}

func (r *StockRepo) Update(ctx context.Context, s *entity.BranchStock) error {
	_, err := r.q.Exec(ctx, `
		UPDATE branch_stock SET stock = $1, reserved = $2, min_stock = $3, max_stock = $4, updated_at = $5
		WHERE product_id = $6 AND branch_id = $7`,
		s.Stock, s.Reserved, s.MinStock, s.MaxStock, s.UpdatedAt.UTC(), s.ProductID, s.BranchID)
	if err != nil {
		return fmt.Errorf("update stock: %w", mapError(err))
	}
	return nil
}

func (r *StockRepo) ListByBranch(ctx context.Context, branchID string, limit, offset int) ([]*entity.BranchStock, error) {
	args := params{branchID}
	rows, err := r.q.Query(ctx, `SELECT `+stockColumns+` FROM branch_stock WHERE branch_id = $1
		ORDER BY product_id`+args.page(limit, offset), args...)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", mapError(err))
	}
	defer rows.Close()
	var out []*entity.BranchStock
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListBelowMinimum devuelve productos activos con mínimo configurado y disponible <= mínimo.
func (r *StockRepo) ListBelowMinimum(ctx context.Context, branchID string) ([]repository.LowStockItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT s.product_id, s.branch_id, s.stock, s.reserved, s.min_stock, s.max_stock, s.updated_at,
		       p.sku, p.name, p.cost
		FROM branch_stock s
		JOIN products p ON p.id = s.product_id
		WHERE s.branch_id = $1 AND p.active AND s.min_stock > 0 AND (s.stock - s.reserved) <= s.min_stock
		ORDER BY p.name`, branchID)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", mapError(err))
	}
	defer rows.Close()
	var out []repository.LowStockItem
	for rows.Next() {
		var item repository.LowStockItem
		s, err := scanStock(rows, &item.SKU, &item.Name, &item.Cost)
		if err != nil {
			return nil, err
		}
		item.Stock = *s
		out = append(out, item)
	}
	return out, rows.Err()
}
