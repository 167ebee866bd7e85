package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

var _ repository.InventoryLogRepository = (*InventoryLogRepo)(nil)

// InventoryLogRepo implementación del registro de auditoría. Solo inserta; un trigger rechaza UPDATE/DELETE.
type InventoryLogRepo struct {
	q Querier
}

func NewInventoryLogRepository(q Querier) *InventoryLogRepo {
	return &InventoryLogRepo{q: q}
}

func (r *InventoryLogRepo) Append(ctx context.Context, e *entity.InventoryLogEntry) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO inventory_log (id, product_id, branch_id, delta, reason, actor, ref_type, ref_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.ProductID, e.BranchID, e.Delta, e.Reason, e.Actor, e.RefType, e.RefID, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert inventory log: %w", mapError(err))
	}
	return nil
}

func (r *InventoryLogRepo) List(ctx context.Context, f repository.InventoryLogFilter) ([]*entity.InventoryLogEntry, error) {
	var args params
	query := `SELECT id, product_id, branch_id, delta, reason, actor, ref_type, ref_id, created_at FROM inventory_log WHERE TRUE`
	if f.ProductID != "" {
		query += ` AND product_id = ` + args.add(f.ProductID)
	}
	if f.BranchID != "" {
		query += ` AND branch_id = ` + args.add(f.BranchID)
	}
	if f.Reason != "" {
		query += ` AND reason = ` + args.add(f.Reason)
	}
	if f.From != nil {
		query += ` AND created_at >= ` + args.add(f.From.UTC())
	}
	if f.To != nil {
		query += ` AND created_at < ` + args.add(f.To.UTC())
	}
	query += ` ORDER BY created_at DESC, seq DESC` + args.page(f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory log: %w", mapError(err))
	}
	defer rows.Close()
	var out []*entity.InventoryLogEntry
	for rows.Next() {
		var e entity.InventoryLogEntry
		if err := rows.Scan(&e.ID, &e.ProductID, &e.BranchID, &e.Delta, &e.Reason, &e.Actor,
			&e.RefType, &e.RefID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *InventoryLogRepo) SumDelta(ctx context.Context, productID, branchID string) (int64, int, error) {
	var sum int64
	var count int
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(delta), 0)::BIGINT, COUNT(*)
		FROM inventory_log WHERE product_id = $1 AND branch_id = $2`, productID, branchID).Scan(&sum, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("sum inventory log: %w", mapError(err))
	}
	return sum, count, nil
}
