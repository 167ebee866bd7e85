package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// InventoryLogRepo implementa repository.InventoryLogRepository. Solo inserta.
type InventoryLogRepo struct {
	q sqlx.ExtContext
}

var _ repository.InventoryLogRepository = (*InventoryLogRepo)(nil)

type logRow struct {
	ID        string    `db:"id"`
	ProductID string    `db:"product_id"`
	BranchID  string    `db:"branch_id"`
	Delta     int64     `db:"delta"`
	Reason    string    `db:"reason"`
	Actor     string    `db:"actor"`
	RefType   string    `db:"ref_type"`
	RefID     string    `db:"ref_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *InventoryLogRepo) Append(ctx context.Context, e *entity.InventoryLogEntry) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO inventory_log (id, product_id, branch_id, delta, reason, actor, ref_type, ref_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ProductID, e.BranchID, e.Delta, e.Reason, e.Actor, e.RefType, e.RefID, e.CreatedAt.UTC())
	return mapError(err)
}

func (r *InventoryLogRepo) List(ctx context.Context, f repository.InventoryLogFilter) ([]*entity.InventoryLogEntry, error) {
	query := `SELECT id, product_id, branch_id, delta, reason, actor, ref_type, ref_id, created_at FROM inventory_log WHERE 1=1`
	var args []any
	if f.ProductID != "" {
		query += ` AND product_id = ?`
		args = append(args, f.ProductID)
	}
	if f.BranchID != "" {
		query += ` AND branch_id = ?`
		args = append(args, f.BranchID)
	}
	if f.Reason != "" {
		query += ` AND reason = ?`
		args = append(args, f.Reason)
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
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var rows []logRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, mapError(err)
	}
	out := make([]*entity.InventoryLogEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, &entity.InventoryLogEntry{
			ID: row.ID, ProductID: row.ProductID, BranchID: row.BranchID, Delta: row.Delta, Reason: row.Reason,
			Actor: row.Actor, RefType: row.RefType, RefID: row.RefID, CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (r *InventoryLogRepo) SumDelta(ctx context.Context, productID, branchID string) (int64, int, error) {
	var res struct {
		Sum   int64 `db:"total"`
		Count int   `db:"entries"`
	}
	err := sqlx.GetContext(ctx, r.q, &res, `
		SELECT COALESCE(SUM(delta), 0) AS total, COUNT(*) AS entries
		FROM inventory_log WHERE product_id = ? AND branch_id = ?`, productID, branchID)
	if err != nil {
		return 0, 0, mapError(err)
	}
	return res.Sum, res.Count, nil
}
