package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo implementación del puerto SaleRepository. Las ventas son de solo inserción.
type SaleRepo struct {
	q Querier
}

func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

const saleColumns = `id, branch_id, customer_id, user_id, layaway_id, subtotal, discount, tax_rate, tax, total,
	payment_method, payment_reference, amount_tendered, change_due, created_at`

func scanSale(row rowScanner) (*entity.Sale, error) {
	var s entity.Sale
	var customerID, layawayID *string
	err := row.Scan(&s.ID, &s.BranchID, &customerID, &s.UserID, &layawayID, &s.Subtotal, &s.Discount, &s.TaxRate,
		&s.Tax, &s.Total, &s.PaymentMethod, &s.PaymentReference, &s.AmountTendered, &s.Change, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.CustomerID = deref(customerID)
	s.LayawayID = deref(layawayID)
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

// Create inserta cabecera y líneas; las líneas van en un solo batch.
func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	_, err := r.q.Exec(ctx, `INSERT INTO sales (`+saleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		s.ID, s.BranchID, nullString(s.CustomerID), s.UserID, nullString(s.LayawayID),
		s.Subtotal, s.Discount, s.TaxRate, s.Tax, s.Total,
		s.PaymentMethod, s.PaymentReference, s.AmountTendered, s.Change, s.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert sale: %w", mapError(err))
	}

	batch := &pgx.Batch{}
	for _, it := range s.Items {
		batch.Queue(`
			INSERT INTO sale_items (id, sale_id, line, product_id, quantity, unit_price, unit_cost, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			it.ID, s.ID, it.Line, it.ProductID, it.Quantity, it.UnitPrice, it.UnitCost, it.Subtotal)
	}
	return execBatch(ctx, r.q, batch, "insert sale item")
}

func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	sale, err := scanSale(r.q.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", mapError(err))
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, sale_id, line, product_id, quantity, unit_price, unit_cost, subtotal
		FROM sale_items WHERE sale_id = $1 ORDER BY line`, id)
	if err != nil {
		return nil, fmt.Errorf("get sale items: %w", mapError(err))
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.Line, &it.ProductID, &it.Quantity,
			&it.UnitPrice, &it.UnitCost, &it.Subtotal); err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, it)
	}
	return sale, rows.Err()
}

// List devuelve cabeceras, más recientes primero.
func (r *SaleRepo) List(ctx context.Context, f repository.SaleFilter) ([]*entity.Sale, error) {
	var args params
	query := `SELECT ` + saleColumns + ` FROM sales WHERE TRUE`
	if f.BranchID != "" {
		query += ` AND branch_id = ` + args.add(f.BranchID)
	}
	if f.CustomerID != "" {
		query += ` AND customer_id = ` + args.add(f.CustomerID)
	}
	if f.From != nil {
		query += ` AND created_at >= ` + args.add(f.From.UTC())
	}
	if f.To != nil {
		query += ` AND created_at < ` + args.add(f.To.UTC())
	}
	query += ` ORDER BY created_at DESC, id` + args.page(f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", mapError(err))
	}
	defer rows.Close()
	var out []*entity.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// execBatch envía el batch y revisa el resultado de cada sentencia.
func execBatch(ctx context.Context, q Querier, batch *pgx.Batch, op string) error {
	if batch.Len() == 0 {
		return nil
	}
	br := q.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("%s: %w", op, mapError(err))
		}
	}
	return br.Close()
}
