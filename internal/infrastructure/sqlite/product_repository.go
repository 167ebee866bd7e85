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

// ProductRepo implementa repository.ProductRepository.
type ProductRepo struct {
	q sqlx.ExtContext
}

var _ repository.ProductRepository = (*ProductRepo)(nil)

type productRow struct {
	ID          string          `db:"id"`
	SKU         string          `db:"sku"`
	Barcode     sql.NullString  `db:"barcode"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	Price       decimal.Decimal `db:"price"`
	Cost        decimal.Decimal `db:"cost"`
	Unit        string          `db:"unit"`
	SearchKey   string          `db:"search_key"`
	Active      bool            `db:"active"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (r productRow) entity() *entity.Product {
	return &entity.Product{
		ID:          r.ID,
		SKU:         r.SKU,
		Barcode:     r.Barcode.String,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Cost:        r.Cost,
		Unit:        r.Unit,
		SearchKey:   r.SearchKey,
		Active:      r.Active,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

const productColumns = `id, sku, barcode, name, description, price, cost, unit, search_key, active, created_at, updated_at`

func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SKU, nullString(p.Barcode), p.Name, p.Description, p.Price, p.Cost, p.Unit, p.SearchKey,
		p.Active, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	return mapError(err)
}

func (r *ProductRepo) get(ctx context.Context, where string, arg any) (*entity.Product, error) {
	var row productRow
	err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+productColumns+` FROM products WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return row.entity(), nil
}

func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	return r.get(ctx, `id = ?`, id)
}

func (r *ProductRepo) GetByCode(ctx context.Context, code string) (*entity.Product, error) {
	p, err := r.get(ctx, `sku = ?`, code)
	if err != nil || p != nil {
		return p, err
	}
	return r.get(ctx, `barcode = ?`, code)
}

func (r *ProductRepo) Update(ctx context.Context, p *entity.Product) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE products SET barcode = ?, name = ?, description = ?, price = ?, unit = ?, search_key = ?, updated_at = ?
		WHERE id = ?`,
		nullString(p.Barcode), p.Name, p.Description, p.Price, p.Unit, p.SearchKey, p.UpdatedAt.UTC(), p.ID)
	return mapError(err)
}

func (r *ProductRepo) UpdateCost(ctx context.Context, productID string, cost decimal.Decimal) error {
	_, err := r.q.ExecContext(ctx, `UPDATE products SET cost = ?, updated_at = ? WHERE id = ?`,
		cost, time.Now().UTC(), productID)
	return mapError(err)
}

func (r *ProductRepo) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.q.ExecContext(ctx, `UPDATE products SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id)
	return mapError(err)
}

func (r *ProductRepo) List(ctx context.Context, f repository.ProductFilter) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	var args []any
	if !f.IncludeInactive {
		query += ` AND active = 1`
	}
	if f.Search != "" {
		query += ` AND (search_key LIKE ? ESCAPE '\' OR sku = ? OR barcode = ?)`
		args = append(args, likePattern(f.Search), f.Search, f.Search)
	}
	limit, offset := page(f.Limit, f.Offset)
	query += ` ORDER BY name, sku LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var rows []productRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, mapError(err)
	}
	out := make([]*entity.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entity())
	}
	return out, nil
}
