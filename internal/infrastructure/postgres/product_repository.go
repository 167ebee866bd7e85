package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const productColumns = `id, sku, barcode, name, description, price, cost, unit, search_key, active, created_at, updated_at`

func scanProduct(row rowScanner) (*entity.Product, error) {
	var p entity.Product
	var barcode *string
	err := row.Scan(&p.ID, &p.SKU, &barcode, &p.Name, &p.Description, &p.Price, &p.Cost, &p.Unit,
		&p.SearchKey, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Barcode = deref(barcode)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

// Create persiste un nuevo producto.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.SKU, nullString(p.Barcode), p.Name, p.Description, p.Price, p.Cost, p.Unit, p.SearchKey,
		p.Active, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert product: %w", mapError(err))
	}
	return nil
}

func (r *ProductRepo) get(ctx context.Context, where string, arg any) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", mapError(err))
	}
	return p, nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	return r.get(ctx, `id = $1`, id)
}

// GetByCode busca primero por SKU y luego por código de barras.
func (r *ProductRepo) GetByCode(ctx context.Context, code string) (*entity.Product, error) {
	p, err := r.get(ctx, `sku = $1`, code)
	if err != nil || p != nil {
		return p, err
	}
	return r.get(ctx, `barcode = $1`, code)
}

// Update actualiza los datos editables. SKU y costo no cambian aquí.
func (r *ProductRepo) Update(ctx context.Context, p *entity.Product) error {
	_, err := r.q.Exec(ctx, `
		UPDATE products SET barcode = $1, name = $2, description = $3, price = $4, unit = $5, search_key = $6, updated_at = $7
		WHERE id = $8`,
		nullString(p.Barcode), p.Name, p.Description, p.Price, p.Unit, p.SearchKey, p.UpdatedAt.UTC(), p.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", mapError(err))
	}
	return nil
}

// UpdateCost actualiza el costo promedio ponderado.
func (r *ProductRepo) UpdateCost(ctx context.Context, productID string, cost decimal.Decimal) error {
	_, err := r.q.Exec(ctx, `UPDATE products SET cost = $1, updated_at = $2 WHERE id = $3`,
		cost, time.Now().UTC(), productID)
	if err != nil {
		return fmt.Errorf("update product cost: %w", mapError(err))
	}
	return nil
}

func (r *ProductRepo) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.q.Exec(ctx, `UPDATE products SET active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now().UTC(), id)
	return mapError(err)
}

// List filtra por texto normalizado, SKU o código de barras exactos.
func (r *ProductRepo) List(ctx context.Context, f repository.ProductFilter) ([]*entity.Product, error) {
	var args params
	query := `SELECT ` + productColumns + ` FROM products WHERE TRUE`
	if !f.IncludeInactive {
		query += ` AND active`
	}
	if f.Search != "" {
		like := args.add("%" + escapeLike(f.Search) + "%")
		exact := args.add(f.Search)
		query += ` AND (search_key LIKE ` + like + ` OR sku = ` + exact + ` OR barcode = ` + exact + `)`
	}
	query += ` ORDER BY name, sku` + args.page(f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", mapError(err))
	}
	defer rows.Close()
	var out []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
