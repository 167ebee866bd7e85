// Package postgres implementa los repositorios sobre PostgreSQL (pgx v5).
//
// El bloqueo de filas usa SELECT ... FOR UPDATE dentro de la transacción; el
// lock_timeout de cada transacción convierte una espera larga en
// domain.ErrContention sin haber escrito nada.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

//go:embed schema.sql
var schemaSQL string

// Versiones del esquema:
// 1 - esquema inicial
const currentSchemaVersion = 1

// Clave del advisory lock que serializa migraciones concurrentes.
const migrationLockKey = 7_340_211

// Querier lo cumplen *pgxpool.Pool y pgx.Tx; los repositorios funcionan sobre cualquiera de los dos.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store es el almacén PostgreSQL. Implementa inventory.TxRunner.
type Store struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewStore envuelve un pool ya abierto (ver NewPool). lockTimeout <= 0 deja el valor del servidor.
func NewStore(pool *pgxpool.Pool, lockTimeout time.Duration) *Store {
	return &Store{pool: pool, lockTimeout: lockTimeout}
}

// Migrate aplica el esquema embebido y registra la versión en schema_migrations. Es idempotente.
func (s *Store) Migrate(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockKey); err != nil {
		return fmt.Errorf("migration lock: %w", err)
	}
	// Sin argumentos pgx usa el protocolo simple, que admite varias sentencias.
	if _, err := tx.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`,
		currentSchemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

// SchemaVersion devuelve la versión más alta aplicada (0 si no hay ninguna).
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v)
	return v, err
}

// Ping verifica la conexión.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Repositories devuelve repositorios sobre el pool, fuera de transacción.
func (s *Store) Repositories() repository.Repositories { return newRepositories(s.pool) }

// Users devuelve el repositorio de usuarios sobre el pool.
func (s *Store) Users() repository.UserRepository { return NewUserRepository(s.pool) }

// Reports devuelve el repositorio de reportes sobre el pool.
func (s *Store) Reports() repository.ReportRepository { return NewReportRepository(s.pool) }

// Run ejecuta fn dentro de una transacción READ COMMITTED. Rollback si fn falla;
// tras el commit ejecuta los hooks registrados con tx.AfterCommit.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, tx *repository.Tx) error) error {
	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", mapError(err))
	}
	defer func() { _ = pgTx.Rollback(ctx) }()

	if s.lockTimeout > 0 {
		if _, err := pgTx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", s.lockTimeout.Milliseconds())); err != nil {
			return fmt.Errorf("set lock_timeout: %w", mapError(err))
		}
	}

	tx := repository.NewTx(newRepositories(pgTx))
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", mapError(err))
	}
	tx.Committed()
	return nil
}

func newRepositories(q Querier) repository.Repositories {
	return repository.Repositories{
		Products:  NewProductRepository(q),
		Branches:  NewBranchRepository(q),
		Customers: NewCustomerRepository(q),
		Stock:     NewStockRepository(q),
		Logs:      NewInventoryLogRepository(q),
		Sales:     NewSaleRepository(q),
		Layaways:  NewLayawayRepository(q),
	}
}
