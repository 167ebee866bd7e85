// Package sqlite implementa los repositorios sobre un archivo SQLite embebido.
//
// El archivo se abre en modo WAL (lecturas concurrentes durante escrituras) y
// toda transacción inicia con BEGIN IMMEDIATE, de modo que los escritores se
// serializan en el almacén y un escritor que no obtiene el bloqueo dentro del
// busy timeout falla con domain.ErrContention sin haber escrito nada.
package sqlite

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

//go:embed schema.sql
var schemaSQL string

// Versiones del esquema:
// 1 - esquema inicial
const currentSchemaVersion = 1

// Config parámetros de apertura.
type Config struct {
	Path         string
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// Store es el almacén SQLite. Implementa inventory.TxRunner.
type Store struct {
	db *sqlx.DB
}

// Open abre (o crea) la base de datos en cfg.Path. No aplica el esquema; ver Migrate.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: ruta vacía")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 4
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL&_txlock=immediate",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Migrate aplica el esquema embebido y las migraciones según PRAGMA user_version. Es idempotente.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	var version int
	if err := s.db.GetContext(ctx, &version, "PRAGMA user_version"); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < currentSchemaVersion {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// SchemaVersion devuelve PRAGMA user_version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.GetContext(ctx, &v, "PRAGMA user_version")
	return v, err
}

// Ping verifica la conexión.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close cierra la base de datos.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB expone la conexión para pruebas y herramientas.
func (s *Store) DB() *sqlx.DB { return s.db }

// Repositories devuelve repositorios sobre el pool, fuera de transacción.
func (s *Store) Repositories() repository.Repositories { return newRepositories(s.db) }

// Users devuelve el repositorio de usuarios sobre el pool.
func (s *Store) Users() repository.UserRepository { return &UserRepo{q: s.db} }

// Reports devuelve el repositorio de reportes sobre el pool.
func (s *Store) Reports() repository.ReportRepository { return &ReportRepo{q: s.db} }

// Run ejecuta fn dentro de una transacción BEGIN IMMEDIATE. Rollback si fn falla;
// tras el commit ejecuta los hooks registrados con tx.AfterCommit.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, tx *repository.Tx) error) error {
	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", mapError(err))
	}
	defer func() { _ = sqlTx.Rollback() }()

	tx := repository.NewTx(newRepositories(sqlTx))
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", mapError(err))
	}
	tx.Committed()
	return nil
}

func newRepositories(q sqlx.ExtContext) repository.Repositories {
	return repository.Repositories{
		Products:  &ProductRepo{q: q},
		Branches:  &BranchRepo{q: q},
		Customers: &CustomerRepo{q: q},
		Stock:     &StockRepo{q: q},
		Logs:      &InventoryLogRepo{q: q},
		Sales:     &SaleRepo{q: q},
		Layaways:  &LayawayRepo{q: q},
	}
}
