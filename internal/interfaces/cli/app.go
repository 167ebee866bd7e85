package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/pos-ledger/internal/application/auth"
	"github.com/jhoicas/pos-ledger/internal/application/coordinator"
	"github.com/jhoicas/pos-ledger/internal/application/inventory"
	"github.com/jhoicas/pos-ledger/internal/application/sales"
	"github.com/jhoicas/pos-ledger/internal/application/usecase"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/messaging"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/sqlite"
	apphttp "github.com/jhoicas/pos-ledger/internal/interfaces/http"
	"github.com/jhoicas/pos-ledger/pkg/config"
	"github.com/jhoicas/pos-ledger/pkg/logger"
)

// LedgerStore es lo que exponen los almacenes SQLite y PostgreSQL.
type LedgerStore interface {
	inventory.TxRunner
	Migrate(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
	Repositories() repository.Repositories
	Users() repository.UserRepository
	Reports() repository.ReportRepository
}

// App reúne el almacén y los motores ya cableados según la configuración.
type App struct {
	Config    *config.Config
	Log       *logger.Logger
	Store     LedgerStore
	Inventory *inventory.Engine
	Sales     *sales.Engine

	closers []func() error
}

// OpenStore abre el almacén indicado por DB_DRIVER.
func OpenStore(ctx context.Context, cfg *config.Config) (LedgerStore, error) {
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(pool, cfg.Lock.Timeout), nil
	case config.DriverSQLite:
		st, err := sqlite.Open(ctx, sqlite.Config{
			Path:        cfg.DB.SQLitePath,
			BusyTimeout: cfg.DB.SQLiteBusyTimeout,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("DB_DRIVER inválido: %q", cfg.DB.Driver)
	}
}

// Bootstrap abre el almacén y arma los motores. El llamador debe invocar Close.
func Bootstrap(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("abrir almacén: %w", err)
	}
	app := &App{Config: cfg, Log: log, Store: st}
	app.closers = append(app.closers, st.Close)

	opts := []inventory.Option{
		inventory.WithLogger(log.Component("inventory")),
	}

	switch cfg.Cache.Driver {
	case config.CacheMemory:
		opts = append(opts, inventory.WithCache(cache.NewMemory(cfg.Cache.TTL)))
	case config.CacheRedis:
		rdb, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.closers = append(app.closers, rdb.Close)
		opts = append(opts, inventory.WithCache(cache.NewRedis(rdb, cfg.Cache.TTL, log.Component("cache"))))
	}

	switch cfg.Events.Driver {
	case config.EventsKafka:
		pub := messaging.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		app.closers = append(app.closers, pub.Close)
		opts = append(opts, inventory.WithPublisher(pub))
	default:
		opts = append(opts, inventory.WithPublisher(messaging.NewLogPublisher(log.Component("events"))))
	}

	locks := coordinator.New(coordinator.Config{Mode: cfg.Lock.Mode, Timeout: cfg.Lock.Timeout})
	repos := st.Repositories()
	app.Inventory = inventory.NewEngine(st, repos, locks, opts...)
	app.Sales = sales.NewEngine(st, app.Inventory, repos, log.Component("sales"))

	log.Info().
		Str("db", cfg.DB.Driver).
		Str("lock_mode", cfg.Lock.Mode).
		Str("cache", cfg.Cache.Driver).
		Str("events", cfg.Events.Driver).
		Msg("almacén y motores listos")
	return app, nil
}

// RouterDeps arma las dependencias de la capa HTTP.
func (a *App) RouterDeps() apphttp.RouterDeps {
	repos := a.Store.Repositories()
	return apphttp.RouterDeps{
		AuthUC: auth.NewAuthUseCase(a.Store.Users(), auth.JWTConfig{
			Secret:     a.Config.JWT.Secret,
			ExpMinutes: a.Config.JWT.Expiration,
			Issuer:     a.Config.JWT.Issuer,
		}),
		ProductUC:     usecase.NewProductUseCase(repos.Products),
		BranchUC:      usecase.NewBranchUseCase(repos.Branches, a.Config.Sales.DefaultTaxRate),
		CustomerUC:    usecase.NewCustomerUseCase(repos.Customers),
		UserUC:        usecase.NewUserUseCase(a.Store.Users(), repos.Branches),
		ReportUC:      usecase.NewReportUseCase(a.Store.Reports()),
		Inventory:     a.Inventory,
		Replenishment: inventory.NewReplenishmentUseCase(repos.Stock, a.Store.Reports()),
		Sales:         a.Sales,
		Branches:      repos.Branches,
		Store:         a.Store,
		JWTSecret:     a.Config.JWT.Secret,
		RateLimit:     a.Config.HTTP.RateLimit,
		ServiceName:   a.Config.App.Name,
	}
}

// Close libera conexiones en orden inverso a su apertura.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
