package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/application/coordinator"
	"github.com/jhoicas/pos-ledger/internal/application/inventory"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/sqlite"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/sqlite/sqlitetest"
)

type fixture struct {
	store   *sqlite.Store
	engine  *inventory.Engine
	branch  *entity.Branch
	product *entity.Product
	events  *recorder
}

type recorder struct {
	mu     sync.Mutex
	events []inventory.Event
}

func (r *recorder) Publish(_ context.Context, events ...inventory.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newFixture(t *testing.T, stock, reserved int64) *fixture {
	t.Helper()
	st := sqlitetest.New(t)
	b := sqlitetest.Branch(t, st, "Centro", "0.16")
	p := sqlitetest.Product(t, st, "SKU-1", "Producto 1", "10.00", "6.00")
	sqlitetest.Stock(t, st, p.ID, b.ID, stock, reserved)
	rec := &recorder{}
	eng := inventory.NewEngine(st, st.Repositories(),
		coordinator.New(coordinator.Config{Timeout: 5 * time.Second}),
		inventory.WithPublisher(rec))
	return &fixture{store: st, engine: eng, branch: b, product: p, events: rec}
}

func (f *fixture) stock(t *testing.T) *entity.BranchStock {
	t.Helper()
	s, err := f.engine.GetStock(context.Background(), f.product.ID, f.branch.ID)
	require.NoError(t, err)
	return s
}

func (f *fixture) logs(t *testing.T) []*entity.InventoryLogEntry {
	t.Helper()
	entries, err := f.engine.ListLogs(context.Background(), repository.InventoryLogFilter{ProductID: f.product.ID, BranchID: f.branch.ID})
	require.NoError(t, err)
	return entries
}

// ─── AvailableQuantity ───────────────────────────────────────────────────────

func TestAvailableQuantity(t *testing.T) {
	f := newFixture(t, 10, 4)
	ctx := context.Background()

	got, err := f.engine.AvailableQuantity(ctx, f.product.ID, f.branch.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got)

	other := sqlitetest.Product(t, f.store, "SKU-2", "Sin alta", "1", "1")
	got, err = f.engine.AvailableQuantity(ctx, other.ID, f.branch.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)

	_, err = f.engine.AvailableQuantity(ctx, "ghost", f.branch.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.engine.AvailableQuantity(ctx, f.product.ID, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAvailableQuantity_CacheInvalidatedOnCommit(t *testing.T) {
	st := sqlitetest.New(t)
	b := sqlitetest.Branch(t, st, "Centro", "0.16")
	p := sqlitetest.Product(t, st, "SKU-1", "Producto 1", "10", "6")
	sqlitetest.Stock(t, st, p.ID, b.ID, 10, 0)
	c := cache.NewMemory(time.Minute)
	eng := inventory.NewEngine(st, st.Repositories(),
		coordinator.New(coordinator.Config{Timeout: time.Second}), inventory.WithCache(c))
	ctx := context.Background()

	got, err := eng.AvailableQuantity(ctx, p.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got)
	assert.Equal(t, 1, c.Len())

	_, err = eng.ReserveStock(ctx, p.ID, b.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	got, err = eng.AvailableQuantity(ctx, p.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got)

	// un rechazo no toca la caché
	_, err = eng.ReserveStock(ctx, p.ID, b.ID, 50)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 1, c.Len())
}

// pausingStock detiene la primera lectura después de obtener la fila, para
// intercalar una mutación entre la lectura y el llenado de la caché.
type pausingStock struct {
	repository.StockRepository
	once   sync.Once
	read   chan struct{}
	resume chan struct{}
}

func (p *pausingStock) Get(ctx context.Context, productID, branchID string) (*entity.BranchStock, error) {
	s, err := p.StockRepository.Get(ctx, productID, branchID)
	p.once.Do(func() {
		close(p.read)
		<-p.resume
	})
	return s, err
}

func TestAvailableQuantity_StaleReadDoesNotRefillCache(t *testing.T) {
	st := sqlitetest.New(t)
	b := sqlitetest.Branch(t, st, "Centro", "0.16")
	p := sqlitetest.Product(t, st, "SKU-1", "Producto 1", "10", "6")
	sqlitetest.Stock(t, st, p.ID, b.ID, 10, 0)

	reads := st.Repositories()
	slow := &pausingStock{StockRepository: reads.Stock, read: make(chan struct{}), resume: make(chan struct{})}
	reads.Stock = slow
	eng := inventory.NewEngine(st, reads,
		coordinator.New(coordinator.Config{Timeout: time.Second}), inventory.WithCache(cache.NewMemory(time.Minute)))
	ctx := context.Background()

	type result struct {
		n   int64
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := eng.AvailableQuantity(ctx, p.ID, b.ID)
		done <- result{n, err}
	}()

	<-slow.read
	_, err := eng.ReserveStock(ctx, p.ID, b.ID, 10)
	require.NoError(t, err)
	close(slow.resume)

	first := <-done
	require.NoError(t, first.err)
	assert.Equal(t, int64(10), first.n, "la lectura en curso ve la fila previa al commit")

	got, err := eng.AvailableQuantity(ctx, p.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)
}

// ─── AdjustStock ─────────────────────────────────────────────────────────────

func TestAdjustStock_WritesOneLogEntry(t *testing.T) {
	f := newFixture(t, 10, 0)
	before := len(f.logs(t))

	s, err := f.engine.AdjustStock(context.Background(), inventory.StockChange{
		ProductID: f.product.ID, BranchID: f.branch.ID, Quantity: -3, Reason: entity.ReasonShrinkage, Actor: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), s.Stock)

	entries := f.logs(t)
	require.Len(t, entries, before+1)
	assert.Equal(t, int64(-3), entries[0].Delta)
	assert.Equal(t, entity.ReasonShrinkage, entries[0].Reason)
	assert.Equal(t, "u1", entries[0].Actor)
	assert.Contains(t, f.events.types(), inventory.EventStockAdjusted)
}

func TestAdjustStock_CannotGoBelowReserved(t *testing.T) {
	f := newFixture(t, 5, 3)
	before := len(f.logs(t))

	_, err := f.engine.AdjustStock(context.Background(), inventory.StockChange{
		ProductID: f.product.ID, BranchID: f.branch.ID, Quantity: -3, Reason: entity.ReasonShrinkage, Actor: "u1",
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	var se *domain.StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, int64(3), se.Requested)
	assert.Equal(t, int64(2), se.Available)

	s := f.stock(t)
	assert.Equal(t, int64(5), s.Stock)
	assert.Len(t, f.logs(t), before, "un rechazo no escribe en el registro")
}

func TestAdjustStock_ValidatesInput(t *testing.T) {
	f := newFixture(t, 5, 0)
	ctx := context.Background()
	base := inventory.StockChange{ProductID: f.product.ID, BranchID: f.branch.ID, Quantity: 1, Reason: entity.ReasonReceiving, Actor: "u"}

	zero := base
	zero.Quantity = 0
	_, err := f.engine.AdjustStock(ctx, zero)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	noActor := base
	noActor.Actor = ""
	_, err = f.engine.AdjustStock(ctx, noActor)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	badReason := base
	badReason.Reason = "magia"
	_, err = f.engine.AdjustStock(ctx, badReason)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	ghost := base
	ghost.ProductID = "ghost"
	_, err = f.engine.AdjustStock(ctx, ghost)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdjustStock_RecomputesAverageCost(t *testing.T) {
	f := newFixture(t, 10, 0) // costo 6.00
	cost := decimal.NewFromInt(8)

	_, err := f.engine.AdjustStock(context.Background(), inventory.StockChange{
		ProductID: f.product.ID, BranchID: f.branch.ID, Quantity: 10, Reason: entity.ReasonReceiving, Actor: "u", UnitCost: &cost,
	})
	require.NoError(t, err)

	p, err := f.store.Repositories().Products.GetByID(context.Background(), f.product.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(7).Equal(p.Cost), "costo promedio %s", p.Cost)
}

// ─── Reserve / Release / Consume ─────────────────────────────────────────────

func TestReserveStock(t *testing.T) {
	f := newFixture(t, 5, 0)
	ctx := context.Background()
	before := len(f.logs(t))

	s, err := f.engine.ReserveStock(ctx, f.product.ID, f.branch.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), s.Reserved)
	assert.Equal(t, int64(1), s.Available())

	_, err = f.engine.ReserveStock(ctx, f.product.ID, f.branch.ID, 2)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = f.engine.ReserveStock(ctx, f.product.ID, f.branch.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Len(t, f.logs(t), before, "reservar no es un cambio físico")
}

func TestReleaseStock(t *testing.T) {
	f := newFixture(t, 5, 3)
	ctx := context.Background()

	s, err := f.engine.ReleaseStock(ctx, f.product.ID, f.branch.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Reserved)
	assert.Equal(t, int64(5), s.Stock)

	_, err = f.engine.ReleaseStock(ctx, f.product.ID, f.branch.ID, 2)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
	assert.Equal(t, int64(1), f.stock(t).Reserved)
}

func TestConsumeReservedStock(t *testing.T) {
	f := newFixture(t, 5, 3)
	ctx := context.Background()
	before := len(f.logs(t))

	s, err := f.engine.ConsumeReservedStock(ctx, f.product.ID, f.branch.ID, 3, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Stock)
	assert.Equal(t, int64(0), s.Reserved)

	entries := f.logs(t)
	require.Len(t, entries, before+1)
	assert.Equal(t, int64(-3), entries[0].Delta)
	assert.Equal(t, entity.ReasonLayawaySettlement, entries[0].Reason)

	_, err = f.engine.ConsumeReservedStock(ctx, f.product.ID, f.branch.ID, 1, "u1")
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

// ─── IntroduceProduct / Transfer / Reconcile ─────────────────────────────────

func TestIntroduceProduct(t *testing.T) {
	f := newFixture(t, 0, 0)
	ctx := context.Background()
	p := sqlitetest.Product(t, f.store, "NEW", "Nuevo", "5", "2")

	s, err := f.engine.IntroduceProduct(ctx, inventory.IntroduceInput{
		ProductID: p.ID, BranchID: f.branch.ID, InitialStock: 12, MinStock: 3, MaxStock: 20, Actor: "u",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), s.Stock)
	assert.Equal(t, int64(3), s.MinStock)

	_, err = f.engine.IntroduceProduct(ctx, inventory.IntroduceInput{ProductID: p.ID, BranchID: f.branch.ID})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	r, err := f.engine.Reconcile(ctx, p.ID, f.branch.ID)
	require.NoError(t, err)
	assert.True(t, r.Consistent)
	assert.Equal(t, 1, r.Entries)

	_, err = f.engine.IntroduceProduct(ctx, inventory.IntroduceInput{ProductID: p.ID, BranchID: f.branch.ID, MinStock: 5, MaxStock: 2})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTransferStock(t *testing.T) {
	f := newFixture(t, 10, 0)
	ctx := context.Background()
	norte := sqlitetest.Branch(t, f.store, "Norte", "0.16")

	from, to, err := f.engine.TransferStock(ctx, inventory.TransferInput{
		ProductID: f.product.ID, FromBranchID: f.branch.ID, ToBranchID: norte.ID, Quantity: 4, Actor: "u",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), from.Stock)
	assert.Equal(t, int64(4), to.Stock)

	_, _, err = f.engine.TransferStock(ctx, inventory.TransferInput{
		ProductID: f.product.ID, FromBranchID: f.branch.ID, ToBranchID: norte.ID, Quantity: 7, Actor: "u",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	r, err := f.engine.Reconcile(ctx, f.product.ID, norte.ID)
	require.NoError(t, err)
	assert.True(t, r.Consistent)
	assert.Equal(t, int64(4), r.LoggedSum)
}

func TestReconcile_AfterMixedOperations(t *testing.T) {
	f := newFixture(t, 20, 0)
	ctx := context.Background()
	id, br := f.product.ID, f.branch.ID

	_, err := f.engine.AdjustStock(ctx, inventory.StockChange{ProductID: id, BranchID: br, Quantity: 5, Reason: entity.ReasonReceiving, Actor: "u"})
	require.NoError(t, err)
	_, err = f.engine.ReserveStock(ctx, id, br, 6)
	require.NoError(t, err)
	_, err = f.engine.ReleaseStock(ctx, id, br, 2)
	require.NoError(t, err)
	_, err = f.engine.ConsumeReservedStock(ctx, id, br, 4, "u")
	require.NoError(t, err)
	_, err = f.engine.AdjustStock(ctx, inventory.StockChange{ProductID: id, BranchID: br, Quantity: -1, Reason: entity.ReasonShrinkage, Actor: "u"})
	require.NoError(t, err)

	r, err := f.engine.Reconcile(ctx, id, br)
	require.NoError(t, err)
	assert.True(t, r.Consistent)
	assert.Equal(t, int64(20), r.Stock)
	assert.Equal(t, int64(0), r.Reserved)
}

// ─── Concurrencia ────────────────────────────────────────────────────────────

func TestConcurrentReservations_NeverOversell(t *testing.T) {
	f := newFixture(t, 10, 0)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		refused int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.ReserveStock(ctx, f.product.ID, f.branch.ID, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, domain.ErrInsufficientStock):
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, 15, refused)
	s := f.stock(t)
	assert.Equal(t, int64(10), s.Reserved)
	assert.True(t, s.Valid())
}

func TestMergeChanges_SortsAndAggregates(t *testing.T) {
	got := inventory.MergeChanges([]inventory.StockChange{
		{ProductID: "b", BranchID: "1", Quantity: 1},
		{ProductID: "a", BranchID: "1", Quantity: 2},
		{ProductID: "b", BranchID: "1", Quantity: 3},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ProductID)
	assert.Equal(t, int64(2), got[0].Quantity)
	assert.Equal(t, "b", got[1].ProductID)
	assert.Equal(t, int64(4), got[1].Quantity)
}

func TestConcurrentReservations_OnlyOneFits(t *testing.T) {
	f := newFixture(t, 4, 0)
	ctx := context.Background()

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.ReserveStock(ctx, f.product.ID, f.branch.ID, 3)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, refused int
	for err := range errs {
		if err == nil {
			ok++
		} else if assert.ErrorIs(t, err, domain.ErrInsufficientStock) {
			refused++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, refused)
	assert.Equal(t, int64(3), f.stock(t).Reserved)
}
