package sales_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/application/coordinator"
	"github.com/jhoicas/pos-ledger/internal/application/inventory"
	"github.com/jhoicas/pos-ledger/internal/application/sales"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/sqlite"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/sqlite/sqlitetest"
)

type env struct {
	store    *sqlite.Store
	stock    *inventory.Engine
	sales    *sales.Engine
	branch   *entity.Branch
	customer *entity.Customer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := sqlitetest.New(t)
	stock := inventory.NewEngine(st, st.Repositories(), coordinator.New(coordinator.Config{Timeout: 5 * time.Second}))
	return &env{
		store:    st,
		stock:    stock,
		sales:    sales.NewEngine(st, stock, st.Repositories(), zerolog.Nop()),
		branch:   sqlitetest.Branch(t, st, "Centro", "0.16"),
		customer: sqlitetest.Customer(t, st, "Ana"),
	}
}

// product crea un producto a 10.00 con stock y reservado iniciales en la sucursal.
func (e *env) product(t *testing.T, sku string, stock int64) *entity.Product {
	t.Helper()
	p := sqlitetest.Product(t, e.store, sku, "Producto "+sku, "10.00", "6.00")
	sqlitetest.Stock(t, e.store, p.ID, e.branch.ID, stock, 0)
	return p
}

func (e *env) row(t *testing.T, p *entity.Product) *entity.BranchStock {
	t.Helper()
	s, err := e.stock.GetStock(context.Background(), p.ID, e.branch.ID)
	require.NoError(t, err)
	return s
}

func (e *env) logCount(t *testing.T, p *entity.Product) int {
	t.Helper()
	_, n, err := e.store.Repositories().Logs.SumDelta(context.Background(), p.ID, e.branch.ID)
	require.NoError(t, err)
	return n
}

func (e *env) layaway(t *testing.T, deposit string, lines ...sales.LineInput) *entity.Layaway {
	t.Helper()
	l, err := e.sales.CreateLayaway(context.Background(), sales.CreateLayawayInput{
		BranchID: e.branch.ID, CustomerID: e.customer.ID, Actor: "cajero", Lines: lines,
		Deposit: decimal.RequireFromString(deposit),
	})
	require.NoError(t, err)
	return l
}

func line(p *entity.Product, qty int64) sales.LineInput {
	return sales.LineInput{ProductID: p.ID, Quantity: qty}
}

// ─── Ventas ──────────────────────────────────────────────────────────────────

func TestCreateSale_SellsOutThenRefuses(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, "A", 10)
	ctx := context.Background()

	sale, err := e.sales.CreateSale(ctx, sales.CreateSaleInput{BranchID: e.branch.ID, Actor: "cajero", Lines: []sales.LineInput{line(p, 10)}})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("100").Equal(sale.Subtotal))
	assert.True(t, decimal.RequireFromString("16").Equal(sale.Tax))
	assert.True(t, decimal.RequireFromString("116").Equal(sale.Total))
	assert.Equal(t, entity.PaymentCash, sale.PaymentMethod)
	assert.Equal(t, int64(0), e.row(t, p).Stock)

	_, err = e.sales.CreateSale(ctx, sales.CreateSaleInput{BranchID: e.branch.ID, Actor: "cajero", Lines: []sales.LineInput{line(p, 1)}})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	stored, err := e.sales.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.True(t, decimal.RequireFromString("6").Equal(stored.Items[0].UnitCost))
}

func TestCreateSale_AllOrNothing(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, "A", 5)
	b := e.product(t, "B", 1)
	c := e.product(t, "C", 5)
	ctx := context.Background()
	logsBefore := e.logCount(t, a) + e.logCount(t, b) + e.logCount(t, c)

	_, err := e.sales.CreateSale(ctx, sales.CreateSaleInput{
		BranchID: e.branch.ID, Actor: "cajero",
		Lines: []sales.LineInput{line(a, 2), line(b, 2), line(c, 2)},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Equal(t, int64(5), e.row(t, a).Stock)
	assert.Equal(t, int64(1), e.row(t, b).Stock)
	assert.Equal(t, int64(5), e.row(t, c).Stock)
	assert.Equal(t, logsBefore, e.logCount(t, a)+e.logCount(t, b)+e.logCount(t, c))

	list, err := e.sales.ListSales(ctx, repository.SaleFilter{BranchID: e.branch.ID})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateSale_RepeatedProductIsMerged(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, "A", 3)
	ctx := context.Background()

	_, err := e.sales.CreateSale(ctx, sales.CreateSaleInput{
		BranchID: e.branch.ID, Actor: "cajero", Lines: []sales.LineInput{line(p, 2), line(p, 2)},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	sale, err := e.sales.CreateSale(ctx, sales.CreateSaleInput{
		BranchID: e.branch.ID, Actor: "cajero", Lines: []sales.LineInput{line(p, 1), line(p, 2)},
	})
	require.NoError(t, err)
	assert.Len(t, sale.Items, 2)
	assert.Equal(t, int64(0), e.row(t, p).Stock)
}

func TestCreateSale_Payment(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, "A", 10)
	ctx := context.Background()

	sale, err := e.sales.CreateSale(ctx, sales.CreateSaleInput{
		BranchID: e.branch.ID, Actor: "cajero", Lines: []sales.LineInput{line(p, 1)},
		Payment: sales.PaymentInput{Method: entity.PaymentCash, AmountTendered: decimal.NewFromInt(20)},
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("8.40").Equal(sale.Change), "cambio %s", sale.Change)

	_, err = e.sales.CreateSale(ctx, sales.CreateSaleInput{
		BranchID: e.branch.ID, Actor: "cajero", Lines: []sales.LineInput{line(p, 1)},
		Payment: sales.PaymentInput{Method: entity.PaymentCard, AmountTendered: decimal.NewFromInt(5)},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, int64(9), e.row(t, p).Stock)

	_, err = e.sales.CreateSale(ctx, sales.CreateSaleInput{
		BranchID: e.branch.ID, Actor: "cajero", Lines: []sales.LineInput{line(p, 1)},
		Payment: sales.PaymentInput{Method: entity.PaymentLayaway},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateSale_ValidatesReferences(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, "A", 10)
	ctx := context.Background()

	_, err := e.sales.CreateSale(ctx, sales.CreateSaleInput{BranchID: e.branch.ID, Actor: "cajero"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.sales.CreateSale(ctx, sales.CreateSaleInput{BranchID: "ghost", Actor: "cajero", Lines: []sales.LineInput{line(p, 1)}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.sales.CreateSale(ctx, sales.CreateSaleInput{BranchID: e.branch.ID, Actor: "cajero", Lines: []sales.LineInput{{ProductID: "ghost", Quantity: 1}}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, e.store.Repositories().Products.SetActive(ctx, p.ID, false))
	_, err = e.sales.CreateSale(ctx, sales.CreateSaleInput{BranchID: e.branch.ID, Actor: "cajero", Lines: []sales.LineInput{line(p, 1)}})
	assert.ErrorIs(t, err, domain.ErrInactive)
}

func TestCreateSale_ConcurrentNeverOversells(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, "A", 5)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sold int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.sales.CreateSale(ctx, sales.CreateSaleInput{BranchID: e.branch.ID, Actor: "cajero", Lines: []sales.LineInput{line(p, 1)}})
			if err == nil {
				mu.Lock()
				sold++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, sold)
	assert.Equal(t, int64(0), e.row(t, p).Stock)
	r, err := e.stock.Reconcile(ctx, p.ID, e.branch.ID)
	require.NoError(t, err)
	assert.True(t, r.Consistent)
}

// ─── Apartados ───────────────────────────────────────────────────────────────

func TestLayaway_CreateAndCancel(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, "A", 5)
	ctx := context.Background()
	logs := e.logCount(t, p)

	l := e.layaway(t, "0", line(p, 3))
	assert.Equal(t, entity.LayawayPending, l.Status)
	s := e.row(t, p)
	assert.Equal(t, int64(5), s.Stock)
	assert.Equal(t, int64(3), s.Reserved)

	avail, err := e.stock.AvailableQuantity(ctx, p.ID, e.branch.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), avail)

	cancelled, err := e.sales.CancelLayaway(ctx, l.ID, "cajero")
	require.NoError(t, err)
	assert.Equal(t, entity.LayawayCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.ClosedAt)
	assert.Equal(t, int64(0), e.row(t, p).Reserved)
	assert.Equal(t, logs, e.logCount(t, p), "apartar y cancelar no son movimientos físicos")

	_, err = e.sales.CancelLayaway(ctx, l.ID, "cajero")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	_, err = e.sales.SettleLayaway(ctx, l.ID, "cajero")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestLayaway_Settle(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, "A", 5)
	ctx := context.Background()
	l := e.layaway(t, "10", line(p, 3))
	logs := e.logCount(t, p)

	sale, err := e.sales.SettleLayaway(ctx, l.ID, "cajero")
	require.NoError(t, err)
	assert.Equal(t, l.ID, sale.LayawayID)
	assert.Equal(t, entity.PaymentLayaway, sale.PaymentMethod)
	assert.True(t, l.Total.Equal(sale.Total))

	s := e.row(t, p)
	assert.Equal(t, int64(2), s.Stock)
	assert.Equal(t, int64(0), s.Reserved)
	assert.Equal(t, logs+1, e.logCount(t, p))

	entries, err := e.stock.ListLogs(ctx, repository.InventoryLogFilter{ProductID: p.ID, BranchID: e.branch.ID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(-3), entries[0].Delta)
	assert.Equal(t, entity.ReasonLayawaySettlement, entries[0].Reason)

	got, payments, err := e.sales.GetLayaway(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.LayawaySettled, got.Status)
	assert.Equal(t, sale.ID, got.SaleID)
	assert.True(t, got.Balance.IsZero())
	require.Len(t, payments, 2)
}

func TestLayaway_SettleTwiceConsumesOnce(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, "A", 5)
	ctx := context.Background()
	l := e.layaway(t, "0", line(p, 3))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.sales.SettleLayaway(ctx, l.ID, "cajero")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			if assert.ErrorIs(t, err, domain.ErrInvalidStateTransition) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)
	s := e.row(t, p)
	assert.Equal(t, int64(2), s.Stock)
	assert.Equal(t, int64(0), s.Reserved)
}

func TestLayaway_PaymentsSettleAutomatically(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, "A", 5)
	ctx := context.Background()
	l := e.layaway(t, "5", line(p, 2)) // total 23.20

	updated, sale, err := e.sales.AddLayawayPayment(ctx, l.ID, decimal.RequireFromString("10"), "cajero", "")
	require.NoError(t, err)
	assert.Nil(t, sale)
	assert.True(t, decimal.RequireFromString("8.20").Equal(updated.Balance), "saldo %s", updated.Balance)

	_, _, err = e.sales.AddLayawayPayment(ctx, l.ID, decimal.RequireFromString("9"), "cajero", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	updated, sale, err = e.sales.AddLayawayPayment(ctx, l.ID, decimal.RequireFromString("8.20"), "cajero", "")
	require.NoError(t, err)
	require.NotNil(t, sale)
	assert.Equal(t, entity.LayawaySettled, updated.Status)
	assert.Equal(t, int64(3), e.row(t, p).Stock)

	_, payments, err := e.sales.GetLayaway(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 3)
}

func TestLayaway_KeepsAgreedPrice(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, "A", 5)
	ctx := context.Background()
	l := e.layaway(t, "0", line(p, 1))

	p.Price = decimal.RequireFromString("99")
	require.NoError(t, e.store.Repositories().Products.Update(ctx, p))

	sale, err := e.sales.SettleLayaway(ctx, l.ID, "cajero")
	require.NoError(t, err)
	require.Len(t, sale.Items, 1)
	assert.True(t, decimal.RequireFromString("10").Equal(sale.Items[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("11.60").Equal(sale.Total))
}

func TestLayaway_Validation(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, "A", 5)
	ctx := context.Background()

	_, err := e.sales.CreateLayaway(ctx, sales.CreateLayawayInput{BranchID: e.branch.ID, Actor: "cajero", Lines: []sales.LineInput{line(p, 1)}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "sin cliente")

	_, err = e.sales.CreateLayaway(ctx, sales.CreateLayawayInput{
		BranchID: e.branch.ID, CustomerID: e.customer.ID, Actor: "cajero", Lines: []sales.LineInput{line(p, 1)},
		Deposit: decimal.NewFromInt(50),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "anticipo mayor al total")

	_, err = e.sales.CreateLayaway(ctx, sales.CreateLayawayInput{
		BranchID: e.branch.ID, CustomerID: e.customer.ID, Actor: "cajero", Lines: []sales.LineInput{line(p, 6)},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(0), e.row(t, p).Reserved)

	_, err = e.sales.SettleLayaway(ctx, "ghost", "cajero")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
