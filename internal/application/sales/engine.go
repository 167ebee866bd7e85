// Package sales orquesta ventas y apartados sobre el motor de inventario.
// Cada operación de varias líneas corre en una sola transacción: o se aplican
// todas las líneas o ninguna.
package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/application/inventory"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/pricing"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// LineInput una línea a vender o apartar. UnitPrice nil usa el precio vigente del catálogo.
type LineInput struct {
	ProductID string
	Quantity  int64
	UnitPrice *decimal.Decimal
}

// PaymentInput forma de pago. AmountTendered 0 se interpreta como pago exacto.
type PaymentInput struct {
	Method         string
	Reference      string
	AmountTendered decimal.Decimal
}

// CreateSaleInput entrada de CreateSale.
type CreateSaleInput struct {
	BranchID   string
	CustomerID string
	Actor      string
	Lines      []LineInput
	Discount   decimal.Decimal
	Payment    PaymentInput
}

// CreateLayawayInput entrada de CreateLayaway.
type CreateLayawayInput struct {
	BranchID   string
	CustomerID string
	Actor      string
	Lines      []LineInput
	Discount   decimal.Decimal
	Deposit    decimal.Decimal
	DueDate    *time.Time
	Notes      string
}

// Engine crea ventas y gestiona el ciclo de vida de los apartados.
type Engine struct {
	txRunner inventory.TxRunner
	stock    StockOperator
	reads    repository.Repositories
	log      zerolog.Logger
}

// NewEngine construye el motor de ventas.
func NewEngine(txRunner inventory.TxRunner, stock StockOperator, reads repository.Repositories, log zerolog.Logger) *Engine {
	return &Engine{txRunner: txRunner, stock: stock, reads: reads, log: log}
}

type pricedLine struct {
	productID string
	quantity  int64
	unitPrice decimal.Decimal
	unitCost  decimal.Decimal
	subtotal  decimal.Decimal
}

// CreateSale descuenta el stock de cada línea, calcula totales y guarda la venta.
// Si alguna línea no tiene disponible suficiente no se descuenta nada.
func (e *Engine) CreateSale(ctx context.Context, in CreateSaleInput) (*entity.Sale, error) {
	if in.Actor == "" {
		return nil, fmt.Errorf("%w: actor requerido", domain.ErrInvalidInput)
	}
	if in.Payment.Method == "" {
		in.Payment.Method = entity.PaymentCash
	}
	if !entity.ValidPaymentMethod(in.Payment.Method) {
		return nil, fmt.Errorf("%w: método de pago %q", domain.ErrInvalidInput, in.Payment.Method)
	}
	if in.Payment.AmountTendered.IsNegative() {
		return nil, fmt.Errorf("%w: monto recibido negativo", domain.ErrInvalidInput)
	}
	if err := validateLines(in.Lines); err != nil {
		return nil, err
	}

	saleID := uuid.New().String()
	var sale *entity.Sale
	err := e.txRunner.Run(context.WithoutCancel(ctx), func(ctx context.Context, tx *repository.Tx) error {
		// 1) Precios y costos vigentes, totales con la tasa de la sucursal
		branch, lines, totals, err := e.price(ctx, tx.Repositories, in.BranchID, in.CustomerID, in.Lines, in.Discount)
		if err != nil {
			return err
		}

		// 2) Descontar stock; cualquier error revierte la venta completa
		changes := make([]inventory.StockChange, 0, len(lines))
		for _, l := range lines {
			changes = append(changes, inventory.StockChange{
				ProductID: l.productID,
				BranchID:  branch.ID,
				Quantity:  -l.quantity,
				Reason:    entity.ReasonSale,
				Actor:     in.Actor,
				RefType:   entity.RefTypeSale,
				RefID:     saleID,
			})
		}
		for _, ch := range inventory.MergeChanges(changes) {
			if _, err := e.stock.AdjustInTx(ctx, tx, ch); err != nil {
				return err
			}
		}

		// 3) Pago y cambio
		tendered := in.Payment.AmountTendered
		if tendered.IsZero() {
			tendered = totals.Total
		}
		if tendered.LessThan(totals.Total) && in.Payment.Method != entity.PaymentCredit {
			return fmt.Errorf("%w: pago %s menor al total %s", domain.ErrInvalidInput, tendered, totals.Total)
		}
		change := decimal.Zero
		if in.Payment.Method == entity.PaymentCash {
			change = tendered.Sub(totals.Total)
		}

		// 4) Cabecera y líneas
		now := e.stock.Now()
		sale = &entity.Sale{
			ID:               saleID,
			BranchID:         branch.ID,
			CustomerID:       in.CustomerID,
			UserID:           in.Actor,
			Subtotal:         totals.Subtotal,
			Discount:         totals.Discount,
			TaxRate:          branch.TaxRate,
			Tax:              totals.Tax,
			Total:            totals.Total,
			PaymentMethod:    in.Payment.Method,
			PaymentReference: in.Payment.Reference,
			AmountTendered:   tendered,
			Change:           change,
			CreatedAt:        now,
			Items:            saleItems(saleID, lines),
		}
		if err := tx.Sales.Create(ctx, sale); err != nil {
			return err
		}
		tx.AfterCommit(func() {
			e.stock.Publish(inventory.Event{Type: inventory.EventSaleCreated, BranchID: sale.BranchID, RefType: entity.RefTypeSale, RefID: sale.ID, Actor: sale.UserID, At: now})
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().Str("sale_id", sale.ID).Str("branch_id", sale.BranchID).Str("total", sale.Total.String()).Msg("venta registrada")
	return sale, nil
}

// CreateLayaway aparta la mercancía de cada línea y registra el anticipo.
func (e *Engine) CreateLayaway(ctx context.Context, in CreateLayawayInput) (*entity.Layaway, error) {
	if in.Actor == "" {
		return nil, fmt.Errorf("%w: actor requerido", domain.ErrInvalidInput)
	}
	if in.CustomerID == "" {
		return nil, fmt.Errorf("%w: el apartado requiere cliente", domain.ErrInvalidInput)
	}
	if in.Deposit.IsNegative() {
		return nil, fmt.Errorf("%w: anticipo negativo", domain.ErrInvalidInput)
	}
	if err := validateLines(in.Lines); err != nil {
		return nil, err
	}

	layawayID := uuid.New().String()
	var l *entity.Layaway
	err := e.txRunner.Run(context.WithoutCancel(ctx), func(ctx context.Context, tx *repository.Tx) error {
		branch, lines, totals, err := e.price(ctx, tx.Repositories, in.BranchID, in.CustomerID, in.Lines, in.Discount)
		if err != nil {
			return err
		}
		if in.Deposit.GreaterThan(totals.Total) {
			return fmt.Errorf("%w: anticipo %s mayor al total %s", domain.ErrInvalidInput, in.Deposit, totals.Total)
		}
		now := e.stock.Now()
		if in.DueDate != nil && in.DueDate.Before(now) {
			return fmt.Errorf("%w: fecha límite en el pasado", domain.ErrInvalidInput)
		}

		changes := make([]inventory.StockChange, 0, len(lines))
		for _, pl := range lines {
			changes = append(changes, inventory.StockChange{
				ProductID: pl.productID,
				BranchID:  branch.ID,
				Quantity:  pl.quantity,
				Actor:     in.Actor,
				RefType:   entity.RefTypeLayaway,
				RefID:     layawayID,
			})
		}
		for _, ch := range inventory.MergeChanges(changes) {
			if _, err := e.stock.ReserveInTx(ctx, tx, ch); err != nil {
				return err
			}
		}

		l = &entity.Layaway{
			ID:         layawayID,
			BranchID:   branch.ID,
			CustomerID: in.CustomerID,
			Status:     entity.LayawayPending,
			Subtotal:   totals.Subtotal,
			Discount:   totals.Discount,
			TaxRate:    branch.TaxRate,
			Tax:        totals.Tax,
			Total:      totals.Total,
			Paid:       in.Deposit,
			Balance:    totals.Total.Sub(in.Deposit),
			DueDate:    in.DueDate,
			Notes:      in.Notes,
			CreatedBy:  in.Actor,
			CreatedAt:  now,
			UpdatedAt:  now,
			Items:      layawayItems(layawayID, lines),
		}
		if err := tx.Layaways.Create(ctx, l); err != nil {
			return err
		}
		if in.Deposit.IsPositive() {
			if err := tx.Layaways.AddPayment(ctx, &entity.LayawayPayment{
				ID:        uuid.New().String(),
				LayawayID: layawayID,
				Amount:    in.Deposit,
				UserID:    in.Actor,
				Notes:     "anticipo",
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}
		tx.AfterCommit(func() {
			e.stock.Publish(inventory.Event{Type: inventory.EventLayawayCreated, BranchID: l.BranchID, RefType: entity.RefTypeLayaway, RefID: l.ID, Actor: in.Actor, At: now})
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// SettleLayaway consume lo apartado y genera la venta. Solo un apartado pendiente
// puede liquidarse; un segundo intento devuelve ErrInvalidStateTransition.
func (e *Engine) SettleLayaway(ctx context.Context, layawayID, actor string) (*entity.Sale, error) {
	if actor == "" {
		return nil, fmt.Errorf("%w: actor requerido", domain.ErrInvalidInput)
	}
	var sale *entity.Sale
	err := e.txRunner.Run(context.WithoutCancel(ctx), func(ctx context.Context, tx *repository.Tx) error {
		l, err := e.lockPending(ctx, tx, layawayID, entity.LayawaySettled)
		if err != nil {
			return err
		}
		sale, err = e.settleInTx(ctx, tx, l, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// CancelLayaway libera lo apartado. Los abonos quedan registrados para su devolución.
func (e *Engine) CancelLayaway(ctx context.Context, layawayID, actor string) (*entity.Layaway, error) {
	if actor == "" {
		return nil, fmt.Errorf("%w: actor requerido", domain.ErrInvalidInput)
	}
	var l *entity.Layaway
	err := e.txRunner.Run(context.WithoutCancel(ctx), func(ctx context.Context, tx *repository.Tx) error {
		var err error
		l, err = e.lockPending(ctx, tx, layawayID, entity.LayawayCancelled)
		if err != nil {
			return err
		}
		for _, ch := range itemChanges(l, actor) {
			if _, err := e.stock.ReleaseInTx(ctx, tx, ch); err != nil {
				return err
			}
		}
		now := e.stock.Now()
		l.Status = entity.LayawayCancelled
		l.ClosedAt = &now
		l.UpdatedAt = now
		if err := tx.Layaways.Save(ctx, l, entity.LayawayPending); err != nil {
			return err
		}
		tx.AfterCommit(func() {
			e.stock.Publish(inventory.Event{Type: inventory.EventLayawayCanceled, BranchID: l.BranchID, RefType: entity.RefTypeLayaway, RefID: l.ID, Actor: actor, At: now})
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// AddLayawayPayment registra un abono. Si el saldo llega a cero el apartado se
// liquida en la misma transacción y se devuelve la venta generada.
func (e *Engine) AddLayawayPayment(ctx context.Context, layawayID string, amount decimal.Decimal, actor, notes string) (*entity.Layaway, *entity.Sale, error) {
	if actor == "" {
		return nil, nil, fmt.Errorf("%w: actor requerido", domain.ErrInvalidInput)
	}
	if !amount.IsPositive() {
		return nil, nil, fmt.Errorf("%w: el abono debe ser positivo", domain.ErrInvalidInput)
	}
	var (
		l    *entity.Layaway
		sale *entity.Sale
	)
	err := e.txRunner.Run(context.WithoutCancel(ctx), func(ctx context.Context, tx *repository.Tx) error {
		var err error
		l, err = e.lockPending(ctx, tx, layawayID, "abono")
		if err != nil {
			return err
		}
		if amount.GreaterThan(l.Balance) {
			return fmt.Errorf("%w: abono %s mayor al saldo %s", domain.ErrInvalidInput, amount, l.Balance)
		}
		now := e.stock.Now()
		if err := tx.Layaways.AddPayment(ctx, &entity.LayawayPayment{
			ID:        uuid.New().String(),
			LayawayID: l.ID,
			Amount:    amount,
			UserID:    actor,
			Notes:     notes,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		l.Paid = l.Paid.Add(amount)
		l.Balance = l.Balance.Sub(amount)
		l.UpdatedAt = now

		if l.Balance.IsZero() {
			sale, err = e.settleInTx(ctx, tx, l, actor)
			return err
		}
		if err := tx.Layaways.Save(ctx, l, entity.LayawayPending); err != nil {
			return err
		}
		tx.AfterCommit(func() {
			e.stock.Publish(inventory.Event{Type: inventory.EventLayawayPayment, BranchID: l.BranchID, RefType: entity.RefTypeLayaway, RefID: l.ID, Actor: actor, At: now})
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return l, sale, nil
}

// ─── Lecturas ────────────────────────────────────────────────────────────────

// GetSale devuelve una venta con sus líneas.
func (e *Engine) GetSale(ctx context.Context, id string) (*entity.Sale, error) {
	s, err := e.reads.Sales.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: venta %s", domain.ErrNotFound, id)
	}
	return s, nil
}

// ListSales lista cabeceras de ventas.
func (e *Engine) ListSales(ctx context.Context, filter repository.SaleFilter) ([]*entity.Sale, error) {
	return e.reads.Sales.List(ctx, filter)
}

// GetLayaway devuelve un apartado con líneas y abonos.
func (e *Engine) GetLayaway(ctx context.Context, id string) (*entity.Layaway, []*entity.LayawayPayment, error) {
	l, err := e.reads.Layaways.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if l == nil {
		return nil, nil, fmt.Errorf("%w: apartado %s", domain.ErrNotFound, id)
	}
	payments, err := e.reads.Layaways.ListPayments(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return l, payments, nil
}

// ListLayaways lista apartados.
func (e *Engine) ListLayaways(ctx context.Context, filter repository.LayawayFilter) ([]*entity.Layaway, error) {
	return e.reads.Layaways.List(ctx, filter)
}

// ─── internos ────────────────────────────────────────────────────────────────

// lockPending carga el apartado bloqueándolo y verifica que siga pendiente.
func (e *Engine) lockPending(ctx context.Context, tx *repository.Tx, id, to string) (*entity.Layaway, error) {
	l, err := tx.Layaways.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("%w: apartado %s", domain.ErrNotFound, id)
	}
	if l.Status != entity.LayawayPending {
		return nil, &domain.StateError{Entity: "apartado", ID: id, From: l.Status, To: to}
	}
	return l, nil
}

// settleInTx consume lo apartado, cobra el saldo pendiente y crea la venta con los
// precios congelados del apartado.
func (e *Engine) settleInTx(ctx context.Context, tx *repository.Tx, l *entity.Layaway, actor string) (*entity.Sale, error) {
	// 1) Convertir la reserva en salida física
	for _, ch := range itemChanges(l, actor) {
		ch.Reason = entity.ReasonLayawaySettlement
		if _, err := e.stock.ConsumeInTx(ctx, tx, ch); err != nil {
			return nil, err
		}
	}

	// 2) Cobrar el saldo restante en mostrador
	now := e.stock.Now()
	if l.Balance.IsPositive() {
		if err := tx.Layaways.AddPayment(ctx, &entity.LayawayPayment{
			ID:        uuid.New().String(),
			LayawayID: l.ID,
			Amount:    l.Balance,
			UserID:    actor,
			Notes:     "liquidación",
			CreatedAt: now,
		}); err != nil {
			return nil, err
		}
		l.Paid = l.Total
		l.Balance = decimal.Zero
	}

	// 3) Venta con los importes pactados en el apartado
	saleID := uuid.New().String()
	items := make([]entity.SaleItem, 0, len(l.Items))
	for _, it := range l.Items {
		items = append(items, entity.SaleItem{
			ID:        uuid.New().String(),
			SaleID:    saleID,
			Line:      it.Line,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			UnitCost:  it.UnitCost,
			Subtotal:  it.Subtotal,
		})
	}
	sale := &entity.Sale{
		ID:             saleID,
		BranchID:       l.BranchID,
		CustomerID:     l.CustomerID,
		UserID:         actor,
		LayawayID:      l.ID,
		Subtotal:       l.Subtotal,
		Discount:       l.Discount,
		TaxRate:        l.TaxRate,
		Tax:            l.Tax,
		Total:          l.Total,
		PaymentMethod:  entity.PaymentLayaway,
		AmountTendered: l.Total,
		Change:         decimal.Zero,
		CreatedAt:      now,
		Items:          items,
	}
	if err := tx.Sales.Create(ctx, sale); err != nil {
		return nil, err
	}

	// 4) Cerrar el apartado
	l.Status = entity.LayawaySettled
	l.SaleID = saleID
	l.ClosedAt = &now
	l.UpdatedAt = now
	if err := tx.Layaways.Save(ctx, l, entity.LayawayPending); err != nil {
		return nil, err
	}
	tx.AfterCommit(func() {
		e.stock.Publish(inventory.Event{Type: inventory.EventLayawaySettled, BranchID: l.BranchID, RefType: entity.RefTypeLayaway, RefID: l.ID, Actor: actor, At: now})
	})
	return sale, nil
}

// price valida sucursal, cliente y productos dentro de la transacción y congela precios y costos.
func (e *Engine) price(ctx context.Context, repos repository.Repositories, branchID, customerID string, in []LineInput, discount decimal.Decimal) (*entity.Branch, []pricedLine, pricing.Totals, error) {
	var zero pricing.Totals
	if branchID == "" {
		return nil, nil, zero, fmt.Errorf("%w: sucursal requerida", domain.ErrInvalidInput)
	}
	branch, err := repos.Branches.GetByID(ctx, branchID)
	if err != nil {
		return nil, nil, zero, err
	}
	if branch == nil {
		return nil, nil, zero, fmt.Errorf("%w: sucursal %s", domain.ErrNotFound, branchID)
	}
	if !branch.Active {
		return nil, nil, zero, fmt.Errorf("%w: sucursal %s", domain.ErrInactive, branchID)
	}
	if customerID != "" {
		c, err := repos.Customers.GetByID(ctx, customerID)
		if err != nil {
			return nil, nil, zero, err
		}
		if c == nil {
			return nil, nil, zero, fmt.Errorf("%w: cliente %s", domain.ErrNotFound, customerID)
		}
		if !c.Active {
			return nil, nil, zero, fmt.Errorf("%w: cliente %s", domain.ErrInactive, customerID)
		}
	}

	lines := make([]pricedLine, 0, len(in))
	pl := make([]pricing.Line, 0, len(in))
	for _, l := range in {
		p, err := repos.Products.GetByID(ctx, l.ProductID)
		if err != nil {
			return nil, nil, zero, err
		}
		if p == nil {
			return nil, nil, zero, fmt.Errorf("%w: producto %s", domain.ErrNotFound, l.ProductID)
		}
		if !p.Active {
			return nil, nil, zero, fmt.Errorf("%w: producto %s", domain.ErrInactive, l.ProductID)
		}
		price := p.Price
		if l.UnitPrice != nil {
			price = *l.UnitPrice
		}
		lines = append(lines, pricedLine{productID: p.ID, quantity: l.Quantity, unitPrice: price, unitCost: p.Cost})
		pl = append(pl, pricing.Line{Quantity: l.Quantity, UnitPrice: price})
	}
	totals, err := pricing.Compute(pl, discount, branch.TaxRate)
	if err != nil {
		return nil, nil, zero, err
	}
	for i := range lines {
		lines[i].subtotal = totals.Lines[i]
	}
	return branch, lines, totals, nil
}

func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: se requiere al menos una línea", domain.ErrInvalidInput)
	}
	for i, l := range lines {
		if l.ProductID == "" {
			return fmt.Errorf("%w: línea %d sin producto", domain.ErrInvalidInput, i+1)
		}
		if l.Quantity <= 0 {
			return fmt.Errorf("%w: línea %d con cantidad %d", domain.ErrInvalidInput, i+1, l.Quantity)
		}
		if l.UnitPrice != nil && l.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: línea %d con precio negativo", domain.ErrInvalidInput, i+1)
		}
	}
	return nil
}

func itemChanges(l *entity.Layaway, actor string) []inventory.StockChange {
	changes := make([]inventory.StockChange, 0, len(l.Items))
	for _, it := range l.Items {
		changes = append(changes, inventory.StockChange{
			ProductID: it.ProductID,
			BranchID:  l.BranchID,
			Quantity:  it.Quantity,
			Actor:     actor,
			RefType:   entity.RefTypeLayaway,
			RefID:     l.ID,
		})
	}
	return inventory.MergeChanges(changes)
}

func saleItems(saleID string, lines []pricedLine) []entity.SaleItem {
	items := make([]entity.SaleItem, 0, len(lines))
	for i, l := range lines {
		items = append(items, entity.SaleItem{
			ID:        uuid.New().String(),
			SaleID:    saleID,
			Line:      i + 1,
			ProductID: l.productID,
			Quantity:  l.quantity,
			UnitPrice: l.unitPrice,
			UnitCost:  l.unitCost,
			Subtotal:  l.subtotal,
		})
	}
	return items
}

func layawayItems(layawayID string, lines []pricedLine) []entity.LayawayItem {
	items := make([]entity.LayawayItem, 0, len(lines))
	for i, l := range lines {
		items = append(items, entity.LayawayItem{
			ID:        uuid.New().String(),
			LayawayID: layawayID,
			Line:      i + 1,
			ProductID: l.productID,
			Quantity:  l.quantity,
			UnitPrice: l.unitPrice,
			UnitCost:  l.unitCost,
			Subtotal:  l.subtotal,
		})
	}
	return items
}
