package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/inventory"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// StockChange describe una mutación sobre una clave de stock.
// Para ajustes Quantity es el delta con signo; para reservar, liberar y consumir es positivo.
type StockChange struct {
	ProductID string
	BranchID  string
	Quantity  int64
	Reason    string
	Actor     string
	RefType   string
	RefID     string
	// UnitCost, si se informa en una entrada, recalcula el costo promedio del producto.
	UnitCost *decimal.Decimal
}

func (c StockChange) Key() entity.StockKey {
	return entity.StockKey{ProductID: c.ProductID, BranchID: c.BranchID}
}

// MergeChanges suma las cantidades de cambios sobre la misma clave y los ordena
// por clave. Aplicar cambios en ese orden evita esperas circulares entre operaciones
// de varias líneas.
func MergeChanges(changes []StockChange) []StockChange {
	idx := make(map[entity.StockKey]int, len(changes))
	out := make([]StockChange, 0, len(changes))
	for _, c := range changes {
		if i, ok := idx[c.Key()]; ok {
			out[i].Quantity += c.Quantity
			continue
		}
		idx[c.Key()] = len(out)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().Less(out[j].Key()) })
	return out
}

// Engine es el único camino de escritura sobre el stock por sucursal y su registro.
// Cada mutación toma el bloqueo de su clave, relee la fila dentro de la transacción,
// valida y escribe; el bloqueo se suelta al terminar esa clave.
type Engine struct {
	txRunner TxRunner
	reads    repository.Repositories
	locks    Locker
	cache    AvailabilityCache
	events   EventPublisher
	log      zerolog.Logger
	now      func() time.Time
}

// Option configura dependencias opcionales del Engine.
type Option func(*Engine)

func WithCache(c AvailabilityCache) Option { return func(e *Engine) { e.cache = c } }

func WithPublisher(p EventPublisher) Option { return func(e *Engine) { e.events = p } }

func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// NewEngine construye el motor. reads son repositorios fuera de transacción (pool).
func NewEngine(txRunner TxRunner, reads repository.Repositories, locks Locker, opts ...Option) *Engine {
	e := &Engine{
		txRunner: txRunner,
		reads:    reads,
		locks:    locks,
		log:      zerolog.Nop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Now expone el reloj del motor para que otros casos de uso sellen con la misma hora.
func (e *Engine) Now() time.Time { return e.now() }

// Publish entrega eventos después del commit. Los errores solo se registran.
func (e *Engine) Publish(events ...Event) {
	if e.events == nil || len(events) == 0 {
		return
	}
	if err := e.events.Publish(context.Background(), events...); err != nil {
		e.log.Warn().Err(err).Str("event", events[0].Type).Int("count", len(events)).Msg("no se pudo publicar evento de inventario")
	}
}

// ─── Lecturas ────────────────────────────────────────────────────────────────

// AvailableQuantity devuelve stock - reservado. Un producto existente que aún no
// se dio de alta en la sucursal tiene disponible 0.
func (e *Engine) AvailableQuantity(ctx context.Context, productID, branchID string) (int64, error) {
	if productID == "" || branchID == "" {
		return 0, fmt.Errorf("%w: producto y sucursal son requeridos", domain.ErrInvalidInput)
	}
	key := entity.StockKey{ProductID: productID, BranchID: branchID}
	var (
		gen       uint64
		cacheable bool
	)
	if e.cache != nil {
		if v, ok := e.cache.Get(ctx, key); ok {
			return v, nil
		}
		// la generación se toma antes de leer la fila
		gen, cacheable = e.cache.Generation(ctx, key)
	}
	s, err := e.reads.Stock.Get(ctx, productID, branchID)
	if err != nil {
		return 0, err
	}
	var available int64
	if s == nil {
		if err := ensureRefs(ctx, e.reads, key); err != nil {
			return 0, err
		}
	} else {
		available = s.Available()
	}
	if cacheable {
		e.cache.Set(ctx, key, available, gen)
	}
	return available, nil
}

// GetStock devuelve la fila de stock completa.
func (e *Engine) GetStock(ctx context.Context, productID, branchID string) (*entity.BranchStock, error) {
	s, err := e.reads.Stock.Get(ctx, productID, branchID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: stock de %s en %s", domain.ErrNotFound, productID, branchID)
	}
	return s, nil
}

// ListStock lista el stock de una sucursal.
func (e *Engine) ListStock(ctx context.Context, branchID string, limit, offset int) ([]*entity.BranchStock, error) {
	if branchID == "" {
		return nil, fmt.Errorf("%w: sucursal requerida", domain.ErrInvalidInput)
	}
	return e.reads.Stock.ListByBranch(ctx, branchID, limit, offset)
}

// ListLogs consulta el registro de auditoría.
func (e *Engine) ListLogs(ctx context.Context, filter repository.InventoryLogFilter) ([]*entity.InventoryLogEntry, error) {
	return e.reads.Logs.List(ctx, filter)
}

// Reconciliation compara el stock físico contra la suma del registro.
type Reconciliation struct {
	ProductID  string
	BranchID   string
	Stock      int64
	Reserved   int64
	LoggedSum  int64
	Entries    int
	Consistent bool
}

// Reconcile verifica que el stock actual sea igual a la suma de deltas registrados.
func (e *Engine) Reconcile(ctx context.Context, productID, branchID string) (*Reconciliation, error) {
	s, err := e.GetStock(ctx, productID, branchID)
	if err != nil {
		return nil, err
	}
	sum, n, err := e.reads.Logs.SumDelta(ctx, productID, branchID)
	if err != nil {
		return nil, err
	}
	r := &Reconciliation{
		ProductID: productID,
		BranchID:  branchID,
		Stock:     s.Stock,
		Reserved:  s.Reserved,
		LoggedSum: sum,
		Entries:   n,
	}
	r.Consistent = r.Stock == r.LoggedSum
	if !r.Consistent {
		e.log.Error().Str("product_id", productID).Str("branch_id", branchID).
			Int64("stock", s.Stock).Int64("logged", sum).Msg("stock no cuadra con el registro")
	}
	return r, nil
}

// ─── Operaciones independientes ──────────────────────────────────────────────
//
// Cada una abre su propia transacción. Una vez iniciada no se cancela con ctx:
// o confirma o falla sin haber escrito nada.

// AdjustStock aplica un delta físico (recepción, merma, conteo) y lo registra.
func (e *Engine) AdjustStock(ctx context.Context, ch StockChange) (*entity.BranchStock, error) {
	return e.single(ctx, func(ctx context.Context, tx *repository.Tx) (*entity.BranchStock, error) {
		return e.AdjustInTx(ctx, tx, ch)
	})
}

// ReserveStock aparta quantity unidades.
func (e *Engine) ReserveStock(ctx context.Context, productID, branchID string, quantity int64) (*entity.BranchStock, error) {
	return e.single(ctx, func(ctx context.Context, tx *repository.Tx) (*entity.BranchStock, error) {
		return e.ReserveInTx(ctx, tx, StockChange{ProductID: productID, BranchID: branchID, Quantity: quantity})
	})
}

// ReleaseStock devuelve al disponible quantity unidades apartadas.
func (e *Engine) ReleaseStock(ctx context.Context, productID, branchID string, quantity int64) (*entity.BranchStock, error) {
	return e.single(ctx, func(ctx context.Context, tx *repository.Tx) (*entity.BranchStock, error) {
		return e.ReleaseInTx(ctx, tx, StockChange{ProductID: productID, BranchID: branchID, Quantity: quantity})
	})
}

// ConsumeReservedStock convierte quantity unidades apartadas en una salida física.
func (e *Engine) ConsumeReservedStock(ctx context.Context, productID, branchID string, quantity int64, actor string) (*entity.BranchStock, error) {
	return e.single(ctx, func(ctx context.Context, tx *repository.Tx) (*entity.BranchStock, error) {
		return e.ConsumeInTx(ctx, tx, StockChange{
			ProductID: productID,
			BranchID:  branchID,
			Quantity:  quantity,
			Reason:    entity.ReasonLayawaySettlement,
			Actor:     actor,
			RefType:   entity.RefTypeManual,
		})
	})
}

// IntroduceInput da de alta un producto en una sucursal.
type IntroduceInput struct {
	ProductID    string
	BranchID     string
	InitialStock int64
	MinStock     int64
	MaxStock     int64
	Actor        string
}

// IntroduceProduct crea la fila de stock de un producto en una sucursal, con
// existencia inicial opcional (registrada como recepción).
func (e *Engine) IntroduceProduct(ctx context.Context, in IntroduceInput) (*entity.BranchStock, error) {
	if err := validateThresholds(in.MinStock, in.MaxStock); err != nil {
		return nil, err
	}
	if in.InitialStock < 0 {
		return nil, fmt.Errorf("%w: existencia inicial negativa", domain.ErrInvalidInput)
	}
	if in.InitialStock > 0 && in.Actor == "" {
		return nil, fmt.Errorf("%w: actor requerido", domain.ErrInvalidInput)
	}
	key := entity.StockKey{ProductID: in.ProductID, BranchID: in.BranchID}
	return e.single(ctx, func(ctx context.Context, tx *repository.Tx) (*entity.BranchStock, error) {
		if err := ensureActive(ctx, tx.Repositories, key); err != nil {
			return nil, err
		}
		s, err := e.mutate(ctx, tx, key, func(s *entity.BranchStock, fresh bool) error {
			if !fresh {
				return fmt.Errorf("%w: %s ya está dado de alta", domain.ErrDuplicate, key)
			}
			s.MinStock, s.MaxStock = in.MinStock, in.MaxStock
			return nil
		})
		if err != nil || in.InitialStock == 0 {
			return s, err
		}
		return e.AdjustInTx(ctx, tx, StockChange{
			ProductID: in.ProductID,
			BranchID:  in.BranchID,
			Quantity:  in.InitialStock,
			Reason:    entity.ReasonReceiving,
			Actor:     in.Actor,
			RefType:   entity.RefTypeManual,
		})
	})
}

// SetThresholds cambia mínimo y máximo de un producto en una sucursal.
func (e *Engine) SetThresholds(ctx context.Context, productID, branchID string, minStock, maxStock int64) (*entity.BranchStock, error) {
	if err := validateThresholds(minStock, maxStock); err != nil {
		return nil, err
	}
	key := entity.StockKey{ProductID: productID, BranchID: branchID}
	return e.single(ctx, func(ctx context.Context, tx *repository.Tx) (*entity.BranchStock, error) {
		return e.mutate(ctx, tx, key, func(s *entity.BranchStock, fresh bool) error {
			if fresh {
				return fmt.Errorf("%w: %s no está dado de alta", domain.ErrNotFound, key)
			}
			s.MinStock, s.MaxStock = minStock, maxStock
			return nil
		})
	})
}

// TransferInput mueve existencias entre sucursales.
type TransferInput struct {
	ProductID    string
	FromBranchID string
	ToBranchID   string
	Quantity     int64
	Actor        string
}

// TransferStock resta en origen y suma en destino en una sola transacción,
// con una entrada de registro por sucursal ligadas por el mismo RefID.
func (e *Engine) TransferStock(ctx context.Context, in TransferInput) (from, to *entity.BranchStock, err error) {
	if in.Quantity <= 0 || in.FromBranchID == "" || in.ToBranchID == "" || in.FromBranchID == in.ToBranchID {
		return nil, nil, fmt.Errorf("%w: traslado inválido", domain.ErrInvalidInput)
	}
	ref := uuid.New().String()
	changes := MergeChanges([]StockChange{
		{ProductID: in.ProductID, BranchID: in.FromBranchID, Quantity: -in.Quantity},
		{ProductID: in.ProductID, BranchID: in.ToBranchID, Quantity: in.Quantity},
	})
	err = e.txRunner.Run(context.WithoutCancel(ctx), func(ctx context.Context, tx *repository.Tx) error {
		for _, ch := range changes {
			ch.Reason, ch.Actor, ch.RefType, ch.RefID = entity.ReasonTransfer, in.Actor, entity.RefTypeTransfer, ref
			s, err := e.AdjustInTx(ctx, tx, ch)
			if err != nil {
				return err
			}
			if ch.BranchID == in.FromBranchID {
				from = s
			} else {
				to = s
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

// ─── Operaciones dentro de una transacción ajena ─────────────────────────────

// AdjustInTx aplica un delta físico dentro de tx. Rechaza dejar el stock por debajo de lo reservado.
func (e *Engine) AdjustInTx(ctx context.Context, tx *repository.Tx, ch StockChange) (*entity.BranchStock, error) {
	if err := validateChange(ch, true, false); err != nil {
		return nil, err
	}
	if ch.Quantity == 0 {
		return nil, fmt.Errorf("%w: delta 0", domain.ErrInvalidInput)
	}
	if !entity.ValidReason(ch.Reason) {
		return nil, fmt.Errorf("%w: motivo %q", domain.ErrInvalidInput, ch.Reason)
	}
	s, err := e.mutate(ctx, tx, ch.Key(), func(s *entity.BranchStock, _ bool) error {
		next := s.Stock + ch.Quantity
		if next < s.Reserved {
			return domain.InsufficientStock("adjust", ch.ProductID, ch.BranchID, -ch.Quantity, s.Available())
		}
		if ch.Quantity > 0 && ch.UnitCost != nil {
			if err := e.recomputeCost(ctx, tx, s, ch); err != nil {
				return err
			}
		}
		s.Stock = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := e.appendLog(ctx, tx, ch, ch.Quantity); err != nil {
		return nil, err
	}
	e.afterCommit(tx, EventStockAdjusted, ch, ch.Quantity, s)
	return s, nil
}

// ReserveInTx aparta unidades del disponible. No escribe en el registro.
func (e *Engine) ReserveInTx(ctx context.Context, tx *repository.Tx, ch StockChange) (*entity.BranchStock, error) {
	if err := validateChange(ch, false, true); err != nil {
		return nil, err
	}
	s, err := e.mutate(ctx, tx, ch.Key(), func(s *entity.BranchStock, _ bool) error {
		if s.Available() < ch.Quantity {
			return domain.InsufficientStock("reserve", ch.ProductID, ch.BranchID, ch.Quantity, s.Available())
		}
		s.Reserved += ch.Quantity
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.afterCommit(tx, EventStockReserved, ch, 0, s)
	return s, nil
}

// ReleaseInTx devuelve unidades apartadas al disponible. No escribe en el registro.
func (e *Engine) ReleaseInTx(ctx context.Context, tx *repository.Tx, ch StockChange) (*entity.BranchStock, error) {
	if err := validateChange(ch, false, true); err != nil {
		return nil, err
	}
	s, err := e.mutate(ctx, tx, ch.Key(), func(s *entity.BranchStock, _ bool) error {
		if s.Reserved < ch.Quantity {
			return domain.InvariantViolation("release", ch.ProductID, ch.BranchID, ch.Quantity, s.Reserved)
		}
		s.Reserved -= ch.Quantity
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.afterCommit(tx, EventStockReleased, ch, 0, s)
	return s, nil
}

// ConsumeInTx descuenta a la vez stock y reservado, y lo registra como salida física.
func (e *Engine) ConsumeInTx(ctx context.Context, tx *repository.Tx, ch StockChange) (*entity.BranchStock, error) {
	if ch.Reason == "" {
		ch.Reason = entity.ReasonLayawaySettlement
	}
	if err := validateChange(ch, true, true); err != nil {
		return nil, err
	}
	s, err := e.mutate(ctx, tx, ch.Key(), func(s *entity.BranchStock, _ bool) error {
		if s.Reserved < ch.Quantity {
			return domain.InvariantViolation("consume", ch.ProductID, ch.BranchID, ch.Quantity, s.Reserved)
		}
		s.Reserved -= ch.Quantity
		s.Stock -= ch.Quantity
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := e.appendLog(ctx, tx, ch, -ch.Quantity); err != nil {
		return nil, err
	}
	e.afterCommit(tx, EventStockConsumed, ch, -ch.Quantity, s)
	return s, nil
}

// ─── internos ────────────────────────────────────────────────────────────────

func (e *Engine) single(ctx context.Context, fn func(ctx context.Context, tx *repository.Tx) (*entity.BranchStock, error)) (*entity.BranchStock, error) {
	var out *entity.BranchStock
	err := e.txRunner.Run(context.WithoutCancel(ctx), func(ctx context.Context, tx *repository.Tx) error {
		s, err := fn(ctx, tx)
		out = s
		return err
	})
	if err != nil {
		e.logFailure(err)
		return nil, err
	}
	return out, nil
}

// logFailure registra los errores que no son de negocio: contención e invariantes rotos.
func (e *Engine) logFailure(err error) {
	switch {
	case errors.Is(err, domain.ErrContention):
		e.log.Warn().Err(err).Msg("contención al mutar stock")
	case errors.Is(err, domain.ErrInvariantViolation):
		e.log.Error().Err(err).Msg("invariante de stock violado")
	}
}

// mutate toma el bloqueo de key, relee la fila con GetForUpdate, aplica fn y persiste.
// fresh indica que la fila no existía; solo se inserta si fn no devuelve error.
func (e *Engine) mutate(ctx context.Context, tx *repository.Tx, key entity.StockKey, fn func(s *entity.BranchStock, fresh bool) error) (*entity.BranchStock, error) {
	release, err := e.locks.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release()

	s, err := tx.Stock.GetForUpdate(ctx, key.ProductID, key.BranchID)
	if err != nil {
		return nil, err
	}
	fresh := s == nil
	if fresh {
		if err := ensureRefs(ctx, tx.Repositories, key); err != nil {
			return nil, err
		}
		s = &entity.BranchStock{ProductID: key.ProductID, BranchID: key.BranchID}
	}
	if err := fn(s, fresh); err != nil {
		return nil, err
	}
	if !s.Valid() {
		return nil, domain.InvariantViolation("write", key.ProductID, key.BranchID, s.Stock, s.Reserved)
	}
	s.UpdatedAt = e.now()
	if fresh {
		err = tx.Stock.Insert(ctx, s)
	} else {
		err = tx.Stock.Update(ctx, s)
	}
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		tx.AfterCommit(func() { e.cache.Invalidate(context.Background(), key) })
	}
	return s, nil
}

func (e *Engine) recomputeCost(ctx context.Context, tx *repository.Tx, s *entity.BranchStock, ch StockChange) error {
	if ch.UnitCost.IsNegative() {
		return fmt.Errorf("%w: costo unitario negativo", domain.ErrInvalidInput)
	}
	p, err := tx.Products.GetByID(ctx, ch.ProductID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: producto %s", domain.ErrNotFound, ch.ProductID)
	}
	cost := inventory.CostCalculator(s.Stock, p.Cost, ch.Quantity, *ch.UnitCost)
	return tx.Products.UpdateCost(ctx, ch.ProductID, cost)
}

func (e *Engine) appendLog(ctx context.Context, tx *repository.Tx, ch StockChange, delta int64) error {
	refType := ch.RefType
	if refType == "" {
		refType = entity.RefTypeManual
	}
	return tx.Logs.Append(ctx, &entity.InventoryLogEntry{
		ID:        uuid.New().String(),
		ProductID: ch.ProductID,
		BranchID:  ch.BranchID,
		Delta:     delta,
		Reason:    ch.Reason,
		Actor:     ch.Actor,
		RefType:   refType,
		RefID:     ch.RefID,
		CreatedAt: e.now(),
	})
}

func (e *Engine) afterCommit(tx *repository.Tx, typ string, ch StockChange, delta int64, s *entity.BranchStock) {
	ev := Event{
		Type:      typ,
		ProductID: ch.ProductID,
		BranchID:  ch.BranchID,
		Delta:     delta,
		Stock:     s.Stock,
		Reserved:  s.Reserved,
		RefType:   ch.RefType,
		RefID:     ch.RefID,
		Actor:     ch.Actor,
		At:        s.UpdatedAt,
	}
	tx.AfterCommit(func() {
		e.log.Info().
			Str("op", typ).
			Str("product_id", ev.ProductID).
			Str("branch_id", ev.BranchID).
			Int64("delta", ev.Delta).
			Str("reason", ch.Reason).
			Str("actor", ev.Actor).
			Int64("stock", ev.Stock).
			Int64("reserved", ev.Reserved).
			Msg("stock actualizado")
		e.Publish(ev)
	})
}

// validateChange revisa campos comunes; positive exige Quantity > 0 (todo salvo ajustes).
func validateChange(ch StockChange, needsActor, positive bool) error {
	if ch.ProductID == "" || ch.BranchID == "" {
		return fmt.Errorf("%w: producto y sucursal son requeridos", domain.ErrInvalidInput)
	}
	if needsActor && ch.Actor == "" {
		return fmt.Errorf("%w: actor requerido", domain.ErrInvalidInput)
	}
	if positive && ch.Quantity <= 0 {
		return fmt.Errorf("%w: cantidad debe ser positiva, llegó %d", domain.ErrInvalidInput, ch.Quantity)
	}
	return nil
}

func validateThresholds(minStock, maxStock int64) error {
	if minStock < 0 || maxStock < 0 {
		return fmt.Errorf("%w: mínimo y máximo no pueden ser negativos", domain.ErrInvalidInput)
	}
	if maxStock > 0 && maxStock < minStock {
		return fmt.Errorf("%w: máximo menor que mínimo", domain.ErrInvalidInput)
	}
	return nil
}

// ensureRefs distingue "no dado de alta" de "no existe": si falta el producto o la sucursal devuelve ErrNotFound.
func ensureRefs(ctx context.Context, repos repository.Repositories, key entity.StockKey) error {
	p, err := repos.Products.GetByID(ctx, key.ProductID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: producto %s", domain.ErrNotFound, key.ProductID)
	}
	b, err := repos.Branches.GetByID(ctx, key.BranchID)
	if err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("%w: sucursal %s", domain.ErrNotFound, key.BranchID)
	}
	return nil
}

func ensureActive(ctx context.Context, repos repository.Repositories, key entity.StockKey) error {
	p, err := repos.Products.GetByID(ctx, key.ProductID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: producto %s", domain.ErrNotFound, key.ProductID)
	}
	if !p.Active {
		return fmt.Errorf("%w: producto %s", domain.ErrInactive, key.ProductID)
	}
	b, err := repos.Branches.GetByID(ctx, key.BranchID)
	if err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("%w: sucursal %s", domain.ErrNotFound, key.BranchID)
	}
	if !b.Active {
		return fmt.Errorf("%w: sucursal %s", domain.ErrInactive, key.BranchID)
	}
	return nil
}
