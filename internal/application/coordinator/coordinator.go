// Package coordinator serializa las mutaciones de inventario por (producto, sucursal).
//
// Cada clave tiene un semáforo de peso 1; los que esperan se atienden en orden
// de llegada. Las entradas se crean bajo demanda y se eliminan cuando nadie las
// usa, así que el registro no crece con el catálogo.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// Modos de bloqueo.
const (
	// ModeKeyed usa un bloqueo por (producto, sucursal).
	ModeKeyed = "keyed"
	// ModeGlobal usa un único bloqueo para todo el inventario. Es correcto pero
	// limita el throughput a una mutación a la vez.
	ModeGlobal = "global"
)

var globalKey = entity.StockKey{ProductID: "*", BranchID: "*"}

// Config configura el coordinador.
type Config struct {
	Mode string
	// Timeout acota la espera por un bloqueo; 0 espera mientras el contexto lo permita.
	Timeout time.Duration
}

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Coordinator es seguro para uso concurrente.
type Coordinator struct {
	mu      sync.Mutex
	entries map[entity.StockKey]*entry
	global  bool
	timeout time.Duration
}

// New crea un coordinador. Un modo desconocido se trata como ModeKeyed.
func New(cfg Config) *Coordinator {
	return &Coordinator{
		entries: make(map[entity.StockKey]*entry),
		global:  cfg.Mode == ModeGlobal,
		timeout: cfg.Timeout,
	}
}

// Acquire espera el bloqueo de key. Devuelve una función idempotente que lo libera.
// Si vence el timeout devuelve un error que envuelve domain.ErrContention.
func (c *Coordinator) Acquire(ctx context.Context, key entity.StockKey) (func(), error) {
	if c.global {
		key = globalKey
	}
	waitCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	e := c.ref(key)
	if err := e.sem.Acquire(waitCtx, 1); err != nil {
		c.unref(key, e)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s tras %s", domain.ErrContention, key, c.timeout)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			c.unref(key, e)
		})
	}, nil
}

// WithLock ejecuta fn con el bloqueo de key tomado.
func (c *Coordinator) WithLock(ctx context.Context, key entity.StockKey, fn func() error) error {
	release, err := c.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Len devuelve cuántas claves tienen al menos un dueño o un proceso esperando.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Coordinator) ref(key entity.StockKey) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		c.entries[key] = e
	}
	e.refs++
	return e
}

func (c *Coordinator) unref(key entity.StockKey, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(c.entries, key)
	}
}
