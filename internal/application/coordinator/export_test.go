package coordinator

import "github.com/jhoicas/pos-ledger/internal/domain/entity"

// refs expone el contador de referencias de una clave para las pruebas.
func (c *Coordinator) refs(key entity.StockKey) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.refs
	}
	return 0
}

// Waiting es el número de dueños más esperas registradas para key.
func Waiting(c *Coordinator, key entity.StockKey) int { return c.refs(key) }
