package entity

import (
	"fmt"
	"time"
)

// StockKey identifica el dominio de exclusión de inventario: un producto en una sucursal.
type StockKey struct {
	ProductID string
	BranchID  string
}

func (k StockKey) String() string {
	return fmt.Sprintf("%s@%s", k.ProductID, k.BranchID)
}

// Less ordena claves primero por producto y luego por sucursal.
func (k StockKey) Less(o StockKey) bool {
	if k.ProductID != o.ProductID {
		return k.ProductID < o.ProductID
	}
	return k.BranchID < o.BranchID
}

// BranchStock es la existencia de un producto en una sucursal.
// Stock incluye lo apartado; el disponible para venta es Stock - Reserved.
type BranchStock struct {
	ProductID string
	BranchID  string
	Stock     int64
	Reserved  int64
	MinStock  int64
	MaxStock  int64
	UpdatedAt time.Time
}

func (s *BranchStock) Key() StockKey {
	return StockKey{ProductID: s.ProductID, BranchID: s.BranchID}
}

// Available devuelve la cantidad que se puede vender o apartar.
func (s *BranchStock) Available() int64 {
	return s.Stock - s.Reserved
}

// Valid verifica 0 <= Reserved <= Stock.
func (s *BranchStock) Valid() bool {
	return s.Reserved >= 0 && s.Reserved <= s.Stock
}

// BelowMinimum indica si el disponible quedó en o por debajo del mínimo configurado.
func (s *BranchStock) BelowMinimum() bool {
	return s.MinStock > 0 && s.Available() <= s.MinStock
}
