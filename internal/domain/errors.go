package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrDuplicate              = errors.New("recurso duplicado")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrForbidden              = errors.New("acceso denegado")
	ErrInactive               = errors.New("recurso inactivo")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrInvariantViolation     = errors.New("violación de invariante de inventario")
	ErrInvalidStateTransition = errors.New("transición de estado inválida")
	// ErrContention es el único error reintentable: el almacén o el coordinador
	// no pudo adquirir el bloqueo a tiempo y no se escribió nada.
	ErrContention = errors.New("contención al adquirir bloqueo")
)

// StockError describe un rechazo de inventario con el detalle que necesita el cajero.
// Unwrap devuelve ErrInsufficientStock o ErrInvariantViolation.
type StockError struct {
	Kind      error
	Op        string
	ProductID string
	BranchID  string
	Requested int64
	// Available es el disponible (stock - reservado) o, para release/consume, lo reservado.
	Available int64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%s: %v (producto=%s sucursal=%s solicitado=%d disponible=%d)",
		e.Op, e.Kind, e.ProductID, e.BranchID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return e.Kind }

// InsufficientStock construye un StockError de stock insuficiente.
func InsufficientStock(op, productID, branchID string, requested, available int64) error {
	return &StockError{Kind: ErrInsufficientStock, Op: op, ProductID: productID, BranchID: branchID, Requested: requested, Available: available}
}

// InvariantViolation construye un StockError por liberar/consumir más de lo reservado.
func InvariantViolation(op, productID, branchID string, requested, reserved int64) error {
	return &StockError{Kind: ErrInvariantViolation, Op: op, ProductID: productID, BranchID: branchID, Requested: requested, Available: reserved}
}

// StateError indica una transición de estado no permitida (p. ej. liquidar un apartado cancelado).
type StateError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s %s: no se puede pasar de %q a %q", e.Entity, e.ID, e.From, e.To)
}

func (e *StateError) Unwrap() error { return ErrInvalidStateTransition }

// IsRetryable reporta si el llamador puede reintentar la operación completa.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrContention)
}
