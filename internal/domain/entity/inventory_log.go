package entity

import "time"

// Motivos de cambio físico de stock.
const (
	ReasonSale              = "sale"
	ReasonLayawaySettlement = "layaway-settlement"
	ReasonAdjustment        = "adjustment"
	ReasonReceiving         = "receiving"
	ReasonShrinkage         = "shrinkage"
	ReasonReturn            = "return"
	ReasonCount             = "count"
	ReasonTransfer          = "transfer"
)

// Tipos de documento referenciado por una entrada del registro.
const (
	RefTypeSale     = "sale"
	RefTypeLayaway  = "layaway"
	RefTypeManual   = "manual"
	RefTypeTransfer = "transfer"
)

// ValidReason reporta si reason es un motivo conocido.
func ValidReason(reason string) bool {
	switch reason {
	case ReasonSale, ReasonLayawaySettlement, ReasonAdjustment, ReasonReceiving,
		ReasonShrinkage, ReasonReturn, ReasonCount, ReasonTransfer:
		return true
	}
	return false
}

// InventoryLogEntry es una entrada inmutable del registro de auditoría.
// Solo se escribe cuando cambia el stock físico; reservar o liberar no genera entrada.
type InventoryLogEntry struct {
	ID        string
	ProductID string
	BranchID  string
	Delta     int64
	Reason    string
	Actor     string
	RefType   string
	RefID     string
	CreatedAt time.Time
}
