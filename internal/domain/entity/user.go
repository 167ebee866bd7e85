package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleCashier    = "cashier"
)

// ValidRole reporta si role es uno de los roles conocidos.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleSupervisor || role == RoleCashier
}

// User es un operador del punto de venta, asignado a una sucursal.
type User struct {
	ID           string
	Username     string
	PasswordHash string // bcrypt, nunca en plano
	Name         string
	Role         string
	BranchID     string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
