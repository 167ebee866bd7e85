package entity

import "time"

// Customer representa un cliente (ventas a nombre y apartados).
type Customer struct {
	ID        string
	Name      string
	Phone     string
	Email     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
