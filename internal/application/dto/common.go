package dto

// PageRequest paginación para listados.
type PageRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// DefaultPage aplica valores por defecto y acota Limit a 100.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total,omitempty"`
}

// ErrorResponse cuerpo de error HTTP. Retryable solo es true ante contención.
type ErrorResponse struct {
	Code      string        `json:"code"`
	Message   string        `json:"message"`
	Retryable bool          `json:"retryable,omitempty"`
	Stock     *StockErrorDTO `json:"stock,omitempty"`
}

// StockErrorDTO detalle de un rechazo de inventario.
type StockErrorDTO struct {
	ProductID string `json:"product_id"`
	BranchID  string `json:"branch_id"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
}
