package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/application/usecase"
)

// ReportHandler expone los reportes de solo lectura.
type ReportHandler struct {
	uc *usecase.ReportUseCase
}

// NewReportHandler construye el handler.
func NewReportHandler(uc *usecase.ReportUseCase) *ReportHandler {
	return &ReportHandler{uc: uc}
}

func (h *ReportHandler) request(c *fiber.Ctx) (dto.ReportRequest, bool) {
	var req dto.ReportRequest
	if err := c.QueryParser(&req); err != nil {
		return req, false
	}
	branchID, ok := scopeBranch(c, req.BranchID)
	req.BranchID = branchID
	return req, ok
}

// SalesSummary godoc
// @Summary      Resumen de ventas
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        branch_id   query  string  false  "Sucursal"
// @Param        start_date  query  string  false  "YYYY-MM-DD (por defecto inicio del mes)"
// @Param        end_date    query  string  false  "YYYY-MM-DD inclusivo (por defecto hoy)"
// @Success      200  {object}  dto.SalesSummaryDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/reports/sales-summary [get]
func (h *ReportHandler) SalesSummary(c *fiber.Ctx) error {
	req, ok := h.request(c)
	if !ok {
		return forbiddenBranch(c)
	}
	out, err := h.uc.SalesSummary(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Margins GET /api/reports/margins?branch_id=&start_date=&end_date=&top_n=
func (h *ReportHandler) Margins(c *fiber.Ctx) error {
	req, ok := h.request(c)
	if !ok {
		return forbiddenBranch(c)
	}
	out, err := h.uc.Margins(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
