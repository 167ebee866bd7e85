package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/application/sales"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// SaleHandler maneja ventas de mostrador.
type SaleHandler struct {
	engine *sales.Engine
}

// NewSaleHandler construye el handler.
func NewSaleHandler(engine *sales.Engine) *SaleHandler {
	return &SaleHandler{engine: engine}
}

func toLineInputs(lines []dto.LineRequest) []sales.LineInput {
	out := make([]sales.LineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, sales.LineInput{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	return out
}

// priceOverrideAllowed: solo supervisor y admin pueden fijar unit_price distinto al del catálogo.
func priceOverrideAllowed(c *fiber.Ctx, lines []dto.LineRequest) bool {
	if GetRole(c) != entity.RoleCashier {
		return true
	}
	for _, l := range lines {
		if l.UnitPrice != nil {
			return false
		}
	}
	return true
}

func forbiddenPriceOverride(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "PRICE_OVERRIDE_FORBIDDEN", Message: "el cajero no puede modificar el precio de catálogo"})
}

// Create godoc
// @Summary      Registrar venta
// @Description  Todas las líneas se descuentan en una sola transacción; si una falla no se aplica ninguna.
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateSaleRequest  true  "Líneas, descuento y pago"
// @Success      201   {object}  dto.SaleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/sales [post]
func (h *SaleHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	branchID, ok := scopeBranch(c, in.BranchID)
	if !ok {
		return forbiddenBranch(c)
	}
	if !priceOverrideAllowed(c, in.Lines) {
		return forbiddenPriceOverride(c)
	}
	sale, err := h.engine.CreateSale(c.UserContext(), sales.CreateSaleInput{
		BranchID:   branchID,
		CustomerID: in.CustomerID,
		Actor:      GetUserID(c),
		Lines:      toLineInputs(in.Lines),
		Discount:   in.Discount,
		Payment: sales.PaymentInput{
			Method:         in.Payment.Method,
			Reference:      in.Payment.Reference,
			AmountTendered: in.Payment.AmountTendered,
		},
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toSaleResponse(sale))
}

// GetByID GET /api/sales/:id
func (h *SaleHandler) GetByID(c *fiber.Ctx) error {
	sale, err := h.engine.GetSale(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if !branchAllowed(c, sale.BranchID) {
		return forbiddenBranch(c)
	}
	return c.JSON(toSaleResponse(sale))
}

// List GET /api/sales?branch_id=&customer_id=&from=&to=
func (h *SaleHandler) List(c *fiber.Ctx) error {
	branchID, ok := scopeBranch(c, c.Query("branch_id"))
	if !ok {
		return forbiddenBranch(c)
	}
	from, err := timeQuery(c, "from")
	if err != nil {
		return badRequest(c, "VALIDATION", "from inválido")
	}
	to, err := timeQuery(c, "to")
	if err != nil {
		return badRequest(c, "VALIDATION", "to inválido")
	}
	page := pageQuery(c)
	list, err := h.engine.ListSales(c.UserContext(), repository.SaleFilter{
		BranchID:   branchID,
		CustomerID: c.Query("customer_id"),
		From:       from,
		To:         to,
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	out := dto.SaleListResponse{Items: make([]dto.SaleResponse, 0, len(list)), Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}}
	for _, s := range list {
		out.Items = append(out.Items, *toSaleResponse(s))
	}
	return c.JSON(out)
}
