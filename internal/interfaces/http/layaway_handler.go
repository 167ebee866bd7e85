package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/application/sales"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// LayawayHandler maneja apartados y abonos.
type LayawayHandler struct {
	engine *sales.Engine
}

// NewLayawayHandler construye el handler.
func NewLayawayHandler(engine *sales.Engine) *LayawayHandler {
	return &LayawayHandler{engine: engine}
}

// Create godoc
// @Summary      Crear apartado
// @Description  Reserva la mercancía (no la descuenta) y registra el anticipo.
// @Tags         layaways
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateLayawayRequest  true  "Cliente, líneas, anticipo"
// @Success      201   {object}  dto.LayawayResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/layaways [post]
func (h *LayawayHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateLayawayRequest
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
	l, err := h.engine.CreateLayaway(c.UserContext(), sales.CreateLayawayInput{
		BranchID:   branchID,
		CustomerID: in.CustomerID,
		Actor:      GetUserID(c),
		Lines:      toLineInputs(in.Lines),
		Discount:   in.Discount,
		Deposit:    in.Deposit,
		DueDate:    in.DueDate,
		Notes:      in.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toLayawayResponse(l, nil))
}

// GetByID GET /api/layaways/:id (con líneas y abonos)
func (h *LayawayHandler) GetByID(c *fiber.Ctx) error {
	l, payments, err := h.engine.GetLayaway(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if !branchAllowed(c, l.BranchID) {
		return forbiddenBranch(c)
	}
	return c.JSON(toLayawayResponse(l, payments))
}

// List GET /api/layaways?branch_id=&customer_id=&status=
func (h *LayawayHandler) List(c *fiber.Ctx) error {
	branchID, ok := scopeBranch(c, c.Query("branch_id"))
	if !ok {
		return forbiddenBranch(c)
	}
	page := pageQuery(c)
	list, err := h.engine.ListLayaways(c.UserContext(), repository.LayawayFilter{
		BranchID:   branchID,
		CustomerID: c.Query("customer_id"),
		Status:     c.Query("status"),
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	items := make([]dto.LayawayResponse, 0, len(list))
	for _, l := range list {
		items = append(items, toLayawayResponse(l, nil))
	}
	return c.JSON(fiber.Map{"items": items, "page": dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
}

// AddPayment godoc
// @Summary      Registrar abono
// @Description  Si el abono cubre el saldo, el apartado se liquida en la misma transacción y se devuelve la venta.
// @Tags         layaways
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID del apartado"
// @Param        body  body  dto.LayawayPaymentRequest  true  "Monto"
// @Success      200   {object}  dto.LayawayPaymentResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/layaways/{id}/payments [post]
func (h *LayawayHandler) AddPayment(c *fiber.Ctx) error {
	var in dto.LayawayPaymentRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if ok, err := h.inScope(c); !ok {
		return err
	}
	l, sale, err := h.engine.AddLayawayPayment(c.UserContext(), c.Params("id"), in.Amount, GetUserID(c), in.Notes)
	if err != nil {
		return respondError(c, err)
	}
	out := dto.LayawayPaymentResult{Layaway: toLayawayResponse(l, nil)}
	if sale != nil {
		out.Sale = toSaleResponse(sale)
	}
	return c.JSON(out)
}

// Settle POST /api/layaways/:id/settle
func (h *LayawayHandler) Settle(c *fiber.Ctx) error {
	if ok, err := h.inScope(c); !ok {
		return err
	}
	sale, err := h.engine.SettleLayaway(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toSaleResponse(sale))
}

// Cancel POST /api/layaways/:id/cancel
func (h *LayawayHandler) Cancel(c *fiber.Ctx) error {
	if ok, err := h.inScope(c); !ok {
		return err
	}
	l, err := h.engine.CancelLayaway(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toLayawayResponse(l, nil))
}

// inScope verifica que el apartado de :id pertenezca a la sucursal del cajero.
// Si no, ya escribió la respuesta y devuelve false.
func (h *LayawayHandler) inScope(c *fiber.Ctx) (bool, error) {
	l, _, err := h.engine.GetLayaway(c.UserContext(), c.Params("id"))
	if err != nil {
		return false, respondError(c, err)
	}
	if !branchAllowed(c, l.BranchID) {
		return false, forbiddenBranch(c)
	}
	return true, nil
}
