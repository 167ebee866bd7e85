package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/application/inventory"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// InventoryHandler expone el motor de inventario (protegido).
type InventoryHandler struct {
	engine        *inventory.Engine
	replenishment *inventory.ReplenishmentUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(engine *inventory.Engine, replenishment *inventory.ReplenishmentUseCase) *InventoryHandler {
	return &InventoryHandler{engine: engine, replenishment: replenishment}
}

// Available godoc
// @Summary      Disponible para venta
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  true   "Producto"
// @Param        branch_id   query  string  false  "Sucursal (por defecto la del token)"
// @Success      200  {object}  dto.AvailabilityResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/available [get]
func (h *InventoryHandler) Available(c *fiber.Ctx) error {
	branchID, ok := scopeBranch(c, c.Query("branch_id"))
	if !ok {
		return forbiddenBranch(c)
	}
	productID := c.Query("product_id")
	n, err := h.engine.AvailableQuantity(c.UserContext(), productID, branchID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.AvailabilityResponse{ProductID: productID, BranchID: branchID, Available: n})
}

// Stock GET /api/inventory/stock?branch_id=&product_id=
// Con product_id devuelve una fila; sin él, el stock paginado de la sucursal.
func (h *InventoryHandler) Stock(c *fiber.Ctx) error {
	branchID, ok := scopeBranch(c, c.Query("branch_id"))
	if !ok {
		return forbiddenBranch(c)
	}
	if productID := c.Query("product_id"); productID != "" {
		s, err := h.engine.GetStock(c.UserContext(), productID, branchID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(toStockResponse(s))
	}
	page := pageQuery(c)
	rows, err := h.engine.ListStock(c.UserContext(), branchID, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	items := make([]dto.StockResponse, 0, len(rows))
	for _, s := range rows {
		items = append(items, toStockResponse(s))
	}
	return c.JSON(fiber.Map{"items": items, "page": dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
}

// Adjust godoc
// @Summary      Ajustar stock físico
// @Description  Recepción, merma, conteo o devolución. Queda registrado en el log de auditoría.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustStockRequest  true  "product_id, branch_id, delta, reason, unit_cost (entradas)"
// @Success      200   {object}  dto.StockResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjust [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	branchID, ok := scopeBranch(c, in.BranchID)
	if !ok {
		return forbiddenBranch(c)
	}
	s, err := h.engine.AdjustStock(c.UserContext(), inventory.StockChange{
		ProductID: in.ProductID,
		BranchID:  branchID,
		Quantity:  in.Delta,
		Reason:    in.Reason,
		Actor:     GetUserID(c),
		RefType:   entity.RefTypeManual,
		UnitCost:  in.UnitCost,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toStockResponse(s))
}

// Introduce POST /api/inventory/introduce
func (h *InventoryHandler) Introduce(c *fiber.Ctx) error {
	var in dto.IntroduceProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	branchID, ok := scopeBranch(c, in.BranchID)
	if !ok {
		return forbiddenBranch(c)
	}
	s, err := h.engine.IntroduceProduct(c.UserContext(), inventory.IntroduceInput{
		ProductID:    in.ProductID,
		BranchID:     branchID,
		InitialStock: in.InitialStock,
		MinStock:     in.MinStock,
		MaxStock:     in.MaxStock,
		Actor:        GetUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toStockResponse(s))
}

// Thresholds PUT /api/inventory/thresholds
func (h *InventoryHandler) Thresholds(c *fiber.Ctx) error {
	var in dto.ThresholdsRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	branchID, ok := scopeBranch(c, in.BranchID)
	if !ok {
		return forbiddenBranch(c)
	}
	s, err := h.engine.SetThresholds(c.UserContext(), in.ProductID, branchID, in.MinStock, in.MaxStock)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toStockResponse(s))
}

// Transfer POST /api/inventory/transfer
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	from, to, err := h.engine.TransferStock(c.UserContext(), inventory.TransferInput{
		ProductID:    in.ProductID,
		FromBranchID: in.FromBranchID,
		ToBranchID:   in.ToBranchID,
		Quantity:     in.Quantity,
		Actor:        GetUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"from": toStockResponse(from), "to": toStockResponse(to)})
}

// Logs GET /api/inventory/logs?product_id=&branch_id=&reason=&from=&to=
func (h *InventoryHandler) Logs(c *fiber.Ctx) error {
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
	entries, err := h.engine.ListLogs(c.UserContext(), repository.InventoryLogFilter{
		ProductID: c.Query("product_id"),
		BranchID:  branchID,
		Reason:    c.Query("reason"),
		From:      from,
		To:        to,
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	items := make([]dto.InventoryLogResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toLogResponse(e))
	}
	return c.JSON(fiber.Map{"items": items, "page": dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
}

// Reconcile GET /api/inventory/reconcile?product_id=&branch_id=
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	branchID, ok := scopeBranch(c, c.Query("branch_id"))
	if !ok {
		return forbiddenBranch(c)
	}
	r, err := h.engine.Reconcile(c.UserContext(), c.Query("product_id"), branchID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ReconcileResponse{
		ProductID:  r.ProductID,
		BranchID:   r.BranchID,
		Stock:      r.Stock,
		Reserved:   r.Reserved,
		LoggedSum:  r.LoggedSum,
		Entries:    r.Entries,
		Consistent: r.Consistent,
	})
}

// LowStock godoc
// @Summary      Productos en o bajo el mínimo
// @Description  Devuelve los SKUs cuyo disponible quedó en o bajo el mínimo con la cantidad
//
//	sugerida de pedido, ordenados por margen histórico y volumen de ventas.
//
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        branch_id  query  string  false  "Sucursal (por defecto la del token)"
// @Success      200  {array}   dto.ReplenishmentSuggestionDTO
// @Router       /api/inventory/low-stock [get]
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	branchID, ok := scopeBranch(c, c.Query("branch_id"))
	if !ok {
		return forbiddenBranch(c)
	}
	list, err := h.replenishment.LowStock(c.UserContext(), branchID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(list), "items": list})
}
