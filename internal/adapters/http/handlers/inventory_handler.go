package handlers

import (
	"ibc-intranet/internal/adapters/http/middleware"
	"ibc-intranet/internal/adapters/persistence/repositories"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/core/services"
	"ibc-intranet/internal/pkg/pagination"
	"ibc-intranet/internal/pkg/response"
	"ibc-intranet/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// InventoryHandler handles inventory catalogue and stock endpoints
type InventoryHandler struct {
	inventoryService *services.InventoryService
	validator        *validation.Validator
	logger           *zap.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryService *services.InventoryService, v *validation.Validator, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		validator:        v,
		logger:           logger,
	}
}

// ============================================================
// Catalogue
// ============================================================

// ListItems lists inventory items
// @Summary List inventory items
// @Tags Inventory
// @Produce json
// @Param category query string false "Category filter"
// @Param q query string false "Name search"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /inventory/items [get]
func (h *InventoryHandler) ListItems(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	filter := repositories.ItemFilter{
		Category: c.Query("category"),
		Search:   c.Query("q"),
	}

	items, total, err := h.inventoryService.ListItems(c.UserContext(), filter, params)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "Items retrieved successfully", pagination.NewResponse(items, params, total))
}

// GetItem gets one item
// @Summary Get inventory item
// @Tags Inventory
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /inventory/items/{id} [get]
func (h *InventoryHandler) GetItem(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	item, err := h.inventoryService.GetItem(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "Item retrieved successfully", item)
}

// CreateItem creates an item
// @Summary Create inventory item
// @Tags Inventory
// @Accept json
// @Produce json
// @Param body body services.CreateItemInput true "Item"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /inventory/items [post]
func (h *InventoryHandler) CreateItem(c *fiber.Ctx) error {
	var req services.CreateItemInput
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	item, err := h.inventoryService.CreateItem(c.UserContext(), middleware.ActorFrom(c), &req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Created(c, "Item created successfully", item)
}

// UpdateItem updates item details. Stock is changed through adjust and write-off only.
// @Summary Update inventory item
// @Tags Inventory
// @Accept json
// @Produce json
// @Param id path int true "Item ID"
// @Param body body services.UpdateItemInput true "Fields to update"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /inventory/items/{id} [put]
func (h *InventoryHandler) UpdateItem(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var req services.UpdateItemInput
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	item, err := h.inventoryService.UpdateItem(c.UserContext(), middleware.ActorFrom(c), id, &req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "Item updated successfully", item)
}

// DeleteItem deletes an item without active checkouts
// @Summary Delete inventory item
// @Tags Inventory
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /inventory/items/{id} [delete]
func (h *InventoryHandler) DeleteItem(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	if err := h.inventoryService.DeleteItem(c.UserContext(), middleware.ActorFrom(c), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "Item deleted successfully", nil)
}

// History lists the stock history of an item
// @Summary Stock history
// @Tags Inventory
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} response.Response
// @Router /inventory/items/{id}/history [get]
func (h *InventoryHandler) History(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	history, err := h.inventoryService.History(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "History retrieved successfully", history)
}

// LowStock lists items below their minimum stock
// @Summary Low stock items
// @Tags Inventory
// @Produce json
// @Success 200 {object} response.Response
// @Router /inventory/low-stock [get]
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	items, err := h.inventoryService.LowStock(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "Low stock items retrieved successfully", items)
}

// ============================================================
// Stock mutations
// ============================================================

// Checkout lends units of an item. Borrowing on behalf of someone else needs manage_inventory.
// @Summary Check out item
// @Tags Inventory
// @Accept json
// @Produce json
// @Param body body services.CheckoutInput true "Checkout"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /inventory/checkouts [post]
func (h *InventoryHandler) Checkout(c *fiber.Ctx) error {
	var req services.CheckoutInput
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	actor := middleware.ActorFrom(c)
	if req.BorrowerID != 0 && req.BorrowerID != actor.UserID && !domain.Grants(actor.Role, domain.PermManageInventory) {
		return respondError(c, h.logger, domain.ErrForbidden)
	}

	checkout, err := h.inventoryService.Checkout(c.UserContext(), actor, &req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Created(c, "Item checked out successfully", checkout)
}

// Checkin returns a checkout. Only the borrower or an inventory manager may check in.
// @Summary Check in item
// @Tags Inventory
// @Accept json
// @Produce json
// @Param id path int true "Checkout ID"
// @Param body body services.CheckinInput true "Returned and defective quantities"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /inventory/checkouts/{id}/checkin [post]
func (h *InventoryHandler) Checkin(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var req services.CheckinInput
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	actor := middleware.ActorFrom(c)
	if !domain.Grants(actor.Role, domain.PermManageInventory) {
		checkout, err := h.inventoryService.GetCheckout(c.UserContext(), id)
		if err != nil {
			return respondError(c, h.logger, err)
		}
		if checkout.BorrowerID != actor.UserID {
			return respondError(c, h.logger, domain.ErrForbidden)
		}
	}

	if err := h.inventoryService.Checkin(c.UserContext(), actor, id, req.Returned, req.Defective); err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "Item checked in successfully", nil)
}

// MyCheckouts lists the caller's open checkouts
// @Summary My checkouts
// @Tags Inventory
// @Produce json
// @Success 200 {object} response.Response
// @Router /inventory/checkouts/mine [get]
func (h *InventoryHandler) MyCheckouts(c *fiber.Ctx) error {
	checkouts, err := h.inventoryService.ActiveCheckouts(c.UserContext(), middleware.ActorFrom(c).UserID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "Checkouts retrieved successfully", checkouts)
}

// ActiveCheckouts lists every open checkout
// @Summary All open checkouts
// @Tags Inventory
// @Produce json
// @Success 200 {object} response.Response
// @Router /inventory/checkouts [get]
func (h *InventoryHandler) ActiveCheckouts(c *fiber.Ctx) error {
	checkouts, err := h.inventoryService.ActiveCheckouts(c.UserContext(), 0)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "Checkouts retrieved successfully", checkouts)
}

// AdjustStock applies a signed correction with a reason
// @Summary Adjust stock
// @Tags Inventory
// @Accept json
// @Produce json
// @Param id path int true "Item ID"
// @Param body body services.AdjustStockInput true "Adjustment"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /inventory/items/{id}/adjust [post]
func (h *InventoryHandler) AdjustStock(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var req services.AdjustStockInput
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	if err := h.inventoryService.AdjustStock(c.UserContext(), middleware.ActorFrom(c), id, req.Delta, req.Reason); err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "Stock adjusted successfully", nil)
}

// WriteOff removes lost or broken units
// @Summary Write off stock
// @Tags Inventory
// @Accept json
// @Produce json
// @Param id path int true "Item ID"
// @Param body body services.WriteOffInput true "Write-off"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /inventory/items/{id}/write-off [post]
func (h *InventoryHandler) WriteOff(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var req services.WriteOffInput
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	if err := h.inventoryService.WriteOff(c.UserContext(), middleware.ActorFrom(c), id, req.Quantity, req.Comment); err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "Stock written off successfully", nil)
}
