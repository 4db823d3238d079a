package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/cycredit/backend/internal/services"
)

type StoreHandler struct {
	store     *services.StoreService
	validator *services.ValidationHelper
}

func NewStoreHandler(store *services.StoreService) *StoreHandler {
	return &StoreHandler{
		store:     store,
		validator: services.NewValidationHelper(),
	}
}

// ListItems returns the store catalog
// @Summary List store items
// @Description List all purchasable catalog items
// @Tags store
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.StoreItem
// @Router /store/items [get]
func (h *StoreHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	if _, ok := accountFromContext(w, r); !ok {
		return
	}

	items, err := h.store.ListItems(r.Context())
	if err != nil {
		services.SendBusinessError(w, err)
		return
	}
	writeJSON(w, items)
}

type purchaseRequest struct {
	ItemID   int64  `json:"itemId" validate:"required,gt=0"`
	Quantity int    `json:"quantity"`
	Nonce    string `json:"nonce" validate:"required"`
}

// Purchase buys a catalog item
// @Summary Purchase a store item
// @Description Buy an item, spending a turn and charging the price through billing. The nonce makes retries safe.
// @Tags store
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body purchaseRequest true "Purchase request"
// @Success 200 {object} object{cash=number}
// @Failure 402 {object} services.ErrorResponse "Credit limit exceeded"
// @Failure 409 {object} services.ErrorResponse "No turns left"
// @Router /store/purchase [post]
func (h *StoreHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountFromContext(w, r)
	if !ok {
		return
	}

	var req purchaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	cash, err := h.store.Purchase(r.Context(), accountID, req.ItemID, req.Quantity, req.Nonce)
	if err != nil {
		services.SendBusinessError(w, err)
		return
	}
	writeJSON(w, map[string]any{"cash": cash})
}

type itemRequest struct {
	Name     string          `json:"name" validate:"required"`
	Category string          `json:"category" validate:"required"`
	Price    decimal.Decimal `json:"price" validate:"required"`
}

// UpdateItem edits a catalog item
// @Summary Update a store item
// @Description Administrative edit of a catalog item
// @Tags store
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param itemId path int true "Item ID"
// @Param request body itemRequest true "Item request"
// @Success 200 {object} models.StoreItem
// @Failure 404 {object} services.ErrorResponse
// @Router /store/items/{itemId} [put]
func (h *StoreHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if _, ok := accountFromContext(w, r); !ok {
		return
	}

	id, err := pathID(r, "itemId")
	if err != nil {
		services.SendErrorResponse(w, "Invalid item ID", http.StatusBadRequest, nil)
		return
	}

	var req itemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	item, err := h.store.UpdateItem(r.Context(), id, req.Name, req.Category, req.Price)
	if err != nil {
		services.SendBusinessError(w, err)
		return
	}
	writeJSON(w, item)
}

// DeleteItem removes a catalog item
// @Summary Delete a store item
// @Description Administrative removal of a catalog item
// @Tags store
// @Produce json
// @Security BearerAuth
// @Param itemId path int true "Item ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} services.ErrorResponse
// @Router /store/items/{itemId} [delete]
func (h *StoreHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if _, ok := accountFromContext(w, r); !ok {
		return
	}

	id, err := pathID(r, "itemId")
	if err != nil {
		services.SendErrorResponse(w, "Invalid item ID", http.StatusBadRequest, nil)
		return
	}

	if err := h.store.DeleteItem(r.Context(), id); err != nil {
		services.SendBusinessError(w, err)
		return
	}
	writeJSON(w, map[string]string{"message": "Item deleted"})
}
