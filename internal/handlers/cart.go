// internal/handlers/cart.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type CartHandler struct {
	cartService *services.CartService
}

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

type MergeCartRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
}

func NewCartHandler(cartService *services.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

// cartOwner resolves the cart owner: the authenticated user first, then the
// anonymous session set by the CartSession middleware.
func cartOwner(c *gin.Context) (models.Owner, bool) {
	if userID, ok := utils.GetUserIDFromContext(c); ok {
		return models.UserOwner(userID), true
	}
	if session, ok := utils.GetCartSessionFromContext(c); ok {
		return models.AnonymousOwner(session), true
	}
	lang := utils.GetLangFromContext(c)
	utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyCartNoOwner), nil)
	return models.Owner{}, false
}

// GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	owner, ok := cartOwner(c)
	if !ok {
		return
	}

	cart, err := h.cartService.FindCart(c.Request.Context(), owner)
	if errors.Is(err, services.ErrNotFound) {
		utils.SuccessResponse(c, services.CartSummary{
			Lines:  []services.CartLineView{},
			Totals: services.ComputeTotals(nil, decimal.Zero),
		})
		return
	}
	if err != nil {
		respondError(c, err, "cart")
		return
	}

	h.respondSummary(c, cart.ID, "")
}

// POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	owner, ok := cartOwner(c)
	if !ok {
		return
	}

	var req AddCartItemRequest
	if !bindJSON(c, &req) {
		return
	}

	cart, err := h.cartService.GetOrCreateCart(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err, "cart")
		return
	}

	if _, err := h.cartService.AddLine(c.Request.Context(), cart.ID, req.ProductID, req.Quantity); err != nil {
		respondError(c, err, "product")
		return
	}

	h.respondSummary(c, cart.ID, i18n.KeyCartItemAdded)
}

// PUT /cart/items/:product_id
func (h *CartHandler) UpdateItem(c *gin.Context) {
	owner, ok := cartOwner(c)
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "product_id", "product ID")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if !bindJSON(c, &req) {
		return
	}

	cart, err := h.cartService.FindCart(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err, "cart")
		return
	}

	if _, err := h.cartService.SetLineQuantity(c.Request.Context(), cart.ID, productID, req.Quantity); err != nil {
		respondError(c, err, "product")
		return
	}

	h.respondSummary(c, cart.ID, i18n.KeyCartItemUpdated)
}

// DELETE /cart/items/:product_id
func (h *CartHandler) RemoveItem(c *gin.Context) {
	owner, ok := cartOwner(c)
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "product_id", "product ID")
	if !ok {
		return
	}

	cart, err := h.cartService.FindCart(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err, "cart")
		return
	}

	if err := h.cartService.RemoveLine(c.Request.Context(), cart.ID, productID); err != nil {
		respondError(c, err, "cart")
		return
	}

	h.respondSummary(c, cart.ID, i18n.KeyCartItemRemoved)
}

// DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	owner, ok := cartOwner(c)
	if !ok {
		return
	}

	cart, err := h.cartService.FindCart(c.Request.Context(), owner)
	if errors.Is(err, services.ErrNotFound) {
		utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyCartCleared)})
		return
	}
	if err != nil {
		respondError(c, err, "cart")
		return
	}

	if err := h.cartService.Clear(c.Request.Context(), cart.ID); err != nil {
		respondError(c, err, "cart")
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyCartCleared)})
}

// POST /cart/merge
func (h *CartHandler) MergeCart(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req MergeCartRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = c.GetHeader(utils.CartSessionHeader)
	}
	if sessionID == "" {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "session_id"), nil)
		return
	}

	cart, err := h.cartService.MergeSession(c.Request.Context(), sessionID, actor.UserID)
	if err != nil {
		respondError(c, err, "cart")
		return
	}

	h.respondSummary(c, cart.ID, i18n.KeyCartMerged)
}

// respondSummary answers with the re-validated cart contents. Lines whose
// product went away or whose stock shrank are reported under removed/clamped.
func (h *CartHandler) respondSummary(c *gin.Context, cartID uuid.UUID, messageKey string) {
	summary, err := h.cartService.ReadLines(c.Request.Context(), cartID)
	if err != nil {
		respondError(c, err, "cart")
		return
	}
	if messageKey == "" {
		utils.SuccessResponse(c, summary)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, messageKey),
		"cart":    summary,
	})
}
