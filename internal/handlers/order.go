// internal/handlers/order.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type OrderHandler struct {
	orderService  *services.OrderService
	exportService *services.ExportService
}

type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type UpdateOrderStatusRequest struct {
	Status  models.OrderStatus `json:"status" validate:"required,order_status"`
	Comment string             `json:"comment" validate:"max=500"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus models.PaymentStatus `json:"payment_status" validate:"required,payment_status"`
}

func NewOrderHandler(orderService *services.OrderService, exportService *services.ExportService) *OrderHandler {
	return &OrderHandler{
		orderService:  orderService,
		exportService: exportService,
	}
}

// POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}
	req.UserID = actor.UserID
	req.CustomerEmail = actor.Email

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "cart")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOrderCreated, order.OrderNumber),
		"order":   order,
	})
}

// GET /orders
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	filter := services.OrderFilter{UserID: &actor.UserID}
	h.listOrders(c, filter)
}

// GET /admin/orders
func (h *OrderHandler) GetAllOrders(c *gin.Context) {
	h.listOrders(c, services.OrderFilter{})
}

func (h *OrderHandler) listOrders(c *gin.Context, filter services.OrderFilter) {
	params := utils.GetPaginationParams(c)

	if status := c.Query("status"); status != "" {
		orderStatus := models.OrderStatus(status)
		if !orderStatus.Valid() {
			lang := utils.GetLangFromContext(c)
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "status"), nil)
			return
		}
		filter.Status = &orderStatus
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), filter, params)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	result := utils.CreatePaginationResult(orders, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "order ID")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var order *models.Order
	var err error
	if actor.IsAdmin() {
		order, err = h.orderService.GetOrder(c.Request.Context(), id)
	} else {
		order, err = h.orderService.GetOrderForUser(c.Request.Context(), id, actor.UserID)
	}
	if err != nil {
		respondError(c, err, "order")
		return
	}

	utils.SuccessResponse(c, order)
}

// GET /orders/:id/history
func (h *OrderHandler) GetOrderHistory(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "order ID")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if !actor.IsAdmin() {
		if _, err := h.orderService.GetOrderForUser(c.Request.Context(), id, actor.UserID); err != nil {
			respondError(c, err, "order")
			return
		}
	}

	history, err := h.orderService.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	utils.SuccessResponse(c, history)
}

// POST /orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c, "id", "order ID")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req CancelOrderRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.CancelOrder(c.Request.Context(), id, actor.UserID, req.Reason)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOrderCancelled),
		"order":   order,
	})
}

// GET /admin/orders/:id/transitions
func (h *OrderHandler) GetTransitions(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "order ID")
	if !ok {
		return
	}

	next, err := h.orderService.NextStatuses(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	utils.SuccessResponse(c, gin.H{"allowed": next})
}

// PUT /admin/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c, "id", "order ID")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.Transition(c.Request.Context(), id, req.Status, req.Comment)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOrderStatusUpdated),
		"order":   order,
	})
}

// PUT /admin/orders/:id/payment-status
func (h *OrderHandler) UpdatePaymentStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c, "id", "order ID")
	if !ok {
		return
	}

	var req UpdatePaymentStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.UpdatePaymentStatus(c.Request.Context(), id, req.PaymentStatus)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPaymentStatusUpdated),
		"order":   order,
	})
}

// GET /admin/orders/:id/export
func (h *OrderHandler) ExportOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "order ID")
	if !ok {
		return
	}

	result, err := h.exportService.ExportOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	utils.SuccessResponse(c, result)
}
