// internal/handlers/payment.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// POST /orders/:id/payment-intent
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "order ID")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	response, err := h.paymentService.CreateOrderPayment(c.Request.Context(), id, actor.UserID)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	utils.SuccessResponse(c, response)
}

// POST /orders/:id/payment-confirm
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c, "id", "order ID")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req services.ConfirmPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.paymentService.ConfirmOrderPayment(c.Request.Context(), id, actor.UserID, &req)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	message := i18n.T(lang, i18n.KeyPaymentStatusUpdated)
	if order.PaymentStatus == models.PaymentStatusFailed {
		message = i18n.T(lang, i18n.KeyPaymentFailed)
	}

	utils.SuccessResponse(c, gin.H{
		"message": message,
		"order":   order,
	})
}
