// internal/handlers/quote.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type QuoteHandler struct {
	quoteService        *services.QuoteService
	notificationService *services.NotificationService
}

func NewQuoteHandler(quoteService *services.QuoteService, notificationService *services.NotificationService) *QuoteHandler {
	return &QuoteHandler{
		quoteService:        quoteService,
		notificationService: notificationService,
	}
}

// GET /quotes
func (h *QuoteHandler) GetMyQuotes(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	h.listQuotes(c, services.QuoteFilter{UserID: &actor.UserID})
}

// GET /admin/quotes
func (h *QuoteHandler) GetAllQuotes(c *gin.Context) {
	h.listQuotes(c, services.QuoteFilter{})
}

func (h *QuoteHandler) listQuotes(c *gin.Context, filter services.QuoteFilter) {
	params := utils.GetPaginationParams(c)

	if status := c.Query("status"); status != "" {
		quoteStatus := models.QuoteStatus(status)
		if !quoteStatus.Valid() {
			lang := utils.GetLangFromContext(c)
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "status"), nil)
			return
		}
		filter.Status = &quoteStatus
	}

	quotes, total, err := h.quoteService.ListQuotes(c.Request.Context(), filter, params)
	if err != nil {
		respondError(c, err, "quote")
		return
	}

	result := utils.CreatePaginationResult(quotes, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /quotes/:id
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "quote ID")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var quote *models.Quote
	var err error
	if actor.IsAdmin() {
		quote, err = h.quoteService.GetQuote(c.Request.Context(), id)
	} else {
		quote, err = h.quoteService.GetQuoteForUser(c.Request.Context(), id, actor.UserID)
	}
	if err != nil {
		respondError(c, err, "quote")
		return
	}

	utils.SuccessResponse(c, quote)
}

// POST /quotes/:id/accept
func (h *QuoteHandler) AcceptQuote(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c, "id", "quote ID")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	quote, err := h.quoteService.AcceptQuote(c.Request.Context(), id, actor.UserID)
	if err != nil {
		respondError(c, err, "quote")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyQuoteAccepted),
		"quote":   quote,
	})
}

// POST /quotes/:id/reject
func (h *QuoteHandler) RejectQuote(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c, "id", "quote ID")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	quote, err := h.quoteService.RejectQuote(c.Request.Context(), id, actor.UserID)
	if err != nil {
		respondError(c, err, "quote")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyQuoteRejected),
		"quote":   quote,
	})
}

// POST /quotes/:id/convert
func (h *QuoteHandler) ConvertMyQuote(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "quote ID")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	order, err := h.quoteService.ConvertForUser(c.Request.Context(), id, actor.UserID)
	h.respondConverted(c, order, err)
}

// POST /admin/quotes/:id/convert
func (h *QuoteHandler) ConvertQuote(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "quote ID")
	if !ok {
		return
	}

	order, err := h.quoteService.ConvertQuoteToOrder(c.Request.Context(), id)
	h.respondConverted(c, order, err)
}

func (h *QuoteHandler) respondConverted(c *gin.Context, order *models.Order, err error) {
	if err != nil {
		respondError(c, err, "quote")
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyQuoteConverted, order.OrderNumber),
		"order":   order,
	})
}

// POST /admin/quotes
func (h *QuoteHandler) CreateQuote(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateQuoteRequest
	if !bindJSON(c, &req) {
		return
	}

	quote, err := h.quoteService.CreateQuote(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyQuoteCreated),
		"quote":   quote,
	})
}

// POST /admin/quotes/:id/send
func (h *QuoteHandler) SendQuote(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c, "id", "quote ID")
	if !ok {
		return
	}

	quote, err := h.quoteService.SendQuote(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "quote")
		return
	}

	if h.notificationService != nil {
		go h.notificationService.QuoteSent(quote)
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyQuoteSent),
		"quote":   quote,
	})
}

// POST /admin/quotes/expire
func (h *QuoteHandler) ExpireQuotes(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	count, err := h.quoteService.ExpireOverdue(c.Request.Context())
	if err != nil {
		respondError(c, err, "quote")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyQuotesExpired, count),
		"expired": count,
	})
}
