// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
	stockService *services.StockService
}

func NewAdminHandler(adminService *services.AdminService, stockService *services.StockService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		stockService: stockService,
	}
}

// GET /admin/dashboard/stats
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, err, "order")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}

// POST /admin/stock/movements
func (h *AdminHandler) RecordMovement(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.MovementRequest
	if !bindJSON(c, &req) {
		return
	}

	movement, err := h.stockService.ApplyMovement(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyStockMovementRecorded),
		"movement": movement,
	})
}

// GET /admin/products/:id/movements
func (h *AdminHandler) GetMovements(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "product ID")
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	movements, total, err := h.stockService.ListMovements(c.Request.Context(), id, params)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	result := utils.CreatePaginationResult(movements, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /admin/products/:id/reconcile
func (h *AdminHandler) ReconcileStock(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "product ID")
	if !ok {
		return
	}

	report, err := h.stockService.Reconcile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, report)
}

// GET /admin/stock/alerts
func (h *AdminHandler) GetStockAlerts(c *gin.Context) {
	products, err := h.stockService.LowStockProducts(c.Request.Context())
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, products)
}
