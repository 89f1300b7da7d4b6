// internal/services/admin_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/models"
)

type AdminService struct {
	db  *gorm.DB
	now func() time.Time
}

type AdminDashboardStats struct {
	TotalOrders      int64                        `json:"total_orders"`
	OrdersThisMonth  int64                        `json:"orders_this_month"`
	OrdersByStatus   map[models.OrderStatus]int64 `json:"orders_by_status"`
	TotalRevenue     decimal.Decimal              `json:"total_revenue"`
	MonthlyRevenue   decimal.Decimal              `json:"monthly_revenue"`
	RevenueGrowth    float64                      `json:"revenue_growth"`
	ActiveProducts   int64                        `json:"active_products"`
	LowStockProducts int64                        `json:"low_stock_products"`
	OpenQuotes       int64                        `json:"open_quotes"`
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{
		db:  db,
		now: time.Now,
	}
}

// Dashboard Statistics. Revenue only counts paid orders.
func (s *AdminService) GetDashboardStats(ctx context.Context) (*AdminDashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &AdminDashboardStats{OrdersByStatus: make(map[models.OrderStatus]int64)}
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonthStart := monthStart.AddDate(0, -1, 0)

	// Order statistics
	if err := db.Model(&models.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	db.Model(&models.Order{}).Where("created_at >= ?", monthStart).Count(&stats.OrdersThisMonth)

	var byStatus []struct {
		Status models.OrderStatus
		Count  int64
	}
	if err := db.Model(&models.Order{}).Select("status, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to group orders: %w", err)
	}
	for _, row := range byStatus {
		stats.OrdersByStatus[row.Status] = row.Count
	}

	// Revenue statistics
	var totalRevenue, monthlyRevenue, lastMonthRevenue float64
	db.Model(&models.Order{}).
		Where("payment_status = ?", models.PaymentStatusPaid).
		Select("COALESCE(SUM(total_ttc), 0)").Scan(&totalRevenue)

	db.Model(&models.Order{}).
		Where("payment_status = ? AND created_at >= ?", models.PaymentStatusPaid, monthStart).
		Select("COALESCE(SUM(total_ttc), 0)").Scan(&monthlyRevenue)

	db.Model(&models.Order{}).
		Where("payment_status = ? AND created_at >= ? AND created_at < ?",
			models.PaymentStatusPaid, lastMonthStart, monthStart).
		Select("COALESCE(SUM(total_ttc), 0)").Scan(&lastMonthRevenue)

	stats.TotalRevenue = round2(decimal.NewFromFloat(totalRevenue))
	stats.MonthlyRevenue = round2(decimal.NewFromFloat(monthlyRevenue))
	if lastMonthRevenue > 0 {
		stats.RevenueGrowth = (monthlyRevenue - lastMonthRevenue) / lastMonthRevenue * 100
	}

	// Catalog and quote statistics
	db.Model(&models.Product{}).Where("is_active = ?", true).Count(&stats.ActiveProducts)
	db.Model(&models.Product{}).
		Where("is_active = ? AND stock_quantity <= stock_alert_threshold", true).
		Count(&stats.LowStockProducts)
	db.Model(&models.Quote{}).Where("status = ?", models.QuoteStatusSent).Count(&stats.OpenQuotes)

	return stats, nil
}
