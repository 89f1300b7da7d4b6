package services

import (
	"github.com/javajoker/storefront-backend/internal/models"
)

func (suite *ServiceTestSuite) TestDashboardStats() {
	admin := NewAdminService(suite.db)

	paid, _ := suite.placedOrder("DASH-1")
	suite.placedOrder("DASH-2")
	suite.createProduct("DASH-3", "5.00", "20", 50)

	_, err := suite.orders.UpdatePaymentStatus(suite.ctx, paid.ID, models.PaymentStatusPaid)
	suite.Require().NoError(err)

	stats, err := admin.GetDashboardStats(suite.ctx)
	suite.Require().NoError(err)

	suite.EqualValues(2, stats.TotalOrders)
	suite.EqualValues(2, stats.OrdersByStatus[models.OrderStatusPending])
	suite.Equal("33.90", stats.TotalRevenue.StringFixed(2))
	suite.EqualValues(3, stats.ActiveProducts)
	// 5 - 2 units left on both checkout products, threshold 5
	suite.EqualValues(2, stats.LowStockProducts)
	suite.Zero(stats.OpenQuotes)
}
