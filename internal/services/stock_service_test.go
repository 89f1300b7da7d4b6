package services

import (
	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/utils"
)

func (suite *ServiceTestSuite) TestStockMovementsKeepLedgerAndCounterInStep() {
	product := suite.createProduct("STK-1", "10.00", "20", 10)

	in, err := suite.stock.ApplyMovement(suite.ctx, &MovementRequest{ProductID: product.ID, Quantity: 5, Type: models.MovementTypeIn, Reference: "PO-1"})
	suite.Require().NoError(err)
	suite.Equal(10, in.StockBefore)
	suite.Equal(15, in.StockAfter)

	out, err := suite.stock.ApplyMovement(suite.ctx, &MovementRequest{ProductID: product.ID, Quantity: 7, Type: models.MovementTypeOut})
	suite.Require().NoError(err)
	suite.Equal(8, out.StockAfter)

	adj, err := suite.stock.ApplyMovement(suite.ctx, &MovementRequest{ProductID: product.ID, Quantity: 3, Type: models.MovementTypeAdjustment, Notes: "inventory count"})
	suite.Require().NoError(err)
	suite.Equal(-5, adj.Quantity)
	suite.Equal(-5, adj.Delta())
	suite.Equal(3, adj.StockAfter)

	suite.Equal(3, suite.reloadProduct(product.ID).StockQuantity)

	report, err := suite.stock.Reconcile(suite.ctx, product.ID)
	suite.Require().NoError(err)
	suite.True(report.Consistent)
	suite.Equal(3, report.LedgerTotal)
	suite.Equal(4, report.Movements)
}

func (suite *ServiceTestSuite) TestStockOutCannotGoNegative() {
	product := suite.createProduct("STK-2", "10.00", "20", 2)

	_, err := suite.stock.ApplyMovement(suite.ctx, &MovementRequest{ProductID: product.ID, Quantity: 3, Type: models.MovementTypeOut})
	suite.ErrorIs(err, ErrNegativeStock)

	suite.Equal(2, suite.reloadProduct(product.ID).StockQuantity)
	movements, total, err := suite.stock.ListMovements(suite.ctx, product.ID, utils.PaginationParams{})
	suite.Require().NoError(err)
	suite.EqualValues(1, total)
	suite.Len(movements, 1)
}

func (suite *ServiceTestSuite) TestStockMovementValidation() {
	product := suite.createProduct("STK-3", "10.00", "20", 2)

	_, err := suite.stock.ApplyMovement(suite.ctx, &MovementRequest{ProductID: product.ID, Quantity: 0, Type: models.MovementTypeIn})
	suite.ErrorIs(err, ErrInvalidQuantity)

	_, err = suite.stock.ApplyMovement(suite.ctx, &MovementRequest{ProductID: product.ID, Quantity: 1, Type: "transfer"})
	suite.Error(err)

	_, err = suite.stock.ApplyMovement(suite.ctx, &MovementRequest{ProductID: uuid.New(), Quantity: 1, Type: models.MovementTypeIn})
	suite.ErrorIs(err, ErrNotFound)

	adj, err := suite.stock.ApplyMovement(suite.ctx, &MovementRequest{ProductID: product.ID, Quantity: 0, Type: models.MovementTypeAdjustment})
	suite.Require().NoError(err)
	suite.Equal(0, adj.StockAfter)
	suite.assertLedgerConsistent(product.ID)
}

func (suite *ServiceTestSuite) TestLowStockProducts() {
	low := suite.createProduct("LOW-1", "1.00", "20", 2)
	suite.createProduct("OK-1", "1.00", "20", 50)
	inactive := suite.createProduct("LOW-2", "1.00", "20", 0)
	suite.Require().NoError(suite.catalog.DeactivateProduct(suite.ctx, inactive.ID))

	products, err := suite.stock.LowStockProducts(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(products, 1)
	suite.Equal(low.ID, products[0].ID)
}
