package services

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/javajoker/storefront-backend/internal/utils"
)

func (suite *ServiceTestSuite) TestCreateProductPostsInitialStock() {
	product := suite.createProduct("CAT-1", "12.50", "20", 8)

	suite.Equal(8, product.StockQuantity)
	suite.True(product.IsActive)
	suite.Equal(suite.shop.DefaultLowStockLevel, product.StockAlertThreshold)

	movements, _, err := suite.stock.ListMovements(suite.ctx, product.ID, utils.PaginationParams{})
	suite.Require().NoError(err)
	suite.Require().Len(movements, 1)
	suite.Equal(initialStockReference, movements[0].Reference)
	suite.assertLedgerConsistent(product.ID)
}

func (suite *ServiceTestSuite) TestCreateProductRejectsDuplicateSKU() {
	suite.createProduct("CAT-2", "1.00", "20", 0)

	_, err := suite.catalog.CreateProduct(suite.ctx, &CreateProductRequest{
		SKU:     "CAT-2",
		Name:    "Again",
		PriceHt: decimal.NewFromInt(1),
		TaxRate: decimal.NewFromInt(20),
	})
	suite.Error(err)
}

func (suite *ServiceTestSuite) TestCreateProductValidation() {
	_, err := suite.catalog.CreateProduct(suite.ctx, &CreateProductRequest{
		SKU:     "CAT-3",
		Name:    "Negative",
		PriceHt: decimal.NewFromInt(-1),
		TaxRate: decimal.NewFromInt(20),
	})
	suite.Error(err)
}

func (suite *ServiceTestSuite) TestUpdateAndDeactivateProduct() {
	product := suite.createProduct("CAT-4", "10.00", "20", 3)

	name := "Renamed"
	price := decimal.RequireFromString("11.999")
	updated, err := suite.catalog.UpdateProduct(suite.ctx, product.ID, &UpdateProductRequest{Name: &name, PriceHt: &price})
	suite.Require().NoError(err)
	suite.Equal("Renamed", updated.Name)
	suite.Equal("12.00", updated.PriceHt.StringFixed(2))
	suite.Equal(3, updated.StockQuantity)

	suite.Require().NoError(suite.catalog.DeactivateProduct(suite.ctx, product.ID))
	_, err = suite.catalog.GetActiveProduct(suite.ctx, product.ID)
	suite.ErrorIs(err, ErrNotFound)

	suite.ErrorIs(suite.catalog.DeactivateProduct(suite.ctx, uuid.New()), ErrNotFound)
}

func (suite *ServiceTestSuite) TestSearchProducts() {
	brand, err := suite.catalog.CreateBrand(suite.ctx, &CreateBrandRequest{Name: "Acme", Slug: "ACME"})
	suite.Require().NoError(err)
	suite.Equal("acme", brand.Slug)

	_, err = suite.catalog.CreateProduct(suite.ctx, &CreateProductRequest{
		SKU:          "DRILL-1",
		Name:         "Cordless drill",
		BrandID:      &brand.ID,
		PriceHt:      decimal.NewFromInt(99),
		TaxRate:      decimal.NewFromInt(20),
		InitialStock: 4,
	})
	suite.Require().NoError(err)
	suite.createProduct("SAW-1", "49.00", "20", 0)
	hidden := suite.createProduct("DRILL-2", "79.00", "20", 1)
	suite.Require().NoError(suite.catalog.DeactivateProduct(suite.ctx, hidden.ID))

	products, total, err := suite.catalog.SearchProducts(suite.ctx, ProductSearchParams{
		PaginationParams: utils.PaginationParams{Search: "drill"},
	})
	suite.Require().NoError(err)
	suite.EqualValues(1, total)
	suite.Require().Len(products, 1)
	suite.Equal("DRILL-1", products[0].SKU)
	suite.Require().NotNil(products[0].Brand)
	suite.Equal("Acme", products[0].Brand.Name)

	_, total, err = suite.catalog.SearchProducts(suite.ctx, ProductSearchParams{InStock: true})
	suite.Require().NoError(err)
	suite.EqualValues(1, total)

	_, total, err = suite.catalog.SearchProducts(suite.ctx, ProductSearchParams{IncludeInactive: true})
	suite.Require().NoError(err)
	suite.EqualValues(3, total)

	_, total, err = suite.catalog.SearchProducts(suite.ctx, ProductSearchParams{BrandID: &brand.ID})
	suite.Require().NoError(err)
	suite.EqualValues(1, total)
}
