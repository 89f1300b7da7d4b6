package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/utils"
)

func (suite *ServiceTestSuite) newQuote(userID uuid.UUID, items ...QuoteItemRequest) *models.Quote {
	quote, err := suite.quotes.CreateQuote(suite.ctx, &CreateQuoteRequest{
		UserID:           userID,
		CustomerEmail:    "pro@example.com",
		ShippingMethod:   models.ShippingMethodPickup,
		BillingAddressID: uuid.New(),
		Items:            items,
	})
	suite.Require().NoError(err)
	return quote
}

func (suite *ServiceTestSuite) acceptedQuote(userID uuid.UUID, items ...QuoteItemRequest) *models.Quote {
	quote := suite.newQuote(userID, items...)
	_, err := suite.quotes.SendQuote(suite.ctx, quote.ID)
	suite.Require().NoError(err)
	quote, err = suite.quotes.AcceptQuote(suite.ctx, quote.ID, userID)
	suite.Require().NoError(err)
	return quote
}

func (suite *ServiceTestSuite) TestCreateQuoteSnapshotsCatalog() {
	product := suite.createProduct("QTE-1", "100.00", "20", 10)
	userID := uuid.New()
	override := decimal.RequireFromString("80.004")

	quote := suite.newQuote(userID,
		QuoteItemRequest{ProductID: product.ID, Quantity: 2, DiscountRate: decimal.NewFromInt(10)},
		QuoteItemRequest{ProductID: product.ID, Quantity: 1, UnitPriceHt: &override},
	)

	suite.Regexp(`^DEV-\d{8}-[0-9A-Z]{6}$`, quote.QuoteNumber)
	suite.Equal(models.QuoteStatusDraft, quote.Status)
	suite.Equal(models.PaymentMethodBankTransfer, quote.PaymentMethod)
	suite.WithinDuration(time.Now().AddDate(0, 0, 30), quote.ValidUntil, time.Minute)
	suite.Require().Len(quote.Items, 2)
	suite.Equal("100.00", quote.Items[0].UnitPriceHt.StringFixed(2))
	suite.Equal("80.00", quote.Items[1].UnitPriceHt.StringFixed(2))
	suite.Equal("Product QTE-1", quote.Items[0].ProductName)

	// a later price change does not touch the quote
	price := decimal.NewFromInt(150)
	_, err := suite.catalog.UpdateProduct(suite.ctx, product.ID, &UpdateProductRequest{PriceHt: &price})
	suite.Require().NoError(err)
	stored, err := suite.quotes.GetQuote(suite.ctx, quote.ID)
	suite.Require().NoError(err)
	suite.Equal("100.00", stored.Items[0].UnitPriceHt.StringFixed(2))

	totals := QuoteTotals(stored, suite.shop.DeliveryFee)
	suite.Equal("260.00", totals.SubtotalHt.StringFixed(2))
	suite.Equal("52.00", totals.TaxAmount.StringFixed(2))
	suite.True(totals.ShippingCost.IsZero())
}

func (suite *ServiceTestSuite) TestCreateQuoteValidation() {
	_, err := suite.quotes.CreateQuote(suite.ctx, &CreateQuoteRequest{
		UserID:           uuid.New(),
		ShippingMethod:   models.ShippingMethodPickup,
		BillingAddressID: uuid.New(),
	})
	suite.Error(err)

	_, err = suite.quotes.CreateQuote(suite.ctx, &CreateQuoteRequest{
		UserID:           uuid.New(),
		ShippingMethod:   models.ShippingMethodPickup,
		BillingAddressID: uuid.New(),
		Items:            []QuoteItemRequest{{ProductID: uuid.New(), Quantity: 1}},
	})
	suite.ErrorIs(err, ErrNotFound)
}

func (suite *ServiceTestSuite) TestQuoteLifecycle() {
	product := suite.createProduct("QTE-2", "10.00", "20", 10)
	userID := uuid.New()
	quote := suite.newQuote(userID, QuoteItemRequest{ProductID: product.ID, Quantity: 1})

	_, err := suite.quotes.AcceptQuote(suite.ctx, quote.ID, userID)
	suite.ErrorIs(err, ErrInvalidQuoteStatus)

	sent, err := suite.quotes.SendQuote(suite.ctx, quote.ID)
	suite.Require().NoError(err)
	suite.Equal(models.QuoteStatusSent, sent.Status)

	_, err = suite.quotes.AcceptQuote(suite.ctx, quote.ID, uuid.New())
	suite.ErrorIs(err, ErrNotFound)

	rejected, err := suite.quotes.RejectQuote(suite.ctx, quote.ID, userID)
	suite.Require().NoError(err)
	suite.Equal(models.QuoteStatusRejected, rejected.Status)

	_, err = suite.quotes.AcceptQuote(suite.ctx, quote.ID, userID)
	suite.ErrorIs(err, ErrInvalidQuoteStatus)
}

func (suite *ServiceTestSuite) TestConvertQuoteAppliesDiscounts() {
	product := suite.createProduct("QTE-3", "19.99", "20", 10)
	userID := uuid.New()
	quote := suite.acceptedQuote(userID,
		QuoteItemRequest{ProductID: product.ID, Quantity: 3, DiscountRate: decimal.NewFromInt(15)},
	)

	order, err := suite.quotes.ConvertQuoteToOrder(suite.ctx, quote.ID)
	suite.Require().NoError(err)

	suite.Require().NotNil(order.QuoteID)
	suite.Equal(quote.ID, *order.QuoteID)
	suite.Require().Len(order.Items, 1)
	// 19.99 less 15% is 16.99 a unit
	suite.Equal("16.99", order.Items[0].UnitPriceHt.StringFixed(2))
	suite.Equal("15.00", order.Items[0].DiscountRate.StringFixed(2))
	suite.Equal("50.97", order.SubtotalHt.StringFixed(2))
	suite.Equal("10.19", order.TaxAmount.StringFixed(2))
	suite.Equal("61.16", order.TotalTtc.StringFixed(2))
	suite.Equal(models.PaymentMethodBankTransfer, order.PaymentMethod)
	suite.Equal(7, suite.reloadProduct(product.ID).StockQuantity)
	suite.assertLedgerConsistent(product.ID)

	stored, err := suite.quotes.GetQuote(suite.ctx, quote.ID)
	suite.Require().NoError(err)
	suite.True(stored.IsConverted())
	suite.Equal(order.ID, *stored.ConvertedOrderID)
	suite.Equal(models.QuoteStatusAccepted, stored.Status)

	_, err = suite.quotes.ConvertQuoteToOrder(suite.ctx, quote.ID)
	suite.ErrorIs(err, ErrAlreadyConverted)
	suite.Equal(7, suite.reloadProduct(product.ID).StockQuantity)
}

func (suite *ServiceTestSuite) TestConvertRequiresAcceptedQuote() {
	product := suite.createProduct("QTE-4", "10.00", "20", 10)
	userID := uuid.New()
	quote := suite.newQuote(userID, QuoteItemRequest{ProductID: product.ID, Quantity: 1})

	_, err := suite.quotes.ConvertQuoteToOrder(suite.ctx, quote.ID)
	suite.ErrorIs(err, ErrInvalidQuoteStatus)

	_, err = suite.quotes.ConvertQuoteToOrder(suite.ctx, uuid.New())
	suite.ErrorIs(err, ErrNotFound)
}

func (suite *ServiceTestSuite) TestConvertQuoteWithoutStock() {
	product := suite.createProduct("QTE-5", "10.00", "20", 2)
	userID := uuid.New()
	quote := suite.acceptedQuote(userID, QuoteItemRequest{ProductID: product.ID, Quantity: 3})

	_, err := suite.quotes.ConvertQuoteToOrder(suite.ctx, quote.ID)
	suite.ErrorIs(err, ErrInsufficientStock)

	stored, err := suite.quotes.GetQuote(suite.ctx, quote.ID)
	suite.Require().NoError(err)
	suite.False(stored.IsConverted())
	suite.Equal(2, suite.reloadProduct(product.ID).StockQuantity)
}

func (suite *ServiceTestSuite) TestQuoteExpiry() {
	product := suite.createProduct("QTE-6", "10.00", "20", 5)
	userID := uuid.New()

	late := suite.newQuote(userID, QuoteItemRequest{ProductID: product.ID, Quantity: 1})
	_, err := suite.quotes.SendQuote(suite.ctx, late.ID)
	suite.Require().NoError(err)
	swept := suite.newQuote(userID, QuoteItemRequest{ProductID: product.ID, Quantity: 1})
	_, err = suite.quotes.SendQuote(suite.ctx, swept.ID)
	suite.Require().NoError(err)
	suite.newQuote(userID, QuoteItemRequest{ProductID: product.ID, Quantity: 1})

	suite.quotes.now = func() time.Time { return time.Now().AddDate(0, 0, 31) }

	_, err = suite.quotes.AcceptQuote(suite.ctx, late.ID, userID)
	suite.ErrorIs(err, ErrQuoteExpired)
	stored, err := suite.quotes.GetQuote(suite.ctx, late.ID)
	suite.Require().NoError(err)
	suite.Equal(models.QuoteStatusExpired, stored.Status)

	count, err := suite.quotes.ExpireOverdue(suite.ctx)
	suite.Require().NoError(err)
	suite.EqualValues(1, count)

	expired := models.QuoteStatusExpired
	quotes, total, err := suite.quotes.ListQuotes(suite.ctx, QuoteFilter{Status: &expired}, utils.PaginationParams{})
	suite.Require().NoError(err)
	suite.EqualValues(2, total)
	suite.Len(quotes, 2)
}

func (suite *ServiceTestSuite) TestConvertForUserChecksOwnership() {
	product := suite.createProduct("QTE-7", "10.00", "20", 5)
	userID := uuid.New()
	quote := suite.acceptedQuote(userID, QuoteItemRequest{ProductID: product.ID, Quantity: 1})

	_, err := suite.quotes.ConvertForUser(suite.ctx, quote.ID, uuid.New())
	suite.ErrorIs(err, ErrNotFound)

	order, err := suite.quotes.ConvertForUser(suite.ctx, quote.ID, userID)
	suite.Require().NoError(err)
	suite.Equal(userID, order.UserID)
}
