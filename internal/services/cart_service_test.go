package services

import (
	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
)

func (suite *ServiceTestSuite) TestGetOrCreateCartIsStablePerOwner() {
	userID := uuid.New()

	first, err := suite.carts.GetOrCreateCart(suite.ctx, models.UserOwner(userID))
	suite.Require().NoError(err)
	second, err := suite.carts.GetOrCreateCart(suite.ctx, models.UserOwner(userID))
	suite.Require().NoError(err)
	suite.Equal(first.ID, second.ID)

	anonymous, err := suite.carts.GetOrCreateCart(suite.ctx, models.AnonymousOwner("session-1"))
	suite.Require().NoError(err)
	suite.NotEqual(first.ID, anonymous.ID)
	suite.True(anonymous.Owner().IsAnonymous())

	_, err = suite.carts.GetOrCreateCart(suite.ctx, models.AnonymousOwner("  "))
	suite.ErrorIs(err, models.ErrInvalidOwner)
}

func (suite *ServiceTestSuite) TestAddLineMergesAndClampsToStock() {
	product := suite.createProduct("CART-1", "5.00", "20", 4)
	cart, err := suite.carts.GetOrCreateCart(suite.ctx, models.AnonymousOwner("s-add"))
	suite.Require().NoError(err)

	line, err := suite.carts.AddLine(suite.ctx, cart.ID, product.ID, 3)
	suite.Require().NoError(err)
	suite.Equal(3, line.Quantity)

	line, err = suite.carts.AddLine(suite.ctx, cart.ID, product.ID, 3)
	suite.Require().NoError(err)
	suite.Equal(4, line.Quantity)

	summary, err := suite.carts.ReadLines(suite.ctx, cart.ID)
	suite.Require().NoError(err)
	suite.Require().Len(summary.Lines, 1)
	suite.Equal(4, summary.Items)
}

func (suite *ServiceTestSuite) TestAddLineRejections() {
	inStock := suite.createProduct("CART-2", "5.00", "20", 4)
	soldOut := suite.createProduct("CART-3", "5.00", "20", 0)
	inactive := suite.createProduct("CART-4", "5.00", "20", 4)
	suite.Require().NoError(suite.catalog.DeactivateProduct(suite.ctx, inactive.ID))

	cart, err := suite.carts.GetOrCreateCart(suite.ctx, models.AnonymousOwner("s-reject"))
	suite.Require().NoError(err)

	_, err = suite.carts.AddLine(suite.ctx, cart.ID, inStock.ID, 0)
	suite.ErrorIs(err, ErrInvalidQuantity)
	_, err = suite.carts.AddLine(suite.ctx, cart.ID, soldOut.ID, 1)
	suite.ErrorIs(err, ErrOutOfStock)
	_, err = suite.carts.AddLine(suite.ctx, cart.ID, inactive.ID, 1)
	suite.ErrorIs(err, ErrNotFound)
	_, err = suite.carts.AddLine(suite.ctx, uuid.New(), inStock.ID, 1)
	suite.ErrorIs(err, ErrNotFound)
}

func (suite *ServiceTestSuite) TestSetLineQuantityAndRemove() {
	product := suite.createProduct("CART-5", "5.00", "20", 10)
	cart, err := suite.carts.GetOrCreateCart(suite.ctx, models.AnonymousOwner("s-set"))
	suite.Require().NoError(err)

	line, err := suite.carts.SetLineQuantity(suite.ctx, cart.ID, product.ID, 25)
	suite.Require().NoError(err)
	suite.Equal(10, line.Quantity)

	line, err = suite.carts.SetLineQuantity(suite.ctx, cart.ID, product.ID, 2)
	suite.Require().NoError(err)
	suite.Equal(2, line.Quantity)

	line, err = suite.carts.SetLineQuantity(suite.ctx, cart.ID, product.ID, 0)
	suite.Require().NoError(err)
	suite.Nil(line)

	suite.NoError(suite.carts.RemoveLine(suite.ctx, cart.ID, product.ID))

	summary, err := suite.carts.ReadLines(suite.ctx, cart.ID)
	suite.Require().NoError(err)
	suite.Empty(summary.Lines)
}

func (suite *ServiceTestSuite) TestReadLinesClampsAndDropsAgainstLiveStock() {
	shrinking := suite.createProduct("CART-6", "10.00", "20", 5)
	emptied := suite.createProduct("CART-7", "3.00", "5.5", 2)
	retired := suite.createProduct("CART-8", "1.00", "20", 9)

	cart, err := suite.carts.GetOrCreateCart(suite.ctx, models.AnonymousOwner("s-read"))
	suite.Require().NoError(err)
	for _, p := range []*models.Product{shrinking, emptied, retired} {
		_, err := suite.carts.AddLine(suite.ctx, cart.ID, p.ID, 2)
		suite.Require().NoError(err)
	}
	_, err = suite.carts.AddLine(suite.ctx, cart.ID, shrinking.ID, 3)
	suite.Require().NoError(err)

	_, err = suite.stock.ApplyMovement(suite.ctx, &MovementRequest{ProductID: shrinking.ID, Quantity: 3, Type: models.MovementTypeAdjustment})
	suite.Require().NoError(err)
	_, err = suite.stock.ApplyMovement(suite.ctx, &MovementRequest{ProductID: emptied.ID, Quantity: 2, Type: models.MovementTypeOut})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.catalog.DeactivateProduct(suite.ctx, retired.ID))

	summary, err := suite.carts.ReadLines(suite.ctx, cart.ID)
	suite.Require().NoError(err)
	suite.Require().Len(summary.Lines, 1)
	suite.Equal(shrinking.ID, summary.Lines[0].ProductID)
	suite.Equal(3, summary.Lines[0].Quantity)
	suite.ElementsMatch([]uuid.UUID{emptied.ID, retired.ID}, summary.Removed)
	suite.Equal([]uuid.UUID{shrinking.ID}, summary.Clamped)
	suite.Equal("30.00", summary.Totals.SubtotalHt.StringFixed(2))
	suite.Equal("6.00", summary.Totals.TaxAmount.StringFixed(2))
	suite.True(summary.Totals.ShippingCost.IsZero())

	// the clamp was persisted, a second read changes nothing
	again, err := suite.carts.ReadLines(suite.ctx, cart.ID)
	suite.Require().NoError(err)
	suite.Empty(again.Clamped)
	suite.Empty(again.Removed)
	suite.Equal(3, again.Items)
}

func (suite *ServiceTestSuite) TestMergeIntoUserCart() {
	shared := suite.createProduct("MRG-1", "4.00", "20", 5)
	onlyAnon := suite.createProduct("MRG-2", "6.00", "20", 10)
	userID := uuid.New()

	userCart := suite.fillCart(userID, map[*models.Product]int{shared: 3})

	anonymous, err := suite.carts.GetOrCreateCart(suite.ctx, models.AnonymousOwner("s-merge"))
	suite.Require().NoError(err)
	_, err = suite.carts.AddLine(suite.ctx, anonymous.ID, shared.ID, 4)
	suite.Require().NoError(err)
	_, err = suite.carts.AddLine(suite.ctx, anonymous.ID, onlyAnon.ID, 2)
	suite.Require().NoError(err)

	merged, err := suite.carts.MergeIntoUserCart(suite.ctx, anonymous.ID, userID)
	suite.Require().NoError(err)
	suite.Equal(userCart.ID, merged.ID)

	summary, err := suite.carts.ReadLines(suite.ctx, merged.ID)
	suite.Require().NoError(err)
	quantities := map[uuid.UUID]int{}
	for _, line := range summary.Lines {
		quantities[line.ProductID] = line.Quantity
	}
	suite.Equal(5, quantities[shared.ID])
	suite.Equal(2, quantities[onlyAnon.ID])

	_, err = suite.carts.FindCart(suite.ctx, models.AnonymousOwner("s-merge"))
	suite.ErrorIs(err, ErrNotFound)

	// merging the same anonymous cart again is a no-op
	again, err := suite.carts.MergeIntoUserCart(suite.ctx, anonymous.ID, userID)
	suite.Require().NoError(err)
	suite.Equal(userCart.ID, again.ID)
	summary, err = suite.carts.ReadLines(suite.ctx, merged.ID)
	suite.Require().NoError(err)
	suite.Equal(7, summary.Items)
}

func (suite *ServiceTestSuite) TestMergeRejectsUserCartAsSource() {
	other, err := suite.carts.GetOrCreateCart(suite.ctx, models.UserOwner(uuid.New()))
	suite.Require().NoError(err)

	_, err = suite.carts.MergeIntoUserCart(suite.ctx, other.ID, uuid.New())
	suite.ErrorIs(err, models.ErrInvalidOwner)
}

func (suite *ServiceTestSuite) TestMergeSessionWithoutAnonymousCart() {
	userID := uuid.New()
	cart, err := suite.carts.MergeSession(suite.ctx, "never-used", userID)
	suite.Require().NoError(err)

	id, ok := cart.Owner().UserID()
	suite.True(ok)
	suite.Equal(userID, id)
}
