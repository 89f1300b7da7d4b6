package services

import (
	"errors"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/utils"
)

var orderNumberPattern = regexp.MustCompile(`^CMD-\d{8}-[0-9A-Z]{6}$`)

func (suite *ServiceTestSuite) TestCreateOrderFromCart() {
	widget := suite.createProduct("ORD-1", "19.99", "20", 10)
	gadget := suite.createProduct("ORD-2", "0.05", "5.5", 3)
	userID := uuid.New()
	suite.fillCart(userID, map[*models.Product]int{widget: 3, gadget: 1})

	order, err := suite.checkout(userID, models.ShippingMethodDelivery)
	suite.Require().NoError(err)

	suite.Regexp(orderNumberPattern, order.OrderNumber)
	suite.Equal(models.OrderStatusPending, order.Status)
	suite.Equal(models.PaymentStatusPending, order.PaymentStatus)
	suite.Len(order.Items, 2)
	suite.Equal("60.02", order.SubtotalHt.StringFixed(2))
	suite.Equal("11.99", order.TaxAmount.StringFixed(2))
	suite.Equal("9.90", order.ShippingCost.StringFixed(2))
	suite.Equal("81.91", order.TotalTtc.StringFixed(2))

	suite.Equal(7, suite.reloadProduct(widget.ID).StockQuantity)
	suite.Equal(2, suite.reloadProduct(gadget.ID).StockQuantity)
	suite.assertLedgerConsistent(widget.ID)
	suite.assertLedgerConsistent(gadget.ID)

	stored, err := suite.orders.GetOrder(suite.ctx, order.ID)
	suite.Require().NoError(err)
	suite.Require().Len(stored.History, 1)
	suite.Equal(models.OrderStatusPending, stored.History[0].Status)
	for _, item := range stored.Items {
		if item.ProductID == widget.ID {
			suite.Equal("Product ORD-1", item.ProductName)
			suite.Equal("59.97", item.LineTotalHt.StringFixed(2))
		}
	}

	cart, err := suite.carts.FindCart(suite.ctx, models.UserOwner(userID))
	suite.Require().NoError(err)
	summary, err := suite.carts.ReadLines(suite.ctx, cart.ID)
	suite.Require().NoError(err)
	suite.Empty(summary.Lines)

	suite.Eventually(func() bool { return suite.notifier.placedCount() == 1 }, time.Second, 10*time.Millisecond)
}

func (suite *ServiceTestSuite) TestCreateOrderPickupHasNoShipping() {
	product := suite.createProduct("ORD-3", "10.00", "20", 1)
	userID := uuid.New()
	suite.fillCart(userID, map[*models.Product]int{product: 1})

	order, err := suite.checkout(userID, models.ShippingMethodPickup)
	suite.Require().NoError(err)
	suite.True(order.ShippingCost.IsZero())
	suite.Equal("12.00", order.TotalTtc.StringFixed(2))
}

func (suite *ServiceTestSuite) TestCreateOrderEmptyCart() {
	userID := uuid.New()

	_, err := suite.checkout(userID, models.ShippingMethodPickup)
	suite.ErrorIs(err, ErrEmptyCart)

	_, err = suite.carts.GetOrCreateCart(suite.ctx, models.UserOwner(userID))
	suite.Require().NoError(err)
	_, err = suite.checkout(userID, models.ShippingMethodPickup)
	suite.ErrorIs(err, ErrEmptyCart)
}

func (suite *ServiceTestSuite) TestCreateOrderRequiresAddresses() {
	product := suite.createProduct("ORD-4", "10.00", "20", 1)
	userID := uuid.New()
	suite.fillCart(userID, map[*models.Product]int{product: 1})

	_, err := suite.orders.CreateOrder(suite.ctx, &CreateOrderRequest{
		UserID:           userID,
		BillingAddressID: uuid.New(),
		ShippingMethod:   models.ShippingMethodDelivery,
		PaymentMethod:    models.PaymentMethodCheck,
	})
	suite.ErrorIs(err, ErrInvalidAddress)
	suite.Equal(1, suite.reloadProduct(product.ID).StockQuantity)
}

func (suite *ServiceTestSuite) TestFailedCheckoutLeavesNothingBehind() {
	plenty := suite.createProduct("ORD-5", "10.00", "20", 10)
	scarce := suite.createProduct("ORD-6", "10.00", "20", 2)
	userID := uuid.New()
	suite.fillCart(userID, map[*models.Product]int{plenty: 4, scarce: 2})

	// stock drops after the cart was filled
	_, err := suite.stock.ApplyMovement(suite.ctx, &MovementRequest{ProductID: scarce.ID, Quantity: 1, Type: models.MovementTypeOut})
	suite.Require().NoError(err)

	_, err = suite.checkout(userID, models.ShippingMethodPickup)
	var stockErr *InsufficientStockError
	suite.Require().True(errors.As(err, &stockErr))
	suite.ErrorIs(err, ErrInsufficientStock)
	suite.Equal(scarce.ID, stockErr.ProductID)
	suite.Equal(2, stockErr.Requested)
	suite.Equal(1, stockErr.Available)

	suite.Equal(10, suite.reloadProduct(plenty.ID).StockQuantity)
	suite.Equal(1, suite.reloadProduct(scarce.ID).StockQuantity)
	suite.assertLedgerConsistent(plenty.ID)

	var orders int64
	suite.Require().NoError(suite.db.Model(&models.Order{}).Count(&orders).Error)
	suite.Zero(orders)

	cart, err := suite.carts.FindCart(suite.ctx, models.UserOwner(userID))
	suite.Require().NoError(err)
	var lines int64
	suite.Require().NoError(suite.db.Model(&models.CartLine{}).Where("cart_id = ?", cart.ID).Count(&lines).Error)
	suite.EqualValues(2, lines)
	suite.Zero(suite.notifier.placedCount())
}

func (suite *ServiceTestSuite) TestInactiveProductBlocksCheckout() {
	product := suite.createProduct("ORD-7", "10.00", "20", 5)
	userID := uuid.New()
	suite.fillCart(userID, map[*models.Product]int{product: 1})
	suite.Require().NoError(suite.catalog.DeactivateProduct(suite.ctx, product.ID))

	_, err := suite.checkout(userID, models.ShippingMethodPickup)
	var stockErr *InsufficientStockError
	suite.Require().True(errors.As(err, &stockErr))
	suite.Equal(0, stockErr.Available)
}

func (suite *ServiceTestSuite) TestConcurrentCheckoutsForLastUnit() {
	product := suite.createProduct("ORD-8", "10.00", "20", 1)
	buyers := []uuid.UUID{uuid.New(), uuid.New()}
	for _, id := range buyers {
		suite.fillCart(id, map[*models.Product]int{product: 1})
	}

	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	for i, id := range buyers {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = suite.checkout(id, models.ShippingMethodPickup)
		}(i, id)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrInsufficientStock):
			lost++
		default:
			suite.Failf("unexpected error", "%v", err)
		}
	}
	suite.Equal(1, won)
	suite.Equal(1, lost)
	suite.Equal(0, suite.reloadProduct(product.ID).StockQuantity)
	suite.assertLedgerConsistent(product.ID)
}

func (suite *ServiceTestSuite) TestTransitionsFollowTheStatusGraph() {
	product := suite.createProduct("ORD-9", "10.00", "20", 5)
	userID := uuid.New()
	suite.fillCart(userID, map[*models.Product]int{product: 1})
	order, err := suite.checkout(userID, models.ShippingMethodPickup)
	suite.Require().NoError(err)

	_, err = suite.orders.Transition(suite.ctx, order.ID, models.OrderStatusShipped, "")
	var transitionErr *InvalidTransitionError
	suite.Require().True(errors.As(err, &transitionErr))
	suite.Equal(models.OrderStatusPending, transitionErr.From)
	suite.ErrorIs(err, ErrInvalidTransition)

	for _, to := range []models.OrderStatus{
		models.OrderStatusConfirmed,
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
	} {
		order, err = suite.orders.Transition(suite.ctx, order.ID, to, "")
		suite.Require().NoError(err)
		suite.Equal(to, order.Status)
	}

	history, err := suite.orders.History(suite.ctx, order.ID)
	suite.Require().NoError(err)
	suite.Len(history, 5)
	suite.Equal(models.OrderStatusDelivered.DefaultComment(), findHistory(history, models.OrderStatusDelivered).Comment)

	_, err = suite.orders.Transition(suite.ctx, order.ID, models.OrderStatusCancelled, "")
	suite.ErrorIs(err, ErrInvalidTransition)

	next, err := suite.orders.NextStatuses(suite.ctx, order.ID)
	suite.Require().NoError(err)
	suite.Empty(next)

	suite.Eventually(func() bool { return len(suite.notifier.changeList()) == 4 }, time.Second, 10*time.Millisecond)
}

func (suite *ServiceTestSuite) TestCancelRestoresStockExactly() {
	first := suite.createProduct("ORD-10", "10.00", "20", 6)
	second := suite.createProduct("ORD-11", "2.00", "20", 4)
	userID := uuid.New()
	suite.fillCart(userID, map[*models.Product]int{first: 5, second: 4})
	order, err := suite.checkout(userID, models.ShippingMethodPickup)
	suite.Require().NoError(err)
	suite.Equal(1, suite.reloadProduct(first.ID).StockQuantity)
	suite.Equal(0, suite.reloadProduct(second.ID).StockQuantity)

	_, err = suite.orders.Transition(suite.ctx, order.ID, models.OrderStatusConfirmed, "")
	suite.Require().NoError(err)

	_, err = suite.orders.CancelOrder(suite.ctx, order.ID, uuid.New(), "")
	suite.ErrorIs(err, ErrNotFound)

	cancelled, err := suite.orders.CancelOrder(suite.ctx, order.ID, userID, "changed my mind")
	suite.Require().NoError(err)
	suite.Equal(models.OrderStatusCancelled, cancelled.Status)
	suite.Equal("changed my mind", findHistory(cancelled.History, models.OrderStatusCancelled).Comment)

	suite.Equal(6, suite.reloadProduct(first.ID).StockQuantity)
	suite.Equal(4, suite.reloadProduct(second.ID).StockQuantity)
	suite.assertLedgerConsistent(first.ID)
	suite.assertLedgerConsistent(second.ID)

	_, err = suite.orders.Transition(suite.ctx, order.ID, models.OrderStatusCancelled, "")
	suite.ErrorIs(err, ErrInvalidTransition)
	suite.Equal(6, suite.reloadProduct(first.ID).StockQuantity)
}

func (suite *ServiceTestSuite) TestUpdatePaymentStatus() {
	product := suite.createProduct("ORD-12", "10.00", "20", 5)
	userID := uuid.New()
	suite.fillCart(userID, map[*models.Product]int{product: 1})
	order, err := suite.checkout(userID, models.ShippingMethodPickup)
	suite.Require().NoError(err)

	_, err = suite.orders.UpdatePaymentStatus(suite.ctx, order.ID, models.PaymentStatusRefunded)
	suite.ErrorIs(err, ErrInvalidPaymentTransition)

	order, err = suite.orders.UpdatePaymentStatus(suite.ctx, order.ID, models.PaymentStatusPaid)
	suite.Require().NoError(err)
	suite.Equal(models.PaymentStatusPaid, order.PaymentStatus)
	suite.Equal(models.OrderStatusPending, order.Status)
}

func (suite *ServiceTestSuite) TestListOrders() {
	product := suite.createProduct("ORD-13", "10.00", "20", 10)
	alice, bob := uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{alice, alice, bob} {
		suite.fillCart(id, map[*models.Product]int{product: 1})
		_, err := suite.checkout(id, models.ShippingMethodPickup)
		suite.Require().NoError(err)
	}

	orders, total, err := suite.orders.ListOrders(suite.ctx, OrderFilter{UserID: &alice}, utils.PaginationParams{})
	suite.Require().NoError(err)
	suite.EqualValues(2, total)
	suite.Len(orders, 2)

	pending := models.OrderStatusPending
	_, total, err = suite.orders.ListOrders(suite.ctx, OrderFilter{Status: &pending}, utils.PaginationParams{Limit: 1})
	suite.Require().NoError(err)
	suite.EqualValues(3, total)

	_, err = suite.orders.GetOrderForUser(suite.ctx, orders[0].ID, bob)
	suite.ErrorIs(err, ErrNotFound)
}

func findHistory(history []models.OrderHistory, status models.OrderStatus) models.OrderHistory {
	for _, entry := range history {
		if entry.Status == status {
			return entry
		}
	}
	return models.OrderHistory{}
}
