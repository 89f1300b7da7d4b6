package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
)

type fakeGateway struct {
	intents map[string]*PaymentIntent
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: map[string]*PaymentIntent{}}
}

func (g *fakeGateway) CreateIntent(_ context.Context, amount int64, _ string, metadata map[string]string) (*PaymentIntent, error) {
	id := fmt.Sprintf("pi_%d", len(g.intents)+1)
	intent := &PaymentIntent{ID: id, ClientSecret: id + "_secret", Status: "requires_payment_method", Amount: amount, Metadata: metadata}
	g.intents[id] = intent
	return intent, nil
}

func (g *fakeGateway) GetIntent(_ context.Context, id string) (*PaymentIntent, error) {
	intent, ok := g.intents[id]
	if !ok {
		return nil, fmt.Errorf("no such payment intent: %s", id)
	}
	return intent, nil
}

func (suite *ServiceTestSuite) placedOrder(sku string) (*models.Order, uuid.UUID) {
	product := suite.createProduct(sku, "10.00", "20", 5)
	userID := uuid.New()
	suite.fillCart(userID, map[*models.Product]int{product: 2})
	order, err := suite.checkout(userID, models.ShippingMethodDelivery)
	suite.Require().NoError(err)
	return order, userID
}

func (suite *ServiceTestSuite) TestPaymentUnavailableWithoutGateway() {
	payments := NewPaymentService(NewStripeGateway(""), suite.orders, "EUR")
	suite.False(payments.Available())

	_, err := payments.CreateOrderPayment(suite.ctx, uuid.New(), uuid.New())
	suite.ErrorIs(err, ErrPaymentUnavailable)
}

func (suite *ServiceTestSuite) TestCardPaymentFlow() {
	gateway := newFakeGateway()
	payments := NewPaymentService(gateway, suite.orders, "EUR")
	order, userID := suite.placedOrder("PAY-1")

	_, err := payments.CreateOrderPayment(suite.ctx, order.ID, uuid.New())
	suite.ErrorIs(err, ErrNotFound)

	intent, err := payments.CreateOrderPayment(suite.ctx, order.ID, userID)
	suite.Require().NoError(err)
	// 2 x 10.00 + 20% tax + 9.90 delivery
	suite.EqualValues(3390, intent.Amount)
	suite.Equal(order.ID.String(), gateway.intents[intent.PaymentID].Metadata["order_id"])

	req := &ConfirmPaymentRequest{PaymentIntentID: intent.PaymentID}
	failed, err := payments.ConfirmOrderPayment(suite.ctx, order.ID, userID, req)
	suite.Require().NoError(err)
	suite.Equal(models.PaymentStatusFailed, failed.PaymentStatus)

	gateway.intents[intent.PaymentID].Status = IntentSucceeded
	paid, err := payments.ConfirmOrderPayment(suite.ctx, order.ID, userID, req)
	suite.Require().NoError(err)
	suite.Equal(models.PaymentStatusPaid, paid.PaymentStatus)

	again, err := payments.ConfirmOrderPayment(suite.ctx, order.ID, userID, req)
	suite.Require().NoError(err)
	suite.Equal(models.PaymentStatusPaid, again.PaymentStatus)

	_, err = payments.CreateOrderPayment(suite.ctx, order.ID, userID)
	suite.ErrorIs(err, ErrPaymentNotApplicable)
}

func (suite *ServiceTestSuite) TestConfirmRejectsForeignIntent() {
	gateway := newFakeGateway()
	payments := NewPaymentService(gateway, suite.orders, "EUR")
	first, firstUser := suite.placedOrder("PAY-2")
	second, secondUser := suite.placedOrder("PAY-3")

	intent, err := payments.CreateOrderPayment(suite.ctx, first.ID, firstUser)
	suite.Require().NoError(err)
	gateway.intents[intent.PaymentID].Status = IntentSucceeded

	_, err = payments.ConfirmOrderPayment(suite.ctx, second.ID, secondUser, &ConfirmPaymentRequest{PaymentIntentID: intent.PaymentID})
	suite.ErrorIs(err, ErrPaymentMismatch)
}

func (suite *ServiceTestSuite) TestOnlyCardOrdersArePayable() {
	payments := NewPaymentService(newFakeGateway(), suite.orders, "EUR")
	product := suite.createProduct("PAY-4", "10.00", "20", 5)
	userID := uuid.New()
	suite.fillCart(userID, map[*models.Product]int{product: 1})
	order, err := suite.orders.CreateOrder(suite.ctx, &CreateOrderRequest{
		UserID:           userID,
		BillingAddressID: uuid.New(),
		ShippingMethod:   models.ShippingMethodPickup,
		PaymentMethod:    models.PaymentMethodOnPickup,
	})
	suite.Require().NoError(err)

	_, err = payments.CreateOrderPayment(suite.ctx, order.ID, userID)
	suite.ErrorIs(err, ErrPaymentNotApplicable)
}
