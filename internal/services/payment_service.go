// internal/services/payment_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/javajoker/storefront-backend/internal/models"
)

// PaymentIntent is the gateway-neutral view of a card payment attempt.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Metadata     map[string]string
}

const (
	IntentSucceeded = "succeeded"
	IntentCanceled  = "canceled"
	IntentFailed    = "requires_payment_method"
)

type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error)
	GetIntent(ctx context.Context, id string) (*PaymentIntent, error)
}

// StripeGateway talks to Stripe PaymentIntents.
type StripeGateway struct{}

// NewStripeGateway returns nil when no secret key is configured so callers
// can report the gateway as unavailable.
func NewStripeGateway(secretKey string) PaymentGateway {
	if secretKey == "" {
		return nil
	}
	stripe.Key = secretKey
	return &StripeGateway{}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(strings.ToLower(currency)),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return fromStripe(pi), nil
}

func (g *StripeGateway) GetIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Metadata:     pi.Metadata,
	}
}

// PaymentService collects card payments for placed orders. It only moves the
// order's payment status; the order status is left to staff.
type PaymentService struct {
	gateway      PaymentGateway
	orderService *OrderService
	currency     string
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

func NewPaymentService(gateway PaymentGateway, orderService *OrderService, currency string) *PaymentService {
	return &PaymentService{
		gateway:      gateway,
		orderService: orderService,
		currency:     currency,
	}
}

func (s *PaymentService) Available() bool {
	return s.gateway != nil
}

// CreateOrderPayment opens a payment intent for the order total in minor units.
func (s *PaymentService) CreateOrderPayment(ctx context.Context, orderID, userID uuid.UUID) (*PaymentIntentResponse, error) {
	if !s.Available() {
		return nil, ErrPaymentUnavailable
	}

	order, err := s.orderService.GetOrderForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if err := payable(order); err != nil {
		return nil, err
	}

	amount := order.TotalTtc.Shift(2).IntPart()
	intent, err := s.gateway.CreateIntent(ctx, amount, s.currency, map[string]string{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"user_id":      userID.String(),
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id":   order.ID,
		"payment_id": intent.ID,
		"amount":     amount,
	}).Info("Payment intent created")

	return &PaymentIntentResponse{
		ClientSecret: intent.ClientSecret,
		PaymentID:    intent.ID,
		Status:       intent.Status,
		Amount:       amount,
		Currency:     s.currency,
	}, nil
}

// ConfirmOrderPayment reads the intent back from the gateway and records the
// outcome on the order. Intents still in progress leave the order untouched.
func (s *PaymentService) ConfirmOrderPayment(ctx context.Context, orderID, userID uuid.UUID, req *ConfirmPaymentRequest) (*models.Order, error) {
	if !s.Available() {
		return nil, ErrPaymentUnavailable
	}

	order, err := s.orderService.GetOrderForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		return order, nil
	}
	if err := payable(order); err != nil {
		return nil, err
	}

	intent, err := s.gateway.GetIntent(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if intent.Metadata["order_id"] != order.ID.String() {
		return nil, ErrPaymentMismatch
	}

	switch intent.Status {
	case IntentSucceeded:
		if intent.Amount != order.TotalTtc.Shift(2).IntPart() {
			return nil, fmt.Errorf("%w: amount %d", ErrPaymentMismatch, intent.Amount)
		}
		return s.orderService.UpdatePaymentStatus(ctx, order.ID, models.PaymentStatusPaid)
	case IntentCanceled, IntentFailed:
		if order.PaymentStatus == models.PaymentStatusFailed {
			return order, nil
		}
		return s.orderService.UpdatePaymentStatus(ctx, order.ID, models.PaymentStatusFailed)
	default:
		return order, nil
	}
}

func payable(order *models.Order) error {
	if order.PaymentMethod != models.PaymentMethodCard {
		return ErrPaymentNotApplicable
	}
	if order.Status == models.OrderStatusCancelled {
		return fmt.Errorf("%w: order is cancelled", ErrPaymentNotApplicable)
	}
	if order.PaymentStatus != models.PaymentStatusPending && order.PaymentStatus != models.PaymentStatusFailed {
		return fmt.Errorf("%w: payment is %s", ErrPaymentNotApplicable, order.PaymentStatus)
	}
	return nil
}
