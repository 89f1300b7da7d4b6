// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
)

var (
	ErrNotFound                 = errors.New("not found")
	ErrEmptyCart                = errors.New("cart is empty")
	ErrInsufficientStock        = errors.New("insufficient stock")
	ErrNegativeStock            = errors.New("stock cannot go below zero")
	ErrOutOfStock               = errors.New("product is out of stock")
	ErrInvalidQuantity          = errors.New("quantity must be positive")
	ErrInvalidTransition        = errors.New("invalid status transition")
	ErrInvalidPaymentTransition = errors.New("invalid payment status transition")
	ErrInvalidQuoteStatus       = errors.New("quote status does not allow this action")
	ErrAlreadyConverted         = errors.New("quote already converted")
	ErrQuoteExpired             = errors.New("quote has expired")
	ErrForbidden                = errors.New("forbidden")
	ErrInvalidAddress           = errors.New("address is required")
	ErrPaymentUnavailable       = errors.New("payment gateway is not configured")
	ErrPaymentNotApplicable     = errors.New("order is not payable by card")
	ErrPaymentMismatch          = errors.New("payment does not belong to this order")
)

// notFound wraps ErrNotFound with the entity name, e.g. "order not found".
func notFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

// InsufficientStockError names the product that blocked a checkout.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

type InvalidTransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
