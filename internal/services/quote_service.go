// internal/services/quote_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/database"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type QuoteService struct {
	db           *gorm.DB
	orderService *OrderService
	shop         config.ShopConfig
	now          func() time.Time
}

type QuoteItemRequest struct {
	ProductID    uuid.UUID        `json:"product_id" validate:"required"`
	Quantity     int              `json:"quantity" validate:"required,min=1"`
	UnitPriceHt  *decimal.Decimal `json:"unit_price_ht,omitempty" validate:"omitempty,gte=0"`
	DiscountRate decimal.Decimal  `json:"discount_rate" validate:"gte=0,lte=100"`
}

type CreateQuoteRequest struct {
	UserID            uuid.UUID             `json:"user_id" validate:"required"`
	CustomerEmail     string                `json:"customer_email,omitempty" validate:"omitempty,email"`
	ShippingMethod    models.ShippingMethod `json:"shipping_method" validate:"required,shipping_method"`
	ShippingAddressID *uuid.UUID            `json:"shipping_address_id,omitempty"`
	BillingAddressID  uuid.UUID             `json:"billing_address_id" validate:"required"`
	PaymentMethod     models.PaymentMethod  `json:"payment_method,omitempty" validate:"omitempty,payment_method"`
	ValidityDays      int                   `json:"validity_days,omitempty" validate:"omitempty,min=1,max=365"`
	Notes             string                `json:"notes,omitempty" validate:"max=2000"`
	Items             []QuoteItemRequest    `json:"items" validate:"required,min=1,dive"`
}

type QuoteFilter struct {
	UserID *uuid.UUID
	Status *models.QuoteStatus
}

func NewQuoteService(db *gorm.DB, orderService *OrderService, shop config.ShopConfig) *QuoteService {
	return &QuoteService{
		db:           db,
		orderService: orderService,
		shop:         shop,
		now:          time.Now,
	}
}

// CreateQuote drafts a quote, snapshotting product names, SKUs, prices and tax
// rates. A unit price given in the request overrides the catalog price.
func (s *QuoteService) CreateQuote(ctx context.Context, req *CreateQuoteRequest) (*models.Quote, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if err := checkAddresses(req.ShippingMethod, req.ShippingAddressID, req.BillingAddressID); err != nil {
		return nil, err
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = models.PaymentMethodBankTransfer
	}
	validityDays := req.ValidityDays
	if validityDays == 0 {
		validityDays = s.shop.QuoteValidityDays
	}

	now := s.now()
	quote := &models.Quote{
		UserID:            req.UserID,
		CustomerEmail:     req.CustomerEmail,
		Status:            models.QuoteStatusDraft,
		ValidUntil:        now.AddDate(0, 0, validityDays),
		ShippingMethod:    req.ShippingMethod,
		PaymentMethod:     paymentMethod,
		ShippingAddressID: req.ShippingAddressID,
		BillingAddressID:  req.BillingAddressID,
		Notes:             req.Notes,
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		for i, item := range req.Items {
			var product models.Product
			if err := tx.Where("id = ?", item.ProductID).First(&product).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFound("product")
				}
				return fmt.Errorf("database error: %w", err)
			}
			unitPrice := product.PriceHt
			if item.UnitPriceHt != nil {
				unitPrice = round2(*item.UnitPriceHt)
			}
			quote.Items = append(quote.Items, models.QuoteItem{
				ProductID:    product.ID,
				ProductName:  product.Name,
				ProductSKU:   product.SKU,
				Quantity:     item.Quantity,
				UnitPriceHt:  unitPrice,
				DiscountRate: item.DiscountRate,
				TaxRate:      product.TaxRate,
				Position:     i + 1,
			})
		}

		number, err := nextNumber(tx, &models.Quote{}, "quote_number", s.shop.QuoteNumberPrefix, now)
		if err != nil {
			return err
		}
		quote.QuoteNumber = number

		if err := tx.Create(quote).Error; err != nil {
			return fmt.Errorf("failed to create quote: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"quote_id":     quote.ID,
		"quote_number": quote.QuoteNumber,
		"user_id":      quote.UserID,
		"items":        len(quote.Items),
	}).Info("Quote created")

	return quote, nil
}

// SendQuote marks a draft as sent to the customer.
func (s *QuoteService) SendQuote(ctx context.Context, quoteID uuid.UUID) (*models.Quote, error) {
	return s.changeStatus(ctx, quoteID, nil, models.QuoteStatusSent)
}

// AcceptQuote records the customer's acceptance. Accepting after the validity
// date marks the quote expired instead and fails with ErrQuoteExpired.
func (s *QuoteService) AcceptQuote(ctx context.Context, quoteID, userID uuid.UUID) (*models.Quote, error) {
	return s.changeStatus(ctx, quoteID, &userID, models.QuoteStatusAccepted)
}

func (s *QuoteService) RejectQuote(ctx context.Context, quoteID, userID uuid.UUID) (*models.Quote, error) {
	return s.changeStatus(ctx, quoteID, &userID, models.QuoteStatusRejected)
}

func (s *QuoteService) changeStatus(ctx context.Context, quoteID uuid.UUID, userID *uuid.UUID, to models.QuoteStatus) (*models.Quote, error) {
	var expired bool
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		quote, err := lockQuote(tx, quoteID)
		if err != nil {
			return err
		}
		if userID != nil && quote.UserID != *userID {
			return notFound("quote")
		}
		if !models.CanTransitionQuote(quote.Status, to) {
			return fmt.Errorf("%w: %s quote cannot become %s", ErrInvalidQuoteStatus, quote.Status, to)
		}

		if to == models.QuoteStatusAccepted && quote.IsOverdue(s.now()) {
			to = models.QuoteStatusExpired
			expired = true
		}
		if err := tx.Model(&models.Quote{}).Where("id = ?", quote.ID).Update("status", to).Error; err != nil {
			return fmt.Errorf("failed to update quote status: %w", err)
		}

		logrus.WithFields(logrus.Fields{
			"quote_id":     quote.ID,
			"quote_number": quote.QuoteNumber,
			"from":         quote.Status,
			"to":           to,
		}).Info("Quote status changed")
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, ErrQuoteExpired
	}
	return s.GetQuote(ctx, quoteID)
}

// ExpireOverdue expires every sent quote whose validity date has passed.
func (s *QuoteService) ExpireOverdue(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Quote{}).
		Where("status = ? AND valid_until < ?", models.QuoteStatusSent, s.now()).
		Update("status", models.QuoteStatusExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire quotes: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		logrus.WithField("count", result.RowsAffected).Info("Overdue quotes expired")
	}
	return result.RowsAffected, nil
}

// ConvertQuoteToOrder turns an accepted quote into an order through the same
// stock decrement path as checkout. Discounts are applied to the unit prices
// before totals. The quote can only ever produce one order.
func (s *QuoteService) ConvertQuoteToOrder(ctx context.Context, quoteID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.orderService.withNumberRetry(func() error {
		return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
			quote, err := lockQuote(tx, quoteID)
			if err != nil {
				return err
			}
			if quote.IsConverted() {
				return ErrAlreadyConverted
			}
			if quote.Status != models.QuoteStatusAccepted {
				return fmt.Errorf("%w: quote is %s", ErrInvalidQuoteStatus, quote.Status)
			}

			var items []models.QuoteItem
			if err := tx.Where("quote_id = ?", quote.ID).Order("position").Find(&items).Error; err != nil {
				return fmt.Errorf("failed to fetch quote items: %w", err)
			}

			lines := make([]orderLine, 0, len(items))
			for i := range items {
				item := items[i]
				lines = append(lines, orderLine{
					ProductID:    item.ProductID,
					Quantity:     item.Quantity,
					UnitPriceHt:  &item.UnitPriceHt,
					TaxRate:      &item.TaxRate,
					DiscountRate: item.DiscountRate,
				})
			}

			order, err = s.orderService.placeOrderTx(tx, &placement{
				UserID:            quote.UserID,
				CustomerEmail:     quote.CustomerEmail,
				QuoteID:           &quote.ID,
				ShippingAddressID: quote.ShippingAddressID,
				BillingAddressID:  quote.BillingAddressID,
				ShippingMethod:    quote.ShippingMethod,
				PaymentMethod:     quote.PaymentMethod,
				Notes:             quote.Notes,
				Lines:             lines,
			})
			if err != nil {
				return err
			}

			convertedAt := s.now()
			result := tx.Model(&models.Quote{}).
				Where("id = ? AND converted_order_id IS NULL", quote.ID).
				Updates(map[string]interface{}{
					"converted_order_id": order.ID,
					"converted_at":       convertedAt,
				})
			if result.Error != nil {
				return fmt.Errorf("failed to mark quote converted: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return ErrAlreadyConverted
			}

			logrus.WithFields(logrus.Fields{
				"quote_id":     quote.ID,
				"quote_number": quote.QuoteNumber,
				"order_number": order.OrderNumber,
			}).Info("Quote converted to order")
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.orderService.notifyPlaced(order)
	return order, nil
}

// ConvertForUser converts a quote on behalf of its owner.
func (s *QuoteService) ConvertForUser(ctx context.Context, quoteID, userID uuid.UUID) (*models.Order, error) {
	if _, err := s.GetQuoteForUser(ctx, quoteID, userID); err != nil {
		return nil, err
	}
	return s.ConvertQuoteToOrder(ctx, quoteID)
}

func (s *QuoteService) GetQuote(ctx context.Context, quoteID uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("id = ?", quoteID).
		First(&quote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("quote")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &quote, nil
}

func (s *QuoteService) GetQuoteForUser(ctx context.Context, quoteID, userID uuid.UUID) (*models.Quote, error) {
	quote, err := s.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.UserID != userID {
		return nil, notFound("quote")
	}
	return quote, nil
}

func (s *QuoteService) ListQuotes(ctx context.Context, filter QuoteFilter, params utils.PaginationParams) ([]models.Quote, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Quote{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count quotes: %w", err)
	}

	allowedSortFields := []string{"created_at", "valid_until", "quote_number", "status"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var quotes []models.Quote
	if err := query.Find(&quotes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch quotes: %w", err)
	}
	return quotes, total, nil
}

// QuoteTotals prices a quote the way conversion would, for display.
func QuoteTotals(quote *models.Quote, deliveryFee decimal.Decimal) Totals {
	lines := make([]PricedLine, 0, len(quote.Items))
	for _, item := range quote.Items {
		lines = append(lines, PricedLine{
			UnitPriceHt: DiscountedUnitPrice(item.UnitPriceHt, item.DiscountRate),
			TaxRate:     item.TaxRate,
			Quantity:    item.Quantity,
		})
	}
	return ComputeTotals(lines, ShippingCost(quote.ShippingMethod, deliveryFee))
}

func lockQuote(tx *gorm.DB, quoteID uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", quoteID).First(&quote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("quote")
		}
		return nil, fmt.Errorf("failed to lock quote: %w", err)
	}
	return &quote, nil
}
