// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
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

const placeOrderAttempts = 3

// OrderNotifier is told about committed order events. Calls are made on their
// own goroutine and must not block the caller.
type OrderNotifier interface {
	OrderPlaced(order *models.Order)
	OrderStatusChanged(order *models.Order, from models.OrderStatus)
}

type OrderService struct {
	db           *gorm.DB
	stockService *StockService
	notifier     OrderNotifier
	shop         config.ShopConfig
	now          func() time.Time
}

type CreateOrderRequest struct {
	UserID            uuid.UUID             `json:"-" validate:"required"`
	CustomerEmail     string                `json:"-" validate:"omitempty,email"`
	ShippingAddressID *uuid.UUID            `json:"shipping_address_id,omitempty"`
	BillingAddressID  uuid.UUID             `json:"billing_address_id" validate:"required"`
	ShippingMethod    models.ShippingMethod `json:"shipping_method" validate:"required,shipping_method"`
	PaymentMethod     models.PaymentMethod  `json:"payment_method" validate:"required,payment_method"`
	Notes             string                `json:"notes,omitempty" validate:"max=2000"`
}

type OrderFilter struct {
	UserID *uuid.UUID
	Status *models.OrderStatus
}

// orderLine is one requested line entering the engine. When UnitPriceHt is
// nil the live catalog price is used.
type orderLine struct {
	ProductID    uuid.UUID
	Quantity     int
	UnitPriceHt  *decimal.Decimal
	TaxRate      *decimal.Decimal
	DiscountRate decimal.Decimal
}

// placement is everything the engine needs to turn lines into an order.
type placement struct {
	UserID            uuid.UUID
	CustomerEmail     string
	QuoteID           *uuid.UUID
	ShippingAddressID *uuid.UUID
	BillingAddressID  uuid.UUID
	ShippingMethod    models.ShippingMethod
	PaymentMethod     models.PaymentMethod
	Notes             string
	Lines             []orderLine
}

func NewOrderService(db *gorm.DB, stockService *StockService, notifier OrderNotifier, shop config.ShopConfig) *OrderService {
	return &OrderService{
		db:           db,
		stockService: stockService,
		notifier:     notifier,
		shop:         shop,
		now:          time.Now,
	}
}

// CreateOrder turns the user's cart into an order. Stock is checked and
// decremented, the order and its item snapshots are written, the first
// history entry is appended and the cart is emptied, all in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if err := checkAddresses(req.ShippingMethod, req.ShippingAddressID, req.BillingAddressID); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.withNumberRetry(func() error {
		return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
			cart, err := findCartTx(tx, models.UserOwner(req.UserID))
			if errors.Is(err, ErrNotFound) {
				return ErrEmptyCart
			}
			if err != nil {
				return err
			}
			if _, err := lockCart(tx, cart.ID); err != nil {
				return err
			}

			var cartLines []models.CartLine
			if err := tx.Where("cart_id = ?", cart.ID).Order("created_at").Find(&cartLines).Error; err != nil {
				return fmt.Errorf("failed to fetch cart lines: %w", err)
			}
			if len(cartLines) == 0 {
				return ErrEmptyCart
			}

			lines := make([]orderLine, 0, len(cartLines))
			for _, line := range cartLines {
				lines = append(lines, orderLine{ProductID: line.ProductID, Quantity: line.Quantity})
			}

			order, err = s.placeOrderTx(tx, &placement{
				UserID:            req.UserID,
				CustomerEmail:     req.CustomerEmail,
				ShippingAddressID: req.ShippingAddressID,
				BillingAddressID:  req.BillingAddressID,
				ShippingMethod:    req.ShippingMethod,
				PaymentMethod:     req.PaymentMethod,
				Notes:             req.Notes,
				Lines:             lines,
			})
			if err != nil {
				return err
			}

			return clearCartTx(tx, cart.ID)
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifyPlaced(order)
	return order, nil
}

// placeOrderTx is the shared decrement path for checkout and quote conversion.
// Product rows are locked in id order so concurrent checkouts cannot deadlock.
func (s *OrderService) placeOrderTx(tx *gorm.DB, p *placement) (*models.Order, error) {
	if len(p.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	requested := make(map[uuid.UUID]int, len(p.Lines))
	for _, line := range p.Lines {
		if line.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		requested[line.ProductID] += line.Quantity
	}

	productIDs := make([]uuid.UUID, 0, len(requested))
	for id := range requested {
		productIDs = append(productIDs, id)
	}
	sort.Slice(productIDs, func(i, j int) bool {
		return productIDs[i].String() < productIDs[j].String()
	})

	products := make(map[uuid.UUID]*models.Product, len(productIDs))
	for _, id := range productIDs {
		product, err := lockProduct(tx, id)
		if err != nil {
			return nil, err
		}
		available := product.StockQuantity
		if !product.IsActive {
			available = 0
		}
		if available < requested[id] {
			return nil, &InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   requested[id],
				Available:   available,
			}
		}
		products[id] = product
	}

	now := s.now()
	items := make([]models.OrderItem, 0, len(p.Lines))
	priced := make([]PricedLine, 0, len(p.Lines))
	for i, line := range p.Lines {
		product := products[line.ProductID]

		unitPrice := product.PriceHt
		if line.UnitPriceHt != nil {
			unitPrice = *line.UnitPriceHt
		}
		unitPrice = DiscountedUnitPrice(unitPrice, line.DiscountRate)
		taxRate := product.TaxRate
		if line.TaxRate != nil {
			taxRate = *line.TaxRate
		}

		pl := PricedLine{UnitPriceHt: unitPrice, TaxRate: taxRate, Quantity: line.Quantity}
		priced = append(priced, pl)
		items = append(items, models.OrderItem{
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductSKU:   product.SKU,
			Quantity:     line.Quantity,
			UnitPriceHt:  unitPrice,
			TaxRate:      taxRate,
			DiscountRate: line.DiscountRate,
			LineTotalHt:  round2(pl.SubtotalHt()),
			Position:     i + 1,
		})
	}
	totals := ComputeTotals(priced, ShippingCost(p.ShippingMethod, s.shop.DeliveryFee))

	number, err := nextNumber(tx, &models.Order{}, "order_number", s.shop.OrderNumberPrefix, now)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		OrderNumber:       number,
		UserID:            p.UserID,
		CustomerEmail:     p.CustomerEmail,
		QuoteID:           p.QuoteID,
		Status:            models.OrderStatusPending,
		PaymentMethod:     p.PaymentMethod,
		PaymentStatus:     models.PaymentStatusPending,
		ShippingMethod:    p.ShippingMethod,
		ShippingAddressID: p.ShippingAddressID,
		BillingAddressID:  p.BillingAddressID,
		SubtotalHt:        totals.SubtotalHt,
		TaxAmount:         totals.TaxAmount,
		ShippingCost:      totals.ShippingCost,
		TotalTtc:          totals.TotalTtc,
		Notes:             p.Notes,
		Items:             items,
	}
	if err := tx.Create(order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for _, id := range productIDs {
		_, err := s.stockService.ApplyMovementTx(tx, &MovementRequest{
			ProductID: id,
			Quantity:  requested[id],
			Type:      models.MovementTypeOut,
			Reference: order.OrderNumber,
			Notes:     "Order " + order.OrderNumber,
		})
		if errors.Is(err, ErrNegativeStock) {
			product := products[id]
			return nil, &InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   requested[id],
				Available:   product.StockQuantity,
			}
		}
		if err != nil {
			return nil, err
		}
	}

	entry := models.OrderHistory{
		OrderID: order.ID,
		Status:  models.OrderStatusPending,
		Comment: models.OrderStatusPending.DefaultComment(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("failed to write order history: %w", err)
	}
	order.History = []models.OrderHistory{entry}

	logrus.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      order.UserID,
		"items":        len(items),
		"total_ttc":    order.TotalTtc.StringFixed(2),
	}).Info("Order placed")

	return order, nil
}

// Transition moves an order along the status graph. The check runs against
// the persisted status under a row lock, and the update is guarded on that
// status. Cancelling puts every item back in stock in the same transaction.
func (s *OrderService) Transition(ctx context.Context, orderID uuid.UUID, to models.OrderStatus, comment string) (*models.Order, error) {
	var (
		order *models.Order
		from  models.OrderStatus
	)
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		from = order.Status
		if !models.CanTransition(from, to) {
			return &InvalidTransitionError{From: from, To: to}
		}

		result := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, from).
			Update("status", to)
		if result.Error != nil {
			return fmt.Errorf("failed to update order status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return &InvalidTransitionError{From: from, To: to}
		}
		order.Status = to

		if to == models.OrderStatusCancelled {
			if err := s.restoreStockTx(tx, order); err != nil {
				return err
			}
		}

		if comment == "" {
			comment = to.DefaultComment()
		}
		if err := tx.Create(&models.OrderHistory{OrderID: order.ID, Status: to, Comment: comment}).Error; err != nil {
			return fmt.Errorf("failed to write order history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"from":         from,
		"to":           to,
	}).Info("Order status changed")

	if to.NotifiesCustomer() {
		s.notifyStatusChanged(order, from)
	}
	return s.GetOrder(ctx, orderID)
}

// CancelOrder lets a customer cancel one of their own orders through the
// same status graph.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, userID uuid.UUID, reason string) (*models.Order, error) {
	if _, err := s.GetOrderForUser(ctx, orderID, userID); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "Cancelled by customer"
	}
	return s.Transition(ctx, orderID, models.OrderStatusCancelled, reason)
}

func (s *OrderService) restoreStockTx(tx *gorm.DB, order *models.Order) error {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		return fmt.Errorf("failed to fetch order items: %w", err)
	}

	restored := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		restored[item.ProductID] += item.Quantity
	}
	productIDs := make([]uuid.UUID, 0, len(restored))
	for id := range restored {
		productIDs = append(productIDs, id)
	}
	sort.Slice(productIDs, func(i, j int) bool {
		return productIDs[i].String() < productIDs[j].String()
	})

	for _, id := range productIDs {
		_, err := s.stockService.ApplyMovementTx(tx, &MovementRequest{
			ProductID: id,
			Quantity:  restored[id],
			Type:      models.MovementTypeIn,
			Reference: order.OrderNumber,
			Notes:     "Cancellation of order " + order.OrderNumber,
		})
		if err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
	}
	return nil
}

// UpdatePaymentStatus moves the payment status along its own small graph.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, to models.PaymentStatus) (*models.Order, error) {
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		from := order.PaymentStatus
		if !models.CanTransitionPayment(from, to) {
			return fmt.Errorf("%w: from %s to %s", ErrInvalidPaymentTransition, from, to)
		}

		result := tx.Model(&models.Order{}).
			Where("id = ? AND payment_status = ?", order.ID, from).
			Update("payment_status", to)
		if result.Error != nil {
			return fmt.Errorf("failed to update payment status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: from %s to %s", ErrInvalidPaymentTransition, from, to)
		}

		logrus.WithFields(logrus.Fields{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"from":         from,
			"to":           to,
		}).Info("Payment status changed")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, orderID)
}

// GetOrder loads an order with its items and its history, newest first.
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("order")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &order, nil
}

// GetOrderForUser hides other customers' orders behind ErrNotFound.
func (s *OrderService) GetOrderForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, notFound("order")
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, filter OrderFilter, params utils.PaginationParams) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if params.Search != "" {
		query = query.Where("order_number LIKE ?", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "order_number", "total_ttc", "status"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return orders, total, nil
}

// History returns the order's status history, newest first.
func (s *OrderService) History(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	var history []models.OrderHistory
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at DESC").Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order history: %w", err)
	}
	return history, nil
}

// NextStatuses lists the statuses the order may move to from where it is.
func (s *OrderService) NextStatuses(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatus, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Select("id", "status").Where("id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("order")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return models.AllowedTransitions(order.Status), nil
}

func (s *OrderService) withNumberRetry(fn func() error) error {
	var err error
	for i := 0; i < placeOrderAttempts; i++ {
		err = fn()
		if err == nil || !database.IsDuplicateKey(err) {
			return err
		}
		logrus.WithError(err).Warn("Order number collision, retrying")
	}
	return err
}

func (s *OrderService) notifyPlaced(order *models.Order) {
	if s.notifier == nil {
		return
	}
	snapshot := *order
	go s.notifier.OrderPlaced(&snapshot)
}

func (s *OrderService) notifyStatusChanged(order *models.Order, from models.OrderStatus) {
	if s.notifier == nil {
		return
	}
	snapshot := *order
	go s.notifier.OrderStatusChanged(&snapshot, from)
}

func lockOrder(tx *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", orderID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("order")
		}
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	return &order, nil
}

// checkAddresses requires a billing address, and a shipping address unless
// the customer collects the order in store.
func checkAddresses(method models.ShippingMethod, shippingAddressID *uuid.UUID, billingAddressID uuid.UUID) error {
	if billingAddressID == uuid.Nil {
		return fmt.Errorf("billing %w", ErrInvalidAddress)
	}
	if method == models.ShippingMethodDelivery && (shippingAddressID == nil || *shippingAddressID == uuid.Nil) {
		return fmt.Errorf("shipping %w", ErrInvalidAddress)
	}
	return nil
}
