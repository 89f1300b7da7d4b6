// internal/services/export_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/models"
)

// OrderDocument is the snapshot handed to the invoice/PDF pipeline.
type OrderDocument struct {
	OrderNumber    string                `json:"order_number"`
	OrderID        uuid.UUID             `json:"order_id"`
	CustomerEmail  string                `json:"customer_email"`
	Status         models.OrderStatus    `json:"status"`
	PaymentMethod  models.PaymentMethod  `json:"payment_method"`
	PaymentStatus  models.PaymentStatus  `json:"payment_status"`
	ShippingMethod models.ShippingMethod `json:"shipping_method"`
	Currency       string                `json:"currency"`
	Lines          []OrderDocumentLine   `json:"lines"`
	SubtotalHt     decimal.Decimal       `json:"subtotal_ht"`
	TaxAmount      decimal.Decimal       `json:"tax_amount"`
	ShippingCost   decimal.Decimal       `json:"shipping_cost"`
	TotalTtc       decimal.Decimal       `json:"total_ttc"`
	History        []OrderDocumentEvent  `json:"history"`
	PlacedAt       time.Time             `json:"placed_at"`
	GeneratedAt    time.Time             `json:"generated_at"`
}

type OrderDocumentLine struct {
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	UnitPriceHt  decimal.Decimal `json:"unit_price_ht"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	LineTotalHt  decimal.Decimal `json:"line_total_ht"`
}

type OrderDocumentEvent struct {
	Status    models.OrderStatus `json:"status"`
	Comment   string             `json:"comment"`
	CreatedAt time.Time          `json:"created_at"`
}

type ExportResult struct {
	Document *OrderDocument `json:"document"`
	Archive  *UploadResult  `json:"archive,omitempty"`
}

type ExportService struct {
	orderService *OrderService
	storage      *StorageService
	currency     string
	now          func() time.Time
}

func NewExportService(orderService *OrderService, storage *StorageService, currency string) *ExportService {
	return &ExportService{
		orderService: orderService,
		storage:      storage,
		currency:     currency,
		now:          time.Now,
	}
}

// ExportOrder builds the order document and archives it when storage is
// enabled. History is written oldest first.
func (s *ExportService) ExportOrder(ctx context.Context, orderID uuid.UUID) (*ExportResult, error) {
	order, err := s.orderService.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	doc := s.buildDocument(order)
	result := &ExportResult{Document: doc}

	if s.storage == nil || !s.storage.Enabled() {
		return result, nil
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode order document: %w", err)
	}

	key := s.storage.Key(fmt.Sprintf("%s/%s.json", order.CreatedAt.Format("2006/01"), order.OrderNumber))
	archive, err := s.storage.Upload(ctx, key, "application/json", body)
	if err != nil {
		return nil, err
	}
	result.Archive = archive

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"key":      key,
	}).Info("Order document archived")

	return result, nil
}

func (s *ExportService) buildDocument(order *models.Order) *OrderDocument {
	doc := &OrderDocument{
		OrderNumber:    order.OrderNumber,
		OrderID:        order.ID,
		CustomerEmail:  order.CustomerEmail,
		Status:         order.Status,
		PaymentMethod:  order.PaymentMethod,
		PaymentStatus:  order.PaymentStatus,
		ShippingMethod: order.ShippingMethod,
		Currency:       s.currency,
		SubtotalHt:     order.SubtotalHt,
		TaxAmount:      order.TaxAmount,
		ShippingCost:   order.ShippingCost,
		TotalTtc:       order.TotalTtc,
		PlacedAt:       order.CreatedAt,
		GeneratedAt:    s.now(),
		Lines:          make([]OrderDocumentLine, 0, len(order.Items)),
		History:        make([]OrderDocumentEvent, 0, len(order.History)),
	}

	for _, item := range order.Items {
		doc.Lines = append(doc.Lines, OrderDocumentLine{
			SKU:          item.ProductSKU,
			Name:         item.ProductName,
			Quantity:     item.Quantity,
			UnitPriceHt:  item.UnitPriceHt,
			DiscountRate: item.DiscountRate,
			TaxRate:      item.TaxRate,
			LineTotalHt:  item.LineTotalHt,
		})
	}
	for i := len(order.History) - 1; i >= 0; i-- {
		entry := order.History[i]
		doc.History = append(doc.History, OrderDocumentEvent{
			Status:    entry.Status,
			Comment:   entry.Comment,
			CreatedAt: entry.CreatedAt,
		})
	}
	return doc
}
