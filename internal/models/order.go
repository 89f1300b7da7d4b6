// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is immutable once created, apart from Status, PaymentStatus and UpdatedAt.
type Order struct {
	BaseModel
	OrderNumber       string          `json:"order_number" gorm:"size:40;uniqueIndex;not null"`
	UserID            uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index"`
	CustomerEmail     string          `json:"customer_email,omitempty" gorm:"size:255"`
	QuoteID           *uuid.UUID      `json:"quote_id,omitempty" gorm:"type:uuid;index"`
	Status            OrderStatus     `json:"status" gorm:"type:varchar(20);not null;index"`
	PaymentMethod     PaymentMethod   `json:"payment_method" gorm:"type:varchar(20);not null"`
	PaymentStatus     PaymentStatus   `json:"payment_status" gorm:"type:varchar(20);not null;index"`
	ShippingMethod    ShippingMethod  `json:"shipping_method" gorm:"type:varchar(20);not null"`
	ShippingAddressID *uuid.UUID      `json:"shipping_address_id,omitempty" gorm:"type:uuid"`
	BillingAddressID  uuid.UUID       `json:"billing_address_id" gorm:"type:uuid;not null"`
	SubtotalHt        decimal.Decimal `json:"subtotal_ht" gorm:"type:decimal(12,2);not null"`
	TaxAmount         decimal.Decimal `json:"tax_amount" gorm:"type:decimal(12,2);not null"`
	ShippingCost      decimal.Decimal `json:"shipping_cost" gorm:"type:decimal(12,2);not null"`
	TotalTtc          decimal.Decimal `json:"total_ttc" gorm:"type:decimal(12,2);not null"`
	Notes             string          `json:"notes,omitempty" gorm:"type:text"`

	// Relationships
	Items   []OrderItem    `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	History []OrderHistory `json:"history,omitempty" gorm:"foreignKey:OrderID"`
}

// OrderItem is a snapshot of the product at order time, not a live reference.
type OrderItem struct {
	ID           uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID      uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID       `json:"product_id" gorm:"type:uuid;not null;index"`
	ProductName  string          `json:"product_name" gorm:"size:255;not null"`
	ProductSKU   string          `json:"product_sku" gorm:"size:64;not null"`
	Quantity     int             `json:"quantity" gorm:"not null"`
	UnitPriceHt  decimal.Decimal `json:"unit_price_ht" gorm:"type:decimal(12,2);not null"`
	TaxRate      decimal.Decimal `json:"tax_rate" gorm:"type:decimal(5,2);not null"`
	DiscountRate decimal.Decimal `json:"discount_rate" gorm:"type:decimal(5,2);not null"`
	LineTotalHt  decimal.Decimal `json:"line_total_ht" gorm:"type:decimal(12,2);not null"`
	Position     int             `json:"position" gorm:"not null"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// OrderHistory is the append-only audit trail of an order's statuses.
type OrderHistory struct {
	ID        uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID   `json:"order_id" gorm:"type:uuid;not null;index"`
	Status    OrderStatus `json:"status" gorm:"type:varchar(20);not null"`
	Comment   string      `json:"comment" gorm:"type:text"`
	CreatedAt time.Time   `json:"created_at" gorm:"index"`
}

func (OrderHistory) TableName() string { return "order_history" }

func (h *OrderHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
