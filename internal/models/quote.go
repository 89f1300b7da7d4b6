// internal/models/quote.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Quote is a B2B price proposal. It converts into at most one order.
type Quote struct {
	BaseModel
	QuoteNumber       string         `json:"quote_number" gorm:"size:40;uniqueIndex;not null"`
	UserID            uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;index"`
	CustomerEmail     string         `json:"customer_email,omitempty" gorm:"size:255"`
	Status            QuoteStatus    `json:"status" gorm:"type:varchar(20);not null;index"`
	ValidUntil        time.Time      `json:"valid_until" gorm:"not null;index"`
	ShippingMethod    ShippingMethod `json:"shipping_method" gorm:"type:varchar(20);not null"`
	PaymentMethod     PaymentMethod  `json:"payment_method" gorm:"type:varchar(20);not null"`
	ShippingAddressID *uuid.UUID     `json:"shipping_address_id,omitempty" gorm:"type:uuid"`
	BillingAddressID  uuid.UUID      `json:"billing_address_id" gorm:"type:uuid;not null"`
	Notes             string         `json:"notes,omitempty" gorm:"type:text"`
	ConvertedOrderID  *uuid.UUID     `json:"converted_order_id,omitempty" gorm:"type:uuid;uniqueIndex"`
	ConvertedAt       *time.Time     `json:"converted_at,omitempty"`

	// Relationships
	Items []QuoteItem `json:"items,omitempty" gorm:"foreignKey:QuoteID"`
}

func (q *Quote) IsConverted() bool {
	return q.ConvertedOrderID != nil
}

func (q *Quote) IsOverdue(now time.Time) bool {
	return now.After(q.ValidUntil)
}

type QuoteItem struct {
	ID           uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	QuoteID      uuid.UUID       `json:"quote_id" gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID       `json:"product_id" gorm:"type:uuid;not null;index"`
	ProductName  string          `json:"product_name" gorm:"size:255;not null"`
	ProductSKU   string          `json:"product_sku" gorm:"size:64;not null"`
	Quantity     int             `json:"quantity" gorm:"not null"`
	UnitPriceHt  decimal.Decimal `json:"unit_price_ht" gorm:"type:decimal(12,2);not null"`
	DiscountRate decimal.Decimal `json:"discount_rate" gorm:"type:decimal(5,2);not null"`
	TaxRate      decimal.Decimal `json:"tax_rate" gorm:"type:decimal(5,2);not null"`
	Position     int             `json:"position" gorm:"not null"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (i *QuoteItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
