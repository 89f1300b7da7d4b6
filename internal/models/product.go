// internal/models/product.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Brand struct {
	BaseModel
	Name string `json:"name" gorm:"size:120;not null"`
	Slug string `json:"slug" gorm:"size:120;uniqueIndex;not null"`
}

type Category struct {
	BaseModel
	Name     string     `json:"name" gorm:"size:120;not null"`
	Slug     string     `json:"slug" gorm:"size:120;uniqueIndex;not null"`
	ParentID *uuid.UUID `json:"parent_id,omitempty" gorm:"type:uuid;index"`
}

// Product is a catalog entry. StockQuantity is owned by the stock ledger and
// must only change through a StockMovement.
type Product struct {
	BaseModel
	SKU                 string          `json:"sku" gorm:"size:64;uniqueIndex;not null"`
	Name                string          `json:"name" gorm:"size:255;not null"`
	Description         string          `json:"description" gorm:"type:text"`
	BrandID             *uuid.UUID      `json:"brand_id,omitempty" gorm:"type:uuid;index"`
	CategoryID          *uuid.UUID      `json:"category_id,omitempty" gorm:"type:uuid;index"`
	PriceHt             decimal.Decimal `json:"price_ht" gorm:"type:decimal(12,2);not null"`
	TaxRate             decimal.Decimal `json:"tax_rate" gorm:"type:decimal(5,2);not null"`
	StockQuantity       int             `json:"stock_quantity" gorm:"not null"`
	StockAlertThreshold int             `json:"stock_alert_threshold" gorm:"not null"`
	IsActive            bool            `json:"is_active" gorm:"not null;index"`

	// Relationships
	Brand    *Brand    `json:"brand,omitempty" gorm:"foreignKey:BrandID"`
	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

// PriceTtc is the tax-inclusive unit price shown to customers.
func (p *Product) PriceTtc() decimal.Decimal {
	return p.PriceHt.Add(p.PriceHt.Mul(p.TaxRate).Div(decimal.NewFromInt(100))).Round(2)
}

func (p *Product) IsLowStock() bool {
	return p.StockQuantity <= p.StockAlertThreshold
}
