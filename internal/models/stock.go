// internal/models/stock.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockMovement is one append-only ledger entry. For in/out movements
// Quantity is the positive amount moved; for adjustments it is the signed
// delta that was applied to reach the new absolute level.
type StockMovement struct {
	ID          uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	ProductID   uuid.UUID    `json:"product_id" gorm:"type:uuid;not null;index"`
	Type        MovementType `json:"type" gorm:"type:varchar(16);not null;index"`
	Quantity    int          `json:"quantity" gorm:"not null"`
	StockBefore int          `json:"stock_before" gorm:"not null"`
	StockAfter  int          `json:"stock_after" gorm:"not null"`
	Reference   string       `json:"reference" gorm:"size:100;index"`
	Notes       string       `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt   time.Time    `json:"created_at" gorm:"index"`
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Delta is the signed effect of the movement on the product's stock.
func (m *StockMovement) Delta() int {
	switch m.Type {
	case MovementTypeOut:
		return -m.Quantity
	default:
		return m.Quantity
	}
}
