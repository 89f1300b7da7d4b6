// internal/services/stock_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/storefront-backend/internal/database"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type StockService struct {
	db *gorm.DB
}

// MovementRequest describes one stock change. For in/out Quantity is the
// amount moved; for an adjustment it is the new absolute stock level.
type MovementRequest struct {
	ProductID uuid.UUID           `json:"product_id" validate:"required"`
	Quantity  int                 `json:"quantity" validate:"gte=0"`
	Type      models.MovementType `json:"type" validate:"required,movement_type"`
	Reference string              `json:"reference" validate:"max=100"`
	Notes     string              `json:"notes,omitempty"`
}

type ReconcileReport struct {
	ProductID     uuid.UUID `json:"product_id"`
	StockQuantity int       `json:"stock_quantity"`
	LedgerTotal   int       `json:"ledger_total"`
	Movements     int       `json:"movements"`
	Consistent    bool      `json:"consistent"`
}

func NewStockService(db *gorm.DB) *StockService {
	return &StockService{db: db}
}

// ApplyMovement records one movement and updates the product counter in a
// single transaction. The returned movement carries the new level in StockAfter.
func (s *StockService) ApplyMovement(ctx context.Context, req *MovementRequest) (*models.StockMovement, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var movement *models.StockMovement
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		movement, err = s.ApplyMovementTx(tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// ApplyMovementTx is ApplyMovement joined to the caller's transaction. Every
// change to Product.StockQuantity goes through here.
func (s *StockService) ApplyMovementTx(tx *gorm.DB, req *MovementRequest) (*models.StockMovement, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("unknown movement type %q", req.Type)
	}
	if req.Quantity < 0 || (req.Quantity == 0 && req.Type != models.MovementTypeAdjustment) {
		return nil, ErrInvalidQuantity
	}

	product, err := lockProduct(tx, req.ProductID)
	if err != nil {
		return nil, err
	}

	before := product.StockQuantity
	movement := &models.StockMovement{
		ProductID:   product.ID,
		Type:        req.Type,
		StockBefore: before,
		Reference:   req.Reference,
		Notes:       req.Notes,
	}

	update := tx.Model(&models.Product{})
	switch req.Type {
	case models.MovementTypeIn:
		movement.Quantity = req.Quantity
		movement.StockAfter = before + req.Quantity
		update = update.Where("id = ?", product.ID).
			Update("stock_quantity", gorm.Expr("stock_quantity + ?", req.Quantity))
	case models.MovementTypeOut:
		if before < req.Quantity {
			return nil, ErrNegativeStock
		}
		movement.Quantity = req.Quantity
		movement.StockAfter = before - req.Quantity
		update = update.Where("id = ? AND stock_quantity >= ?", product.ID, req.Quantity).
			Update("stock_quantity", gorm.Expr("stock_quantity - ?", req.Quantity))
	case models.MovementTypeAdjustment:
		movement.Quantity = req.Quantity - before
		movement.StockAfter = req.Quantity
		update = update.Where("id = ?", product.ID).
			Update("stock_quantity", req.Quantity)
	}
	if update.Error != nil {
		return nil, fmt.Errorf("failed to update stock: %w", update.Error)
	}
	if update.RowsAffected == 0 {
		return nil, ErrNegativeStock
	}

	if err := tx.Create(movement).Error; err != nil {
		return nil, fmt.Errorf("failed to record stock movement: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"product_id": product.ID,
		"sku":        product.SKU,
		"type":       movement.Type,
		"quantity":   movement.Quantity,
		"before":     movement.StockBefore,
		"after":      movement.StockAfter,
		"reference":  movement.Reference,
	}).Info("Stock movement recorded")

	return movement, nil
}

// ListMovements returns a product's ledger, newest first.
func (s *StockService) ListMovements(ctx context.Context, productID uuid.UUID, params utils.PaginationParams) ([]models.StockMovement, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.StockMovement{}).Where("product_id = ?", productID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count stock movements: %w", err)
	}

	var movements []models.StockMovement
	if err := utils.ApplyPagination(query.Order("created_at DESC"), params).Find(&movements).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch stock movements: %w", err)
	}
	return movements, total, nil
}

// Reconcile replays the movement log and compares it with the counter.
func (s *StockService) Reconcile(ctx context.Context, productID uuid.UUID) (*ReconcileReport, error) {
	db := s.db.WithContext(ctx)

	var product models.Product
	if err := db.Where("id = ?", productID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("product")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	var movements []models.StockMovement
	if err := db.Where("product_id = ?", productID).Order("created_at").Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch stock movements: %w", err)
	}

	report := &ReconcileReport{
		ProductID:     product.ID,
		StockQuantity: product.StockQuantity,
		Movements:     len(movements),
	}
	for i := range movements {
		report.LedgerTotal += movements[i].Delta()
	}
	report.Consistent = report.LedgerTotal == report.StockQuantity

	if !report.Consistent {
		logrus.WithFields(logrus.Fields{
			"product_id": product.ID,
			"counter":    report.StockQuantity,
			"ledger":     report.LedgerTotal,
		}).Warn("Stock counter diverges from movement log")
	}
	return report, nil
}

// LowStockProducts lists active products at or below their alert threshold.
func (s *StockService) LowStockProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND stock_quantity <= stock_alert_threshold", true).
		Order("stock_quantity ASC, name ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch low stock products: %w", err)
	}
	return products, nil
}

// lockProduct reads a product row with SELECT ... FOR UPDATE.
func lockProduct(tx *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("product")
		}
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}
	return &product, nil
}
