// internal/services/catalog_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/database"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/utils"
)

const initialStockReference = "initial-stock"

type CatalogService struct {
	db                *gorm.DB
	stockService      *StockService
	defaultAlertLevel int
}

type CreateProductRequest struct {
	SKU                 string          `json:"sku" validate:"required,max=64"`
	Name                string          `json:"name" validate:"required,min=2,max=255"`
	Description         string          `json:"description,omitempty"`
	BrandID             *uuid.UUID      `json:"brand_id,omitempty"`
	CategoryID          *uuid.UUID      `json:"category_id,omitempty"`
	PriceHt             decimal.Decimal `json:"price_ht" validate:"gte=0"`
	TaxRate             decimal.Decimal `json:"tax_rate" validate:"gte=0,lte=100"`
	InitialStock        int             `json:"initial_stock" validate:"gte=0"`
	StockAlertThreshold *int            `json:"stock_alert_threshold,omitempty" validate:"omitempty,gte=0"`
}

// UpdateProductRequest never touches stock; use the stock ledger for that.
type UpdateProductRequest struct {
	Name                *string          `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	Description         *string          `json:"description,omitempty"`
	BrandID             *uuid.UUID       `json:"brand_id,omitempty"`
	CategoryID          *uuid.UUID       `json:"category_id,omitempty"`
	PriceHt             *decimal.Decimal `json:"price_ht,omitempty" validate:"omitempty,gte=0"`
	TaxRate             *decimal.Decimal `json:"tax_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	StockAlertThreshold *int             `json:"stock_alert_threshold,omitempty" validate:"omitempty,gte=0"`
	IsActive            *bool            `json:"is_active,omitempty"`
}

type ProductSearchParams struct {
	utils.PaginationParams
	CategoryID      *uuid.UUID
	BrandID         *uuid.UUID
	InStock         bool
	IncludeInactive bool
}

type CreateBrandRequest struct {
	Name string `json:"name" validate:"required,max=120"`
	Slug string `json:"slug" validate:"required,max=120"`
}

type CreateCategoryRequest struct {
	Name     string     `json:"name" validate:"required,max=120"`
	Slug     string     `json:"slug" validate:"required,max=120"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

func NewCatalogService(db *gorm.DB, stockService *StockService, defaultAlertLevel int) *CatalogService {
	return &CatalogService{
		db:                db,
		stockService:      stockService,
		defaultAlertLevel: defaultAlertLevel,
	}
}

// CreateProduct creates an active product. Any initial stock is posted as an
// "in" movement so the ledger replays to the counter from day one.
func (s *CatalogService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	threshold := s.defaultAlertLevel
	if req.StockAlertThreshold != nil {
		threshold = *req.StockAlertThreshold
	}

	product := &models.Product{
		SKU:                 strings.TrimSpace(req.SKU),
		Name:                strings.TrimSpace(req.Name),
		Description:         req.Description,
		BrandID:             req.BrandID,
		CategoryID:          req.CategoryID,
		PriceHt:             round2(req.PriceHt),
		TaxRate:             req.TaxRate,
		StockQuantity:       0,
		StockAlertThreshold: threshold,
		IsActive:            true,
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Create(product).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return fmt.Errorf("sku %s already exists: %w", product.SKU, err)
			}
			return fmt.Errorf("failed to create product: %w", err)
		}
		if req.InitialStock == 0 {
			return nil
		}
		movement, err := s.stockService.ApplyMovementTx(tx, &MovementRequest{
			ProductID: product.ID,
			Quantity:  req.InitialStock,
			Type:      models.MovementTypeIn,
			Reference: initialStockReference,
			Notes:     "Initial stock",
		})
		if err != nil {
			return err
		}
		product.StockQuantity = movement.StockAfter
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"product_id": product.ID,
		"sku":        product.SKU,
		"stock":      product.StockQuantity,
	}).Info("Product created")

	return product, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Preload("Brand").Preload("Category").
		Where("id = ?", id).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("product")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &product, nil
}

// GetActiveProduct hides deactivated products from the storefront.
func (s *CatalogService) GetActiveProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, notFound("product")
	}
	return product, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req *UpdateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	// Prepare updates
	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.BrandID != nil {
		updates["brand_id"] = *req.BrandID
	}
	if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if req.PriceHt != nil {
		updates["price_ht"] = round2(*req.PriceHt)
	}
	if req.TaxRate != nil {
		updates["tax_rate"] = *req.TaxRate
	}
	if req.StockAlertThreshold != nil {
		updates["stock_alert_threshold"] = *req.StockAlertThreshold
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return product, nil
	}

	if err := s.db.WithContext(ctx).Model(product).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return s.GetProduct(ctx, id)
}

// DeactivateProduct hides a product from sale. Products are never deleted;
// order items and stock movements reference them.
func (s *CatalogService) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("product")
	}
	logrus.WithField("product_id", id).Info("Product deactivated")
	return nil
}

func (s *CatalogService) SearchProducts(ctx context.Context, params ProductSearchParams) ([]models.Product, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})

	if !params.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if params.CategoryID != nil {
		query = query.Where("category_id = ?", *params.CategoryID)
	}
	if params.BrandID != nil {
		query = query.Where("brand_id = ?", *params.BrandID)
	}
	if params.InStock {
		query = query.Where("stock_quantity > 0")
	}
	if params.Search != "" {
		searchTerm := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ? OR LOWER(description) LIKE ?",
			searchTerm, searchTerm, searchTerm)
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "name", "sku", "price_ht", "stock_quantity"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var products []models.Product
	if err := query.Preload("Brand").Preload("Category").Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	return products, total, nil
}

func (s *CatalogService) CreateBrand(ctx context.Context, req *CreateBrandRequest) (*models.Brand, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	brand := &models.Brand{Name: req.Name, Slug: strings.ToLower(req.Slug)}
	if err := s.db.WithContext(ctx).Create(brand).Error; err != nil {
		return nil, fmt.Errorf("failed to create brand: %w", err)
	}
	return brand, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, req *CreateCategoryRequest) (*models.Category, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	category := &models.Category{Name: req.Name, Slug: strings.ToLower(req.Slug), ParentID: req.ParentID}
	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

func (s *CatalogService) ListBrands(ctx context.Context) ([]models.Brand, error) {
	var brands []models.Brand
	if err := s.db.WithContext(ctx).Order("name").Find(&brands).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch brands: %w", err)
	}
	return brands, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	return categories, nil
}
