// internal/services/cart_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/storefront-backend/internal/database"
	"github.com/javajoker/storefront-backend/internal/models"
)

type CartService struct {
	db *gorm.DB
}

// CartLineView is a cart line as shown to the customer, joined with the live
// product it points to.
type CartLineView struct {
	ProductID    uuid.UUID       `json:"product_id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	UnitPriceHt  decimal.Decimal `json:"unit_price_ht"`
	UnitPriceTtc decimal.Decimal `json:"unit_price_ttc"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	Quantity     int             `json:"quantity"`
	Available    int             `json:"available"`
	LineTotalHt  decimal.Decimal `json:"line_total_ht"`
}

type CartSummary struct {
	CartID  uuid.UUID      `json:"cart_id"`
	Lines   []CartLineView `json:"lines"`
	Items   int            `json:"items"`
	Totals  Totals         `json:"totals"`
	Removed []uuid.UUID    `json:"removed,omitempty"`
	Clamped []uuid.UUID    `json:"clamped,omitempty"`
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

// GetOrCreateCart returns the owner's cart, creating it on first use.
func (s *CartService) GetOrCreateCart(ctx context.Context, owner models.Owner) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	var cart *models.Cart
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		cart, err = getOrCreateCartTx(tx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// FindCart returns the owner's cart without creating one.
func (s *CartService) FindCart(ctx context.Context, owner models.Owner) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	return findCartTx(s.db.WithContext(ctx), owner)
}

// AddLine adds qty units of a product, merging with an existing line. The
// resulting quantity is capped at the live stock rather than rejected.
func (s *CartService) AddLine(ctx context.Context, cartID, productID uuid.UUID, qty int) (*models.CartLine, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	var line *models.CartLine
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if _, err := lockCart(tx, cartID); err != nil {
			return err
		}
		product, err := purchasableProduct(tx, productID)
		if err != nil {
			return err
		}

		existing, err := findLine(tx, cartID, productID)
		if err != nil {
			return err
		}
		if existing == nil {
			line = &models.CartLine{CartID: cartID, ProductID: productID, Quantity: min(qty, product.StockQuantity)}
			if err := tx.Create(line).Error; err != nil {
				return fmt.Errorf("failed to add cart line: %w", err)
			}
			return nil
		}

		existing.Quantity = min(existing.Quantity+qty, product.StockQuantity)
		if err := tx.Model(existing).Update("quantity", existing.Quantity).Error; err != nil {
			return fmt.Errorf("failed to update cart line: %w", err)
		}
		line = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// SetLineQuantity sets the quantity of a product in the cart. Zero removes the
// line and returns nil.
func (s *CartService) SetLineQuantity(ctx context.Context, cartID, productID uuid.UUID, qty int) (*models.CartLine, error) {
	if qty < 0 {
		return nil, ErrInvalidQuantity
	}
	if qty == 0 {
		return nil, s.RemoveLine(ctx, cartID, productID)
	}

	var line *models.CartLine
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if _, err := lockCart(tx, cartID); err != nil {
			return err
		}
		product, err := purchasableProduct(tx, productID)
		if err != nil {
			return err
		}

		existing, err := findLine(tx, cartID, productID)
		if err != nil {
			return err
		}
		quantity := min(qty, product.StockQuantity)
		if existing == nil {
			line = &models.CartLine{CartID: cartID, ProductID: productID, Quantity: quantity}
			if err := tx.Create(line).Error; err != nil {
				return fmt.Errorf("failed to add cart line: %w", err)
			}
			return nil
		}

		existing.Quantity = quantity
		if err := tx.Model(existing).Update("quantity", quantity).Error; err != nil {
			return fmt.Errorf("failed to update cart line: %w", err)
		}
		line = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// RemoveLine is idempotent: removing an absent product is not an error.
func (s *CartService) RemoveLine(ctx context.Context, cartID, productID uuid.UUID) error {
	err := s.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartLine{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove cart line: %w", err)
	}
	return nil
}

func (s *CartService) Clear(ctx context.Context, cartID uuid.UUID) error {
	if err := clearCartTx(s.db.WithContext(ctx), cartID); err != nil {
		return err
	}
	return nil
}

// ReadLines re-validates every line against live stock and persists the
// result: lines over stock are clamped, lines whose product is gone, inactive
// or sold out are dropped.
func (s *CartService) ReadLines(ctx context.Context, cartID uuid.UUID) (*CartSummary, error) {
	summary := &CartSummary{CartID: cartID, Lines: []CartLineView{}}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if _, err := lockCart(tx, cartID); err != nil {
			return err
		}

		var lines []models.CartLine
		if err := tx.Where("cart_id = ?", cartID).Order("created_at").Find(&lines).Error; err != nil {
			return fmt.Errorf("failed to fetch cart lines: %w", err)
		}
		products, err := productsByID(tx, lines)
		if err != nil {
			return err
		}

		for i := range lines {
			line := &lines[i]
			product, ok := products[line.ProductID]
			if !ok || !product.IsActive || product.StockQuantity <= 0 {
				if err := tx.Delete(line).Error; err != nil {
					return fmt.Errorf("failed to drop cart line: %w", err)
				}
				summary.Removed = append(summary.Removed, line.ProductID)
				continue
			}
			if line.Quantity > product.StockQuantity {
				line.Quantity = product.StockQuantity
				if err := tx.Model(line).Update("quantity", line.Quantity).Error; err != nil {
					return fmt.Errorf("failed to clamp cart line: %w", err)
				}
				summary.Clamped = append(summary.Clamped, line.ProductID)
			}
			summary.Lines = append(summary.Lines, newCartLineView(line, product))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	priced := make([]PricedLine, 0, len(summary.Lines))
	for _, line := range summary.Lines {
		summary.Items += line.Quantity
		priced = append(priced, PricedLine{UnitPriceHt: line.UnitPriceHt, TaxRate: line.TaxRate, Quantity: line.Quantity})
	}
	summary.Totals = ComputeTotals(priced, decimal.Zero)

	return summary, nil
}

// MergeIntoUserCart folds an anonymous cart into the user's cart and deletes
// it. Quantities of shared products are summed and capped at live stock. A
// missing anonymous cart means it was already merged, so nothing happens.
func (s *CartService) MergeIntoUserCart(ctx context.Context, anonymousCartID, userID uuid.UUID) (*models.Cart, error) {
	owner := models.UserOwner(userID)
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	var userCart *models.Cart
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		userCart, err = getOrCreateCartTx(tx, owner)
		if err != nil {
			return err
		}

		anonymous, err := lockCart(tx, anonymousCartID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !anonymous.Owner().IsAnonymous() {
			return models.ErrInvalidOwner
		}

		var incoming []models.CartLine
		if err := tx.Where("cart_id = ?", anonymous.ID).Find(&incoming).Error; err != nil {
			return fmt.Errorf("failed to fetch anonymous cart lines: %w", err)
		}
		products, err := productsByID(tx, incoming)
		if err != nil {
			return err
		}

		for _, line := range incoming {
			product, ok := products[line.ProductID]
			if !ok || !product.IsActive || product.StockQuantity <= 0 {
				continue
			}
			existing, err := findLine(tx, userCart.ID, line.ProductID)
			if err != nil {
				return err
			}
			if existing == nil {
				moved := &models.CartLine{
					CartID:    userCart.ID,
					ProductID: line.ProductID,
					Quantity:  min(line.Quantity, product.StockQuantity),
				}
				if err := tx.Create(moved).Error; err != nil {
					return fmt.Errorf("failed to move cart line: %w", err)
				}
				continue
			}
			merged := min(existing.Quantity+line.Quantity, product.StockQuantity)
			if err := tx.Model(existing).Update("quantity", merged).Error; err != nil {
				return fmt.Errorf("failed to merge cart line: %w", err)
			}
		}

		if err := clearCartTx(tx, anonymous.ID); err != nil {
			return err
		}
		if err := tx.Delete(anonymous).Error; err != nil {
			return fmt.Errorf("failed to delete anonymous cart: %w", err)
		}

		logrus.WithFields(logrus.Fields{
			"anonymous_cart_id": anonymous.ID,
			"user_cart_id":      userCart.ID,
			"lines":             len(incoming),
		}).Info("Cart merged")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return userCart, nil
}

// MergeSession merges the cart of an anonymous session into the user's cart.
func (s *CartService) MergeSession(ctx context.Context, sessionID string, userID uuid.UUID) (*models.Cart, error) {
	anonymous, err := s.FindCart(ctx, models.AnonymousOwner(sessionID))
	if errors.Is(err, ErrNotFound) {
		return s.GetOrCreateCart(ctx, models.UserOwner(userID))
	}
	if err != nil {
		return nil, err
	}
	return s.MergeIntoUserCart(ctx, anonymous.ID, userID)
}

func newCartLineView(line *models.CartLine, product *models.Product) CartLineView {
	return CartLineView{
		ProductID:    product.ID,
		SKU:          product.SKU,
		Name:         product.Name,
		UnitPriceHt:  product.PriceHt,
		UnitPriceTtc: product.PriceTtc(),
		TaxRate:      product.TaxRate,
		Quantity:     line.Quantity,
		Available:    product.StockQuantity,
		LineTotalHt:  round2(product.PriceHt.Mul(decimal.NewFromInt(int64(line.Quantity)))),
	}
}

func findCartTx(tx *gorm.DB, owner models.Owner) (*models.Cart, error) {
	var cart models.Cart
	err := tx.Where("owner_kind = ? AND owner_key = ?", owner.Kind(), owner.Key()).First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("cart")
		}
		return nil, fmt.Errorf("failed to fetch cart: %w", err)
	}
	return &cart, nil
}

// getOrCreateCartTx relies on the unique owner index: if a concurrent request
// created the cart first, the insert fails and the existing row is read back.
func getOrCreateCartTx(tx *gorm.DB, owner models.Owner) (*models.Cart, error) {
	cart, err := findCartTx(tx, owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	cart = models.NewCart(owner)
	// The savepoint keeps the outer transaction usable if the insert loses the race.
	err = tx.Transaction(func(sp *gorm.DB) error {
		return sp.Create(cart).Error
	})
	if err == nil {
		return cart, nil
	}
	if database.IsDuplicateKey(err) {
		return findCartTx(tx, owner)
	}
	return nil, fmt.Errorf("failed to create cart: %w", err)
}

func lockCart(tx *gorm.DB, cartID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", cartID).First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("cart")
		}
		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}
	return &cart, nil
}

func findLine(tx *gorm.DB, cartID, productID uuid.UUID) (*models.CartLine, error) {
	var line models.CartLine
	err := tx.Where("cart_id = ? AND product_id = ?", cartID, productID).First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch cart line: %w", err)
	}
	return &line, nil
}

// purchasableProduct loads a product a customer may put in a cart.
func purchasableProduct(tx *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := tx.Where("id = ?", productID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("product")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !product.IsActive {
		return nil, notFound("product")
	}
	if product.StockQuantity <= 0 {
		return nil, ErrOutOfStock
	}
	return &product, nil
}

func productsByID(tx *gorm.DB, lines []models.CartLine) (map[uuid.UUID]*models.Product, error) {
	products := make(map[uuid.UUID]*models.Product, len(lines))
	if len(lines) == 0 {
		return products, nil
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}

	var rows []models.Product
	if err := tx.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	for i := range rows {
		products[rows[i].ID] = &rows[i]
	}
	return products, nil
}

func clearCartTx(tx *gorm.DB, cartID uuid.UUID) error {
	if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartLine{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
