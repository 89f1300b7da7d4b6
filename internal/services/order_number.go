// internal/services/order_number.go
package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/utils"
)

const (
	numberSuffixLength = 6
	numberAttempts     = 5
)

// formatNumber builds "<prefix>-YYYYMMDD-<suffix>".
func formatNumber(prefix string, at time.Time, suffix string) string {
	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102"), suffix)
}

// nextNumber draws a human-readable number that is not yet used in column of
// model. The unique index on the column still guards against a concurrent
// writer drawing the same value.
func nextNumber(tx *gorm.DB, model interface{}, column, prefix string, at time.Time) (string, error) {
	for i := 0; i < numberAttempts; i++ {
		suffix, err := utils.GenerateCode(numberSuffixLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate number: %w", err)
		}
		candidate := formatNumber(prefix, at, suffix)

		var count int64
		if err := tx.Model(model).Where(column+" = ?", candidate).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check number uniqueness: %w", err)
		}
		if count == 0 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique number after %d attempts", numberAttempts)
}
