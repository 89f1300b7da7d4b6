// internal/utils/validator.go
package utils

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/javajoker/storefront-backend/internal/models"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("shipping_method", validateShippingMethod)
	validate.RegisterValidation("payment_method", validatePaymentMethod)
	validate.RegisterValidation("movement_type", validateMovementType)
	validate.RegisterValidation("order_status", validateOrderStatus)
	validate.RegisterValidation("payment_status", validatePaymentStatus)

	// Decimal amounts validate like floats so gte/lte work on them.
	validate.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateShippingMethod(fl validator.FieldLevel) bool {
	switch models.ShippingMethod(fl.Field().String()) {
	case models.ShippingMethodDelivery, models.ShippingMethodPickup:
		return true
	}
	return false
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	switch models.PaymentMethod(fl.Field().String()) {
	case models.PaymentMethodCard, models.PaymentMethodBankTransfer,
		models.PaymentMethodCheck, models.PaymentMethodOnPickup:
		return true
	}
	return false
}

func validateMovementType(fl validator.FieldLevel) bool {
	return models.MovementType(fl.Field().String()).Valid()
}

func validateOrderStatus(fl validator.FieldLevel) bool {
	return models.OrderStatus(fl.Field().String()).Valid()
}

func validatePaymentStatus(fl validator.FieldLevel) bool {
	return models.PaymentStatus(fl.Field().String()).Valid()
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "gte":
		return e.Field() + " must be greater than or equal to " + e.Param()
	case "shipping_method":
		return "Shipping method must be delivery or pickup"
	case "payment_method":
		return "Payment method must be card, bank_transfer, check or on_pickup"
	case "movement_type":
		return "Movement type must be in, out or adjustment"
	case "order_status":
		return e.Field() + " is not a known order status"
	case "payment_status":
		return e.Field() + " is not a known payment status"
	default:
		return e.Field() + " is invalid"
	}
}
