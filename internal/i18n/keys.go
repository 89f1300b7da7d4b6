// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"

	// Catalog
	KeyProductCreated     = "product.created"
	KeyProductUpdated     = "product.updated"
	KeyProductDeactivated = "product.deactivated"
	KeyProductNotFound    = "product.not_found"
	KeyProductOutOfStock  = "product.out_of_stock"

	// Cart
	KeyCartItemAdded   = "cart.item_added"
	KeyCartItemUpdated = "cart.item_updated"
	KeyCartItemRemoved = "cart.item_removed"
	KeyCartCleared     = "cart.cleared"
	KeyCartMerged      = "cart.merged"
	KeyCartNotFound    = "cart.not_found"
	KeyCartEmpty       = "cart.empty"
	KeyCartNoOwner     = "cart.no_owner"

	// Stock
	KeyStockMovementRecorded = "stock.movement_recorded"
	KeyStockInsufficient     = "stock.insufficient"
	KeyStockNegative         = "stock.negative"

	// Orders
	KeyOrderCreated           = "order.created"
	KeyOrderNotFound          = "order.not_found"
	KeyOrderStatusUpdated     = "order.status_updated"
	KeyOrderCancelled         = "order.cancelled"
	KeyOrderInvalidTransition = "order.invalid_transition"
	KeyPaymentStatusUpdated   = "order.payment_status_updated"

	// Quotes
	KeyQuoteCreated          = "quote.created"
	KeyQuoteSent             = "quote.sent"
	KeyQuoteAccepted         = "quote.accepted"
	KeyQuoteRejected         = "quote.rejected"
	KeyQuoteConverted        = "quote.converted"
	KeyQuoteNotFound         = "quote.not_found"
	KeyQuoteExpired          = "quote.expired"
	KeyQuoteInvalidStatus    = "quote.invalid_status"
	KeyQuoteAlreadyConverted = "quote.already_converted"
	KeyQuotesExpired         = "quote.batch_expired"

	// Payments
	KeyPaymentUnavailable = "payment.unavailable"
	KeyPaymentFailed      = "payment.failed"

	// Admin
	KeyAdminAccessDenied = "admin.access_denied"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// Rate limiting
	KeyRateLimited = "rate_limit.exceeded"
)
