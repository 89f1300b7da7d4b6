// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/database"
	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

// respondError maps a service error onto the API error envelope. resource
// selects the not-found message ("product", "order", "quote", "cart").
func respondError(c *gin.Context, err error, resource string) {
	lang := utils.GetLangFromContext(c)

	var stockErr *services.InsufficientStockError
	var transitionErr *services.InvalidTransitionError
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, resource)
	case errors.Is(err, services.ErrEmptyCart):
		utils.UnprocessableResponse(c, "EMPTY_CART", i18n.T(lang, i18n.KeyCartEmpty), nil)
	case errors.As(err, &stockErr):
		utils.ConflictResponse(c, "INSUFFICIENT_STOCK", i18n.T(lang, i18n.KeyStockInsufficient), gin.H{
			"product_id":   stockErr.ProductID,
			"product_name": stockErr.ProductName,
			"requested":    stockErr.Requested,
			"available":    stockErr.Available,
		})
	case errors.As(err, &transitionErr):
		utils.ConflictResponse(c, "INVALID_TRANSITION", i18n.T(lang, i18n.KeyOrderInvalidTransition), gin.H{
			"from":    transitionErr.From,
			"to":      transitionErr.To,
			"allowed": models.AllowedTransitions(transitionErr.From),
		})
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrInvalidPaymentTransition):
		utils.ConflictResponse(c, "INVALID_TRANSITION", i18n.T(lang, i18n.KeyOrderInvalidTransition), nil)
	case errors.Is(err, services.ErrAlreadyConverted):
		utils.ConflictResponse(c, "ALREADY_CONVERTED", i18n.T(lang, i18n.KeyQuoteAlreadyConverted), nil)
	case errors.Is(err, services.ErrQuoteExpired):
		utils.ErrorResponse(c, http.StatusGone, "QUOTE_EXPIRED", i18n.T(lang, i18n.KeyQuoteExpired), nil)
	case errors.Is(err, services.ErrInvalidQuoteStatus):
		utils.ConflictResponse(c, "INVALID_QUOTE_STATUS", i18n.T(lang, i18n.KeyQuoteInvalidStatus), nil)
	case errors.Is(err, services.ErrOutOfStock):
		utils.ConflictResponse(c, "OUT_OF_STOCK", i18n.T(lang, i18n.KeyProductOutOfStock), nil)
	case errors.Is(err, services.ErrNegativeStock):
		utils.ConflictResponse(c, "NEGATIVE_STOCK", i18n.T(lang, i18n.KeyStockNegative), nil)
	case errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrInvalidAddress),
		errors.Is(err, models.ErrInvalidOwner):
		utils.BadRequestResponse(c, err.Error(), nil)
	case errors.As(err, &validationErrs):
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(validationErrs))
	case database.IsDuplicateKey(err):
		utils.ConflictResponse(c, "DUPLICATE", i18n.T(lang, i18n.KeyValidationInvalid, resource), nil)
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, "")
	case errors.Is(err, services.ErrPaymentUnavailable):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "PAYMENT_UNAVAILABLE", i18n.T(lang, i18n.KeyPaymentUnavailable), nil)
	case errors.Is(err, services.ErrPaymentNotApplicable),
		errors.Is(err, services.ErrPaymentMismatch):
		utils.ConflictResponse(c, "PAYMENT_REJECTED", i18n.T(lang, i18n.KeyPaymentFailed), err.Error())
	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("Unhandled service error")
		utils.InternalErrorResponse(c, "")
	}
}

// bindJSON decodes and validates a request body, writing the error response
// itself when it returns false.
func bindJSON(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}

func parseIDParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, label), nil)
		return uuid.Nil, false
	}
	return id, true
}

func requireActor(c *gin.Context) (utils.Actor, bool) {
	actor, ok := utils.GetActorFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
	}
	return actor, ok
}
