package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/models"
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type capturingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *capturingMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func testShop() config.ShopConfig {
	return config.ShopConfig{Currency: "EUR", BaseURL: "https://shop.test"}
}

func sampleOrder(status models.OrderStatus) *models.Order {
	order := &models.Order{
		OrderNumber:   "CMD-20240307-AB12CD",
		CustomerEmail: "buyer@example.com",
		Status:        status,
		SubtotalHt:    dec("20.00"),
		TaxAmount:     dec("4.00"),
		ShippingCost:  dec("9.90"),
		TotalTtc:      dec("33.90"),
		Items: []models.OrderItem{
			{ProductName: "Hammer <steel>", ProductSKU: "HAM-1", Quantity: 2, LineTotalHt: dec("20.00")},
		},
	}
	order.ID = uuid.New()
	return order
}

func TestNewMailerSelection(t *testing.T) {
	assert.IsType(t, &SendGridMailer{}, NewMailer(config.EmailConfig{SendGridAPIKey: "SG.key", SMTPHost: "smtp.test"}))
	assert.IsType(t, &SMTPMailer{}, NewMailer(config.EmailConfig{SMTPHost: "smtp.test"}))
	assert.IsType(t, LogMailer{}, NewMailer(config.EmailConfig{}))
}

func TestOrderPlacedEmail(t *testing.T) {
	mailer := &capturingMailer{}
	service := NewNotificationService(mailer, testShop())
	order := sampleOrder(models.OrderStatusPending)

	service.OrderPlaced(order)

	require.Len(t, mailer.sent, 1)
	mail := mailer.sent[0]
	assert.Equal(t, "buyer@example.com", mail.To)
	assert.Equal(t, "Order CMD-20240307-AB12CD received", mail.Subject)
	assert.Contains(t, mail.Body, "Total: 33.90 EUR")
	assert.Contains(t, mail.Body, "Hammer &lt;steel&gt;")
	assert.Contains(t, mail.Body, "https://shop.test/orders/"+order.ID.String())
}

func TestOrderStatusChangedEmail(t *testing.T) {
	mailer := &capturingMailer{}
	service := NewNotificationService(mailer, testShop())

	service.OrderStatusChanged(sampleOrder(models.OrderStatusShipped), models.OrderStatusProcessing)
	service.OrderStatusChanged(sampleOrder(models.OrderStatusPending), models.OrderStatusPending)

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].Body, "Your order is on its way.")
}

func TestNotificationSkipsMissingRecipient(t *testing.T) {
	mailer := &capturingMailer{}
	service := NewNotificationService(mailer, testShop())
	order := sampleOrder(models.OrderStatusPending)
	order.CustomerEmail = ""

	service.OrderPlaced(order)
	assert.Empty(t, mailer.sent)
}

func TestQuoteSentEmail(t *testing.T) {
	mailer := &capturingMailer{}
	service := NewNotificationService(mailer, testShop())
	quote := &models.Quote{
		QuoteNumber:   "DEV-20240307-ZZ9ZZ9",
		CustomerEmail: "pro@example.com",
		ValidUntil:    time.Date(2024, 4, 6, 0, 0, 0, 0, time.UTC),
	}

	service.QuoteSent(quote)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Quote DEV-20240307-ZZ9ZZ9", mailer.sent[0].Subject)
	assert.Contains(t, mailer.sent[0].Body, "valid until 2024-04-06")
}
