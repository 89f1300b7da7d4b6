// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/models"
)

const notificationTimeout = 30 * time.Second

// Mailer delivers one HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// NewMailer picks SendGrid when an API key is configured, then SMTP, and
// otherwise only logs outgoing mail.
func NewMailer(cfg config.EmailConfig) Mailer {
	switch {
	case cfg.SendGridAPIKey != "":
		return &SendGridMailer{apiKey: cfg.SendGridAPIKey, fromEmail: cfg.FromEmail, fromName: cfg.FromName}
	case cfg.SMTPHost != "":
		return &SMTPMailer{cfg: cfg}
	default:
		return LogMailer{}
	}
}

type SendGridMailer struct {
	apiKey    string
	fromEmail string
	fromName  string
}

func (m *SendGridMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if to == "" {
		return fmt.Errorf("to address is empty")
	}

	message := mail.NewSingleEmail(
		mail.NewEmail(m.fromName, m.fromEmail),
		subject,
		mail.NewEmail("", to),
		subject,
		htmlBody,
	)

	client := sendgrid.NewSendClient(m.apiKey)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", response.StatusCode, response.Body)
	}
	return nil
}

type SMTPMailer struct {
	cfg config.EmailConfig
}

func (m *SMTPMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	auth := smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		m.cfg.FromName, m.cfg.FromEmail, to, subject, htmlBody,
	))

	addr := fmt.Sprintf("%s:%s", m.cfg.SMTPHost, m.cfg.SMTPPort)
	return smtp.SendMail(addr, auth, m.cfg.FromEmail, []string{to}, msg)
}

// LogMailer is used when no email transport is configured.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to, subject, _ string) error {
	logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("Email not configured, skipping send")
	return nil
}

// NotificationService emails customers about their orders. It is called after
// the order transaction has committed; failures are logged, never returned to
// the checkout.
type NotificationService struct {
	mailer    Mailer
	shop      config.ShopConfig
	templates map[string]*template.Template
}

type orderEmailData struct {
	OrderNumber string
	Status      string
	Message     string
	Items       []models.OrderItem
	SubtotalHt  string
	TaxAmount   string
	Shipping    string
	TotalTtc    string
	Currency    string
	OrderURL    string
}

var statusMessages = map[models.OrderStatus]string{
	models.OrderStatusConfirmed:  "Your order has been confirmed.",
	models.OrderStatusProcessing: "We are preparing your order.",
	models.OrderStatusShipped:    "Your order is on its way.",
	models.OrderStatusDelivered:  "Your order has been delivered.",
	models.OrderStatusCancelled:  "Your order has been cancelled.",
}

func NewNotificationService(mailer Mailer, shop config.ShopConfig) *NotificationService {
	return &NotificationService{
		mailer: mailer,
		shop:   shop,
		templates: map[string]*template.Template{
			"order_placed":   template.Must(template.New("order_placed").Parse(orderPlacedTemplate)),
			"status_changed": template.Must(template.New("status_changed").Parse(statusChangedTemplate)),
			"quote_sent":     template.Must(template.New("quote_sent").Parse(quoteSentTemplate)),
		},
	}
}

// OrderPlaced implements OrderNotifier.
func (s *NotificationService) OrderPlaced(order *models.Order) {
	subject := fmt.Sprintf("Order %s received", order.OrderNumber)
	s.deliver(order.CustomerEmail, subject, "order_placed", s.orderData(order, ""))
}

// OrderStatusChanged implements OrderNotifier.
func (s *NotificationService) OrderStatusChanged(order *models.Order, from models.OrderStatus) {
	message, ok := statusMessages[order.Status]
	if !ok {
		return
	}
	subject := fmt.Sprintf("Order %s: %s", order.OrderNumber, order.Status)
	s.deliver(order.CustomerEmail, subject, "status_changed", s.orderData(order, message))
}

// QuoteSent tells the customer a quote is waiting for their answer.
func (s *NotificationService) QuoteSent(quote *models.Quote) {
	data := map[string]interface{}{
		"QuoteNumber": quote.QuoteNumber,
		"ValidUntil":  quote.ValidUntil.Format("2006-01-02"),
		"QuoteURL":    fmt.Sprintf("%s/quotes/%s", s.shop.BaseURL, quote.ID),
	}
	s.deliver(quote.CustomerEmail, fmt.Sprintf("Quote %s", quote.QuoteNumber), "quote_sent", data)
}

func (s *NotificationService) orderData(order *models.Order, message string) orderEmailData {
	return orderEmailData{
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		Message:     message,
		Items:       order.Items,
		SubtotalHt:  order.SubtotalHt.StringFixed(2),
		TaxAmount:   order.TaxAmount.StringFixed(2),
		Shipping:    order.ShippingCost.StringFixed(2),
		TotalTtc:    order.TotalTtc.StringFixed(2),
		Currency:    s.shop.Currency,
		OrderURL:    fmt.Sprintf("%s/orders/%s", s.shop.BaseURL, order.ID),
	}
}

func (s *NotificationService) deliver(to, subject, templateName string, data interface{}) {
	logger := logrus.WithFields(logrus.Fields{"to": to, "template": templateName})
	if to == "" {
		logger.Debug("No recipient, notification skipped")
		return
	}

	body, err := s.render(templateName, data)
	if err != nil {
		logger.WithError(err).Error("Failed to render email template")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
	defer cancel()
	if err := s.mailer.Send(ctx, to, subject, body); err != nil {
		logger.WithError(err).Error("Failed to send email")
	}
}

func (s *NotificationService) render(name string, data interface{}) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const orderPlacedTemplate = `
<!DOCTYPE html>
<html>
<body>
	<h2>Thank you for your order {{.OrderNumber}}</h2>
	<table>
		{{range .Items}}<tr><td>{{.ProductName}} ({{.ProductSKU}})</td><td>x{{.Quantity}}</td><td>{{.LineTotalHt.StringFixed 2}}</td></tr>{{end}}
	</table>
	<p>Subtotal: {{.SubtotalHt}} {{.Currency}}<br>
	Tax: {{.TaxAmount}} {{.Currency}}<br>
	Shipping: {{.Shipping}} {{.Currency}}<br>
	<strong>Total: {{.TotalTtc}} {{.Currency}}</strong></p>
	<a href="{{.OrderURL}}">View your order</a>
</body>
</html>`

const statusChangedTemplate = `
<!DOCTYPE html>
<html>
<body>
	<h2>Order {{.OrderNumber}}</h2>
	<p>{{.Message}}</p>
	<a href="{{.OrderURL}}">View your order</a>
</body>
</html>`

const quoteSentTemplate = `
<!DOCTYPE html>
<html>
<body>
	<h2>Your quote {{.QuoteNumber}} is ready</h2>
	<p>It is valid until {{.ValidUntil}}.</p>
	<a href="{{.QuoteURL}}">Review the quote</a>
</body>
</html>`
