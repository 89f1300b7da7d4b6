// internal/router/router.go
package router

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/handlers"
	"github.com/javajoker/storefront-backend/internal/middleware"
	"github.com/javajoker/storefront-backend/internal/services"
)

// Dependencies holds the outbound integrations. Nil fields are built from the
// configuration.
type Dependencies struct {
	Mailer         services.Mailer
	PaymentGateway services.PaymentGateway
	Storage        *services.StorageService
}

func Initialize(ctx context.Context, db *gorm.DB, cfg *config.Config) *gin.Engine {
	return InitializeWith(ctx, db, cfg, Dependencies{})
}

func InitializeWith(ctx context.Context, db *gorm.DB, cfg *config.Config, deps Dependencies) *gin.Engine {
	if deps.Mailer == nil {
		deps.Mailer = services.NewMailer(cfg.Email)
	}
	if deps.PaymentGateway == nil {
		deps.PaymentGateway = services.NewStripeGateway(cfg.Payment.StripeSecretKey)
	}
	if deps.Storage == nil {
		storage, err := services.NewStorageService(cfg.AWS)
		if err != nil {
			logrus.WithError(err).Warn("S3 storage unavailable, order exports will not be archived")
			storage = services.NewStorageServiceWithClient(nil, config.AWSConfig{})
		}
		deps.Storage = storage
	}

	// Initialize services
	notificationService := services.NewNotificationService(deps.Mailer, cfg.Shop)
	stockService := services.NewStockService(db)
	catalogService := services.NewCatalogService(db, stockService, cfg.Shop.DefaultLowStockLevel)
	cartService := services.NewCartService(db)
	orderService := services.NewOrderService(db, stockService, notificationService, cfg.Shop)
	quoteService := services.NewQuoteService(db, orderService, cfg.Shop)
	paymentService := services.NewPaymentService(deps.PaymentGateway, orderService, cfg.Shop.Currency)
	exportService := services.NewExportService(orderService, deps.Storage, cfg.Shop.Currency)
	adminService := services.NewAdminService(db)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	productHandler := handlers.NewProductHandler(catalogService)
	cartHandler := handlers.NewCartHandler(cartService)
	orderHandler := handlers.NewOrderHandler(orderService, exportService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	quoteHandler := handlers.NewQuoteHandler(quoteService, notificationService)
	adminHandler := handlers.NewAdminHandler(adminService, stockService)

	generalLimiter := middleware.PerMinute(cfg.RateLimit.RequestsPerMinute)
	checkoutLimiter := middleware.PerMinute(cfg.RateLimit.CheckoutPerMinute)
	generalLimiter.StartCleanup(ctx.Done())
	checkoutLimiter.StartCleanup(ctx.Done())

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	r.Use(generalLimiter.Middleware())

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Catalog routes
		v1.GET("/products", productHandler.GetProducts)
		v1.GET("/products/:id", productHandler.GetProduct)
		v1.GET("/brands", productHandler.GetBrands)
		v1.GET("/categories", productHandler.GetCategories)

		// Cart routes, anonymous or authenticated
		cart := v1.Group("/cart")
		cart.Use(middleware.OptionalAuth(), middleware.CartSession())
		{
			cart.GET("", cartHandler.GetCart)
			cart.DELETE("", cartHandler.ClearCart)
			cart.POST("/items", cartHandler.AddItem)
			cart.PUT("/items/:product_id", cartHandler.UpdateItem)
			cart.DELETE("/items/:product_id", cartHandler.RemoveItem)
			cart.POST("/merge", middleware.AuthRequired(), cartHandler.MergeCart)
		}

		// Order routes
		orders := v1.Group("/orders")
		orders.Use(middleware.AuthRequired())
		{
			orders.POST("", checkoutLimiter.Middleware(), orderHandler.CreateOrder)
			orders.GET("", orderHandler.GetMyOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.GET("/:id/history", orderHandler.GetOrderHistory)
			orders.POST("/:id/cancel", orderHandler.CancelOrder)
			orders.POST("/:id/payment-intent", checkoutLimiter.Middleware(), paymentHandler.CreatePaymentIntent)
			orders.POST("/:id/payment-confirm", paymentHandler.ConfirmPayment)
		}

		// Quote routes
		quotes := v1.Group("/quotes")
		quotes.Use(middleware.AuthRequired())
		{
			quotes.GET("", quoteHandler.GetMyQuotes)
			quotes.GET("/:id", quoteHandler.GetQuote)
			quotes.POST("/:id/accept", quoteHandler.AcceptQuote)
			quotes.POST("/:id/reject", quoteHandler.RejectQuote)
			quotes.POST("/:id/convert", checkoutLimiter.Middleware(), quoteHandler.ConvertMyQuote)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			// Dashboard
			admin.GET("/dashboard/stats", adminHandler.GetDashboardStats)

			// Catalog management
			adminProducts := admin.Group("/products")
			{
				adminProducts.GET("", productHandler.GetAllProducts)
				adminProducts.POST("", productHandler.CreateProduct)
				adminProducts.PUT("/:id", productHandler.UpdateProduct)
				adminProducts.DELETE("/:id", productHandler.DeactivateProduct)
				adminProducts.GET("/:id/movements", adminHandler.GetMovements)
				adminProducts.GET("/:id/reconcile", adminHandler.ReconcileStock)
			}
			admin.POST("/brands", productHandler.CreateBrand)
			admin.POST("/categories", productHandler.CreateCategory)

			// Stock management
			adminStock := admin.Group("/stock")
			{
				adminStock.POST("/movements", adminHandler.RecordMovement)
				adminStock.GET("/alerts", adminHandler.GetStockAlerts)
			}

			// Order management
			adminOrders := admin.Group("/orders")
			{
				adminOrders.GET("", orderHandler.GetAllOrders)
				adminOrders.GET("/:id", orderHandler.GetOrder)
				adminOrders.GET("/:id/history", orderHandler.GetOrderHistory)
				adminOrders.GET("/:id/transitions", orderHandler.GetTransitions)
				adminOrders.PUT("/:id/status", orderHandler.UpdateStatus)
				adminOrders.PUT("/:id/payment-status", orderHandler.UpdatePaymentStatus)
				adminOrders.GET("/:id/export", orderHandler.ExportOrder)
			}

			// Quote management
			adminQuotes := admin.Group("/quotes")
			{
				adminQuotes.GET("", quoteHandler.GetAllQuotes)
				adminQuotes.POST("", quoteHandler.CreateQuote)
				adminQuotes.POST("/expire", quoteHandler.ExpireQuotes)
				adminQuotes.GET("/:id", quoteHandler.GetQuote)
				adminQuotes.POST("/:id/send", quoteHandler.SendQuote)
				adminQuotes.POST("/:id/convert", quoteHandler.ConvertQuote)
			}
		}
	}

	return r
}
