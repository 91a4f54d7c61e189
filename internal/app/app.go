package app

import (
	"net/http"
	"time"

	"broker-backend/internal/auth"
	"broker-backend/internal/broker"
	"broker-backend/internal/catalog"
	"broker-backend/internal/chat"
	"broker-backend/internal/config"
	"broker-backend/internal/deals"
	"broker-backend/internal/health"
	"broker-backend/internal/infrastructure/database"
	"broker-backend/internal/listings"
	"broker-backend/internal/memory"
	"broker-backend/internal/middleware"
	"broker-backend/internal/negotiations"
	"broker-backend/internal/payments"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"gorm.io/gorm"
)

// CreateApp builds the Fiber app with all global middleware and routes.
// Returns the DB and Redis handles so entry points can verify connectivity
// before serving.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}))

	// Billing webhook mounted before session middleware: signature is computed
	// over the raw body and the request is provider-to-server, never a browser
	// session.
	billingWebhook := &payments.WebhookHandler{WebhookSecret: cfg.BillingWebhookSecret}
	app.Post("/api/v1/billing/webhook", func(c *fiber.Ctx) error {
		return billingWebhook.HandleWebhook(c)
	})

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, err
	}
	app.Use(sessionHandler)

	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
	}

	healthHandlers := &health.Handlers{Rdb: rdb, DB: dbPinger(db)}
	app.Get("/health", healthHandlers.JSON)
	app.Get("/health/json", healthHandlers.JSON)

	var userFinder auth.UserFinder
	if db != nil {
		userFinder = &auth.GormUserFinder{DB: db}
	}
	authHandlers := &auth.Handlers{DB: db, UserFinder: userFinder, Rdb: rdb, Config: sessionCfg}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/register", authHandlers.Register)
	authGroup.Post("/login", authHandlers.Login)
	authGroup.Get("/me", authHandlers.Me)
	authGroup.Delete("/logout", authHandlers.Logout)

	if db != nil {
		modelClient := &chat.HTTPClient{
			BaseURL: cfg.ModelAPIURL,
			APIKey:  cfg.ModelAPIKey,
			Model:   cfg.ModelName,
			Client:  &http.Client{Timeout: 30 * time.Second},
		}
		memoryClient := &memory.Client{
			BaseURL: cfg.MemoryAPIURL,
			APIKey:  cfg.MemoryAPIKey,
			HTTP:    &http.Client{Timeout: 10 * time.Second},
		}
		checkoutClient := &payments.CheckoutClient{
			BaseURL: cfg.BillingAPIURL,
			APIKey:  cfg.BillingAPIKey,
		}

		catalogService := &catalog.Service{DB: db}
		listingsService := &listings.Service{DB: db}
		negotiationsService := &negotiations.Service{
			DB:          db,
			OfferExpiry: time.Duration(cfg.OfferExpiryHours) * time.Hour,
		}
		dealsService := &deals.Service{DB: db, FeePercent: cfg.BrokerFeePercent}
		billingWebhook.Deals = dealsService

		policy := &broker.ModelPolicy{Model: modelClient}

		catalogHandlers := &catalog.Handlers{Service: catalogService}
		productGroup := app.Group("/api/v1/products", middleware.RequireAuth())
		productGroup.Get("/", catalogHandlers.ListProducts)
		productGroup.Get("/:id", catalogHandlers.GetProduct)
		productGroup.Post("/", catalogHandlers.InsertProduct)

		listingsHandlers := &listings.Handlers{Service: listingsService}
		listingsGroup := app.Group("/api/v1/listings", middleware.RequireAuth())
		listingsGroup.Post("/", listingsHandlers.CreateListing)
		listingsGroup.Get("/", listingsHandlers.ListActive)
		listingsGroup.Get("/mine", listingsHandlers.ListMine)
		listingsGroup.Get("/:id", listingsHandlers.GetListing)
		listingsGroup.Patch("/:id", listingsHandlers.EditListing)
		listingsGroup.Delete("/:id", listingsHandlers.Deactivate)

		negotiationsHandlers := &negotiations.Handlers{Service: negotiationsService, Policy: policy}
		negGroup := app.Group("/api/v1/negotiations", middleware.RequireAuth())
		negGroup.Post("/", negotiationsHandlers.Open)
		negGroup.Get("/", negotiationsHandlers.ListMine)
		negGroup.Get("/:id", negotiationsHandlers.Get)
		negGroup.Get("/:id/history", negotiationsHandlers.History)
		negGroup.Post("/:id/offer", negotiationsHandlers.Offer)
		negGroup.Post("/:id/accept", negotiationsHandlers.Accept)
		negGroup.Post("/:id/decline", negotiationsHandlers.Decline)
		negGroup.Post("/:id/cancel", negotiationsHandlers.Cancel)
		negGroup.Post("/:id/broker-counter", negotiationsHandlers.BrokerCounter)

		dealsHandlers := &deals.Handlers{Service: dealsService, Checkout: checkoutClient}
		dealsGroup := app.Group("/api/v1/deals", middleware.RequireAuth())
		dealsGroup.Post("/", dealsHandlers.Finalize)
		dealsGroup.Get("/by-negotiation/:id", dealsHandlers.GetByNegotiation)
		dealsGroup.Post("/:id/checkout", dealsHandlers.CreateCheckout)
		dealsGroup.Post("/:id/cancel", dealsHandlers.Cancel)

		chatHandlers := &chat.Handlers{
			Orchestrator: &chat.Orchestrator{Model: modelClient, Memory: memoryClient},
			Memory:       memoryClient,
			Catalog:      catalogService,
			Listings:     listingsService,
			Negotiations: negotiationsService,
		}
		app.Post("/api/v1/chat", middleware.RequireAuth(), chatHandlers.Turn)
	}

	return app, db, nil
}

// dbPinger adapts a gorm handle to the health check; nil stays nil so the
// interface value itself is nil.
func dbPinger(db *gorm.DB) health.DBPinger {
	if db == nil {
		return nil
	}
	return gormPinger{db}
}

type gormPinger struct{ db *gorm.DB }

func (p gormPinger) Ping() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Handler returns an http.Handler for serverless deployment.
func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
