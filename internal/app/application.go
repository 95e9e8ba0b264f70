package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"klarna-payments-backend/internal/config"
	"klarna-payments-backend/internal/handlers"
	"klarna-payments-backend/internal/middleware"
	"klarna-payments-backend/internal/models"
	"klarna-payments-backend/internal/payments"
	"klarna-payments-backend/internal/repository"
	"klarna-payments-backend/internal/service"
	"klarna-payments-backend/internal/session"
	"klarna-payments-backend/pkg/logger"
)

type Application struct {
	cfg *config.Config

	db           *gorm.DB
	sessionStore session.Store
	redisStore   *session.RedisStore

	repositories repositoryContainer
	services     serviceContainer
	handlers     handlerContainer

	emitter *payments.SyncEmitter
	router  *gin.Engine
	server  *http.Server
}

type repositoryContainer struct {
	Order   repository.OrderRepository
	Cart    repository.CartRepository
	Setting repository.SettingRepository
}

type serviceContainer struct {
	Settings     *service.SettingsService
	OrderLines   *service.OrderLinesService
	Session      *service.SessionService
	Payment      *service.PaymentService
	Notification *service.NotificationService
}

type handlerContainer struct {
	Checkout     *handlers.CheckoutHandler
	Payment      *handlers.PaymentHandler
	Notification *handlers.NotificationHandler
	Settings     *handlers.SettingsHandler
}

func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	app := &Application{cfg: cfg}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.runMigrations(); err != nil {
		return nil, err
	}

	if err := app.initSessionStore(); err != nil {
		return nil, err
	}

	app.initRepositories()
	app.initServices()
	app.initHandlers()
	app.initRouter()

	app.server = &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        app.router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return app, nil
}

func (a *Application) Run() error {
	logger.Info("Server starting", map[string]interface{}{
		"port":        a.cfg.Port,
		"environment": a.cfg.Environment,
	})

	return a.server.ListenAndServe()
}

func (a *Application) Shutdown(ctx context.Context) error {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return err
		}
	}

	if a.redisStore != nil {
		if err := a.redisStore.Close(); err != nil {
			logger.Error(err, "Failed to close session store connection", nil)
		}
	}

	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	return nil
}

func (a *Application) Router() *gin.Engine {
	return a.router
}

func (a *Application) initDatabase() error {
	logger.Info("Connecting to database", nil)

	db, err := gorm.Open(postgres.Open(a.cfg.DatabaseURL), &gorm.Config{
		Logger: logger.NewGormLogger(),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	a.db = db
	return nil
}

func (a *Application) runMigrations() error {
	if a.db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	logger.Info("Running database migrations", nil)

	if err := a.db.AutoMigrate(
		&models.Order{},
		&models.OrderNote{},
		&models.OrderMeta{},
		&models.Cart{},
		&models.CartItem{},
		&models.Setting{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Database migration completed", nil)
	return nil
}

func (a *Application) initSessionStore() error {
	if !a.cfg.EnableRedis {
		logger.Warn("Redis disabled, using in-memory checkout session store", nil)
		a.sessionStore = session.NewMemoryStore()
		return nil
	}

	store, err := session.NewRedisStore(a.cfg.RedisURL)
	if err != nil {
		return err
	}
	a.redisStore = store
	a.sessionStore = store
	return nil
}

func (a *Application) initRepositories() {
	a.repositories = repositoryContainer{
		Order:   repository.NewOrderRepository(a.db),
		Cart:    repository.NewCartRepository(a.db),
		Setting: repository.NewSettingRepository(a.db),
	}
}

func (a *Application) initServices() {
	a.emitter = payments.NewSyncEmitter()
	a.subscribeOrderEvents()

	settings := service.NewSettingsService(a.repositories.Setting, a.cfg)
	orderLines := service.NewOrderLinesService(a.repositories.Cart)
	sessions := service.NewSessionService(settings, a.sessionStore, orderLines)

	a.services = serviceContainer{
		Settings:     settings,
		OrderLines:   orderLines,
		Session:      sessions,
		Payment:      service.NewPaymentService(a.repositories.Order, orderLines, sessions, settings, a.emitter, a.cfg),
		Notification: service.NewNotificationService(a.repositories.Order),
	}
}

// subscribeOrderEvents attaches the default observers. Additional
// consumers (order management, analytics) register here during wiring.
func (a *Application) subscribeOrderEvents() {
	log := func(name string) func(payments.PlacedOrderEvent) {
		return func(event payments.PlacedOrderEvent) {
			logger.Info("Klarna order event", map[string]interface{}{
				"event":           name,
				"order_id":        event.OrderID,
				"klarna_order_id": event.KlarnaOrderID,
				"fraud_status":    string(event.FraudStatus),
			})
		}
	}
	a.emitter.Subscribe(payments.EventAccepted, log(payments.EventAccepted))
	a.emitter.Subscribe(payments.EventPending, log(payments.EventPending))
	a.emitter.Subscribe(payments.EventRejected, log(payments.EventRejected))
}

func (a *Application) initHandlers() {
	a.handlers = handlerContainer{
		Checkout:     handlers.NewCheckoutHandler(a.services.Session, a.services.Settings),
		Payment:      handlers.NewPaymentHandler(a.services.Payment, a.services.Settings),
		Notification: handlers.NewNotificationHandler(a.services.Notification, a.cfg.KlarnaWebhookSecret),
		Settings:     handlers.NewSettingsHandler(a.services.Settings),
	}
}

func (a *Application) initRouter() {
	if !a.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(logger.GinLogger())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	rateLimiter := middleware.NewRateLimiter(a.cfg.RateLimitRequests, a.cfg.RateLimitWindow)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if a.cfg.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api/v1")
	api.Use(rateLimiter.Middleware())

	checkout := api.Group("/checkout")
	{
		checkout.GET("/session", a.handlers.Checkout.Session)
		checkout.POST("/session/refresh", a.handlers.Checkout.Refresh)
		checkout.GET("/available", a.handlers.Checkout.Available)
		checkout.POST("/payment", a.handlers.Payment.Process)
	}

	// Klarna delivers notifications with GET or POST depending on the
	// event source.
	api.GET("/klarna/notifications", a.handlers.Notification.Handle)
	api.POST("/klarna/notifications", a.handlers.Notification.Handle)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(a.cfg.JWTSecret))
	{
		admin.GET("/settings", a.handlers.Settings.Get)
		admin.PUT("/settings", a.handlers.Settings.Update)
	}

	a.router = router
}
