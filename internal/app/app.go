// Package app wires configuration, storage, collaborators, services and handlers into a
// runnable Fiber application.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/config"
	"storefront/internal/handlers"
	"storefront/internal/pages"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/blobstore"
	"storefront/pkg/rabbitmq"
	"storefront/pkg/signing"
	"storefront/pkg/upstream"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Deps are the collaborators the application is built from. Nil Splitter, Processor
// and Events disable those features.
type Deps struct {
	Store     repositories.KeyValueStore
	Blobs     services.BlobStore
	Renderer  services.PageRenderer
	Splitter  services.Splitter
	Processor services.PaymentProcessor
	Events    services.OrderEventPublisher
}

// App is the assembled server.
type App struct {
	Fiber   *fiber.App
	Reindex *services.ReindexService
	closers []func() error
	logger  *zap.Logger
}

// OpenStore opens the key-value store selected by cfg.KVDriver.
func OpenStore(cfg *config.Config, logger *zap.Logger) (repositories.KeyValueStore, func() error, error) {
	var dialector gorm.Dialector
	switch cfg.KVDriver {
	case "memory":
		logger.Warn("using in-memory store, data is lost on exit")
		return repositories.NewMemoryKeyValueStore(), func() error { return nil }, nil
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseDSN)
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseDSN)
	default:
		return nil, nil, fmt.Errorf("unknown KV_DRIVER %q", cfg.KVDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s database: %w", cfg.KVDriver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	store, err := repositories.NewGORMKeyValueStore(db)
	if err != nil {
		sqlDB.Close()
		return nil, nil, err
	}
	logger.Info("key-value store ready", zap.String("driver", cfg.KVDriver))
	return store, sqlDB.Close, nil
}

// Build opens every collaborator named by cfg and assembles the App.
func Build(cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, closeStore, err := OpenStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	closers := []func() error{closeStore}
	fail := func(err error) (*App, error) {
		for _, c := range closers {
			c()
		}
		return nil, err
	}

	blobs, err := blobstore.NewOS(cfg.BlobDir)
	if err != nil {
		return fail(err)
	}
	deps := Deps{
		Store:    store,
		Blobs:    blobs,
		Renderer: pages.NewRenderer(),
	}

	if cfg.SplitterURL != "" {
		deps.Splitter = upstream.NewClient(cfg.SplitterURL, cfg.UpstreamTimeout, logger.Named("splitter"))
	} else {
		logger.Warn("SPLITTER_URL is not set, identities are registered without a splitting account")
	}
	if cfg.ProcessorURL != "" {
		deps.Processor = upstream.NewClient(cfg.ProcessorURL, cfg.UpstreamTimeout, logger.Named("processor"))
	} else {
		logger.Warn("PROCESSOR_URL is not set, payment intents are disabled")
	}

	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, logger.Named("rabbitmq"))
		if err != nil {
			return fail(err)
		}
		closers = append(closers, mq.Close)
		deps.Events = mq
		if err := mq.ConsumeOrderEvents(context.Background(), "storefront.order-audit", rabbitmq.LogOrderEvent(logger.Named("order-events"))); err != nil {
			logger.Warn("failed to start order event consumer", zap.Error(err))
		}
	} else {
		logger.Info("RABBITMQ_URL is not set, order events are not published")
	}

	a := New(cfg, deps, logger)
	a.closers = closers
	return a, nil
}

// New assembles the App from already opened collaborators.
func New(cfg *config.Config, deps Deps, logger *zap.Logger) *App {
	identities := repositories.NewIdentityRegistry(deps.Store, logger.Named("identities"))
	products := repositories.NewCatalogStore(deps.Store, logger.Named("catalog"))
	orders := repositories.NewOrderLedger(deps.Store, logger.Named("orders"))

	auth := services.NewRequestAuthenticator(identities, signing.Secp256k1Verifier{}, services.NewReplayGuard(cfg.AllowedTimeDiff), logger.Named("auth"))
	identityService := services.NewIdentityService(identities, auth, deps.Splitter, logger)
	productService := services.NewProductService(products, auth, deps.Blobs, deps.Renderer, logger)
	orderService := services.NewOrderService(orders, products, auth, deps.Events, logger)
	paymentService := services.NewPaymentService(deps.Processor, auth, logger)
	tokenService := services.NewOperatorTokenService(auth, cfg.OperatorUUIDs, cfg.JWTSecret, cfg.OperatorTTL, logger)
	reindexService := services.NewReindexService(products, orders, logger)
	spellService := services.NewSpellService(products, logger)

	app := fiber.New(fiber.Config{
		AppName:      "storefront",
		Immutable:    true,
		UnescapePath: true,
		BodyLimit:    64 << 20,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
			}
			logger.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "server error"})
		},
	})
	if cfg.AppEnv != "test" {
		app.Use(fiberlogger.New())
	}

	handlers.NewIdentityHandler(identityService, logger).RegisterRoutes(app)
	handlers.NewProductHandler(productService, logger).RegisterRoutes(app)
	handlers.NewOrderHandler(orderService, logger).RegisterRoutes(app)
	handlers.NewPaymentHandler(paymentService, logger).RegisterRoutes(app)
	handlers.NewAdminHandler(tokenService, orderService, reindexService, spellService, logger).RegisterRoutes(app)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"events": deps.Events != nil,
		})
	})

	return &App{
		Fiber:   app,
		Reindex: reindexService,
		logger:  logger,
	}
}

// Close releases the store and message bus connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
