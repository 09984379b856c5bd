package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/cards-api/internal/config"
	"github.com/phrazzld/cards-api/internal/maintenance"
	"github.com/phrazzld/cards-api/internal/platform/cardcrypto"
	"github.com/phrazzld/cards-api/internal/platform/memory"
	"github.com/phrazzld/cards-api/internal/platform/postgres"
	"github.com/phrazzld/cards-api/internal/platform/redis"
	"github.com/phrazzld/cards-api/internal/service"
	"github.com/phrazzld/cards-api/internal/service/auth"
	"github.com/phrazzld/cards-api/internal/store"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// db is nil when the memory driver is selected.
	db    *sql.DB
	redis *goredis.Client

	userStore  store.UserStore
	cardStore  store.CardStore
	tokenStore store.TokenStore
	uow        store.UnitOfWork

	sessions    *auth.SessionService
	cardService service.CardService
	ledger      service.LedgerService
	userService service.UserService

	scheduler *maintenance.Scheduler
}

// newApplication opens the configured stores and wires every service. On
// error any resource opened so far is released.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	if err := app.init(ctx); err != nil {
		app.cleanup()
		return nil, err
	}

	logger.Info("Application initialized successfully",
		"database_driver", cfg.Database.Driver,
		"redis_tokens", app.redis != nil,
		"maintenance", app.scheduler != nil)
	return app, nil
}

func (app *application) init(ctx context.Context) error {
	if err := app.setupStores(ctx); err != nil {
		return err
	}
	if err := app.setupServices(); err != nil {
		return err
	}

	if err := app.userService.EnsureAdmin(ctx, app.config.Auth.BootstrapAdmin); err != nil {
		return fmt.Errorf("failed to create bootstrap administrator: %w", err)
	}

	scheduler, err := maintenance.Setup(app.config.Maintenance, app.cardService, app.tokenStore, app.logger)
	if err != nil {
		return fmt.Errorf("failed to set up maintenance jobs: %w", err)
	}
	app.scheduler = scheduler
	return nil
}

// setupStores connects the primary store and, when configured, the Redis
// refresh-token store.
func (app *application) setupStores(ctx context.Context) error {
	cfg := app.config

	var redisTokens store.TokenStore
	if cfg.Redis.Addr != "" {
		app.redis = redis.NewClient(cfg.Redis)
		ts := redis.NewTokenStore(app.redis, cfg.Redis.KeyPrefix, app.logger)
		if err := ts.Ping(ctx); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		redisTokens = ts
		app.logger.Info("Redis token store connected")
	}

	switch cfg.Database.Driver {
	case driverMemory:
		db := memory.New(app.logger)
		app.userStore = db.Users()
		app.cardStore = db.Cards()
		app.tokenStore = db.Tokens()
		app.uow = memory.NewUnitOfWork(db, redisTokens)
		app.logger.Warn("Using in-memory store; data is lost on restart")

	case driverPostgres:
		db, err := openPostgres(ctx, cfg.Database, app.logger)
		if err != nil {
			return err
		}
		app.db = db

		if cfg.Database.MigrateOnStart {
			if err := postgres.Migrate(ctx, db, app.logger, "up"); err != nil {
				return fmt.Errorf("failed to apply migrations: %w", err)
			}
		}

		app.userStore = postgres.NewPostgresUserStore(db, app.logger)
		app.cardStore = postgres.NewPostgresCardStore(db, app.logger)
		app.tokenStore = postgres.NewPostgresTokenStore(db, app.logger)
		app.uow = postgres.NewUnitOfWork(db, app.logger, redisTokens)

	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	if redisTokens != nil {
		app.tokenStore = redisTokens
	}
	return nil
}

// setupServices builds the domain and session services on top of the stores.
func (app *application) setupServices() error {
	cfg := app.config

	cipher, err := cardcrypto.New(cfg.Cards.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to initialize card cipher: %w", err)
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	app.logger.Info("JWT authentication service initialized",
		"access_token_lifetime_minutes", cfg.Auth.AccessTokenLifetimeMinutes,
		"refresh_token_lifetime_minutes", cfg.Auth.RefreshTokenLifetimeMinutes)

	passwords := auth.NewBcryptVerifier(cfg.Auth.BcryptCost)

	app.sessions, err = auth.NewSessionService(jwtService, app.userStore, app.tokenStore, app.uow, passwords, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create session service: %w", err)
	}

	app.cardService, err = service.NewCardService(app.cardStore, app.userStore, app.uow, cipher, cfg.Cards, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create card service: %w", err)
	}

	app.ledger, err = service.NewLedgerService(app.uow, cipher, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create ledger service: %w", err)
	}

	app.userService, err = service.NewUserService(app.userStore, passwords, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create user service: %w", err)
	}

	return nil
}

// Run starts background jobs and the HTTP server, and blocks until ctx is
// canceled or the server fails.
func (app *application) Run(ctx context.Context) error {
	if app.scheduler != nil {
		app.scheduler.Start()
	}

	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout())
	defer cancel()

	if app.scheduler != nil {
		if err := app.scheduler.Stop(ctx); err != nil {
			app.logger.Error("Error stopping maintenance jobs", "error", err)
		}
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("Error closing redis connection", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
