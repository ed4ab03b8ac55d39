package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gopherai-chat/internal/ai"
	"gopherai-chat/internal/config"
	"gopherai-chat/internal/identity"
	"gopherai-chat/internal/pkg/pdfextract"
	mysqlClient "gopherai-chat/internal/platform/mysql"
	"gopherai-chat/internal/platform/objectstore"
	rabbitmqClient "gopherai-chat/internal/platform/rabbitmq"
	redisClient "gopherai-chat/internal/platform/redis"
	sqliteClient "gopherai-chat/internal/platform/sqlite"
	"gopherai-chat/internal/repository"
	"gopherai-chat/internal/worker"
)

// App holds the process-wide clients. Optional dependencies stay nil when
// disabled in config.
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	Publisher   *rabbitmqClient.EventPublisher
	EventWorker *worker.SessionEventWorker
	Archive     *objectstore.S3Archive

	Generator ai.Generator
	Verifier  identity.Verifier
	Extractor *pdfextract.Extractor

	StartedAt time.Time
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		Config:    cfg,
		Extractor: pdfextract.NewExtractor(cfg.Upload.ScratchDir),
		StartedAt: time.Now(),
	}
	if err := app.init(ctx); err != nil {
		if closeErr := app.Close(); closeErr != nil {
			slog.Warn("close partially started app failed", "error", closeErr)
		}
		return nil, err
	}
	return app, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	generator, err := ai.NewGenerator(cfg.LLM)
	if err != nil {
		return err
	}
	a.Generator = generator

	verifier, err := identity.NewVerifier(cfg.Auth)
	if err != nil {
		return err
	}
	a.Verifier = verifier

	db, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	a.DB = db
	if err := repository.Migrate(ctx, db); err != nil {
		return err
	}

	if cfg.Redis.Enabled {
		a.Redis, err = redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
	}

	if cfg.RabbitMQ.Enabled {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.EventQueue)
		if err != nil {
			return err
		}
		a.Publisher = rabbitmqClient.NewEventPublisher(a.MQConn, cfg.RabbitMQ.EventQueue)
		a.EventWorker = worker.NewSessionEventWorker(a.MQConn, repository.NewSessionEventRepository(db), cfg.RabbitMQ.EventQueue)
		if err := a.EventWorker.Start(ctx); err != nil {
			return fmt.Errorf("start session event worker failed: %w", err)
		}
	}

	if cfg.ArchiveEnabled() {
		a.Archive, err = objectstore.New(ctx, objectstore.Options{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
		if err != nil {
			return err
		}
	}

	slog.Info("app initialised",
		"database", cfg.Database.Driver,
		"auth_provider", cfg.Auth.Provider,
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
		"redis", a.Redis != nil,
		"rabbitmq", a.MQConn != nil,
		"archive", a.Archive != nil,
	)
	return nil
}

// OpenDatabase connects to the configured driver without migrating.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	level := logger.Warn
	if strings.EqualFold(cfg.App.LogLevel, "debug") {
		level = logger.Info
	}
	switch cfg.Database.Driver {
	case config.DatabaseSQLite:
		return sqliteClient.New(cfg.Database.SQLitePath, level)
	case config.DatabaseMySQL:
		return mysqlClient.New(ctx, cfg.MySQLDSN(), level)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.EventWorker != nil {
		a.EventWorker.Close()
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
