package bootstrap

import (
	"context"
	"fmt"

	certapp "github.com/certify/backend/internal/application/certificate"
	"github.com/certify/backend/internal/domain/certificate"
	"github.com/certify/backend/internal/infrastructure/cache"
	"github.com/certify/backend/internal/infrastructure/config"
	"github.com/certify/backend/internal/infrastructure/ddb"
	"github.com/certify/backend/internal/infrastructure/persistence"
	"github.com/certify/backend/internal/infrastructure/printing"
	"github.com/certify/backend/internal/infrastructure/storage"
	"github.com/certify/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// openRecipients connects the configured recipient store
func (a *App) openRecipients(ctx context.Context) (certificate.RecipientRepository, error) {
	cfg := a.Config

	switch cfg.Recipients.Backend {
	case config.RecipientBackendPostgres:
		db, err := persistence.NewDatabase(&cfg.Database, a.Logger, cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		a.addCloser("database", db.Close)
		a.addCheck("database", db.Ping)

		if err := telemetry.RegisterGormTracing(db.DB, telemetry.DBTracingConfig{
			Enabled:        cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing,
			TracerProvider: a.Tracing.Provider(),
		}); err != nil {
			return nil, err
		}

		a.Logger.Info("Database connected", zap.String("host", cfg.Database.Host), zap.String("table", cfg.Recipients.Table))
		return persistence.NewGormRecipientRepository(db.DB, cfg.Recipients.Table), nil

	case config.RecipientBackendRedis:
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.addCloser("redis", client.Close)
		a.addCheck("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})

		a.Logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
		return cache.NewRedisRecipientStore(client, ""), nil

	case config.RecipientBackendDynamoDB:
		client, err := ddb.NewClient(ctx, cfg.DynamoDB, cfg.Storage.AccessKey, cfg.Storage.SecretKey)
		if err != nil {
			return nil, err
		}

		a.Logger.Info("DynamoDB client created", zap.String("region", cfg.DynamoDB.Region), zap.String("table", cfg.Recipients.Table))
		return ddb.NewRecipientStore(client, cfg.Recipients.Table), nil

	case config.RecipientBackendMemory:
		a.Logger.Warn("Using in-memory recipient store; records are lost on restart")
		return persistence.NewMemoryRecipientRepository(), nil
	}

	return nil, fmt.Errorf("unknown recipients backend %q", cfg.Recipients.Backend)
}

// openPublisher connects the configured object storage
func (a *App) openPublisher(ctx context.Context) (*storage.Publisher, error) {
	cfg := a.Config

	switch cfg.Storage.Backend {
	case config.StorageBackendS3:
		store, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(a.Logger))
		if err != nil {
			return nil, err
		}
		if cfg.Storage.EnsureBucket {
			if err := store.EnsureBucket(ctx); err != nil {
				return nil, err
			}
		}
		a.addCheck("storage", store.Ping)
		return storage.NewPublisher(store, a.Logger), nil

	case config.StorageBackendMemory:
		store := storage.NewMemoryObjectStorage()
		if cfg.Storage.PublicBaseURL != "" {
			store.BaseURL = cfg.Storage.PublicBaseURL
		}
		a.Logger.Warn("Using in-memory object storage; artifacts are lost on restart")
		return storage.NewPublisher(store, a.Logger), nil
	}

	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// newConverter builds the headless browser converter
func (a *App) newConverter() certapp.DocumentConverter {
	cfg := a.Config.Renderer
	launcher := printing.NewChromedpLauncher(&printing.ChromedpConfig{
		RemoteURL:     cfg.RemoteURL,
		ExecPath:      cfg.ExecPath,
		NoSandbox:     cfg.NoSandbox,
		LaunchTimeout: cfg.LaunchTimeout,
		Logger:        a.Logger,
	})
	return printing.NewConverter(launcher,
		printing.WithConverterLogger(a.Logger),
		printing.WithConvertTimeout(cfg.Timeout),
	)
}

// assetSource selects the template override or the bundled assets
func assetSource(cfg config.IssuanceConfig) *printing.AssetSource {
	if cfg.TemplatePath != "" {
		return printing.NewTemplateFileSource(cfg.TemplatePath)
	}
	return printing.NewAssetSource()
}
