package repositories

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"experiencehub/internal/core/ports"
	"experiencehub/internal/infrastructure/repositories/gormstore"
	"experiencehub/internal/infrastructure/repositories/memory"
	redisrepo "experiencehub/internal/infrastructure/repositories/redis"
	"experiencehub/pkg/config"
)

// RepositoryFactory picks Postgres or memory for domain data and Redis or
// memory for presence. Redis is optional and falls back to memory when it
// cannot be reached.
type RepositoryFactory struct {
	db          *gorm.DB
	redisClient *redis.Client
	instanceID  string
	cfg         *config.Config
	logger      *zap.SugaredLogger

	memUsers         *memory.MemoryUserRepository
	memExperiences   *memory.MemoryExperienceRepository
	memPortfolios    *memory.MemoryPortfolioRepository
	memNotifications *memory.MemoryNotificationRepository
	presence         ports.PresenceRepository
}

func NewRepositoryFactory(cfg *config.Config, instanceID string, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		instanceID: instanceID,
		cfg:        cfg,
		logger:     logger,
	}

	if cfg.Database.Driver == "postgres" {
		db, err := gormstore.Open(gormstore.Options{
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			AutoMigrate:     cfg.Database.AutoMigrate,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		factory.db = db
		logger.Info("using Postgres repositories")
	} else {
		factory.memUsers = memory.NewMemoryUserRepository()
		factory.memExperiences = memory.NewMemoryExperienceRepository()
		factory.memPortfolios = memory.NewMemoryPortfolioRepository()
		factory.memNotifications = memory.NewMemoryNotificationRepository()
		if cfg.Database.SeedFile != "" {
			seed, err := memory.LoadSeedFile(cfg.Database.SeedFile)
			if err != nil {
				return nil, err
			}
			if err := seed.Apply(factory.memUsers, factory.memExperiences, factory.memPortfolios); err != nil {
				return nil, fmt.Errorf("apply seed: %w", err)
			}
			logger.Infow("loaded memory seed",
				"path", cfg.Database.SeedFile,
				"users", len(seed.Users),
			)
		}
		logger.Info("using memory repositories")
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to local presence and no backplane",
				"error", err,
			)
		} else {
			factory.redisClient = client
		}
	}

	if factory.redisClient != nil && cfg.Presence.Enabled {
		factory.presence = redisrepo.NewRedisPresenceRepository(factory.redisClient, instanceID, cfg.Presence.TTL, logger)
		logger.Info("using Redis presence")
	} else {
		factory.presence = memory.NewMemoryPresenceRepository()
	}

	return factory, nil
}

func (f *RepositoryFactory) Users() ports.UserRepository {
	if f.db != nil {
		return gormstore.NewUserRepository(f.db)
	}
	return f.memUsers
}

func (f *RepositoryFactory) Experiences() ports.ExperienceRepository {
	if f.db != nil {
		return gormstore.NewExperienceRepository(f.db)
	}
	return f.memExperiences
}

func (f *RepositoryFactory) Portfolios() ports.PortfolioRepository {
	if f.db != nil {
		return gormstore.NewPortfolioRepository(f.db)
	}
	return f.memPortfolios
}

func (f *RepositoryFactory) Notifications() ports.NotificationRepository {
	if f.db != nil {
		return gormstore.NewNotificationRepository(f.db)
	}
	return f.memNotifications
}

func (f *RepositoryFactory) Presence() ports.PresenceRepository {
	return f.presence
}

// RedisPresence returns the shared presence store, or nil when presence is local.
func (f *RepositoryFactory) RedisPresence() *redisrepo.RedisPresenceRepository {
	p, _ := f.presence.(*redisrepo.RedisPresenceRepository)
	return p
}

// RedisClient is nil when Redis is disabled or unreachable.
func (f *RepositoryFactory) RedisClient() *redis.Client {
	return f.redisClient
}

func (f *RepositoryFactory) DB() *gorm.DB {
	return f.db
}

func (f *RepositoryFactory) Close() error {
	var firstErr error
	if f.redisClient != nil {
		if err := redisrepo.CloseRedisClient(f.redisClient); err != nil {
			firstErr = err
		}
	}
	if f.db != nil {
		if err := gormstore.Close(f.db); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// HealthCheck pings every configured backing store.
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.db != nil {
		if err := gormstore.Ping(ctx, f.db); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if f.redisClient != nil {
		if err := f.redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}
