// Package bootstrap wires the application components together.
package bootstrap

import (
	"context"
	"time"

	"recipe_server/adapter/out/asset"
	"recipe_server/adapter/out/mongodb"
	"recipe_server/config"
	"recipe_server/core/port/out"
	"recipe_server/core/service/admin"
	"recipe_server/core/service/cleanup"
	"recipe_server/core/service/engagement"
	"recipe_server/core/service/identity"
	"recipe_server/core/service/migration"
	"recipe_server/core/service/profile"
	"recipe_server/pkg/cache"
	"recipe_server/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// Dependencies holds every wired component of the application.
type Dependencies struct {
	Config *config.Config
	Mongo  *mongo.Client
	Redis  *redis.Client

	// Repositories
	AccountRepo out.AccountRepository
	ProfileRepo out.ProfileRepository
	DishRepo    out.DishRepository
	RecipeRepo  out.RecipeRepository
	CommentRepo out.CommentRepository
	AssetStore  out.AssetStore

	// Services
	Resolver   *identity.ResolverService
	Profiles   *profile.Service
	Engagement *engagement.Service
	Migration  *migration.Service
	Cleanup    *cleanup.Service
	AdminGate  *admin.GateService
}

// NewDependencies connects the stores and builds the full service
// graph. The returned cleanup function closes all connections.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	mongoClient, err := mongodb.NewClient(cfg.MongoDBURL, cfg.MongoDBName)
	if err != nil {
		return nil, nil, err
	}
	db := mongoClient.Database(cfg.MongoDBName)

	// Redis is optional; without it profile reads skip the cache.
	var redisClient *redis.Client
	var profileCache out.Cache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("invalid Redis URL, cache disabled")
		} else {
			redisClient = redis.NewClient(opts)
			pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			if err := redisClient.Ping(pingCtx).Err(); err != nil {
				logger.WithError(err).Warn("Redis unreachable, cache disabled")
				redisClient.Close()
				redisClient = nil
			} else {
				profileCache = cache.NewRedisCache(redisClient)
			}
			cancel()
		}
	}

	accountRepo := mongodb.NewAccountAdapter(db)
	profileRepo := mongodb.NewProfileAdapter(db)
	dishRepo := mongodb.NewDishAdapter(db)
	recipeRepo := mongodb.NewRecipeAdapter(db)
	commentRepo := mongodb.NewCommentAdapter(db)

	indexCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, ensure := range []func(context.Context) error{
		accountRepo.EnsureIndexes,
		profileRepo.EnsureIndexes,
		dishRepo.EnsureIndexes,
	} {
		if err := ensure(indexCtx); err != nil {
			logger.WithError(err).Warn("index creation failed")
		}
	}

	var assetStore out.AssetStore
	if cfg.AssetBaseURL != "" {
		assetStore = asset.NewStoreAdapter(asset.Config{
			BaseURL: cfg.AssetBaseURL,
			APIKey:  cfg.AssetAPIKey,
			Timeout: time.Duration(cfg.AssetTimeoutSec) * time.Second,
		})
	}

	deps := &Dependencies{
		Config:      cfg,
		Mongo:       mongoClient,
		Redis:       redisClient,
		AccountRepo: accountRepo,
		ProfileRepo: profileRepo,
		DishRepo:    dishRepo,
		RecipeRepo:  recipeRepo,
		CommentRepo: commentRepo,
		AssetStore:  assetStore,
	}

	deps.Resolver = identity.NewResolverService(accountRepo, profileRepo, cfg.HandleMaxRetries)
	deps.Profiles = profile.NewService(accountRepo, profileRepo, profileCache, cfg.ProfileCacheTTL, cfg.ViewHistoryMax)
	deps.Engagement = engagement.NewService(dishRepo, recipeRepo, commentRepo, profileRepo, assetStore)
	deps.Migration = migration.NewService(accountRepo, profileRepo)
	deps.Cleanup = cleanup.NewService(dishRepo, recipeRepo, commentRepo, profileRepo, assetStore, cfg.RetentionHorizon(), cfg.CleanupBatchWait)
	deps.AdminGate = admin.NewGateService(accountRepo, cfg.AdminEmails, cfg.Debug, cfg.Maintenance)

	cleanupFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if redisClient != nil {
			redisClient.Close()
		}
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.WithError(err).Warn("MongoDB disconnect failed")
		}
	}

	return deps, cleanupFn, nil
}
