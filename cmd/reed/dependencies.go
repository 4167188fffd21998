package main

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/reed/config"
	"github.com/Ramsey-B/reed/internal/repositories/category"
	"github.com/Ramsey-B/reed/internal/repositories/collection"
	"github.com/Ramsey-B/reed/internal/repositories/creator"
	"github.com/Ramsey-B/reed/internal/repositories/piece"
	"github.com/Ramsey-B/reed/pkg/catalog/memory"
	"github.com/Ramsey-B/reed/pkg/database"
	"github.com/Ramsey-B/reed/pkg/health"
	"github.com/Ramsey-B/reed/pkg/importer"
	"github.com/Ramsey-B/reed/pkg/kafka"
	"github.com/Ramsey-B/reed/pkg/redis"
	"github.com/Ramsey-B/reed/pkg/resolver"
	"github.com/Ramsey-B/reed/pkg/routes/collections"
	"github.com/Ramsey-B/reed/pkg/startup"
)

const (
	dependencyDatabase   = "database"
	dependencyMigrations = "migrations"
	dependencyRedis      = "redis"
	dependencyKafka      = "kafka"
)

// collectionStore is what the runner and the collection routes need from storage
type collectionStore interface {
	importer.CollectionStore
	collections.Store
}

// catalog is the storage the service runs on
type catalog struct {
	stores      resolver.Stores
	collections collectionStore
	tx          importer.Transactor
}

// dependencies holds the external connections opened during startup
type dependencies struct {
	cfg      *config.Config
	logger   ectologger.Logger
	checker  *health.Checker
	db       *database.DatabaseInstance
	redis    *redis.Client
	producer *kafka.Producer
}

func (d *dependencies) register(boot *startup.Startup) {
	if d.cfg.CatalogBackend != config.BackendMemory {
		boot.AddDependency(startup.Func{
			Name: dependencyDatabase,
			OnStart: func(ctx context.Context) error {
				db, err := database.Connect(ctx, d.cfg.DatabaseConfig(), d.logger)
				if err != nil {
					return err
				}
				d.db = db
				d.checker.AddCheck(dependencyDatabase, db.PingContext)
				return nil
			},
			OnStop: func(context.Context) error {
				return d.db.Close()
			},
		})
		boot.AddDependency(startup.Func{
			Name:     dependencyMigrations,
			Requires: []string{dependencyDatabase},
			OnStart: func(context.Context) error {
				migrations := database.NewMigrationService(d.logger, d.cfg.MigrationConfig())
				return migrations.MigratePostgres(d.db.DB.DB, d.cfg.DatabaseName)
			},
		})
	}

	if d.cfg.RedisEnabled() {
		boot.AddDependency(startup.Func{
			Name: dependencyRedis,
			OnStart: func(ctx context.Context) error {
				client, err := redis.NewClient(ctx, redis.Config{
					Host:     d.cfg.RedisHost,
					Port:     d.cfg.RedisPort,
					Password: d.cfg.RedisPassword,
					DB:       d.cfg.RedisDB,
				}, d.logger)
				if err != nil {
					return err
				}
				d.redis = client
				d.checker.AddCheck(dependencyRedis, client.Ping)
				return nil
			},
			OnStop: func(context.Context) error {
				return d.redis.Close()
			},
		})
	}

	if d.cfg.KafkaEnabled() {
		boot.AddDependency(startup.Func{
			Name: dependencyKafka,
			OnStart: func(context.Context) error {
				d.producer = kafka.NewProducer(kafka.ParseConfig(d.cfg.KafkaBrokers, d.cfg.KafkaEventTopic), d.logger)
				return nil
			},
			OnStop: func(context.Context) error {
				return d.producer.Close()
			},
		})
	}
}

// openCatalog builds the stores for the configured backend
func (d *dependencies) openCatalog() (*catalog, error) {
	switch d.cfg.CatalogBackend {
	case config.BackendMemory:
		d.logger.Warn("Running on the in-memory catalog, nothing is persisted")
		mem := memory.NewCatalog()
		return &catalog{
			stores: resolver.Stores{
				Composers:  mem.Composers(),
				Authors:    mem.Authors(),
				Categories: mem.Categories(),
				Pieces:     mem.Pieces(),
			},
			collections: mem.Collections(),
			tx:          mem,
		}, nil
	case config.BackendPostgres:
		return &catalog{
			stores: resolver.Stores{
				Composers:  creator.NewComposerRepository(d.db, d.logger),
				Authors:    creator.NewAuthorRepository(d.db, d.logger),
				Categories: category.NewRepository(d.db, d.logger),
				Pieces:     piece.NewRepository(d.db, d.logger),
			},
			collections: collection.NewRepository(d.db, d.logger),
			tx:          d.db,
		}, nil
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", d.cfg.CatalogBackend)
	}
}
