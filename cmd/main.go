// Package main starts the ledger API to manage customer accounts and money transfers.
package main

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/go-petr/pet-ledger/cmd/httpserver"
	"github.com/go-petr/pet-ledger/internal/bootstrap"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/cachepkg"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"

	_ "github.com/lib/pq"
)

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)
	ctx := logger.WithContext(context.Background())

	var db *sql.DB

	if config.StorageBackend == configpkg.StoragePostgres {
		db, err = dbpkg.Setup(ctx, config.DBDriver, config.DBSource)
		if err != nil {
			logger.Fatal().Err(err).Msg("cannot connect to database")
		}

		if config.DBSchemaPath != "" {
			if err := dbpkg.Migrate(ctx, db, config.DBSchemaPath); err != nil {
				logger.Fatal().Err(err).Msg("cannot migrate database")
			}
		}
	}

	var cache *redis.Client

	if config.RedisURL != "" {
		cache, err = cachepkg.NewRedisClient(ctx, config.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("cannot connect to redis")
		}
	}

	server, err := httpserver.New(db, cache, logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}

	if config.SeedPath != "" {
		if _, err := bootstrap.LoadFile(ctx, config.SeedPath, server.Storage.Customers); err != nil {
			logger.Fatal().Err(err).Msg("cannot load seed")
		}
	}

	logger.Info().Str("storage", config.StorageBackend).Msg("LEDGER API SERVER HAS STARTED")

	err = server.Engine.Run(config.ServerAddress)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot start server")
	}
}
