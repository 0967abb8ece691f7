// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/accountdelivery"
	"github.com/go-petr/pet-ledger/internal/auditrepo"
	"github.com/go-petr/pet-ledger/internal/customerrepo"
	"github.com/go-petr/pet-ledger/internal/ledgerservice"
	"github.com/go-petr/pet-ledger/internal/memrepo"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/internal/transferdelivery"
	"github.com/go-petr/pet-ledger/internal/transferrepo"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
)

// BasePath prefixes every ledger route.
const BasePath = "/v1/fintech"

// Storage bundles the repository implementations used by the ledger service.
type Storage struct {
	Customers ledgerservice.CustomerRepo
	Audits    ledgerservice.AuditRepo
	Transfers ledgerservice.TransferRepo
}

// PostgresStorage returns Storage backed by the database.
func PostgresStorage(conn *sql.DB) Storage {
	return Storage{
		Customers: customerrepo.NewRepoPGS(conn),
		Audits:    auditrepo.NewRepoPGS(conn),
		Transfers: transferrepo.NewRepoPGS(conn),
	}
}

// MemoryStorage returns Storage backed by the in-memory store.
func MemoryStorage(store *memrepo.Store) Storage {
	return Storage{
		Customers: store.Customers(),
		Audits:    store.Audits(),
		Transfers: store.Transfers(),
	}
}

// Server holds db connection, storage, handlers router and configuration.
type Server struct {
	DB         *sql.DB
	Storage    Storage
	Engine     *gin.Engine
	Config     configpkg.Config
	TokenMaker tokenpkg.Maker
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New creates Server type with instantiated domains and routes.
//
// conn is required for the postgres storage backend and ignored otherwise.
// A nil cache disables idempotent replay of transfers.
func New(conn *sql.DB, cache *redis.Client, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	var storage Storage

	switch config.StorageBackend {
	case configpkg.StorageMemory:
		storage = MemoryStorage(memrepo.NewStore())
	case configpkg.StoragePostgres:
		if conn == nil {
			return nil, errors.New("postgres storage requires a db connection")
		}

		storage = PostgresStorage(conn)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", config.StorageBackend)
	}

	tokenMaker, err := tokenpkg.NewMaker(config.TokenType, config.TokenSymmetricKey)
	if err != nil {
		return nil, fmt.Errorf("cannot create token maker: %w", err)
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := moneypkg.Register(v); err != nil {
			return nil, fmt.Errorf("cannot register money validators: %w", err)
		}
	}

	ledgerService := ledgerservice.New(
		storage.Customers,
		storage.Audits,
		storage.Transfers,
		ledgerservice.WithMaxRetries(config.MaxConflictRetries),
	)

	accountHandler := accountdelivery.NewHandler(ledgerService)
	transferHandler := transferdelivery.NewHandler(ledgerService)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	authRoutes := engine.Group(BasePath).Use(middleware.AuthMiddleware(tokenMaker))

	authRoutes.POST("/account", accountHandler.Create)
	authRoutes.GET("/account/:accountId", accountHandler.Get)

	if cache != nil {
		authRoutes.POST("/transfer", middleware.Idempotency(cache, config.IdempotencyTTL), transferHandler.Create)
	} else {
		authRoutes.POST("/transfer", transferHandler.Create)
	}

	authRoutes.GET("/transfers/:accountId", transferHandler.List)

	server := &Server{
		DB:         conn,
		Storage:    storage,
		Engine:     engine,
		Config:     config,
		TokenMaker: tokenMaker,
	}

	return server, nil
}
