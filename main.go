package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"card-trader/auth"
	"card-trader/cache"
	"card-trader/catalog"
	"card-trader/config"
	"card-trader/db"
	"card-trader/db/memory"
	"card-trader/logging"
	"card-trader/middleware"
	"card-trader/routes"
	"card-trader/services"
	"card-trader/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := logging.Setup(cfg.Log)
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		users      services.UserDirectory
		txs        services.TransactionStore
		transactor services.Transactor
		closers    []func(context.Context) error
	)
	switch cfg.Store {
	case config.StoreMemory:
		store := memory.New()
		users, txs, transactor = store, store, store
		log.Warn("using in-memory store, data is lost on restart")
	default:
		client, err := db.Connect(ctx, cfg.Mongo)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to MongoDB")
		}
		closers = append(closers, client.Disconnect)

		database := client.Database(cfg.Mongo.Database)
		if err := db.EnsureIndexes(ctx, database); err != nil {
			log.WithError(err).Fatal("failed to create indexes")
		}
		users = db.NewUserRepository(database)
		txs = db.NewTransactionRepository(database)
		transactor = db.NewTransactor(client, cfg.Mongo.Transactions)
	}

	var store cache.Store = cache.NewMemoryStore()
	if cfg.Redis.URL != "" {
		redisStore, err := cache.NewRedisStore(ctx, cfg.Redis.URL, cfg.Redis.KeyPrefix, log)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to Redis")
		}
		closers = append(closers, func(context.Context) error { return redisStore.Close() })
		store = redisStore
	}

	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	tokens := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Expiry)
	router := routes.Setup(routes.Deps{
		Services: services.New(users, txs, transactor, hub, tokens, log),
		Catalog:  catalog.NewClient(cfg.Scryfall, store, log),
		Hub:      hub,
		Tokens:   tokens,
		Cache:    store,
		Idempotency: middleware.IdempotencyConfig{
			TTL:         cfg.Idempotency.TTL,
			LockTimeout: cfg.Idempotency.LockTimeout,
		},
		Log: log,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
	for _, closeFn := range closers {
		if err := closeFn(shutdownCtx); err != nil {
			log.WithError(err).Error("failed to close connection")
		}
	}
}
