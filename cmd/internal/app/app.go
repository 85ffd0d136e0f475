// Package app wires the Courier runtime: config, logging, stores, the broker
// core, and the HTTP surface.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"courier/cmd/internal/broker"
	brokerapi "courier/cmd/internal/broker/api"
	"courier/cmd/internal/docstore"
	"courier/cmd/internal/notify"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App owns the HTTP server and the lifecycle of the message store pool.
type App struct {
	cfg Config
	log *slog.Logger

	store broker.MessageStore

	dbPool    *pgxpool.Pool
	dbEnabled bool

	handler *brokerapi.Handler
	hub     *notify.Hub
	ws      *notify.WSGateway
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	store, dbPool, dbEnabled, err := newMessageStore(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	docs, err := newDocStore(cfg, log)
	if err != nil {
		if dbPool != nil {
			dbPool.Close()
		}
		return nil, err
	}

	svc, err := broker.NewService(log, store, docs, broker.Limits{
		MaxDataLength:        cfg.MaxDataLength,
		MaxBatchPayloadBytes: cfg.MaxDataLengthPerRequest,
		ResolveConcurrency:   cfg.ResolveConcurrency,
	})
	if err != nil {
		if dbPool != nil {
			dbPool.Close()
		}
		return nil, err
	}

	hub := notify.NewHub(log)
	ws := notify.NewWSGateway(log, hub, notify.WithOriginPatterns(cfg.WSOriginPatterns))

	handler, err := brokerapi.NewHandler(log, svc,
		brokerapi.Config{MaxMessageCountPerRequest: cfg.MaxMessageCountPerRequest},
		brokerapi.WithStoredHook(func(recipient string) {
			hub.Publish(recipient, notify.Event{
				Recipient: recipient,
				StoreTime: time.Now().UTC(),
			})
		}),
	)
	if err != nil {
		if dbPool != nil {
			dbPool.Close()
		}
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		store:     store,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		handler:   handler,
		hub:       hub,
		ws:        ws,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.handler, a.ws)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.ReadTimeout,
		WriteTimeout:      a.cfg.WriteTimeout,
		IdleTimeout:       a.cfg.IdleTimeout,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.store.Close(); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}
	if a.dbPool != nil {
		a.dbPool.Close()
	}

	a.log.Info("server.stopped")
	return nil
}

// newMessageStore decides between Postgres-backed persistence and the
// in-memory dev store.
//
// Ownership model:
// - app owns the pool lifecycle
// - PostgresStore.Close() is a no-op
func newMessageStore(ctx context.Context, cfg Config, log *slog.Logger) (broker.MessageStore, *pgxpool.Pool, bool, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return broker.NewInMemoryStore(), nil, false, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, err
	}

	store, err := broker.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, err
	}

	log.Info("db.enabled.postgres_store")
	return store, pool, true, nil
}

// newDocStore decides between the external HTTP document store and the
// in-memory dev store.
func newDocStore(cfg Config, log *slog.Logger) (docstore.Client, error) {
	if cfg.DocStoreAddr == "" {
		log.Info("docstore.disabled.inmemory_store")
		return docstore.NewInMemory(), nil
	}

	client, err := docstore.NewHTTPClient(cfg.DocStoreAddr, docstore.WithTimeout(cfg.DocStoreTimeout))
	if err != nil {
		return nil, err
	}

	log.Info("docstore.enabled", "addr", cfg.DocStoreAddr)
	return client, nil
}
