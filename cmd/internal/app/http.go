package app

import (
	"log/slog"
	"net/http"
	"time"

	brokerapi "courier/cmd/internal/broker/api"
	"courier/cmd/internal/metrics"
	"courier/cmd/internal/notify"

	"github.com/jackc/pgx/v5/pgxpool"
)

func registerHTTP(
	mux *http.ServeMux,
	log *slog.Logger,
	cfg Config,
	dbPool *pgxpool.Pool,
	dbEnabled bool,
	handler *brokerapi.Handler,
	ws *notify.WSGateway,
) {
	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Pong"))
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.ReadinessRequireDB && !dbEnabled {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if dbEnabled && dbPool != nil {
			if err := PingDB(r.Context(), dbPool, 2*time.Second); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				log.Info("readyz.db.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	mux.Handle("GET /metrics", metrics.Handler())

	handler.Register(mux)

	mux.HandleFunc("GET /ws/{recipient}", ws.HandleWS)
}
