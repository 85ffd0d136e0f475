package app

import "time"

// Config contains all runtime configuration. It is loaded once at startup
// (defaults, then an optional YAML file, then COURIER_* environment
// overrides) and passed to components immutably.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// DocStoreAddr is the base URL of the external document store. Empty
	// selects the in-memory store (dev mode).
	DocStoreAddr    string
	DocStoreTimeout time.Duration

	// Broker limits.
	MaxMessageCountPerRequest int
	MaxDataLength             int
	MaxDataLengthPerRequest   int
	ResolveConcurrency        int

	// WSOriginPatterns are host patterns accepted for cross-origin websocket
	// upgrades on the notification stream.
	WSOriginPatterns []string

	// If true, /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool
}

func defaultConfig() Config {
	return Config{
		HTTPAddr: "0.0.0.0:8080",
		LogLevel: "info",

		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,

		DBMaxConns: 10,
		DBMinConns: 0,

		DocStoreTimeout: 10 * time.Second,

		MaxMessageCountPerRequest: 100,
		MaxDataLength:             1 << 20,
		MaxDataLengthPerRequest:   4 << 20,
		ResolveConcurrency:        4,
	}
}

// LoadConfig loads Config with defaults, an optional YAML file overlay
// (COURIER_CONFIG_FILE), and environment variable overrides.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()

	if path := EnvString("COURIER_CONFIG_FILE", ""); path != "" {
		if err := overlayConfigFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	overlayEnv(&cfg)
	return cfg, nil
}

func overlayEnv(cfg *Config) {
	cfg.HTTPAddr = EnvString("COURIER_HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = EnvString("COURIER_LOG_LEVEL", cfg.LogLevel)

	cfg.ReadHeaderTimeout = EnvDuration("COURIER_HTTP_READ_HEADER_TIMEOUT", cfg.ReadHeaderTimeout)
	cfg.ReadTimeout = EnvDuration("COURIER_HTTP_READ_TIMEOUT", cfg.ReadTimeout)
	cfg.WriteTimeout = EnvDuration("COURIER_HTTP_WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.IdleTimeout = EnvDuration("COURIER_HTTP_IDLE_TIMEOUT", cfg.IdleTimeout)
	cfg.MaxHeaderBytes = EnvInt("COURIER_HTTP_MAX_HEADER_BYTES", cfg.MaxHeaderBytes)

	cfg.DatabaseURL = EnvString("COURIER_DATABASE_URL", cfg.DatabaseURL)
	cfg.DBMaxConns = EnvInt32("COURIER_DB_MAX_CONNS", cfg.DBMaxConns)
	cfg.DBMinConns = EnvInt32("COURIER_DB_MIN_CONNS", cfg.DBMinConns)

	cfg.DocStoreAddr = EnvString("COURIER_DOCSTORE_ADDR", cfg.DocStoreAddr)
	cfg.DocStoreTimeout = EnvDuration("COURIER_DOCSTORE_TIMEOUT", cfg.DocStoreTimeout)

	cfg.MaxMessageCountPerRequest = EnvInt("COURIER_MAX_MESSAGE_COUNT_PER_REQUEST", cfg.MaxMessageCountPerRequest)
	cfg.MaxDataLength = EnvInt("COURIER_MAX_DATA_LENGTH", cfg.MaxDataLength)
	cfg.MaxDataLengthPerRequest = EnvInt("COURIER_MAX_DATA_LENGTH_PER_REQUEST", cfg.MaxDataLengthPerRequest)
	cfg.ResolveConcurrency = EnvInt("COURIER_RESOLVE_CONCURRENCY", cfg.ResolveConcurrency)

	cfg.WSOriginPatterns = EnvCSV("COURIER_WS_ORIGIN_PATTERNS", cfg.WSOriginPatterns)

	cfg.ReadinessRequireDB = EnvBool("COURIER_READINESS_REQUIRE_DB", cfg.ReadinessRequireDB)
}
