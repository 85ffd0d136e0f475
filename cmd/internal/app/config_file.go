package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for the optional YAML overlay. Pointer fields
// distinguish "absent" from zero so the file only overrides what it names.
type fileConfig struct {
	HTTPAddr *string `yaml:"http_addr"`
	LogLevel *string `yaml:"log_level"`

	ReadHeaderTimeout *time.Duration `yaml:"read_header_timeout"`
	ReadTimeout       *time.Duration `yaml:"read_timeout"`
	WriteTimeout      *time.Duration `yaml:"write_timeout"`
	IdleTimeout       *time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes    *int           `yaml:"max_header_bytes"`

	DatabaseURL *string `yaml:"database_url"`
	DBMaxConns  *int32  `yaml:"db_max_conns"`
	DBMinConns  *int32  `yaml:"db_min_conns"`

	DocStoreAddr    *string        `yaml:"docstore_addr"`
	DocStoreTimeout *time.Duration `yaml:"docstore_timeout"`

	MaxMessageCountPerRequest *int `yaml:"max_message_count_per_request"`
	MaxDataLength             *int `yaml:"max_data_length"`
	MaxDataLengthPerRequest   *int `yaml:"max_data_length_per_request"`
	ResolveConcurrency        *int `yaml:"resolve_concurrency"`

	WSOriginPatterns []string `yaml:"ws_origin_patterns"`

	ReadinessRequireDB *bool `yaml:"readiness_require_db"`
}

func overlayConfigFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	setString(&cfg.HTTPAddr, fc.HTTPAddr)
	setString(&cfg.LogLevel, fc.LogLevel)

	setDuration(&cfg.ReadHeaderTimeout, fc.ReadHeaderTimeout)
	setDuration(&cfg.ReadTimeout, fc.ReadTimeout)
	setDuration(&cfg.WriteTimeout, fc.WriteTimeout)
	setDuration(&cfg.IdleTimeout, fc.IdleTimeout)
	setInt(&cfg.MaxHeaderBytes, fc.MaxHeaderBytes)

	setString(&cfg.DatabaseURL, fc.DatabaseURL)
	setInt32(&cfg.DBMaxConns, fc.DBMaxConns)
	setInt32(&cfg.DBMinConns, fc.DBMinConns)

	setString(&cfg.DocStoreAddr, fc.DocStoreAddr)
	setDuration(&cfg.DocStoreTimeout, fc.DocStoreTimeout)

	setInt(&cfg.MaxMessageCountPerRequest, fc.MaxMessageCountPerRequest)
	setInt(&cfg.MaxDataLength, fc.MaxDataLength)
	setInt(&cfg.MaxDataLengthPerRequest, fc.MaxDataLengthPerRequest)
	setInt(&cfg.ResolveConcurrency, fc.ResolveConcurrency)

	if len(fc.WSOriginPatterns) > 0 {
		cfg.WSOriginPatterns = fc.WSOriginPatterns
	}

	if fc.ReadinessRequireDB != nil {
		cfg.ReadinessRequireDB = *fc.ReadinessRequireDB
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setInt32(dst *int32, v *int32) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *time.Duration) {
	if v != nil {
		*dst = *v
	}
}
