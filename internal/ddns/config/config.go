package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/redns-dev/redns/internal/ddns/domain"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// DNSAddr is the UDP listen address for DNS queries.
	DNSAddr string `koanf:"dns_addr" validate:"required"`

	// WebAddr is the listen address for the HTTP update service.
	WebAddr string `koanf:"web_addr" validate:"required"`

	// RedisAddr is the record store address in ip:port format.
	RedisAddr string `koanf:"redis_addr" validate:"required,ip_port"`

	// RedisDB selects the redis logical database.
	RedisDB int `koanf:"redis_db" validate:"gte=0"`

	// Zone is the domain this server is authoritative for. When empty
	// the zone persisted in the store is used instead; startup fails if
	// neither is set.
	Zone string `koanf:"zone"`

	// TTL is the time-to-live stamped on every synthesized record.
	TTL uint32 `koanf:"ttl" validate:"required,gte=1"`

	// MXPreference is the preference value for synthesized MX answers.
	MXPreference uint16 `koanf:"mx_preference" validate:"required,gte=1"`

	// QueryTimeoutSeconds bounds each query's unit of work, including
	// its store round trips.
	QueryTimeoutSeconds uint `koanf:"query_timeout_seconds" validate:"required,gte=1"`
}

// QueryTimeout returns the per-query deadline as a duration.
func (c *AppConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// DEFAULT_APP_CONFIG defines the default application configuration.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:                 "prod",
	LogLevel:            "info",
	DNSAddr:             ":53",
	WebAddr:             ":8080",
	RedisAddr:           "127.0.0.1:6379",
	RedisDB:             0,
	Zone:                "",
	TTL:                 1800,
	MXPreference:        10,
	QueryTimeoutSeconds: 3,
}

// validIPPort validates whether the field value is a valid IP:port pair.
func validIPPort(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	ip, port, err := net.SplitHostPort(addr)
	if err != nil || ip == "" || port == "" {
		return false
	}
	if net.ParseIP(ip) == nil {
		return false
	}
	portNum, err := strconv.ParseUint(port, 10, 16)
	return err == nil && portNum > 0 && portNum < 65536
}

// envLoader loads environment variables with the prefix "REDNS_",
// lowercasing keys and stripping the prefix. A var so tests can mock it.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "REDNS_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "REDNS_"))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG via the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("ip_port", validIPPort)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	cfg.Zone = domain.CanonicalName(cfg.Zone)
	return &cfg, nil
}
