// Package config loads the service configuration from defaults, an
// optional .env file and AXIOQUAN_ prefixed environment variables.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	auth "github.com/axioquan/go-auth"
	"github.com/axioquan/go-auth/persistence"
)

// EnvPrefix is the prefix of every environment variable read by Load
const EnvPrefix = "AXIOQUAN_"

const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
	EnvironmentTest        = "test"
)

type Database struct {
	Driver       string        `koanf:"driver" json:"driver"`
	DSN          string        `koanf:"dsn" json:"dsn"`
	Debug        bool          `koanf:"debug" json:"debug"`
	PingTimeout  time.Duration `koanf:"ping_timeout" json:"ping_timeout"`
	MaxOpenConns int           `koanf:"max_open_conns" json:"max_open_conns"`
}

// Config is the full service configuration
type Config struct {
	Environment          string        `koanf:"environment" json:"environment"`
	LogLevel             string        `koanf:"log_level" json:"log_level"`
	HTTPAddr             string        `koanf:"http_addr" json:"http_addr"`
	CookieName           string        `koanf:"cookie_name" json:"cookie_name"`
	SessionDuration      time.Duration `koanf:"session_duration" json:"session_duration"`
	RefreshThreshold     time.Duration `koanf:"refresh_threshold" json:"refresh_threshold"`
	SigningKey           string        `koanf:"signing_key" json:"signing_key"`
	StoreTimeout         time.Duration `koanf:"store_timeout" json:"store_timeout"`
	PasswordCost         int           `koanf:"password_cost" json:"password_cost"`
	AdminRegistrationKey string        `koanf:"admin_registration_key" json:"admin_registration_key"`
	DeterministicUserIDs bool          `koanf:"deterministic_user_ids" json:"deterministic_user_ids"`
	LoginRoute           string        `koanf:"login_route" json:"login_route"`
	UnauthorizedRoute    string        `koanf:"unauthorized_route" json:"unauthorized_route"`
	LandingRoute         string        `koanf:"landing_route" json:"landing_route"`
	Database             Database      `koanf:"database" json:"database"`
}

var _ auth.Config = (*Config)(nil)

// Default returns the built in configuration
func Default() *Config {
	return &Config{
		Environment:       EnvironmentDevelopment,
		LogLevel:          "info",
		HTTPAddr:          ":8080",
		CookieName:        auth.DefaultCookieName,
		SessionDuration:   auth.DefaultSessionDuration,
		RefreshThreshold:  auth.DefaultRefreshThreshold,
		StoreTimeout:      5 * time.Second,
		PasswordCost:      auth.DefaultPasswordCost,
		LoginRoute:        "/login",
		UnauthorizedRoute: "/dashboard",
		LandingRoute:      "/",
		Database: Database{
			Driver:      persistence.DriverSQLite,
			DSN:         "file:axioquan.db?cache=shared",
			PingTimeout: 5 * time.Second,
		},
	}
}

// Load builds the configuration. Later sources win: defaults, then the
// .env file at envFile (skipped when missing or empty path), then the
// process environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", envFile, err)
		}
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnvKey,
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if cfg.SigningKey == "" && cfg.Environment != EnvironmentProduction {
		key, err := randomKey()
		if err != nil {
			return nil, err
		}
		cfg.SigningKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// transformEnvKey maps AXIOQUAN_DATABASE_DSN to database.dsn and
// AXIOQUAN_SESSION_DURATION to session_duration
func transformEnvKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if rest, ok := strings.CutPrefix(key, "database_"); ok {
		key = "database." + rest
	}
	return key, value
}

func randomKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("config: generate signing key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Environment, validation.Required,
			validation.In(EnvironmentDevelopment, EnvironmentProduction, EnvironmentTest)),
		validation.Field(&c.HTTPAddr, validation.Required),
		validation.Field(&c.CookieName, validation.Required),
		validation.Field(&c.SessionDuration, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.RefreshThreshold, validation.Required,
			validation.Max(c.SessionDuration).Error("must be shorter than the session duration")),
		validation.Field(&c.SigningKey, validation.Required, validation.RuneLength(32, 0)),
		validation.Field(&c.StoreTimeout, validation.Required, validation.Min(10*time.Millisecond)),
		validation.Field(&c.PasswordCost, validation.Required, validation.Min(4), validation.Max(31)),
		validation.Field(&c.LoginRoute, validation.Required),
		validation.Field(&c.UnauthorizedRoute, validation.Required),
		validation.Field(&c.LandingRoute, validation.Required),
		validation.Field(&c.Database),
	)
}

func (d Database) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required,
			validation.In(persistence.DriverSQLite, persistence.DriverPostgres)),
		validation.Field(&d.DSN, validation.Required),
	)
}

// Persistence returns the database settings for persistence.Open
func (c *Config) Persistence() persistence.Config {
	return persistence.Config{
		Driver:       c.Database.Driver,
		DSN:          c.Database.DSN,
		Debug:        c.Database.Debug,
		PingTimeout:  c.Database.PingTimeout,
		MaxOpenConns: c.Database.MaxOpenConns,
	}
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	if c.SigningKey != "" {
		c.SigningKey = "[redacted]"
	}
	if c.AdminRegistrationKey != "" {
		c.AdminRegistrationKey = "[redacted]"
	}
	return c
}

func (c *Config) GetCookieName() string              { return c.CookieName }
func (c *Config) GetSessionDuration() time.Duration  { return c.SessionDuration }
func (c *Config) GetRefreshThreshold() time.Duration { return c.RefreshThreshold }
func (c *Config) GetSigningKey() string              { return c.SigningKey }
func (c *Config) GetSecureCookies() bool             { return c.Environment == EnvironmentProduction }
func (c *Config) GetStoreTimeout() time.Duration     { return c.StoreTimeout }
func (c *Config) GetPasswordCost() int               { return c.PasswordCost }
func (c *Config) GetAdminRegistrationKey() string    { return c.AdminRegistrationKey }
func (c *Config) GetDeterministicUserIDs() bool      { return c.DeterministicUserIDs }
func (c *Config) GetLoginRoute() string              { return c.LoginRoute }
func (c *Config) GetUnauthorizedRoute() string       { return c.UnauthorizedRoute }
func (c *Config) GetLandingRoute() string            { return c.LandingRoute }
