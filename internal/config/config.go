package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Env              string `mapstructure:"ENV"`
	LogLevel         string `mapstructure:"LOG_LEVEL"`
	SchemaPath       string `mapstructure:"SCHEMA_PATH"`
	SearchParamsPath string `mapstructure:"SEARCH_PARAMS_PATH"`
	ProfileDir       string `mapstructure:"PROFILE_DIR"`
	OutputDir        string `mapstructure:"OUTPUT_DIR"`
	OutputFormat     string `mapstructure:"OUTPUT_FORMAT"`
	Host             string `mapstructure:"HOST"`
	TraversalRounds  int    `mapstructure:"TRAVERSAL_ROUNDS"`
	Security         bool   `mapstructure:"SECURITY"`
	Combine          bool   `mapstructure:"COMBINE"`
	Validate         bool   `mapstructure:"VALIDATE"`
	PatchFile        string `mapstructure:"PATCH_FILE"`
	DatabaseURL      string `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32  `mapstructure:"DB_MIN_CONNS"`
	Port             string `mapstructure:"PORT"`
	AuthSigningKey   string `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer       string `mapstructure:"AUTH_ISSUER"`
	AuthAudience     string `mapstructure:"AUTH_AUDIENCE"`
}

var defaults = map[string]interface{}{
	"ENV":                "development",
	"LOG_LEVEL":          "info",
	"SCHEMA_PATH":        "./schemas/fhir.schema.json",
	"SEARCH_PARAMS_PATH": "./schemas/search-parameters.json",
	"PROFILE_DIR":        "./schemas/Davinci-drug-formulary",
	"OUTPUT_DIR":         "./outputs",
	"OUTPUT_FORMAT":      "json",
	"HOST":               "hapi.fhir.org",
	"TRAVERSAL_ROUNDS":   3,
	"SECURITY":           false,
	"COMBINE":            false,
	"VALIDATE":           false,
	"PATCH_FILE":         "",
	"DATABASE_URL":       "",
	"DB_MAX_CONNS":       10,
	"DB_MIN_CONNS":       1,
	"PORT":               "8000",
	"AUTH_SIGNING_KEY":   "",
	"AUTH_ISSUER":        "",
	"AUTH_AUDIENCE":      "",
}

// FlagKeys maps command line flag names to the configuration keys they
// override.
var FlagKeys = map[string]string{
	"schema":        "SCHEMA_PATH",
	"search-params": "SEARCH_PARAMS_PATH",
	"profile-dir":   "PROFILE_DIR",
	"output":        "OUTPUT_DIR",
	"format":        "OUTPUT_FORMAT",
	"host":          "HOST",
	"rounds":        "TRAVERSAL_ROUNDS",
	"security":      "SECURITY",
	"combine":       "COMBINE",
	"validate":      "VALIDATE",
	"patch":         "PATCH_FILE",
	"port":          "PORT",
	"log-level":     "LOG_LEVEL",
}

// Load reads .env if present, then the environment, then any flag in flags
// that the user set. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
		// Unmarshal only sees keys viper knows about
		_ = v.BindEnv(key)
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Level returns the zerolog level named by LOG_LEVEL, info when unset.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (c *Config) AuthEnabled() bool {
	return c.AuthSigningKey != ""
}

// Validate checks the configuration before any command runs.
func (c *Config) Validate() error {
	switch strings.ToLower(c.OutputFormat) {
	case "json", "yaml", "yml":
	default:
		return fmt.Errorf("OUTPUT_FORMAT must be \"json\" or \"yaml\", got %q", c.OutputFormat)
	}

	if c.TraversalRounds < 1 {
		return fmt.Errorf("TRAVERSAL_ROUNDS must be at least 1, got %d", c.TraversalRounds)
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("LOG_LEVEL is not a valid level: %w", err)
	}

	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}

	if (c.AuthIssuer != "" || c.AuthAudience != "") && !c.AuthEnabled() {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when AUTH_ISSUER or AUTH_AUDIENCE is set")
	}

	return nil
}
