package docassist

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Desarso/docassist/models"
	"github.com/Desarso/docassist/stores"
)

// EnvPrefix prefixes every environment override, e.g. DOCASSIST_PROVIDER_NAME.
const EnvPrefix = "DOCASSIST"

// ProviderConfig selects the chat-completion backend.
type ProviderConfig struct {
	Name    string `mapstructure:"name"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	// Model overrides the provider default for every profile without its own.
	Model string `mapstructure:"model"`
	// RequestsPerSecond bounds outgoing completion calls. Zero disables the bound.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	SiteURL           string  `mapstructure:"site_url"`
	SiteName          string  `mapstructure:"site_name"`
}

// ServerConfig holds the HTTP surface settings. CompletionTimeout bounds
// each completion call; zero leaves the deadline to the caller's context.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	DefaultProfile    string        `mapstructure:"default_profile"`
	SessionIdleTTL    time.Duration `mapstructure:"session_idle_ttl"`
	JanitorSchedule   string        `mapstructure:"janitor_schedule"`
	RateLimitRPS      float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst    int           `mapstructure:"rate_limit_burst"`
	CompletionTimeout time.Duration `mapstructure:"completion_timeout"`
}

// LogConfig configures the package logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// ProfileOverride changes the fixed parameters of one builtin profile.
type ProfileOverride struct {
	Model             string   `mapstructure:"model"`
	Temperature       *float64 `mapstructure:"temperature"`
	MaxTokens         int      `mapstructure:"max_tokens"`
	MaxDocumentChars  int      `mapstructure:"max_document_chars"`
	ReferencesCutoff  *bool    `mapstructure:"references_cutoff"`
	ReferencesMarker  string   `mapstructure:"references_marker"`
	RetainAttachments *bool    `mapstructure:"retain_attachments"`
}

// SummaryConfig configures the article report.
type SummaryConfig struct {
	Language string `mapstructure:"language"`
}

// Config is the complete runtime configuration.
type Config struct {
	Provider ProviderConfig             `mapstructure:"provider"`
	Server   ServerConfig               `mapstructure:"server"`
	Log      LogConfig                  `mapstructure:"log"`
	Traces   stores.StoreConfig         `mapstructure:"traces"`
	Summary  SummaryConfig              `mapstructure:"summary"`
	Profiles map[string]ProfileOverride `mapstructure:"profiles"`
}

// NewConfig returns the defaults.
func NewConfig() *Config {
	return &Config{
		Provider: ProviderConfig{Name: "openai"},
		Server: ServerConfig{
			Addr:            ":8080",
			DefaultProfile:  ProfileTutor,
			SessionIdleTTL:  time.Hour,
			JanitorSchedule: "@every 1m",
			RateLimitRPS:    5,
			RateLimitBurst:  10,
		},
		Log:      LogConfig{Level: "info"},
		Traces:   stores.StoreConfig{Type: "none", Options: map[string]string{}},
		Summary:  SummaryConfig{Language: "German"},
		Profiles: map[string]ProfileOverride{},
	}
}

// WithProvider selects the backend by name.
func (c *Config) WithProvider(name string) *Config {
	c.Provider.Name = name
	return c
}

// WithAPIKey sets the credential of the selected provider.
func (c *Config) WithAPIKey(key string) *Config {
	c.Provider.APIKey = key
	return c
}

// WithModel overrides the provider default model.
func (c *Config) WithModel(model string) *Config {
	c.Provider.Model = model
	return c
}

// WithAddr sets the listen address.
func (c *Config) WithAddr(addr string) *Config {
	c.Server.Addr = addr
	return c
}

// WithTraceStore enables completion traces.
func (c *Config) WithTraceStore(store stores.StoreConfig) *Config {
	c.Traces = store
	return c
}

// LoadConfig reads the optional YAML file at path, then environment
// overrides, then resolves the provider credential. A .env file in the
// working directory is loaded first when present.
func LoadConfig(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, NewConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, models.ConfigError("reading %s: %v", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, models.ConfigError("decoding configuration: %v", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]ProfileOverride{}
	}
	cfg.ResolveAPIKey()
	return cfg, nil
}

// ResolveAPIKey fills the credential from the provider's conventional
// environment variable when none is configured.
func (c *Config) ResolveAPIKey() {
	if c.Provider.APIKey != "" {
		return
	}
	if env := APIKeyEnv(c.Provider.Name); env != "" {
		c.Provider.APIKey = os.Getenv(env)
	}
}

// Validate checks everything needed before the first pipeline run.
func (c *Config) Validate() error {
	env := APIKeyEnv(c.Provider.Name)
	if env == "" {
		return models.ConfigError("unknown provider %q", c.Provider.Name)
	}
	if c.Provider.APIKey == "" {
		return models.ConfigError("no API key for provider %q: set %s or %s_PROVIDER_API_KEY", c.Provider.Name, env, EnvPrefix)
	}
	if _, ok := builtinProfiles[c.Server.DefaultProfile]; !ok {
		return models.ConfigError("unknown default profile %q", c.Server.DefaultProfile)
	}
	for name := range c.Profiles {
		if _, ok := builtinProfiles[name]; !ok {
			return models.ConfigError("override for unknown profile %q", name)
		}
	}
	if c.Server.RateLimitRPS < 0 || c.Provider.RequestsPerSecond < 0 {
		return models.ConfigError("rate limits must not be negative")
	}
	return nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return models.ConfigError("loading %s: %v", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("provider.name", d.Provider.Name)
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.model", "")
	v.SetDefault("provider.requests_per_second", d.Provider.RequestsPerSecond)
	v.SetDefault("provider.site_url", "")
	v.SetDefault("provider.site_name", "")

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.default_profile", d.Server.DefaultProfile)
	v.SetDefault("server.session_idle_ttl", d.Server.SessionIdleTTL)
	v.SetDefault("server.janitor_schedule", d.Server.JanitorSchedule)
	v.SetDefault("server.rate_limit_rps", d.Server.RateLimitRPS)
	v.SetDefault("server.rate_limit_burst", d.Server.RateLimitBurst)
	v.SetDefault("server.completion_timeout", d.Server.CompletionTimeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", "")

	v.SetDefault("traces.type", d.Traces.Type)
	v.SetDefault("traces.connection", "")

	v.SetDefault("summary.language", d.Summary.Language)
}
