// Package config loads the mailbrief configuration from the environment
// and an optional YAML file into one explicit struct. Nothing outside this
// package reads the process environment, which keeps backend selection
// deterministic and testable.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// GmailConfig holds the OAuth client settings and optional pre-provisioned
// tokens for the Gmail REST backends.
type GmailConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`

	// AccessToken and RefreshToken are the pre-provisioned environment
	// tokens used by the env-token backend. When absent, the stored-token
	// backend falls back to the persisted token file.
	AccessToken  string `mapstructure:"access_token"`
	RefreshToken string `mapstructure:"refresh_token"`

	// TokenFile is where the credential store persists refreshed tokens.
	TokenFile string `mapstructure:"token_file"`
}

// IMAPConfig holds the direct-mailbox settings.
type IMAPConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`

	// LargeMailboxThreshold switches the backend from a date SINCE search
	// to direct most-recent-N UID slicing once the mailbox exceeds this
	// many messages. Date search cost grows with mailbox size; slicing
	// does not.
	LargeMailboxThreshold int `mapstructure:"large_mailbox_threshold"`
}

// ProxyConfig holds the remote worker API settings.
type ProxyConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	Secret    string `mapstructure:"secret"`
	SessionID string `mapstructure:"session_id"`
}

// ManualConfig locates the operator-supplied payload, either a file path
// or inline JSON. Inline wins when both are set.
type ManualConfig struct {
	PayloadPath string `mapstructure:"payload_path"`
	PayloadJSON string `mapstructure:"payload_json"`
}

// Timeouts bounds each backend attempt independently.
type Timeouts struct {
	EnvGmail time.Duration `mapstructure:"env_gmail"`
	GmailAPI time.Duration `mapstructure:"gmail_api"`
	Proxy    time.Duration `mapstructure:"proxy"`
	IMAP     time.Duration `mapstructure:"imap"`
	Render   time.Duration `mapstructure:"render"`
}

// Config is the top-level application configuration, constructed once at
// process start and passed into the credential store and each backend.
type Config struct {
	// Account is the mailbox address.
	Account string `mapstructure:"account"`

	Gmail  GmailConfig  `mapstructure:"gmail"`
	IMAP   IMAPConfig   `mapstructure:"imap"`
	Proxy  ProxyConfig  `mapstructure:"proxy"`
	Manual ManualConfig `mapstructure:"manual"`

	// WindowHours is the recency window for fetched messages.
	WindowHours int `mapstructure:"window_hours"`

	// MaxMessages caps how many messages a backend fetches.
	MaxMessages int `mapstructure:"max_messages"`

	// ExcerptLen is the body excerpt length in runes.
	ExcerptLen int `mapstructure:"excerpt_len"`

	// DBPath is the briefing store location.
	DBPath string `mapstructure:"db_path"`

	// OutputPath is where the rendered briefing artifact is written.
	OutputPath string `mapstructure:"output_path"`

	Timeouts Timeouts `mapstructure:"timeouts"`
}

// DefaultConfigPath returns the default configuration file location,
// ~/.config/mailbrief/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "mailbrief", "config.yaml")
}

// defaultTokenFile returns the default persisted-token location.
func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "token.json")
	}
	return filepath.Join(home, ".config", "mailbrief", "token.json")
}

// legacyEnvBindings maps config keys to the unprefixed environment
// variables the hosted transports already provision.
var legacyEnvBindings = map[string][]string{
	"account":             {"CAPY_USER_EMAIL", "USER_EMAIL"},
	"imap.password":       {"EMAIL_PASSWORD", "GMAIL_APP_PASSWORD"},
	"gmail.access_token":  {"CAPY_GMAIL_ACCESS_TOKEN"},
	"gmail.refresh_token": {"CAPY_GMAIL_REFRESH_TOKEN"},
	"gmail.client_id":     {"CAPY_GMAIL_CLIENT_ID"},
	"gmail.client_secret": {"CAPY_GMAIL_CLIENT_SECRET"},
	"proxy.base_url":      {"AGENT_WORKER_BASE_URL"},
	"proxy.secret":        {"AGENT_WORKER_SECRET"},
	"proxy.session_id":    {"FLY_APP_NAME"},
	"manual.payload_json": {"MORNING_EMAIL_DATA"},
}

// Load reads configuration from the YAML file at path (if it exists) and
// the environment. Environment values override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("MAILBRIEF")
	v.AutomaticEnv()

	for key, envs := range legacyEnvBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	v.SetDefault("imap.host", "imap.gmail.com")
	v.SetDefault("imap.port", "993")
	v.SetDefault("imap.large_mailbox_threshold", 5000)
	v.SetDefault("gmail.token_file", defaultTokenFile())
	v.SetDefault("window_hours", 24)
	v.SetDefault("max_messages", 10)
	v.SetDefault("excerpt_len", 500)
	v.SetDefault("db_path", "mailbrief.db")
	v.SetDefault("output_path", "briefing.json")
	v.SetDefault("timeouts.env_gmail", 15*time.Second)
	v.SetDefault("timeouts.gmail_api", 60*time.Second)
	v.SetDefault("timeouts.proxy", 10*time.Second)
	v.SetDefault("timeouts.imap", 60*time.Second)
	v.SetDefault("timeouts.render", 45*time.Second)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// HasEnvTokens reports whether every field the env-token backend requires
// is present.
func (c *Config) HasEnvTokens() bool {
	return len(c.MissingEnvTokenFields()) == 0
}

// MissingEnvTokenFields names the env-token fields that are absent, for
// failure diagnostics.
func (c *Config) MissingEnvTokenFields() []string {
	var missing []string
	if c.Gmail.AccessToken == "" {
		missing = append(missing, "gmail access token")
	}
	if c.Gmail.RefreshToken == "" {
		missing = append(missing, "gmail refresh token")
	}
	if c.Gmail.ClientID == "" {
		missing = append(missing, "gmail client id")
	}
	if c.Gmail.ClientSecret == "" {
		missing = append(missing, "gmail client secret")
	}
	return missing
}

// Window returns the recency window as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowHours) * time.Hour
}
