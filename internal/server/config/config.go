package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvDatabaseDriver     = "DATABASE_DRIVER"
	EnvDatabaseURL        = "DATABASE_URL"
	EnvJWTSecret          = "JWT_SECRET"
	EnvJWTExpiration      = "JWT_EXPIRATION"
	EnvProvisioningAPIKey = "PROVISIONING_API_KEY"
	EnvPingRequireAPIKey  = "PING_REQUIRE_API_KEY"
	EnvCORSOrigins        = "CORS_ORIGINS"
	EnvCookieName         = "COOKIE_NAME"
	EnvCookieDomain       = "COOKIE_DOMAIN"
	EnvCookiePath         = "COOKIE_PATH"
	EnvCookieSameSite     = "COOKIE_SAMESITE"
	EnvAppEnv             = "APP_ENV"
	EnvNodeEnv            = "NODE_ENV"
	EnvAPIHost            = "API_HOST"
	EnvAPIPort            = "API_PORT"
	EnvPort               = "PORT"
	EnvOnlineWindow       = "ONLINE_WINDOW"
	EnvBcryptCost         = "BCRYPT_COST"
	EnvLogLevel           = "LOG_LEVEL"
	EnvLogFormat          = "LOG_FORMAT"
	EnvMetricsEnabled     = "METRICS_ENABLED"
	EnvMQTTBrokerURL      = "MQTT_BROKER_URL"
	EnvMQTTClientID       = "MQTT_CLIENT_ID"
	EnvMQTTUsername       = "MQTT_USERNAME"
	EnvMQTTPassword       = "MQTT_PASSWORD"
	EnvMQTTPingTopic      = "MQTT_PING_TOPIC"
	EnvResendAPIKey       = "RESEND_API_KEY"
	EnvFromEmail          = "FROM_EMAIL"
	EnvSkipEmailSend      = "SKIP_EMAIL_SEND"
	EnvSiteURL            = "SITE_URL"

	DefaultCookieName   = "authToken"
	DefaultSessionTTL   = 7 * 24 * time.Hour
	DefaultOnlineWindow = 5 * time.Minute
	DefaultBcryptCost   = 10
	DefaultPingTopic    = "intelvis/devices/+/ping"
	DefaultSiteURL      = "http://localhost:3000"
)

// CookieConfig is the single attribute set used to both set and clear the
// session cookie. A clear with different Domain/Path/SameSite is ignored by
// browsers, so nothing else may build session cookies.
type CookieConfig struct {
	Name     string
	Domain   string
	Path     string
	SameSite http.SameSite
	Secure   bool
	MaxAge   time.Duration
}

type MQTTConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	PingTopic string
}

func (m MQTTConfig) Enabled() bool {
	return m.BrokerURL != ""
}

type EmailConfig struct {
	ResendAPIKey string
	FromEmail    string
	Skip         bool
}

// Config holds server runtime configuration loaded from environment variables.
type Config struct {
	DatabaseDriver string
	DatabaseURL    string

	JWTSecret  string
	SessionTTL time.Duration
	BcryptCost int

	ProvisioningAPIKey string
	PingRequireAPIKey  bool

	CORSOrigins []string
	Cookie      CookieConfig
	Production  bool

	Host string
	Port string

	OnlineWindow time.Duration

	LogLevel       string
	LogFormat      string
	MetricsEnabled bool

	MQTT  MQTTConfig
	Email EmailConfig

	SiteURL string
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Load reads the configuration from the environment. Callers that want .env
// support load it with godotenv before calling Load.
func Load() (*Config, error) {
	production := isProduction()

	cfg := &Config{
		DatabaseDriver:     getEnv(EnvDatabaseDriver, "postgres"),
		DatabaseURL:        os.Getenv(EnvDatabaseURL),
		JWTSecret:          os.Getenv(EnvJWTSecret),
		ProvisioningAPIKey: os.Getenv(EnvProvisioningAPIKey),
		CORSOrigins:        splitList(os.Getenv(EnvCORSOrigins)),
		Production:         production,
		Host:               getEnv(EnvAPIHost, "0.0.0.0"),
		Port:               getEnv(EnvAPIPort, getEnv(EnvPort, "8080")),
		LogLevel:           getEnv(EnvLogLevel, "info"),
		LogFormat:          getEnv(EnvLogFormat, defaultLogFormat(production)),
		SiteURL:            strings.TrimRight(getEnv(EnvSiteURL, DefaultSiteURL), "/"),
		MQTT: MQTTConfig{
			BrokerURL: os.Getenv(EnvMQTTBrokerURL),
			ClientID:  getEnv(EnvMQTTClientID, "intelvis-server"),
			Username:  os.Getenv(EnvMQTTUsername),
			Password:  os.Getenv(EnvMQTTPassword),
			PingTopic: getEnv(EnvMQTTPingTopic, DefaultPingTopic),
		},
		Email: EmailConfig{
			ResendAPIKey: os.Getenv(EnvResendAPIKey),
			FromEmail:    getEnv(EnvFromEmail, "noreply@intelvis.ai"),
		},
	}

	var err error
	if cfg.SessionTTL, err = getDuration(EnvJWTExpiration, DefaultSessionTTL); err != nil {
		return nil, err
	}
	if cfg.OnlineWindow, err = getDuration(EnvOnlineWindow, DefaultOnlineWindow); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getInt(EnvBcryptCost, DefaultBcryptCost); err != nil {
		return nil, err
	}
	if cfg.PingRequireAPIKey, err = getBool(EnvPingRequireAPIKey, true); err != nil {
		return nil, err
	}
	if cfg.MetricsEnabled, err = getBool(EnvMetricsEnabled, false); err != nil {
		return nil, err
	}
	if cfg.Email.Skip, err = getBool(EnvSkipEmailSend, false); err != nil {
		return nil, err
	}

	cfg.Cookie, err = loadCookieConfig(production, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings every command touching the database needs.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("%s must be postgres or sqlite3, got %q", EnvDatabaseDriver, c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s environment variable not set", EnvDatabaseURL)
	}
	if c.BcryptCost < 10 || c.BcryptCost > 31 {
		return fmt.Errorf("%s must be between 10 and 31", EnvBcryptCost)
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return fmt.Errorf("%s=none requires secure cookies (set %s=production)", EnvCookieSameSite, EnvAppEnv)
	}
	return nil
}

// ValidateServe adds the checks only the HTTP server needs.
func (c *Config) ValidateServe() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("%s environment variable not set", EnvJWTSecret)
	}
	if c.ProvisioningAPIKey == "" && c.PingRequireAPIKey {
		return fmt.Errorf("%s environment variable not set (required while %s=true)", EnvProvisioningAPIKey, EnvPingRequireAPIKey)
	}
	return nil
}

func loadCookieConfig(production bool, ttl time.Duration) (CookieConfig, error) {
	// Cross-site dashboards need SameSite=None, which browsers only accept on Secure cookies.
	defaultSameSite := "lax"
	if production {
		defaultSameSite = "none"
	}

	sameSite, err := ParseSameSite(getEnv(EnvCookieSameSite, defaultSameSite))
	if err != nil {
		return CookieConfig{}, err
	}

	return CookieConfig{
		Name:     getEnv(EnvCookieName, DefaultCookieName),
		Domain:   os.Getenv(EnvCookieDomain),
		Path:     getEnv(EnvCookiePath, "/"),
		SameSite: sameSite,
		Secure:   production,
		MaxAge:   ttl,
	}, nil
}

// ParseSameSite maps lax/strict/none to http.SameSite.
func ParseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("%s must be lax, strict or none, got %q", EnvCookieSameSite, v)
	}
}

func isProduction() bool {
	env := os.Getenv(EnvAppEnv)
	if env == "" {
		env = os.Getenv(EnvNodeEnv)
	}
	return strings.EqualFold(env, "production")
}

func defaultLogFormat(production bool) string {
	if production {
		return "json"
	}
	return "console"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimRight(strings.TrimSpace(part), "/")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
