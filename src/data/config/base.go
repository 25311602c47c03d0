package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stake-plus/giveaways/src/data"
	"gorm.io/gorm"
)

// Env holds the values read from the process environment. Database settings
// take precedence over these when both are present.
type Env struct {
	Token    string `env:"DISCORD_TOKEN"`
	GuildID  string `env:"GUILD_ID"`
	MySQLDSN string `env:"MYSQL_DSN"`
	RedisURL string `env:"REDIS_URL"`

	ManagerRoleID string        `env:"GIVEAWAY_MANAGER_ROLE_ID"`
	TickInterval  time.Duration `env:"GIVEAWAY_TICK_INTERVAL" envDefault:"5s"`
	CacheTTL      time.Duration `env:"GIVEAWAY_CACHE_TTL" envDefault:"5m"`
	LeaseTTL      time.Duration `env:"GIVEAWAY_LEASE_TTL" envDefault:"30s"`
	ScanLimit     int           `env:"GIVEAWAY_SCAN_LIMIT" envDefault:"100"`
	Enabled       string        `env:"ENABLE_GIVEAWAYS"`

	Port              string        `env:"PORT" envDefault:"8080"`
	JWTSecret         string        `env:"JWT_SECRET"`
	TokenTTL          time.Duration `env:"JWT_TTL" envDefault:"1h"`
	AdminUser         string        `env:"DASHBOARD_ADMIN_USER"`
	AdminPasswordHash string        `env:"DASHBOARD_ADMIN_HASH"`
	AllowedOrigins    []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	RateLimit         float64       `env:"API_RATE_LIMIT" envDefault:"5"`
	RateBurst         int           `env:"API_RATE_BURST" envDefault:"20"`
	TLSCertFile       string        `env:"TLS_CERT_FILE"`
	TLSKeyFile        string        `env:"TLS_KEY_FILE"`
}

// LoadEnv parses the process environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("config: parse env: %w", err)
	}
	return e, nil
}

// Base contains common configuration fields
type Base struct {
	Token    string
	GuildID  string
	MySQLDSN string
	RedisURL string
}

// LoadBase loads common configuration (discord token, guild ID, MySQL DSN, Redis URL)
func LoadBase(db *gorm.DB, e Env) Base {
	if db != nil {
		if err := data.LoadSettings(db); err != nil {
			log.Printf("config: load settings: %v", err)
		}
	}

	return Base{
		Token:    GetSetting("discord_token", e.Token, ""),
		GuildID:  GetSetting("guild_id", e.GuildID, ""),
		MySQLDSN: e.MySQLDSN,
		RedisURL: GetSetting("redis_url", e.RedisURL, ""),
	}
}

// GetSetting retrieves a setting with env fallback
func GetSetting(name, envValue, defaultValue string) string {
	val := data.GetSetting(name)
	if val == "" {
		val = envValue
	}
	if val == "" {
		val = defaultValue
	}
	return val
}

func getBoolSetting(settingKey, envValue string, defaultValue bool) bool {
	if v := data.GetSetting(settingKey); v != "" {
		return parseBoolDefault(v, defaultValue)
	}
	if envValue != "" {
		return parseBoolDefault(envValue, defaultValue)
	}
	return defaultValue
}

func getDurationSetting(settingKey string, envValue time.Duration) time.Duration {
	if v := strings.TrimSpace(data.GetSetting(settingKey)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		log.Printf("config: ignoring invalid duration %q for %s", v, settingKey)
	}
	return envValue
}

func getIntSetting(settingKey string, envValue int) int {
	if v := strings.TrimSpace(data.GetSetting(settingKey)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("config: ignoring invalid integer %q for %s", v, settingKey)
	}
	return envValue
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
