package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/stake-plus/giveaways/src/data"
	"gorm.io/gorm"
)

// GiveawayConfig holds the worker configuration.
type GiveawayConfig struct {
	Base
	ManagerRoleID string
	TickInterval  time.Duration
	CacheTTL      time.Duration
	LeaseTTL      time.Duration
	ScanLimit     int
	Enabled       bool
}

// LoadGiveawayConfig loads the giveaway worker configuration.
func LoadGiveawayConfig(db *gorm.DB, e Env) GiveawayConfig {
	base := LoadBase(db, e)

	tick := getDurationSetting("giveaway_tick_interval", e.TickInterval)
	if tick <= 0 {
		tick = 5 * time.Second
	}
	scanLimit := getIntSetting("giveaway_scan_limit", e.ScanLimit)
	if scanLimit <= 0 {
		scanLimit = 100
	}

	return GiveawayConfig{
		Base:          base,
		ManagerRoleID: GetSetting("giveaway_manager_role_id", e.ManagerRoleID, ""),
		TickInterval:  tick,
		CacheTTL:      getDurationSetting("giveaway_cache_ttl", e.CacheTTL),
		LeaseTTL:      getDurationSetting("giveaway_lease_ttl", e.LeaseTTL),
		ScanLimit:     scanLimit,
		Enabled:       getBoolSetting("enable_giveaways", e.Enabled, true),
	}
}

// APIConfig holds the dashboard API configuration.
type APIConfig struct {
	Base
	Port              string
	JWTSecret         string
	TokenTTL          time.Duration
	AdminUser         string
	AdminPasswordHash string
	AllowedOrigins    []string
	RateLimit         float64
	RateBurst         int
	TLSCertFile       string
	TLSKeyFile        string
}

// LoadAPIConfig loads the dashboard API configuration.
func LoadAPIConfig(db *gorm.DB, e Env) APIConfig {
	base := LoadBase(db, e)

	origins := splitList(strings.Join(e.AllowedOrigins, ","))
	if v := data.GetSetting("cors_origins"); v != "" {
		origins = splitList(v)
	}

	rate := e.RateLimit
	if v := data.GetSetting("api_rate_limit"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			rate = f
		}
	}

	return APIConfig{
		Base:              base,
		Port:              GetSetting("api_port", e.Port, "8080"),
		JWTSecret:         GetSetting("jwt_secret", e.JWTSecret, ""),
		TokenTTL:          getDurationSetting("jwt_ttl", e.TokenTTL),
		AdminUser:         GetSetting("dashboard_admin_user", e.AdminUser, "admin"),
		AdminPasswordHash: GetSetting("dashboard_admin_hash", e.AdminPasswordHash, ""),
		AllowedOrigins:    origins,
		RateLimit:         rate,
		RateBurst:         getIntSetting("api_rate_burst", e.RateBurst),
		TLSCertFile:       GetSetting("tls_cert_file", e.TLSCertFile, ""),
		TLSKeyFile:        GetSetting("tls_key_file", e.TLSKeyFile, ""),
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
