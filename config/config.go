package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// AppConfig holds environment driven configuration values.
// Secrets (bot token, JWT secret, DB password) never have defaults inside code and must be provided via
// the config file or the environment.
type AppConfig struct {
	AppPort            string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Telegram
	TelegramBotToken string
	WebhookURL       string
	WebhookSecret    string
	AdminIDs         []int64
	DefaultLang      string
	// Quota and delivery
	DailyLimit        int
	FileDailyLimit    int
	MaxFileSizeMB     int
	AutoDeleteSeconds int
	BroadcastDelayMs  int
	TrendingLimit     int
	CategoryPageSize  int
	HeartbeatSpec     string
	// Share links
	ShareTTLDays   int
	ShareSweepSpec string
	// Database
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for caching and admin sessions; empty host disables it
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Admin HTTP API
	JWTSecret         string
	AdminPasswordHash string
}

var cfg AppConfig
var loaded bool

// DefaultPath is where Load looks for the JSON config file.
var DefaultPath = filepath.Join("config", "config.json")

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	return LoadFrom(DefaultPath)
}

// LoadFrom is Load with an explicit JSON file path.
func LoadFrom(path string) AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: JSON file -> defaults -> environment variable overrides
	if err := loadJSONConfig(path, &cfg); err != nil {
		log.Printf("invalid config file %s: %v", path, err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Used by tests and by commands that tweak flags after Load.
func Set(c AppConfig) {
	cfg = c
	loaded = true
}

var (
	ErrMissingBotToken   = errors.New("TELEGRAM_BOT_TOKEN must be set")
	ErrMissingWebhookURL = errors.New("WEBHOOK_URL must be set unless running in polling mode")
)

// Validate checks the settings without which the bot cannot start.
func Validate(c AppConfig, polling bool) error {
	if strings.TrimSpace(c.TelegramBotToken) == "" {
		return ErrMissingBotToken
	}
	if !polling && strings.TrimSpace(c.WebhookURL) == "" {
		return ErrMissingWebhookURL
	}
	return nil
}

// IsAdmin reports whether the Telegram user id is configured as an admin.
func (c AppConfig) IsAdmin(userID int64) bool {
	return lo.Contains(c.AdminIDs, userID)
}

// MaxFileSizeBytes converts MaxFileSizeMB to bytes.
func (c AppConfig) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// AutoDeleteDisabled turns auto-deletion off. Any negative AutoDeleteSeconds does the same.
const AutoDeleteDisabled = -1

// AutoDeleteAfter is how long delivered media stays in the chat. Zero means never delete.
func (c AppConfig) AutoDeleteAfter() time.Duration {
	if c.AutoDeleteSeconds <= 0 {
		return 0
	}
	return time.Duration(c.AutoDeleteSeconds) * time.Second
}

func (c AppConfig) BroadcastInterval() time.Duration {
	return time.Duration(c.BroadcastDelayMs) * time.Millisecond
}

func (c AppConfig) ShareTTL() time.Duration {
	return time.Duration(c.ShareTTLDays) * 24 * time.Hour
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads grouped sections into out if the file exists. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			case json.Number:
				i, _ := t.Int64()
				return int(i)
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}
	getInt64Slice := func(m map[string]any, key string) []int64 {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]int64, 0, len(arr))
				for _, it := range arr {
					switch t := it.(type) {
					case float64:
						res = append(res, int64(t))
					case string:
						if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
							res = append(res, n)
						}
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		if v := getInt(app, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		if v := getString(g, "Mode"); v != "" {
			out.GinMode = v
		}
		if v := getString(g, "LogPath"); v != "" {
			out.GinPath = v
		}
	}

	if tg, ok := raw["telegram"].(map[string]any); ok {
		out.TelegramBotToken = getString(tg, "BotToken")
		out.WebhookURL = getString(tg, "WebhookURL")
		out.WebhookSecret = getString(tg, "WebhookSecret")
		if v := getString(tg, "DefaultLang"); v != "" {
			out.DefaultLang = v
		}
		if ids := getInt64Slice(tg, "AdminIDs"); len(ids) > 0 {
			out.AdminIDs = ids
		}
	}

	if q, ok := raw["quota"].(map[string]any); ok {
		out.DailyLimit = getInt(q, "DailyLimit")
		out.FileDailyLimit = getInt(q, "FileDailyLimit")
		out.MaxFileSizeMB = getInt(q, "MaxFileSizeMB")
		if _, set := q["AutoDeleteSeconds"]; set {
			// an explicit 0 must survive applyDefaults
			if out.AutoDeleteSeconds = getInt(q, "AutoDeleteSeconds"); out.AutoDeleteSeconds == 0 {
				out.AutoDeleteSeconds = AutoDeleteDisabled
			}
		}
		out.BroadcastDelayMs = getInt(q, "BroadcastDelayMs")
		out.TrendingLimit = getInt(q, "TrendingLimit")
		out.CategoryPageSize = getInt(q, "CategoryPageSize")
		out.HeartbeatSpec = getString(q, "HeartbeatSpec")
	}

	if sh, ok := raw["share"].(map[string]any); ok {
		out.ShareTTLDays = getInt(sh, "TTLDays")
		out.ShareSweepSpec = getString(sh, "SweepSpec")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		if v := getInt(rds, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(rds, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		if v := getString(lg, "Level"); v != "" {
			out.LogLevel = v
		}
		if v := getString(lg, "Path"); v != "" {
			out.LogPath = v
		}
		if v := getString(lg, "GinMode"); v != "" {
			out.GinMode = v
		}
		if v := getString(lg, "GinPath"); v != "" {
			out.GinPath = v
		}
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress = getBool(lg, "Compress")
	}

	if adm, ok := raw["admin"].(map[string]any); ok {
		out.JWTSecret = getString(adm, "JWTSecret")
		out.AdminPasswordHash = getString(adm, "PasswordHash")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8000"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DefaultLang == "" {
		c.DefaultLang = "en"
	}
	if c.DailyLimit == 0 {
		c.DailyLimit = 5
	}
	if c.FileDailyLimit == 0 {
		c.FileDailyLimit = 3
	}
	if c.MaxFileSizeMB == 0 {
		c.MaxFileSizeMB = 50
	}
	if c.AutoDeleteSeconds == 0 {
		c.AutoDeleteSeconds = 300
	}
	if c.BroadcastDelayMs == 0 {
		c.BroadcastDelayMs = 50
	}
	if c.TrendingLimit == 0 {
		c.TrendingLimit = 3
	}
	if c.CategoryPageSize == 0 {
		c.CategoryPageSize = 5
	}
	if c.HeartbeatSpec == "" {
		c.HeartbeatSpec = "@every 1h"
	}
	if c.ShareTTLDays == 0 {
		c.ShareTTLDays = 7
	}
	if c.ShareSweepSpec == "" {
		c.ShareSweepSpec = "@every 6h"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "clipbot"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	// Koyeb and friends inject PORT
	if v := getEnv("PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := getEnv("TELEGRAM_BOT_TOKEN", ""); v != "" {
		c.TelegramBotToken = v
	}
	// legacy name used by older deployments
	if v := getEnv("TELEGRAM_API_TOKEN", ""); v != "" && c.TelegramBotToken == "" {
		c.TelegramBotToken = v
	}
	if v := getEnv("WEBHOOK_URL", ""); v != "" {
		c.WebhookURL = v
	}
	if v := getEnv("WEBHOOK_SECRET", ""); v != "" {
		c.WebhookSecret = v
	}
	if v := getEnv("ADMIN_IDS", ""); v != "" {
		c.AdminIDs = parseIDList(v)
	}
	if v := getEnv("ADMIN_ID", ""); v != "" && len(c.AdminIDs) == 0 {
		c.AdminIDs = parseIDList(v)
	}
	if v := getEnv("DEFAULT_LANG", ""); v != "" {
		c.DefaultLang = v
	}
	if v := getEnv("DAILY_LIMIT", ""); v != "" {
		c.DailyLimit = mustParseInt(v)
	}
	if v := getEnv("FILE_DAILY_LIMIT", ""); v != "" {
		c.FileDailyLimit = mustParseInt(v)
	}
	if v := getEnv("MAX_FILE_SIZE", ""); v != "" {
		c.MaxFileSizeMB = mustParseInt(v)
	}
	if v := getEnv("AUTO_DELETE_SECONDS", ""); v != "" {
		c.AutoDeleteSeconds = mustParseInt(v)
	}
	if v := getEnv("BROADCAST_DELAY_MS", ""); v != "" {
		c.BroadcastDelayMs = mustParseInt(v)
	}
	if v := getEnv("TRENDING_LIMIT", ""); v != "" {
		c.TrendingLimit = mustParseInt(v)
	}
	if v := getEnv("CATEGORY_PAGE_SIZE", ""); v != "" {
		c.CategoryPageSize = mustParseInt(v)
	}
	if v := getEnv("HEARTBEAT_SPEC", ""); v != "" {
		c.HeartbeatSpec = v
	}
	if v := getEnv("SHARE_TTL_DAYS", ""); v != "" {
		c.ShareTTLDays = mustParseInt(v)
	}
	if v := getEnv("SHARE_SWEEP_SPEC", ""); v != "" {
		c.ShareSweepSpec = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("ADMIN_PASSWORD_HASH", ""); v != "" {
		c.AdminPasswordHash = v
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func parseIDList(raw string) []int64 {
	ids := []int64{}
	for _, item := range splitAndTrim(raw) {
		id, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			log.Printf("ignoring invalid admin id %q: %v", item, err)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
