package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	Configuration struct {
		Port                string `envconfig:"PORT" default:"8080"`
		RateLimitPerSecond  int    `envconfig:"RATE_LIMIT_PER_SECOND" default:"20"`
		RateLimitBurstLimit int    `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"40"`
		APIKey              string `envconfig:"API_KEY" default:""`
		APIKeyRequired      bool   `envconfig:"API_KEY_REQUIRED" default:"false"`
		AllowedOrigins      string `envconfig:"ALLOWED_ORIGINS" default:"*"`

		// Read tier covers polling endpoints such as /highlight
		ReadRateLimitPerSecond int `envconfig:"READ_RATE_LIMIT_PER_SECOND" default:"50"`
		ReadRateLimitBurst     int `envconfig:"READ_RATE_LIMIT_BURST" default:"100"`
	}

	Providers struct {
		LRCHubBaseURL    string `envconfig:"LRCHUB_BASE_URL" default:"https://lrchub.coreone.work"`
		LrcLibBaseURL    string `envconfig:"LRCLIB_BASE_URL" default:"https://lrclib.net"`
		GitHubRawBaseURL string `envconfig:"GITHUB_RAW_BASE_URL" default:"https://raw.githubusercontent.com/LRCHub"`
		KugouLyricsURL   string `envconfig:"KUGOU_LYRICS_URL" default:"https://krcs.kugou.com"`
		KugouSearchURL   string `envconfig:"KUGOU_SEARCH_URL" default:"http://msearchcdn.kugou.com"`
		// Matches scoring below this (0-1) are rejected
		KugouMinScore float64 `envconfig:"KUGOU_MIN_SCORE" default:"0.4"`
		// Comma separated, primary first
		Order          string `envconfig:"PROVIDER_ORDER" default:"lrchub,lrclib,github"`
		TimeoutSecs    int    `envconfig:"PROVIDER_TIMEOUT_SECS" default:"90"`
		UserAgent      string `envconfig:"PROVIDER_USER_AGENT" default:"lyrics-sync-go/1.0"`
		GitHubIsBackup bool   `envconfig:"GITHUB_IS_BACKUP" default:"true"`
	}

	Translation struct {
		Enabled          bool    `envconfig:"USE_TRANSLATION" default:"true"`
		DeepLAPIKey      string  `envconfig:"DEEPL_API_KEY" default:""`
		DeepLBaseURL     string  `envconfig:"DEEPL_BASE_URL" default:""` // empty picks free or pro endpoint from the key
		MainLang         string  `envconfig:"MAIN_LANG" default:"original"`
		SubLang          string  `envconfig:"SUB_LANG" default:""`
		RatePerSecond    float64 `envconfig:"TRANSLATE_RATE_PER_SECOND" default:"2"`
		RateBurst        int     `envconfig:"TRANSLATE_RATE_BURST" default:"4"`
		RegisterMachined bool    `envconfig:"REGISTER_MACHINE_TRANSLATIONS" default:"true"`
	}

	Sync struct {
		AlignToleranceSecs   float64 `envconfig:"ALIGN_TOLERANCE_SECS" default:"0.15"`
		InterludeGapSecs     float64 `envconfig:"INTERLUDE_GAP_SECS" default:"10"`
		InterludeElapsedSecs float64 `envconfig:"INTERLUDE_ELAPSED_SECS" default:"6"`
		CandidateSettleSecs  int     `envconfig:"CANDIDATE_SETTLE_SECS" default:"10"`
	}

	Cache struct {
		Backend               string `envconfig:"CACHE_BACKEND" default:"bolt"` // bolt or redis
		Path                  string `envconfig:"CACHE_PATH" default:"./cache.db"`
		BackupPath            string `envconfig:"CACHE_BACKUP_PATH" default:"./backups"`
		StatsPath             string `envconfig:"STATS_PATH" default:"./stats.db"`
		RedisURL              string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
		RedisPrefix           string `envconfig:"REDIS_PREFIX" default:"lyrics:"`
		NegativeCacheTTLHours int    `envconfig:"NEGATIVE_CACHE_TTL_HOURS" default:"24"` // TTL for "no lyrics found" entries
	}

	CircuitBreaker struct {
		Threshold    int `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"5"`      // Consecutive failures before circuit opens
		CooldownSecs int `envconfig:"CIRCUIT_BREAKER_COOLDOWN_SECS" default:"300"` // Seconds to wait before retrying
	}

	Notifications struct {
		NtfyTopic         string `envconfig:"NTFY_TOPIC" default:""`
		NtfyServer        string `envconfig:"NTFY_SERVER" default:"https://ntfy.sh"`
		TelegramBotToken  string `envconfig:"TELEGRAM_BOT_TOKEN" default:""`
		TelegramChatID    string `envconfig:"TELEGRAM_CHAT_ID" default:""`
		SMTPHost          string `envconfig:"SMTP_HOST" default:""`
		SMTPPort          string `envconfig:"SMTP_PORT" default:"587"`
		SMTPUsername      string `envconfig:"SMTP_USERNAME" default:""`
		SMTPPassword      string `envconfig:"SMTP_PASSWORD" default:""`
		EmailFrom         string `envconfig:"NOTIFIER_EMAIL_FROM" default:""`
		EmailTo           string `envconfig:"NOTIFIER_EMAIL_TO" default:""`
		AlertCooldownMins int    `envconfig:"ALERT_COOLDOWN_MINS" default:"30"`
		MinSeverity       string `envconfig:"ALERT_MIN_SEVERITY" default:"warning"`
		RecentEvents      int    `envconfig:"RECENT_EVENTS" default:"100"` // events kept for /events
	}

	Logging struct {
		Level      string `envconfig:"LOG_LEVEL" default:"info"`
		Format     string `envconfig:"LOG_FORMAT" default:"json"`
		File       string `envconfig:"LOG_FILE" default:""`
		MaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"50"`
		MaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"3"`
		MaxAgeDays int    `envconfig:"LOG_MAX_AGE_DAYS" default:"14"`
	}

	FeatureFlags struct {
		CacheCompression bool `envconfig:"FF_CACHE_COMPRESSION" default:"true"`
		// Skip providers entirely and answer from cache only
		CacheOnlyMode bool `envconfig:"FF_CACHE_ONLY_MODE" default:"false"`
	}
}

// ProviderOrder returns the configured provider names, primary first.
func (c Config) ProviderOrder() []string {
	var names []string
	for _, name := range strings.Split(c.Providers.Order, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ProviderTimeout is the deadline applied to each provider attempt.
func (c Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Providers.TimeoutSecs) * time.Second
}

// CandidateSettleDelay is the wait between a selection and the canonical reload.
func (c Config) CandidateSettleDelay() time.Duration {
	return time.Duration(c.Sync.CandidateSettleSecs) * time.Second
}

// NegativeCacheTTL is how long a "no lyrics" result is trusted.
func (c Config) NegativeCacheTTL() time.Duration {
	return time.Duration(c.Cache.NegativeCacheTTLHours) * time.Hour
}

// AlertCooldown is the minimum gap between two alerts of the same type.
func (c Config) AlertCooldown() time.Duration {
	return time.Duration(c.Notifications.AlertCooldownMins) * time.Minute
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Warnf("Error loading env config: %v", err)
	}

	cfg := Config{}
	err = envconfig.Process("", &cfg)
	return cfg, err
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}

	return c
}

func Get() Config {
	return conf
}
