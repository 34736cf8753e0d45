// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Log          LogConfig          `mapstructure:"log"`
	Bot          BotConfig          `mapstructure:"bot"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Admin        AdminConfig        `mapstructure:"admin"`
	Whitelist    WhitelistConfig    `mapstructure:"whitelist"`
	Gamification GamificationConfig `mapstructure:"gamification"`
	Prayer       PrayerConfig       `mapstructure:"prayer"`
	Weather      WeatherConfig      `mapstructure:"weather"`
	Content      ContentConfig      `mapstructure:"content"`
	Audio        AudioConfig        `mapstructure:"audio"`
	Transcribe   TranscribeConfig   `mapstructure:"transcribe"`
	Mail         MailConfig         `mapstructure:"mail"`
	Queue        QueueConfig        `mapstructure:"queue"`
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	// Timezone decides where calendar days start and end for date keys.
	Timezone string `mapstructure:"timezone"`
	Locale   string `mapstructure:"locale"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string        `mapstructure:"level"`
	File  LogFileConfig `mapstructure:"file"`
}

// LogFileConfig enables rotated JSON log output next to the console writer.
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// HTTPConfig holds the HTTP API configuration.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	JWTSecret       string        `mapstructure:"jwt_secret"`
	JWTIssuer       string        `mapstructure:"jwt_issuer"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds the shared cache connection. An empty Addr disables redis
// and the in-process cache is used instead.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// GamificationConfig holds XP related tunables.
type GamificationConfig struct {
	Milestones       []int64 `mapstructure:"milestones"`
	ClaimBonus       int64   `mapstructure:"claim_bonus"`
	LeaderboardLimit int     `mapstructure:"leaderboard_limit"`
}

// PrayerConfig holds prayer schedule source and cache settings.
type PrayerConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	CachePath       string        `mapstructure:"cache_path"`
	IhtiyatiMinutes int           `mapstructure:"ihtiyati_minutes"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// WeatherConfig holds the weather overlay source.
type WeatherConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BaseURL  string        `mapstructure:"base_url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ContentConfig holds the public content API endpoints.
type ContentConfig struct {
	SurahURL       string        `mapstructure:"surah_url"`
	AsmaulHusnaURL string        `mapstructure:"asmaul_husna_url"`
	DoaURL         string        `mapstructure:"doa_url"`
	NiatWajibURL   string        `mapstructure:"niat_wajib_url"`
	NiatSunnahURL  string        `mapstructure:"niat_sunnah_url"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// AudioConfig holds the recitation source.
type AudioConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TranscribeConfig holds the speech recognition relay configuration.
type TranscribeConfig struct {
	Token    string        `mapstructure:"token"`
	Endpoint string        `mapstructure:"endpoint"`
	Model    string        `mapstructure:"model"`
	MinBytes int           `mapstructure:"min_bytes"`
	MaxBytes int64         `mapstructure:"max_bytes"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// MailConfig holds SMTP settings for version broadcasts.
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	AppURL   string `mapstructure:"app_url"`
}

// QueueConfig holds write-ahead queue settings.
type QueueConfig struct {
	Workers         int           `mapstructure:"workers"`
	Buffer          int           `mapstructure:"buffer"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, DATABASE_HOST, TRANSCRIBE_TOKEN
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.timezone", "Asia/Jakarta")
	v.SetDefault("app.locale", "id")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file.max_size_mb", 50)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 28)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("http.jwt_issuer", "super-muslim-assistant")
	v.SetDefault("http.token_ttl", "720h")
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "assistant")
	v.SetDefault("database.name", "assistant")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("gamification.milestones", []int64{100, 250})
	v.SetDefault("gamification.claim_bonus", 50)
	v.SetDefault("gamification.leaderboard_limit", 50)

	v.SetDefault("prayer.base_url", "https://api.myquran.com/v2")
	v.SetDefault("prayer.cache_path", "prayer-cache.db")
	v.SetDefault("prayer.timeout", "10s")

	v.SetDefault("weather.enabled", true)
	v.SetDefault("weather.base_url", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("weather.cache_ttl", "30m")
	v.SetDefault("weather.timeout", "5s")

	v.SetDefault("content.surah_url", "https://api.alquran.cloud/v1/surah")
	v.SetDefault("content.asmaul_husna_url", "https://islami-api.vercel.app/api/asmaul-husna/all")
	v.SetDefault("content.doa_url", "https://islami-api.vercel.app/api/doa-harian")
	v.SetDefault("content.niat_wajib_url", "https://islami-api.vercel.app/api/niat-sholat-wajib/all")
	v.SetDefault("content.niat_sunnah_url", "https://islami-api.vercel.app/api/niat-sholat-sunnah/all")
	v.SetDefault("content.cache_ttl", "12h")
	v.SetDefault("content.timeout", "10s")

	v.SetDefault("audio.base_url", "https://equran.id/api/v2")
	v.SetDefault("audio.timeout", "10s")

	v.SetDefault("transcribe.endpoint", "https://api-inference.huggingface.co/models")
	v.SetDefault("transcribe.model", "tarteel-ai/whisper-base-ar-quran")
	v.SetDefault("transcribe.min_bytes", 1000)
	v.SetDefault("transcribe.max_bytes", 25<<20)
	v.SetDefault("transcribe.timeout", "60s")

	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from", "Admin Cool <admin@supermuslim.com>")
	v.SetDefault("mail.app_url", "https://supermuslim.app")

	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.buffer", 1024)
	v.SetDefault("queue.initial_interval", "500ms")
	v.SetDefault("queue.max_interval", "30s")
	v.SetDefault("queue.max_elapsed_time", "5m")
}

// Location returns the time zone used for calendar-day boundaries.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", c.App.Timezone, err)
	}
	return loc, nil
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
