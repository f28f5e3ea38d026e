package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode    string
	Port       string
	Database   DatabaseConfig
	Session    SessionConfig
	Redis      RedisConfig
	Security   SecurityConfig
	Invitation InvitationConfig
	Inventory  InventoryConfig
	Mail       MailConfig
	Logger     LoggerConfig
	Bootstrap  BootstrapConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string // mysql, postgres or sqlite
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	Path     string // sqlite file, ":memory:" allowed
}

// SessionConfig holds session cookie and store configuration
type SessionConfig struct {
	CookieName  string
	Store       string // memory or redis
	IdleTimeout time.Duration
	Secure      bool
	SameSite    string
	Domain      string
}

// RedisConfig holds redis connection settings for the session store
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// SecurityConfig holds login hardening settings
type SecurityConfig struct {
	BcryptCost       int
	LockoutThreshold int
	LockoutDuration  time.Duration
}

// InvitationConfig holds invitation token settings
type InvitationConfig struct {
	Secret  string
	TTL     time.Duration
	BaseURL string
}

// InventoryConfig holds checkout and reminder policy
type InventoryConfig struct {
	DefaultLoanDays  int
	DefaultMinStock  int
	ReminderCooldown time.Duration
	ReminderCron     string
	ExpiryCron       string
}

// MailConfig holds SMTP settings. An empty Host logs notifications instead of sending them.
type MailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// LoggerConfig holds zap and log rotation settings
type LoggerConfig struct {
	Level      string
	Format     string // json or console
	Output     string // stdout or file
	FilePath   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// BootstrapConfig is the first admin account created by the seeder
type BootstrapConfig struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	cfg := &Config{
		AppMode:    appMode,
		Port:       getEnv("PORT", "3000"),
		Database:   loadDatabaseConfig(appMode),
		Session:    loadSessionConfig(appMode),
		Redis:      loadRedisConfig(appMode),
		Security:   loadSecurityConfig(),
		Invitation: loadInvitationConfig(appMode),
		Inventory:  loadInventoryConfig(),
		Mail:       loadMailConfig(),
		Logger:     loadLoggerConfig(appMode),
		Bootstrap: BootstrapConfig{
			AdminUsername: getEnv("BOOTSTRAP_ADMIN_USERNAME", "admin"),
			AdminEmail:    getEnv("BOOTSTRAP_ADMIN_EMAIL", "admin@intranet.local"),
			AdminPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid DB_DRIVER: '%s'", c.Database.Driver)
	}
	switch c.Session.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid SESSION_STORE: '%s'", c.Session.Store)
	}
	if c.IsProd() && c.Invitation.Secret == defaultInviteSecret {
		return fmt.Errorf("PROD_INVITE_SECRET must be set in production")
	}
	return nil
}

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)

	return DatabaseConfig{
		Driver:   getEnv(prefix+"DB_DRIVER", "mysql"),
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "intranet"),
		Path:     getEnv(prefix+"DB_PATH", "intranet.db"),
	}
}

func loadSessionConfig(mode string) SessionConfig {
	prefix := modePrefix(mode)
	secure, _ := strconv.ParseBool(getEnv(prefix+"COOKIE_SECURE", "false"))

	return SessionConfig{
		CookieName:  getEnv("SESSION_COOKIE", "intranet_session"),
		Store:       getEnv(prefix+"SESSION_STORE", "memory"),
		IdleTimeout: getDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		Secure:      secure,
		SameSite:    getEnv("COOKIE_SAMESITE", "Lax"),
		Domain:      getEnv("COOKIE_DOMAIN", ""),
	}
}

func loadRedisConfig(mode string) RedisConfig {
	prefix := modePrefix(mode)

	return RedisConfig{
		Addr:     getEnv(prefix+"REDIS_ADDR", "localhost:6379"),
		Password: getEnv(prefix+"REDIS_PASS", ""),
		DB:       getInt(prefix+"REDIS_DB", 0),
		Prefix:   getEnv("REDIS_SESSION_PREFIX", "session:"),
	}
}

func loadSecurityConfig() SecurityConfig {
	return SecurityConfig{
		BcryptCost:       getInt("BCRYPT_COST", 12),
		LockoutThreshold: getInt("LOCKOUT_THRESHOLD", 5),
		LockoutDuration:  getDuration("LOCKOUT_DURATION", 15*time.Minute),
	}
}

const defaultInviteSecret = "default_invite_secret"

func loadInvitationConfig(mode string) InvitationConfig {
	prefix := modePrefix(mode)

	return InvitationConfig{
		Secret:  getEnv(prefix+"INVITE_SECRET", defaultInviteSecret),
		TTL:     getDuration("INVITE_TTL", 7*24*time.Hour),
		BaseURL: getEnv("INVITE_BASE_URL", "http://localhost:3000/register"),
	}
}

func loadInventoryConfig() InventoryConfig {
	return InventoryConfig{
		DefaultLoanDays:  getInt("INVENTORY_LOAN_DAYS", 14),
		DefaultMinStock:  getInt("INVENTORY_DEFAULT_MIN_STOCK", 1),
		ReminderCooldown: getDuration("REMINDER_COOLDOWN", 72*time.Hour),
		ReminderCron:     getEnv("REMINDER_CRON", "30 8 * * *"),
		ExpiryCron:       getEnv("INVITE_EXPIRY_CRON", "0 * * * *"),
	}
}

func loadMailConfig() MailConfig {
	return MailConfig{
		Host:     getEnv("SMTP_HOST", ""),
		Port:     getInt("SMTP_PORT", 587),
		User:     getEnv("SMTP_USER", ""),
		Password: getEnv("SMTP_PASS", ""),
		From:     getEnv("MAIL_FROM", "intranet@localhost"),
	}
}

func loadLoggerConfig(mode string) LoggerConfig {
	format := "json"
	level := "info"
	if mode == "dev" {
		format = "console"
		level = "debug"
	}
	compress, _ := strconv.ParseBool(getEnv("LOG_COMPRESS", "true"))

	return LoggerConfig{
		Level:      getEnv("LOG_LEVEL", level),
		Format:     getEnv("LOG_FORMAT", format),
		Output:     getEnv("LOG_OUTPUT", "stdout"),
		FilePath:   getEnv("LOG_FILE", "logs/intranet.log"),
		MaxSize:    getInt("LOG_MAX_SIZE_MB", 100),
		MaxBackups: getInt("LOG_MAX_BACKUPS", 5),
		MaxAge:     getInt("LOG_MAX_AGE_DAYS", 30),
		Compress:   compress,
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// getDuration accepts Go durations such as "30m" or "72h"
func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://intranet.example.org"
	}
	return origins
}
