package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/akarpov/contactsbook/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultRedisAddr    = "localhost:6379"
	defaultSMTPPort     = 587
)

type Config struct {
	// Default logging level
	LogLevel string

	// Environment
	Environment string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Redis backing the session cache and the rate limiter
	RedisAddr     string
	RedisPassword string

	// Secret key used to sign tokens
	SecretKey string

	// Token MAC algorithm (HS256 or HS512)
	TokenAlg string

	// Token lifetimes, zero means service defaults
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	EmailTTL   time.Duration

	// Session cache entry lifetime
	CacheTTL time.Duration

	// Requests allowed per client per window
	RateCeiling int
	RateSlot    time.Duration

	// Outgoing mail
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	// Avatar object storage
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3PublicBaseURL string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:    defaultLoggingLevel,
		Environment: defaultEnvironment,
		ListenAddr:  defaultListenAddr,
		RedisAddr:   defaultRedisAddr,
		SMTPPort:    defaultSMTPPort,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setInt := func(o *int) func(value string) {
		return func(value string) {
			if parsed, err := strconv.Atoi(value); err == nil {
				*o = parsed
			}
		}
	}
	setDuration := func(o *time.Duration) func(value string) {
		return func(value string) {
			if parsed, err := time.ParseDuration(value); err == nil {
				*o = parsed
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":        setString(&c.ListenAddr),
		"DATABASE_URI":       setString(&c.DatabaseDSN),
		"REDIS_ADDR":         setString(&c.RedisAddr),
		"REDIS_PASSWORD":     setString(&c.RedisPassword),
		"SECRET_KEY":         setString(&c.SecretKey),
		"TOKEN_ALG":          setString(&c.TokenAlg),
		"ACCESS_TOKEN_TTL":   setDuration(&c.AccessTTL),
		"REFRESH_TOKEN_TTL":  setDuration(&c.RefreshTTL),
		"EMAIL_TOKEN_TTL":    setDuration(&c.EmailTTL),
		"CACHE_TTL":          setDuration(&c.CacheTTL),
		"RATE_CEILING":       setInt(&c.RateCeiling),
		"RATE_SLOT":          setDuration(&c.RateSlot),
		"SMTP_HOST":          setString(&c.SMTPHost),
		"SMTP_PORT":          setInt(&c.SMTPPort),
		"SMTP_USERNAME":      setString(&c.SMTPUsername),
		"SMTP_PASSWORD":      setString(&c.SMTPPassword),
		"MAIL_FROM":          setString(&c.MailFrom),
		"S3_BUCKET":          setString(&c.S3Bucket),
		"S3_REGION":          setString(&c.S3Region),
		"S3_ENDPOINT":        setString(&c.S3Endpoint),
		"S3_ACCESS_KEY":      setString(&c.S3AccessKey),
		"S3_SECRET_KEY":      setString(&c.S3SecretKey),
		"S3_PUBLIC_BASE_URL": setString(&c.S3PublicBaseURL),
		"LOG_LEVEL":          setString(&c.LogLevel),
		"ENVIRONMENT":        setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("contactsbook", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.RedisAddr, "redis", "r", c.RedisAddr, "Redis address")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}
