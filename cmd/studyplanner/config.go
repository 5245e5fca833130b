package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/studyplanner/internal/logger"
)

const (
	defaultListenAddr     = "localhost:8000"
	defaultLoggingLevel   = logger.LevelInfo
	defaultEnvironment    = logger.EnvProduction
	defaultTokenTTL       = 2 * time.Minute
	defaultRequestTimeout = 10 * time.Second
	defaultRedisAddr      = "localhost:6379"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultSMTPPort       = 465
	defaultPublicURL      = "http://localhost:8000"
	defaultLoginRate      = 10
)

type Config struct {
	// Default logging level
	LogLevel string

	// Environment (dev, prod). Picks log format
	Environment string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secret key to sign session tokens
	SecretKey string

	// Session token lifetime
	TokenTTL time.Duration

	// Every request is cancelled after the timeout
	RequestTimeout time.Duration

	// Redis keeps issued tokens and logout blacklist
	RedisAddr     string
	RedisUsername string
	RedisPassword string
	RedisDB       int

	// AI assistant endpoints are disabled without the key
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	// Avatar upload is disabled without the bucket
	GCSBucket string

	// Activation links are only logged without the host
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	// Base of links sent to users
	PublicURL string

	// Origins allowed to call the API from browser
	CORSOrigins []string

	// Login requests allowed per minute for one client ip
	LoginRatePerMin int
}

func NewConfig() *Config {
	return &Config{
		LogLevel:        defaultLoggingLevel,
		Environment:     defaultEnvironment,
		ListenAddr:      defaultListenAddr,
		TokenTTL:        defaultTokenTTL,
		RequestTimeout:  defaultRequestTimeout,
		RedisAddr:       defaultRedisAddr,
		OpenAIModel:     defaultOpenAIModel,
		SMTPPort:        defaultSMTPPort,
		PublicURL:       defaultPublicURL,
		LoginRatePerMin: defaultLoginRate,
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
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			v, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = v
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			v, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = v
			return nil
		}
	}
	setList := func(o *[]string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = splitList(value)
			}
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":        setString(&c.ListenAddr),
		"DATABASE_URI":       setString(&c.DatabaseDSN),
		"SECRET_KEY":         setString(&c.SecretKey),
		"LOG_LEVEL":          setString(&c.LogLevel),
		"ENVIRONMENT":        setString(&c.Environment),
		"TOKEN_TTL":          setDuration(&c.TokenTTL),
		"REQUEST_TIMEOUT":    setDuration(&c.RequestTimeout),
		"REDIS_ADDR":         setString(&c.RedisAddr),
		"REDIS_USERNAME":     setString(&c.RedisUsername),
		"REDIS_PASSWORD":     setString(&c.RedisPassword),
		"REDIS_DB":           setInt(&c.RedisDB),
		"OPENAI_API_KEY":     setString(&c.OpenAIKey),
		"OPENAI_MODEL":       setString(&c.OpenAIModel),
		"OPENAI_BASE_URL":    setString(&c.OpenAIBaseURL),
		"GCS_BUCKET":         setString(&c.GCSBucket),
		"SMTP_HOST":          setString(&c.SMTPHost),
		"SMTP_PORT":          setInt(&c.SMTPPort),
		"SMTP_USERNAME":      setString(&c.SMTPUsername),
		"SMTP_PASSWORD":      setString(&c.SMTPPassword),
		"MAIL_FROM":          setString(&c.MailFrom),
		"PUBLIC_URL":         setString(&c.PublicURL),
		"CORS_ORIGINS":       setList(&c.CORSOrigins),
		"LOGIN_RATE_PER_MIN": setInt(&c.LoginRatePerMin),
	}

	var errs []error
	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("studyplanner", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.DurationVar(&c.TokenTTL, "token-ttl", c.TokenTTL, "Session token lifetime")
	fs.DurationVar(&c.RequestTimeout, "request-timeout", c.RequestTimeout, "Request timeout")

	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "Redis address")
	fs.StringVar(&c.RedisUsername, "redis-username", c.RedisUsername, "Redis username")
	fs.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	fs.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")

	fs.StringVar(&c.OpenAIKey, "openai-key", c.OpenAIKey, "OpenAI API key. AI endpoints are disabled if empty")
	fs.StringVar(&c.OpenAIModel, "openai-model", c.OpenAIModel, "OpenAI chat model")
	fs.StringVar(&c.OpenAIBaseURL, "openai-base-url", c.OpenAIBaseURL, "OpenAI compatible API url")

	fs.StringVar(&c.GCSBucket, "gcs-bucket", c.GCSBucket, "Google Cloud Storage bucket for avatars. Upload is disabled if empty")

	fs.StringVar(&c.SMTPHost, "smtp-host", c.SMTPHost, "SMTP host. Activation links are logged if empty")
	fs.IntVar(&c.SMTPPort, "smtp-port", c.SMTPPort, "SMTP port")
	fs.StringVar(&c.SMTPUsername, "smtp-username", c.SMTPUsername, "SMTP username")
	fs.StringVar(&c.SMTPPassword, "smtp-password", c.SMTPPassword, "SMTP password")
	fs.StringVar(&c.MailFrom, "mail-from", c.MailFrom, "Sender address of emails")

	fs.StringVar(&c.PublicURL, "public-url", c.PublicURL, "Public url of the service used in emails")
	fs.StringSliceVar(&c.CORSOrigins, "cors-origins", c.CORSOrigins, "Comma separated origins allowed by CORS")
	fs.IntVar(&c.LoginRatePerMin, "login-rate", c.LoginRatePerMin, "Login requests per minute per client ip")

	return fs.Parse(args)
}

// Validate fails fast on settings the service can't start without
func (c *Config) Validate() error {
	var errs []error

	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token ttl must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.RedisAddr == "" {
		errs = append(errs, errors.New("redis address is required"))
	}
	if c.LoginRatePerMin <= 0 {
		errs = append(errs, errors.New("login rate must be positive"))
	}
	if c.SMTPHost != "" && c.MailFrom == "" {
		errs = append(errs, errors.New("mail from address is required when smtp host set"))
	}

	return errors.Join(errs...)
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
