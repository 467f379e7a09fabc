package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend selects the store/throttle implementation. Resolved once at startup;
// nothing else in the code inspects the environment.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	Backend       Backend
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTPTTL          time.Duration
	OTPExpiredGrace time.Duration // how long an expired record stays readable so "expired" is reportable
	DispatchTimeout time.Duration

	IssuePerIP          ThrottlePolicy
	IssuePerIdentifier  ThrottlePolicy
	VerifyPerIP         ThrottlePolicy
	VerifyPerIdentifier ThrottlePolicy

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	AccountsTable  string

	JWTPublicKeyPath string

	AllowedOrigins []string // CORS allowed origins
}

// ThrottlePolicy bounds one bucket: at most Limit requests per Window, with an
// optional extended Block once refused.
type ThrottlePolicy struct {
	Limit  int
	Window time.Duration
	Block  time.Duration
}

// Load reads all configuration from environment variables.
func Load() *Config {
	backend := BackendMemory
	if os.Getenv("REDIS_ADDR") != "" {
		backend = BackendRedis
	}
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		Backend:       backend,
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTPTTL:          minutes("OTP_TTL_MINUTES", 10),
		OTPExpiredGrace: minutes("OTP_EXPIRED_GRACE_MINUTES", 10),
		DispatchTimeout: seconds("DISPATCH_TIMEOUT_SECONDS", 5),

		IssuePerIP:          policy("OTP_ISSUE_IP", 10, 600, 0),
		IssuePerIdentifier:  policy("OTP_ISSUE_ID", 5, 600, 300),
		VerifyPerIP:         policy("OTP_VERIFY_IP", 30, 600, 0),
		VerifyPerIdentifier: policy("OTP_VERIFY_ID", 10, 600, 300),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPFrom:     getEnv("SMTP_FROM", "no-reply@qwiksale.sale"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion: getEnv("SNS_REGION", "us-east-1"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AccountsTable:  getEnv("DYNAMO_TABLE_ACCOUNTS", ""),

		JWTPublicKeyPath: getEnv("JWT_PUBLIC_KEY_PATH", ""),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// policy reads <prefix>_LIMIT, <prefix>_WINDOW_SECONDS and <prefix>_BLOCK_SECONDS.
func policy(prefix string, limit, windowSec, blockSec int) ThrottlePolicy {
	return ThrottlePolicy{
		Limit:  getEnvInt(prefix+"_LIMIT", limit),
		Window: seconds(prefix+"_WINDOW_SECONDS", windowSec),
		Block:  seconds(prefix+"_BLOCK_SECONDS", blockSec),
	}
}

func minutes(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Minute
}

func seconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Second
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
