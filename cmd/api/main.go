package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/qwiksale/verify-api/internal/application/otp"
	"github.com/qwiksale/verify-api/internal/config"
	"github.com/qwiksale/verify-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/qwiksale/verify-api/internal/infrastructure/jwt"
	"github.com/qwiksale/verify-api/internal/infrastructure/otpstore"
	"github.com/qwiksale/verify-api/internal/infrastructure/smtp"
	"github.com/qwiksale/verify-api/internal/infrastructure/sns"
	"github.com/qwiksale/verify-api/internal/infrastructure/throttle"
	transporthttp "github.com/qwiksale/verify-api/internal/transport/http"
	"github.com/qwiksale/verify-api/internal/transport/http/handler"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	production := cfg.AppEnv == "production"

	// Store and throttle backend.
	var (
		store  otpstore.Store
		thr    throttle.Throttle
		pinger handler.Pinger
	)
	switch cfg.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		redisStore := otpstore.NewRedisStore(rdb, cfg.OTPExpiredGrace)
		store = redisStore
		pinger = redisStore
		thr = throttle.NewRedisThrottle(rdb)
		log.Printf("Using Redis backend at %s", cfg.RedisAddr)
	default:
		if production {
			log.Fatal("in-memory backend is single-instance only; set REDIS_ADDR in production")
		}
		store = otpstore.NewMemoryStore(5 * time.Minute)
		thr = throttle.NewMemoryThrottle()
		log.Println("Using in-memory backend (single instance only, codes lost on restart)")
	}

	// Delivery channels, with log-only fallbacks outside production.
	var mailer smtp.Mailer
	if cfg.SMTPHost != "" {
		mailer = smtp.NewMailer(cfg)
	} else if production {
		log.Fatal("SMTP_HOST is required in production")
	} else {
		mailer = smtp.NewLogMailer()
	}

	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else if production {
		log.Fatalf("SNS sender not available: %v", err)
	} else {
		log.Printf("WARN: SNS sender not available, logging SMS instead: %v", err)
		smsSender = sns.NewLogSender()
	}

	// Account confirmation (optional downstream collaborator).
	var accounts otp.AccountConfirmer
	if cfg.AccountsTable != "" {
		dynamoClient := dynamo.NewClient(cfg)
		dynamo.Bootstrap(context.Background(), dynamoClient, cfg.AccountsTable)
		accounts = dynamo.NewAccountRepo(dynamoClient, cfg.AccountsTable)
	} else {
		log.Println("DYNAMO_TABLE_ACCOUNTS not set, skipping account confirmation updates")
	}

	// JWT provider is optional; requests simply carry no claims without it.
	var jwtProvider *jwtinfra.Provider
	if cfg.JWTPublicKeyPath != "" {
		if p, err := jwtinfra.NewProvider(cfg); err == nil {
			jwtProvider = p
		} else {
			log.Printf("WARN: JWT provider not available: %v", err)
		}
	}

	otpSvc := otp.NewService(store, thr, mailer, smsSender, accounts, otp.Config{
		TTL:                 cfg.OTPTTL,
		DispatchTimeout:     cfg.DispatchTimeout,
		IssuePerIP:          toPolicy(cfg.IssuePerIP),
		IssuePerIdentifier:  toPolicy(cfg.IssuePerIdentifier),
		VerifyPerIP:         toPolicy(cfg.VerifyPerIP),
		VerifyPerIdentifier: toPolicy(cfg.VerifyPerIdentifier),
	})

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		OTPService:  otpSvc,
		JWTProvider: jwtProvider,
		Backend:     pinger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

func toPolicy(p config.ThrottlePolicy) throttle.Policy {
	return throttle.Policy{Limit: p.Limit, Window: p.Window, Block: p.Block}
}
