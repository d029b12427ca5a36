package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cozy-blogs/carajillo/internal/api"
	"github.com/cozy-blogs/carajillo/internal/audience"
	"github.com/cozy-blogs/carajillo/internal/captcha"
	"github.com/cozy-blogs/carajillo/internal/config"
	"github.com/cozy-blogs/carajillo/internal/mailer"
	"github.com/cozy-blogs/carajillo/internal/pkg/logger"
	"github.com/cozy-blogs/carajillo/internal/ratelimit"
	"github.com/cozy-blogs/carajillo/internal/subscription"
	"github.com/cozy-blogs/carajillo/internal/token"
)

func main() {
	// Load configuration
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetRedactPII(cfg.Log.RedactEnabled())

	// Bot verification provider
	verifier, err := captcha.New(cfg.Captcha)
	if err != nil {
		log.Fatalf("Failed to initialize captcha provider: %v", err)
	}
	logger.Info("captcha provider ready", "provider", cfg.Captcha.Provider)

	// Token authority, bound to the public host so tokens minted for one
	// deployment never validate on another
	tokens, err := token.New(cfg.Token.Secret, cfg.Public.IssuerHost(), cfg.Token.TTL())
	if err != nil {
		log.Fatalf("Failed to initialize token authority: %v", err)
	}

	// Remote contact store
	store := audience.NewClient(cfg.Audience)

	// Confirmation mailer (SES)
	sender, err := mailer.NewSender(context.Background(), cfg.Mail)
	if err != nil {
		log.Fatalf("Failed to initialize mail sender: %v", err)
	}

	// Subscription reconciler
	service, err := subscription.NewService(verifier, store, sender, tokens,
		cfg.Public.BaseURL, cfg.Subscription.UnsubscribeClearsLists)
	if err != nil {
		log.Fatalf("Failed to initialize subscription service: %v", err)
	}

	// Sign-up rate limiter, only when redis is configured
	var limiter api.RateLimiter
	if cfg.RateLimit.RedisAddr != "" {
		rl := ratelimit.NewLimiter(cfg.RateLimit)
		defer rl.Close()
		limiter = rl
		logger.Info("rate limiter ready", "addr", cfg.RateLimit.RedisAddr,
			"requests", cfg.RateLimit.Requests, "window", cfg.RateLimit.Window().String())
	} else {
		logger.Warn("rate limiter disabled, no redis address configured")
	}

	handlers := api.NewHandlers(service, tokens, limiter, store)
	server := api.NewServer(cfg, handlers)

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
