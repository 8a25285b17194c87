package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/voicebridge/callout-service/internal/config"
	"github.com/voicebridge/callout-service/internal/handler"
	"github.com/voicebridge/callout-service/pkg/logger"
	"go.uber.org/zap"
)

// Server represents the call follow-up server
type Server struct {
	config         *config.CalloutConfig
	router         *mux.Router
	handlerManager *handler.HandlerManager
}

// NewServer creates a new call follow-up server
func NewServer(cfg *config.CalloutConfig) *Server {
	if _, err := logger.Init(os.Getenv("LOG_ENV")); err != nil {
		logger.Base().Error("Failed to initialize zap logger, falling back to std log")
	}

	router := mux.NewRouter()

	handlerManager, err := handler.NewHandlerManager(cfg)
	if err != nil {
		logger.Base().Error("Failed to initialize handler manager", zap.Error(err))
		return nil
	}

	handlerManager.SetupAllRoutes(router)

	return &Server{
		config:         cfg,
		router:         router,
		handlerManager: handlerManager,
	}
}

// Start runs the HTTP server until a shutdown signal arrives, then drains
// in-flight requests and cancels pending transcript retrieval chains.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Base().Info("Starting server", zap.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Base().Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Base().Error("Server shutdown error", zap.Error(err))
	}

	s.handlerManager.Shutdown()
	logger.Sync()
	return nil
}

// LoadConfigFromEnv loads the service configuration from environment
func LoadConfigFromEnv() *config.CalloutConfig {
	cfg := &config.CalloutConfig{
		Port: getEnvOrDefault("PORT", "8080"),

		// Voice provider configuration
		ProviderBaseURL: getEnvOrDefault("PROVIDER_BASE_URL", "https://api.retellai.com"),
		ProviderAPIKey:  getEnvOrDefault("PROVIDER_API_KEY", ""),
		ProviderAgentID: getEnvOrDefault("PROVIDER_AGENT_ID", ""),
		FromNumber:      getEnvOrDefault("FROM_NUMBER", ""),
		CountryCode:     getEnvOrDefault("COUNTRY_CODE", "+1"),

		// Transcript retrieval configuration
		MaxRetries:      getEnvAsIntOrDefault("MAX_RETRIES", config.DefaultMaxRetries),
		RetryDelay:      getEnvAsDurationOrDefault("RETRY_DELAY_MS", config.DefaultRetryDelay),
		ProviderTimeout: getEnvAsDurationOrDefault("PROVIDER_TIMEOUT_MS", config.DefaultProviderTimeout),

		// Email delivery configuration
		Transports: splitAndTrimStrings(getEnvOrDefault("EMAIL_TRANSPORTS", "api,smtp"), ","),

		EmailAPIBaseURL:   getEnvOrDefault("EMAIL_API_BASE_URL", ""),
		EmailAPIKey:       getEnvOrDefault("EMAIL_API_KEY", ""),
		EmailAPIFromName:  getEnvOrDefault("EMAIL_API_FROM_NAME", "Call Follow-up"),
		EmailAPIFromEmail: getEnvOrDefault("EMAIL_API_FROM_EMAIL", ""),

		SMTPHost:      getEnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:      getEnvAsIntOrDefault("SMTP_PORT", 587),
		SMTPUsername:  getEnvOrDefault("SMTP_USERNAME", ""),
		SMTPPassword:  getEnvOrDefault("SMTP_PASSWORD", ""),
		SMTPFromEmail: getEnvOrDefault("SMTP_FROM_EMAIL", ""),

		// Optional Redis for cross-instance webhook dedup
		RedisHost:     getEnvOrDefault("REDIS_HOST", ""),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		EnableCORS: getEnvAsBoolOrDefault("ENABLE_CORS", true),

		// Instance identifier for multi-pod monitoring
		InstanceID: getDynamicInstanceID(),
	}

	return cfg
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBoolOrDefault gets environment variable as bool or returns default
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDurationOrDefault reads a millisecond count from the environment
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

// splitAndTrimStrings splits a string by delimiter and trims whitespace from each part
func splitAndTrimStrings(s, delimiter string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, delimiter)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// getDynamicInstanceID generates a unique identifier for this service instance.
// It first tries the system hostname (pod name in K8s), then falls back to a
// timestamp-based ID.
func getDynamicInstanceID() string {
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return fmt.Sprintf("callout-service-%d", time.Now().UnixNano())
}

func main() {
	// Load .env file for local development if it exists.
	// This will not override environment variables set by Helm/Docker.
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: .env file not found or skipped (expected in production): %v", err)
	}

	cfg := LoadConfigFromEnv()

	server := NewServer(cfg)
	if server == nil {
		log.Fatal("Failed to create server")
	}
	logger.Base().Info("Server initialized successfully",
		zap.String("port", cfg.Port),
		zap.String("instance_id", cfg.InstanceID))

	if err := server.Start(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed to start: %v", err)
	}
}
