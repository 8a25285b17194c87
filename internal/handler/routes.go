package handler

import (
	"github.com/gorilla/mux"
	"github.com/voicebridge/callout-service/internal/adapters/email"
	"github.com/voicebridge/callout-service/internal/adapters/voice"
	"github.com/voicebridge/callout-service/internal/config"
	"github.com/voicebridge/callout-service/internal/dedup"
	"github.com/voicebridge/callout-service/internal/registry"
	"github.com/voicebridge/callout-service/internal/services/call"
	"github.com/voicebridge/callout-service/internal/services/delivery"
	"github.com/voicebridge/callout-service/internal/services/transcript"
	"github.com/voicebridge/callout-service/pkg/logger"
	"github.com/voicebridge/callout-service/pkg/redis"
	"go.uber.org/zap"
)

// HandlerManager owns all services and wires their handlers onto the router
type HandlerManager struct {
	config        *config.CalloutConfig
	registry      *registry.CallRegistry
	callService   *call.Service
	transcriptSvc *transcript.Service
	guard         dedup.Guard
}

// NewHandlerManager creates and initializes all services and handlers
func NewHandlerManager(cfg *config.CalloutConfig) (*HandlerManager, error) {
	reg := registry.NewCallRegistry()

	provider := voice.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)

	transports := buildTransports(cfg)
	if len(transports) == 0 {
		logger.Base().Warn("no email transports configured, transcript delivery will always fall through")
	}
	mailer := delivery.NewMailer(transports)

	transcriptSvc := transcript.NewService(provider, mailer, cfg.MaxRetries, cfg.RetryDelay)

	callService := call.NewService(provider, reg, cfg.FromNumber, cfg.ProviderAgentID, cfg.CountryCode)

	// Redis is optional: with it the webhook dedup guard works across
	// instances, without it the registry claim still covers this process.
	var redisSvc redis.RedisServiceInterface
	if cfg.RedisHost != "" {
		svc, err := redis.NewRedisService(&redis.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err != nil {
			logger.Base().Warn("failed to initialize redis service, running without cross-instance dedup", zap.Error(err))
		} else {
			redisSvc = svc
			logger.Base().Info("redis dedup guard initialized")
		}
	}
	guard := dedup.NewGuard(redisSvc)

	return &HandlerManager{
		config:        cfg,
		registry:      reg,
		callService:   callService,
		transcriptSvc: transcriptSvc,
		guard:         guard,
	}, nil
}

// buildTransports assembles the transport list in configured preference order
func buildTransports(cfg *config.CalloutConfig) []email.Transport {
	var transports []email.Transport
	for _, name := range cfg.Transports {
		switch name {
		case config.TransportAPI:
			if cfg.EmailAPIBaseURL == "" || cfg.EmailAPIKey == "" {
				logger.Base().Warn("api transport listed but not configured, skipping")
				continue
			}
			transports = append(transports, email.NewAPITransport(
				cfg.EmailAPIBaseURL,
				cfg.EmailAPIKey,
				cfg.EmailAPIFromName,
				cfg.EmailAPIFromEmail,
			))
		case config.TransportSMTP:
			if cfg.SMTPHost == "" || cfg.SMTPUsername == "" {
				logger.Base().Warn("smtp transport listed but not configured, skipping")
				continue
			}
			transports = append(transports, email.NewSMTPTransport(
				cfg.SMTPHost,
				cfg.SMTPPort,
				cfg.SMTPUsername,
				cfg.SMTPPassword,
				cfg.SMTPFromEmail,
			))
		default:
			logger.Base().Warn("unknown email transport in config, skipping", zap.String("transport", name))
		}
	}
	return transports
}

// SetupAllRoutes sets up all routes with middleware
func (hm *HandlerManager) SetupAllRoutes(router *mux.Router) {
	if hm.config.EnableCORS {
		router.Use(CORSMiddleware)
	}
	router.Use(LoggingMiddleware)

	callHandler := NewCallHandler(hm.callService)
	callHandler.SetupCallRoutes(router)

	statusHandler := NewStatusHandler(hm.registry, hm.transcriptSvc, hm.config.InstanceID)
	statusHandler.SetupStatusRoutes(router)

	// Webhook route registers last: it claims POST / and must not shadow
	// the more specific routes.
	webhookHandler := NewWebhookHandler(hm.registry, hm.transcriptSvc, hm.guard)
	webhookHandler.SetupWebhookRoutes(router)

	logger.Base().Info("all application routes registered")
}

// Shutdown cancels pending transcript retrieval chains
func (hm *HandlerManager) Shutdown() {
	hm.transcriptSvc.Shutdown()
}
