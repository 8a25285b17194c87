package config

import "time"

// Default retry settings for transcript retrieval. The provider finalizes
// transcripts asynchronously after call end, so the service polls with a
// fixed interval until the transcript shows up or the budget runs out.
const (
	DefaultMaxRetries      = 5
	DefaultRetryDelay      = 15 * time.Second
	DefaultProviderTimeout = 30 * time.Second
)

// Transport names accepted in the EMAIL_TRANSPORTS list.
const (
	TransportAPI  = "api"
	TransportSMTP = "smtp"
)

// CalloutConfig holds the full service configuration, loaded from the
// environment in cmd/server.
type CalloutConfig struct {
	Port string

	// Voice provider configuration
	ProviderBaseURL string
	ProviderAPIKey  string
	ProviderAgentID string
	FromNumber      string
	CountryCode     string

	// Transcript retrieval configuration
	MaxRetries      int
	RetryDelay      time.Duration
	ProviderTimeout time.Duration

	// Email delivery configuration. Transports lists transport names in
	// preference order; the first entry is the primary channel.
	Transports []string

	EmailAPIBaseURL   string
	EmailAPIKey       string
	EmailAPIFromName  string
	EmailAPIFromEmail string

	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPFromEmail string

	// Optional Redis for cross-instance webhook deduplication
	RedisHost     string
	RedisPort     string
	RedisPassword string

	EnableCORS bool

	// Instance identifier for multi-pod monitoring
	InstanceID string
}
