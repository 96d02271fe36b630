package netplay

import "time"

// Config controls how the SDK connects.
type Config struct {
	URL         string // websocket endpoint, e.g. wss://play.stagefall.gg/ws
	RESTBaseURL string // optional REST base for the bootstrap config fetch

	ConnectTimeout time.Duration // ceiling for a whole Connect call, dial retries included
	AuthTimeout    time.Duration // ceiling for the authenticate handshake
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	PingInterval time.Duration // round-trip probe cadence; 0 disables probing
	PingTimeout  time.Duration // probes unanswered past this count as lost

	ReconnectInterval    time.Duration // fixed delay between dial attempts
	MaxReconnectAttempts int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:       20 * time.Second,
		AuthTimeout:          10 * time.Second,
		ReadTimeout:          30 * time.Second,
		WriteTimeout:         10 * time.Second,
		PingInterval:         2 * time.Second,
		PingTimeout:          4 * time.Second,
		ReconnectInterval:    1 * time.Second,
		MaxReconnectAttempts: 5,
	}
}
