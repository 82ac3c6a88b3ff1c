package config

import (
	"errors"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/pelletier/go-toml"

	"github.com/sig-0/vesmonitor/provider/ves"
	"github.com/sig-0/vesmonitor/rates"
)

const (
	DefaultListenAddress = "0.0.0.0:8545"

	// DefaultRefreshPerMinute is the number of manual refreshes allowed per minute
	DefaultRefreshPerMinute = 6

	// DefaultInterval is the default period between refreshes, in seconds
	DefaultInterval = 30
)

var (
	ErrInvalidListenAddress = errors.New("invalid listen address")
	ErrInvalidInterval      = errors.New("invalid refresh interval")
	ErrInvalidSnapshotKey   = errors.New("invalid snapshot key")
	ErrInvalidTimeout       = errors.New("invalid source timeout")
	ErrMissingSourceURL     = errors.New("missing source URL")
	ErrInvalidRelay         = errors.New("invalid P2P relay template")
	ErrInvalidRefreshLimit  = errors.New("invalid refresh limit")
	ErrMissingChat          = errors.New("missing notification chat")
)

var listenAddressRegex = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}:\d+$`)

// Config defines the base-level service configuration
type Config struct {
	// The associated CORS config, if any
	CORSConfig *CORS `toml:"cors_config"`

	// The address at which the server will be served.
	// Format should be: <IP>:<PORT>
	ListenAddress string `toml:"listen_address"`

	// The refresh schedule and snapshot persistence
	Monitor Monitor `toml:"monitor"`

	// The upstream rate sources
	Sources Sources `toml:"sources"`

	// Official rate change notifications
	Notify Notify `toml:"notify"`

	// The number of manual refreshes allowed per minute.
	// Zero disables the limit
	RefreshPerMinute int `toml:"refresh_per_minute"`
}

// Monitor is the refresh scheduler configuration
type Monitor struct {
	// The period between refreshes, in seconds
	Interval int64 `toml:"interval"`

	// The key the snapshot is persisted under
	SnapshotKey string `toml:"snapshot_key"`
}

// Endpoint is a single upstream source
type Endpoint struct {
	URL string `toml:"url"`

	// The request timeout, in seconds
	Timeout int64 `toml:"timeout"`
}

// Sources is the upstream source configuration.
// A source with an empty URL is disabled, except the P2P aggregator
type Sources struct {
	P2P Endpoint `toml:"p2p"`

	// The CORS relay templates tried after the direct request.
	// Every template contains a single %s for the escaped URL
	P2PRelays []string `toml:"p2p_relays"`

	Official       Endpoint `toml:"official"`
	OfficialAPIKey string   `toml:"official_api_key"`

	Fallback  Endpoint `toml:"fallback"`
	CrossRate Endpoint `toml:"cross_rate"`
	BCV       Endpoint `toml:"bcv"`
}

// Notify is the notification configuration
type Notify struct {
	Enabled bool `toml:"enabled"`

	// The Telegram chat receiving the notifications
	TelegramChat int64 `toml:"telegram_chat"`

	// The Telegram Bot API URL, if not the public one
	TelegramAPIURL string `toml:"telegram_api_url"`
}

// DefaultConfig returns the default service configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddress: DefaultListenAddress,
		CORSConfig:    DefaultCORSConfig(),
		Monitor: Monitor{
			Interval:    DefaultInterval,
			SnapshotKey: rates.SnapshotKey,
		},
		Sources: Sources{
			P2P: Endpoint{
				URL:     ves.DefaultP2PURL,
				Timeout: int64(ves.DefaultP2PTimeout / time.Second),
			},
			P2PRelays: append([]string(nil), ves.DefaultP2PRelays...),
			Official: Endpoint{
				Timeout: int64(ves.DefaultOfficialTimeout / time.Second),
			},
			Fallback: Endpoint{
				URL:     ves.DefaultFallbackURL,
				Timeout: int64(ves.DefaultFallbackTimeout / time.Second),
			},
			CrossRate: Endpoint{
				URL:     ves.DefaultCrossRateURL,
				Timeout: int64(ves.DefaultCrossRateTimeout / time.Second),
			},
			BCV: Endpoint{
				URL:     ves.DefaultBCVURL,
				Timeout: int64(ves.DefaultBCVTimeout / time.Second),
			},
		},
		RefreshPerMinute: DefaultRefreshPerMinute,
	}
}

// ValidateConfig validates the service configuration
func ValidateConfig(config *Config) error {
	// Validate the listen address
	if !listenAddressRegex.MatchString(config.ListenAddress) {
		return ErrInvalidListenAddress
	}

	// Validate the schedule
	if config.Monitor.Interval <= 0 {
		return ErrInvalidInterval
	}

	if strings.TrimSpace(config.Monitor.SnapshotKey) == "" {
		return ErrInvalidSnapshotKey
	}

	// Validate the sources
	if strings.TrimSpace(config.Sources.P2P.URL) == "" {
		return ErrMissingSourceURL
	}

	endpoints := []Endpoint{
		config.Sources.P2P,
		config.Sources.Official,
		config.Sources.Fallback,
		config.Sources.CrossRate,
		config.Sources.BCV,
	}

	for _, e := range endpoints {
		if e.Timeout < 0 {
			return ErrInvalidTimeout
		}
	}

	for _, relay := range config.Sources.P2PRelays {
		if strings.Count(relay, "%s") != 1 {
			return ErrInvalidRelay
		}
	}

	if config.RefreshPerMinute < 0 {
		return ErrInvalidRefreshLimit
	}

	// Validate the notifications
	if config.Notify.Enabled && config.Notify.TelegramChat == 0 {
		return ErrMissingChat
	}

	return nil
}

// Read reads the configuration from the given path.
// Missing fields keep their default values
func Read(path string) (*Config, error) {
	// Read the config file
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Parse it
	cfg := DefaultConfig()

	if err := toml.Unmarshal(content, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
