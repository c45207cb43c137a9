package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/aryanox/ipalchemist/internal/model"
)

// Default configuration values. Where the original tool had a working
// value we keep it; timeouts follow typical public-proxy characteristics.
const (
	// DefaultAPIURL is the proxy-list API queried by the online source.
	// The geonode endpoint returns a JSON envelope with a "data" list.
	DefaultAPIURL = "https://proxylist.geonode.com/api/proxy-list?limit=500&page=1&sort_by=lastChecked&sort_type=desc"

	// DefaultIPCheckURL is the IP-echo endpoint health checks probe
	// through each candidate. It returns the caller's IP as plain text.
	DefaultIPCheckURL = "http://icanhazip.com"

	// DefaultMaxLatencyMs is the latency ceiling for records admitted to
	// the pool. Public proxies slower than 2 seconds are rarely usable.
	DefaultMaxLatencyMs = 2000

	// DefaultMaxHistory caps the rotation history kept in the store.
	DefaultMaxHistory = 50

	// DefaultRotationInterval is the sleep between successful rotations.
	DefaultRotationInterval = 5 * time.Minute

	// DefaultFetchTimeout bounds one request to the proxy-list API.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultCheckTimeout bounds a standalone health check. Selector-driven
	// checks use DefaultSelectorCheckTimeout instead, which is more
	// generous because a false negative there costs a whole candidate.
	DefaultCheckTimeout         = 3 * time.Second
	DefaultSelectorCheckTimeout = 5 * time.Second

	// DefaultMaxAttempts bounds how many candidates one selection tests.
	DefaultMaxAttempts = 15

	// DefaultRelayHost and DefaultRelayPort are the fixed local endpoint
	// downstream clients point at. All interfaces, stable port.
	DefaultRelayHost = "0.0.0.0"
	DefaultRelayPort = 8080

	// DefaultTorControlAddr and DefaultTorSocksAddr are the standard
	// daemon ports. 127.0.0.1 avoids IPv6 resolution surprises.
	DefaultTorControlAddr = "127.0.0.1:9051"
	DefaultTorSocksAddr   = "127.0.0.1:9050"

	// DefaultTorStartupGrace is how long the controller waits after
	// launching the tor subprocess before checking it is still alive.
	DefaultTorStartupGrace = 5 * time.Second

	// AppName is used for XDG directory paths.
	AppName = "ipalchemist"
)

// Config holds every option the rotation engine consumes. It is built
// from defaults, then the YAML config file, then CLI flags, in that
// order of increasing precedence.
type Config struct {
	// APIURL is the proxy-list endpoint for the online source.
	APIURL string `yaml:"api_url"`

	// MaxLatencyMs drops fetched records slower than this ceiling.
	MaxLatencyMs int `yaml:"max_latency"`

	// ProtocolPreference is the ordered list of acceptable protocols.
	// A fetched record is bound to the first preferred protocol it
	// advertises; records advertising none of them are dropped.
	ProtocolPreference []model.Protocol `yaml:"protocol_preference"`

	// FavoriteCountries is a country allowlist. Empty means no filter.
	FavoriteCountries []string `yaml:"favorite_countries"`

	// SingleHostMode advertises the relay's own fixed host:port as the
	// egress address regardless of which record is applied, so rotation
	// stays invisible to downstream clients.
	SingleHostMode bool `yaml:"single_host_mode"`

	// MaxHistory caps the rotation history.
	MaxHistory int `yaml:"max_history"`

	// RotationInterval and RotationDuration configure auto-started
	// rotation. Duration zero means unbounded.
	RotationInterval Duration `yaml:"rotation_interval"`
	RotationDuration Duration `yaml:"rotation_duration"`

	// AutoStart starts the scheduler on launch using the two values above.
	AutoStart bool `yaml:"auto_start"`

	// Collaborator toggles. The engine records and reports these but the
	// features themselves live outside this process.
	KillSwitch     bool     `yaml:"kill_switch"`
	DNSProtection  bool     `yaml:"dns_protection"`
	TorIntegration bool     `yaml:"tor_integration"`
	ProxyChain     []string `yaml:"proxy_chain"`

	// IPCheckURL is the IP-echo endpoint used by health checks.
	IPCheckURL string `yaml:"ip_check_url"`

	// FetchTimeout bounds one proxy-list API request.
	FetchTimeout Duration `yaml:"fetch_timeout"`

	// MaxAttempts bounds candidates tested per selection.
	MaxAttempts int `yaml:"max_attempts"`

	// RelayHost and RelayPort form the fixed local endpoint.
	RelayHost string `yaml:"relay_host"`
	RelayPort uint16 `yaml:"relay_port"`

	// ProxyDirectiveFile is where the one-line proxy directive for
	// external CLI tools is written. Empty selects ~/.curlrc.
	ProxyDirectiveFile string `yaml:"proxy_directive_file"`

	// Tor daemon settings.
	TorBinary       string   `yaml:"tor_binary"`
	TorControlAddr  string   `yaml:"tor_control_addr"`
	TorSocksAddr    string   `yaml:"tor_socks_addr"`
	TorControlPass  string   `yaml:"tor_control_password"`
	TorStartupGrace Duration `yaml:"tor_startup_grace"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"-"`
}

// NewConfig returns a Config populated with the documented defaults.
func NewConfig() *Config {
	return &Config{
		APIURL:             DefaultAPIURL,
		MaxLatencyMs:       DefaultMaxLatencyMs,
		ProtocolPreference: model.DefaultProtocolPreference(),
		SingleHostMode:     true,
		MaxHistory:         DefaultMaxHistory,
		RotationInterval:   Duration(DefaultRotationInterval),
		DNSProtection:      true,
		IPCheckURL:         DefaultIPCheckURL,
		FetchTimeout:       Duration(DefaultFetchTimeout),
		MaxAttempts:        DefaultMaxAttempts,
		RelayHost:          DefaultRelayHost,
		RelayPort:          DefaultRelayPort,
		ProxyDirectiveFile: DefaultProxyDirectiveFile(),
		TorBinary:          "tor",
		TorControlAddr:     DefaultTorControlAddr,
		TorSocksAddr:       DefaultTorSocksAddr,
		TorStartupGrace:    Duration(DefaultTorStartupGrace),
	}
}

// DefaultProxyDirectiveFile returns ~/.curlrc, the directive file
// written on every apply unless overridden. Empty when no home
// directory can be resolved.
func DefaultProxyDirectiveFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".curlrc")
}

// XDGDataDir returns the data directory (store, event log).
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the cache directory (pool snapshots).
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks the configuration, returning the first problem found.
// It runs once after flag parsing, before any component is constructed.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return ErrEmptyAPIURL
	}
	if c.IPCheckURL == "" {
		return ErrEmptyIPCheckURL
	}
	if c.MaxLatencyMs <= 0 {
		return ErrInvalidMaxLatency
	}
	if len(c.ProtocolPreference) == 0 {
		return ErrEmptyProtocolPreference
	}
	for _, p := range c.ProtocolPreference {
		if !p.Valid() {
			return ErrInvalidProtocol
		}
	}
	if c.MaxHistory <= 0 {
		return ErrInvalidMaxHistory
	}
	if c.RotationInterval <= 0 {
		return ErrInvalidRotationInterval
	}
	if c.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if c.FetchTimeout <= 0 {
		return ErrInvalidFetchTimeout
	}
	return nil
}
