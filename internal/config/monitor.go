package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"essops/internal/support"
)

const (
	DefaultMonitorConfigPath = "/etc/wan-ip-monitor.conf"
	DefaultMonitorLogFile    = "/var/log/wan-ip-monitor.log"
	DefaultCloudflareAPIURL  = "https://api.cloudflare.com/client/v4"
	DefaultComposeBinary     = "docker-compose"
	DefaultComposeService    = "livekit"
	DefaultContainerName     = "element-livekit"
	DefaultHealthURL         = "http://localhost:7880/rtc"
	DefaultCheckInterval     = 2 * time.Minute
	DefaultReadyTimeout      = 60 * time.Second
	DefaultDNSTTL            = 300
)

// ErrConfigNotFound is returned when the monitor config file does not exist.
var ErrConfigNotFound = errors.New("config: file not found")

// Monitor holds the WAN-IP monitor settings read from the INI file.
type Monitor struct {
	Path string

	CheckInterval time.Duration

	RouterIP       string
	RouterUsername string
	RouterPassword string

	RelayConfigPath  string
	ComposeFilePath  string
	ComposeBinary    string
	ComposeService   string
	ContainerName    string
	HealthURL        string
	ReadyTimeout     time.Duration
	CloudflareToken  string
	CloudflareAPIURL string
	DNSTTL           int
	Domains          []string
	LookupServices   []string
	STUNServers      []string
	RedisURL         string
	LogFile          string
	LogLevel         string
}

// RouterConfigured reports whether all router API credentials are present.
func (m Monitor) RouterConfigured() bool {
	return m.RouterIP != "" && m.RouterUsername != "" && m.RouterPassword != ""
}

// LoadMonitor reads the INI file at path. Keys live in the [DEFAULT] section
// and are matched case-insensitively.
func LoadMonitor(path string) (Monitor, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Monitor{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Monitor{}, fmt.Errorf("config: stat %s: %w", path, err)
	}

	file, err := ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, path)
	if err != nil {
		return Monitor{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	sec := file.Section(ini.DefaultSection)
	value := func(key string) string {
		return strings.TrimSpace(sec.Key(key).String())
	}

	cfg := Monitor{
		Path:             path,
		CheckInterval:    time.Duration(sec.Key("check_interval").MustInt(2)) * time.Minute,
		RouterIP:         value("routeros_ip"),
		RouterUsername:   value("routeros_username"),
		RouterPassword:   value("routeros_password"),
		RelayConfigPath:  value("livekit_config_path"),
		ComposeFilePath:  value("docker_compose_path"),
		ComposeBinary:    value("compose_binary"),
		ComposeService:   value("compose_service"),
		ContainerName:    value("container_name"),
		HealthURL:        value("health_url"),
		ReadyTimeout:     time.Duration(sec.Key("ready_timeout").MustInt(0)) * time.Second,
		CloudflareToken:  value("cloudflare_api_token"),
		CloudflareAPIURL: value("cloudflare_api_url"),
		DNSTTL:           sec.Key("dns_ttl").MustInt(0),
		Domains:          support.SplitList(value("domains")),
		LookupServices:   support.SplitList(value("lookup_services")),
		STUNServers:      support.SplitList(value("stun_servers")),
		RedisURL:         value("redis_url"),
		LogFile:          value("log_file"),
		LogLevel:         value("log_level"),
	}

	applyMonitorDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return Monitor{}, err
	}
	return cfg, nil
}

// Validate checks the keys the monitor cannot run without.
func (m Monitor) Validate() error {
	var missing []string
	if m.RelayConfigPath == "" {
		missing = append(missing, "livekit_config_path")
	}
	if m.ComposeFilePath == "" {
		missing = append(missing, "docker_compose_path")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required keys: %s", strings.Join(missing, ", "))
	}
	if m.CheckInterval <= 0 {
		return fmt.Errorf("config: check_interval must be positive")
	}
	return nil
}

func applyMonitorDefaults(cfg *Monitor) {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if cfg.ComposeBinary == "" {
		cfg.ComposeBinary = DefaultComposeBinary
	}
	if cfg.ComposeService == "" {
		cfg.ComposeService = DefaultComposeService
	}
	if cfg.ContainerName == "" {
		cfg.ContainerName = DefaultContainerName
	}
	if cfg.HealthURL == "" {
		cfg.HealthURL = DefaultHealthURL
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = DefaultReadyTimeout
	}
	if cfg.CloudflareAPIURL == "" {
		cfg.CloudflareAPIURL = DefaultCloudflareAPIURL
	}
	if cfg.DNSTTL <= 0 {
		cfg.DNSTTL = DefaultDNSTTL
	}
	if cfg.LogFile == "" {
		cfg.LogFile = DefaultMonitorLogFile
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}
