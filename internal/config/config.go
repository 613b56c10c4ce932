package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/franckalain/riceguard/internal/api"
)

// Platforms the base URL defaults depend on
const (
	PlatformWeb     = "web"
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

const (
	defaultScansURL     = "http://127.0.0.1:8000/api/v1"
	defaultLegacyURL    = "http://127.0.0.1:5000"
	defaultEmulatorURL  = "http://10.0.2.2:5000"
	legacyPort          = "5000"
	defaultDBPath       = "riceguard.db"
	defaultLogLevel     = "info"
	defaultPreviewPixel = 320
)

// Config holds all application configuration
type Config struct {
	API struct {
		URL            string `yaml:"url"`
		Contract       string `yaml:"contract"` // "scans" or "legacy"
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		ModelVersion   string `yaml:"model_version"`
	} `yaml:"api"`

	Platform   string `yaml:"platform"`
	DevHostURI string `yaml:"dev_host_uri"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Upload struct {
		MaxDimension     int `yaml:"max_dimension"`
		PreviewDimension int `yaml:"preview_dimension"`
	} `yaml:"upload"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads the YAML file at configPath, then applies .env and environment
// overrides and fills in defaults. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("config.dotenv.invalid")
	}

	var cfg Config
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
		log.WithField("path", configPath).Debug("config.loaded")
	case errors.Is(err, os.ErrNotExist):
		log.WithField("path", configPath).Debug("config.file.missing")
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// lowest priority first
	envOverride(&cfg.API.URL, "EXPO_PUBLIC_API_BASE_URL")
	envOverride(&cfg.API.URL, "REACT_APP_API_URL")
	envOverride(&cfg.API.URL, "VITE_API_URL")
	envOverride(&cfg.API.URL, "RICEGUARD_API_URL")
	envOverride(&cfg.API.Contract, "RICEGUARD_API_CONTRACT")
	if err := envOverrideInt(&cfg.API.TimeoutSeconds, "RICEGUARD_API_TIMEOUT_SECONDS"); err != nil {
		return nil, err
	}
	envOverride(&cfg.API.ModelVersion, "RICEGUARD_MODEL_VERSION")
	envOverride(&cfg.Platform, "RICEGUARD_PLATFORM")
	envOverride(&cfg.DevHostURI, "RICEGUARD_DEV_HOST_URI")
	envOverride(&cfg.Database.Path, "RICEGUARD_DB_PATH")
	envOverride(&cfg.Log.Level, "RICEGUARD_LOG_LEVEL")

	cfg.API.Contract = strings.ToLower(strings.TrimSpace(cfg.API.Contract))
	if cfg.API.Contract == "" {
		cfg.API.Contract = api.ContractScans
	}
	cfg.Platform = strings.ToLower(strings.TrimSpace(cfg.Platform))
	if cfg.Platform == "" {
		cfg.Platform = PlatformWeb
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = defaultDBPath
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	if cfg.Upload.PreviewDimension == 0 {
		cfg.Upload.PreviewDimension = defaultPreviewPixel
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.API.Contract {
	case api.ContractScans, api.ContractLegacy:
	default:
		return fmt.Errorf("api contract must be %q or %q, got %q", api.ContractScans, api.ContractLegacy, c.API.Contract)
	}
	switch c.Platform {
	case PlatformWeb, PlatformAndroid, PlatformIOS:
	default:
		return fmt.Errorf("unsupported platform: %s", c.Platform)
	}
	if c.API.TimeoutSeconds < 0 {
		return fmt.Errorf("api timeout_seconds must not be negative")
	}
	if c.Upload.MaxDimension < 0 || c.Upload.PreviewDimension < 0 {
		return fmt.Errorf("upload dimensions must not be negative")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return nil
}

// LogLevel returns the configured apex log level
func (c *Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Mobile reports whether the client runs on a phone or emulator
func (c *Config) Mobile() bool {
	return c.Platform == PlatformAndroid || c.Platform == PlatformIOS
}

// BaseURL resolves the backend root: an explicit URL wins; the legacy
// backend on mobile is reached through the dev machine's LAN address when
// it is known; otherwise a platform default is used.
func (c *Config) BaseURL() string {
	if u := strings.TrimSpace(c.API.URL); u != "" {
		return strings.TrimRight(u, "/")
	}
	if c.API.Contract != api.ContractLegacy {
		return defaultScansURL
	}
	if c.Mobile() {
		if lan := LANBaseURL(c.DevHostURI); lan != "" {
			return lan
		}
	}
	if c.Platform == PlatformAndroid {
		return defaultEmulatorURL
	}
	return defaultLegacyURL
}

var dottedIPv4 = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+$`)

// LANBaseURL derives the legacy backend URL from a dev server host URI such
// as "192.168.1.20:8081". It returns "" unless the host is a dotted IPv4
// address.
func LANBaseURL(hostURI string) string {
	host, _, _ := strings.Cut(hostURI, ":")
	if host == "" || !dottedIPv4.MatchString(host) {
		return ""
	}
	return "http://" + host + ":" + legacyPort
}

// GetConfigPath returns the path to the configuration file
func GetConfigPath() string {
	// First try environment variable
	if path := os.Getenv("RICEGUARD_CONFIG"); path != "" {
		return path
	}

	// Then try config directory
	configDir := "config"
	if _, err := os.Stat(configDir); err == nil {
		return filepath.Join(configDir, "config.yaml")
	}

	// Finally, try current directory
	return "config.yaml"
}

func envOverride(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func envOverrideInt(target *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = n
	return nil
}
