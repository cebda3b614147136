/*
Package config manages TOML config for BookSearch services.
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bastiangx/booksearch/internal/utils"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Engine   EngineConfig   `toml:"engine"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Learning LearningConfig `toml:"learning"`
	CLI      CliConfig      `toml:"cli"`
}

// ServerConfig has server related options. HTTPAddr enables the HTTP API
// when set; the -http flag overrides it.
type ServerConfig struct {
	MaxLimit     int    `toml:"max_limit"`
	MinPrefix    int    `toml:"min_prefix"`
	MaxPrefix    int    `toml:"max_prefix"`
	EnableFilter bool   `toml:"enable_filter"`
	HTTPAddr     string `toml:"http_addr"`
}

// EngineConfig tunes the autocomplete engine.
type EngineConfig struct {
	MaxSuggestions  int `toml:"max_suggestions"`
	MaxTypoDistance int `toml:"max_typo_distance"`
	RecentCapacity  int `toml:"recent_capacity"`
}

// CatalogConfig says where the book catalog comes from.
type CatalogConfig struct {
	Path         string `toml:"path"`
	URL          string `toml:"url"`
	Watch        bool   `toml:"watch"`
	SanitizeHTML bool   `toml:"sanitize_html"`
}

// LearningConfig selects where popularity and recency data is persisted.
type LearningConfig struct {
	Backend         string `toml:"backend"`
	Path            string `toml:"path"`
	RedisAddr       string `toml:"redis_addr"`
	RedisPassword   string `toml:"redis_password"`
	RedisDB         int    `toml:"redis_db"`
	RedisKey        string `toml:"redis_key"`
	SaveIntervalSec int    `toml:"save_interval_sec"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit    int  `toml:"default_limit"`
	DefaultMinLen   int  `toml:"default_min_len"`
	DefaultMaxLen   int  `toml:"default_max_len"`
	DefaultNoFilter bool `toml:"default_no_filter"`
}

// ErrInvalidServerConfig is returned when a server update breaks its bounds.
var ErrInvalidServerConfig = errors.New("invalid server config")

// Learning backends.
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
)

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
// 4. builtin defaults
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := utils.ExecutableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", "booksearch")
	if utils.WritableDir(primaryPath) {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "booksearch")
	if utils.WritableDir(macOSPath) {
		return macOSPath, nil
	}
	execDir, err := utils.ExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/booksearch/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			MaxLimit:     64,
			MinPrefix:    1,
			MaxPrefix:    60,
			EnableFilter: true,
		},
		Engine: EngineConfig{
			MaxSuggestions:  8,
			MaxTypoDistance: 2,
			RecentCapacity:  100,
		},
		Catalog: CatalogConfig{
			Path:         "data/catalog.json",
			Watch:        true,
			SanitizeHTML: true,
		},
		Learning: LearningConfig{
			Backend:         BackendFile,
			Path:            "data/learning.msgpack",
			RedisAddr:       "localhost:6379",
			RedisKey:        "booksearch:learning",
			SaveIntervalSec: 300,
		},
		CLI: CliConfig{
			DefaultLimit:    8,
			DefaultMinLen:   1,
			DefaultMaxLen:   60,
			DefaultNoFilter: false,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse keeps whatever sections of a broken file still decode.
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "engine"); ok {
		extractEngineConfig(section, &config.Engine)
	}
	if section, ok := utils.ExtractSection(tempConfig, "catalog"); ok {
		extractCatalogConfig(section, &config.Catalog)
	}
	if section, ok := utils.ExtractSection(tempConfig, "learning"); ok {
		extractLearningConfig(section, &config.Learning)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	return config, nil
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "min_prefix"); ok {
		server.MinPrefix = val
	}
	if val, ok := utils.ExtractInt64(data, "max_prefix"); ok {
		server.MaxPrefix = val
	}
	if val, ok := utils.ExtractBool(data, "enable_filter"); ok {
		server.EnableFilter = val
	}
	if val, ok := utils.ExtractString(data, "http_addr"); ok {
		server.HTTPAddr = val
	}
}

func extractEngineConfig(data map[string]any, engine *EngineConfig) {
	if val, ok := utils.ExtractInt64(data, "max_suggestions"); ok {
		engine.MaxSuggestions = val
	}
	if val, ok := utils.ExtractInt64(data, "max_typo_distance"); ok {
		engine.MaxTypoDistance = val
	}
	if val, ok := utils.ExtractInt64(data, "recent_capacity"); ok {
		engine.RecentCapacity = val
	}
}

func extractCatalogConfig(data map[string]any, catalog *CatalogConfig) {
	if val, ok := utils.ExtractString(data, "path"); ok {
		catalog.Path = val
	}
	if val, ok := utils.ExtractString(data, "url"); ok {
		catalog.URL = val
	}
	if val, ok := utils.ExtractBool(data, "watch"); ok {
		catalog.Watch = val
	}
	if val, ok := utils.ExtractBool(data, "sanitize_html"); ok {
		catalog.SanitizeHTML = val
	}
}

func extractLearningConfig(data map[string]any, learning *LearningConfig) {
	if val, ok := utils.ExtractString(data, "backend"); ok {
		learning.Backend = val
	}
	if val, ok := utils.ExtractString(data, "path"); ok {
		learning.Path = val
	}
	if val, ok := utils.ExtractString(data, "redis_addr"); ok {
		learning.RedisAddr = val
	}
	if val, ok := utils.ExtractString(data, "redis_password"); ok {
		learning.RedisPassword = val
	}
	if val, ok := utils.ExtractInt64(data, "redis_db"); ok {
		learning.RedisDB = val
	}
	if val, ok := utils.ExtractString(data, "redis_key"); ok {
		learning.RedisKey = val
	}
	if val, ok := utils.ExtractInt64(data, "save_interval_sec"); ok {
		learning.SaveIntervalSec = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "default_min_len"); ok {
		cli.DefaultMinLen = val
	}
	if val, ok := utils.ExtractInt64(data, "default_max_len"); ok {
		cli.DefaultMaxLen = val
	}
	if val, ok := utils.ExtractBool(data, "default_no_filter"); ok {
		cli.DefaultNoFilter = val
	}
}

// GetActiveConfigPath returns the absolute path of loaded config file,
// or "" when no path can be determined.
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		defaultPath, err := GetDefaultConfigPath()
		if err != nil {
			return ""
		}
		return defaultPath
	}
	return utils.AbsPath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// Apply changes the given server values in memory. Nil values are left as
// they are. Nothing is changed if the result would be invalid.
func (c *Config) Apply(maxLimit, minPrefix, maxPrefix *int, enableFilter *bool) error {
	server := c.Server
	if maxLimit != nil {
		server.MaxLimit = *maxLimit
	}
	if minPrefix != nil {
		server.MinPrefix = *minPrefix
	}
	if maxPrefix != nil {
		server.MaxPrefix = *maxPrefix
	}
	if enableFilter != nil {
		server.EnableFilter = *enableFilter
	}

	switch {
	case server.MaxLimit < 1:
		return fmt.Errorf("%w: max_limit must be at least 1", ErrInvalidServerConfig)
	case server.MinPrefix < 1:
		return fmt.Errorf("%w: min_prefix must be at least 1", ErrInvalidServerConfig)
	case server.MaxPrefix != 0 && server.MaxPrefix < server.MinPrefix:
		return fmt.Errorf("%w: max_prefix must not be below min_prefix", ErrInvalidServerConfig)
	}
	c.Server = server
	return nil
}

// Update applies the server values and saves to file. An empty configPath
// keeps the change in memory only.
func (c *Config) Update(configPath string, maxLimit, minPrefix, maxPrefix *int, enableFilter *bool) error {
	if err := c.Apply(maxLimit, minPrefix, maxPrefix, enableFilter); err != nil {
		return err
	}
	if configPath == "" {
		return nil
	}
	return SaveConfig(c, configPath)
}
