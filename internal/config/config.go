// Package config loads kflow settings from YAML files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DirName is the per-user and per-project settings directory.
	DirName = ".kflow"
	// FileName is the settings file inside DirName.
	FileName = "config.yaml"

	envPrefix = "KFLOW"
)

// Config is the full kflow configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	AI      AIConfig      `yaml:"ai" mapstructure:"ai"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
}

// StorageConfig selects and locates the knowledge store.
type StorageConfig struct {
	Backend       string `yaml:"backend" mapstructure:"backend"`
	DataDir       string `yaml:"data_dir" mapstructure:"data_dir"`
	CorruptPolicy string `yaml:"corrupt_policy" mapstructure:"corrupt_policy"`
	TreeMode      string `yaml:"tree_mode" mapstructure:"tree_mode"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Development bool   `yaml:"development" mapstructure:"development"`
}

// AIConfig configures the summarizer. An empty provider disables it.
type AIConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"`
	Model       string `yaml:"model" mapstructure:"model"`
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Timeout     string `yaml:"timeout" mapstructure:"timeout"`
	MaxWords    int    `yaml:"max_words" mapstructure:"max_words"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// TimeoutDuration parses Timeout. Empty means zero, letting the client pick.
func (a AIConfig) TimeoutDuration() (time.Duration, error) {
	if a.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 0, fmt.Errorf("ai.timeout: %w", err)
	}
	return d, nil
}

// ServerConfig configures `kflow serve`.
type ServerConfig struct {
	Transport string `yaml:"transport" mapstructure:"transport"`
	Port      string `yaml:"port" mapstructure:"port"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:       "sqlite",
			DataDir:       defaultDataDir(),
			CorruptPolicy: "fail",
			TreeMode:      "recursive",
		},
		Log: LogConfig{
			Level: "info",
		},
		AI: AIConfig{
			Provider:    "",
			Timeout:     "60s",
			MaxWords:    30,
			Concurrency: 1,
		},
		Server: ServerConfig{
			Transport: "stdio",
			Port:      "8081",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(DirName, "data")
	}
	return filepath.Join(home, DirName, "data")
}

// Load reads the configuration file and overlays KFLOW_* environment
// variables. With an empty path it looks for ./.kflow/config.yaml, then
// ~/.kflow/config.yaml, and falls back to defaults when neither exists.
// An explicit path that does not exist is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyKeyFallback(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.data_dir", d.Storage.DataDir)
	v.SetDefault("storage.corrupt_policy", d.Storage.CorruptPolicy)
	v.SetDefault("storage.tree_mode", d.Storage.TreeMode)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("ai.provider", d.AI.Provider)
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.api_key", d.AI.APIKey)
	v.SetDefault("ai.base_url", d.AI.BaseURL)
	v.SetDefault("ai.timeout", d.AI.Timeout)
	v.SetDefault("ai.max_words", d.AI.MaxWords)
	v.SetDefault("ai.concurrency", d.AI.Concurrency)
	v.SetDefault("server.transport", d.Server.Transport)
	v.SetDefault("server.port", d.Server.Port)
}

// applyKeyFallback fills the API key from the provider's conventional variable.
func applyKeyFallback(cfg *Config) {
	if cfg.AI.APIKey != "" {
		return
	}
	switch cfg.AI.Provider {
	case "openai":
		cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	case "gemini":
		cfg.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

func findConfigFile() string {
	for _, p := range []string{ProjectConfigPath(), GlobalConfigPath()} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case "sqlite", "json":
	default:
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q (want sqlite or json)", c.Storage.Backend))
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("storage.data_dir: must not be empty"))
	}
	switch c.AI.Provider {
	case "", "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("ai.provider: unknown provider %q (want openai or gemini)", c.AI.Provider))
	}
	if _, err := c.AI.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	}
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		errs = append(errs, fmt.Errorf("server.transport: unknown transport %q (want stdio or http)", c.Server.Transport))
	}
	return errors.Join(errs...)
}

// GlobalConfigPath returns ~/.kflow/config.yaml, or "" without a home directory.
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DirName, FileName)
}

// ProjectConfigPath returns ./.kflow/config.yaml relative to the working directory.
func ProjectConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, DirName, FileName)
}

// WriteDefault writes the default configuration to path, creating parent
// directories. It refuses to overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	content := "# kflow configuration\n" + string(data)
	return os.WriteFile(path, []byte(content), 0o644)
}
