package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix = "CURSORD"
	envFile   = ".env"
	fileName  = "cursord"

	defaultReadHeaderTimeoutSeconds = 5
)

type Config struct {
	Server struct {
		Addr                     string   `mapstructure:"addr"`
		AllowedOrigins           []string `mapstructure:"allowed_origins"`
		ReadHeaderTimeoutSeconds int      `mapstructure:"read_header_timeout_seconds"`
	} `mapstructure:"server"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

func NewConfig() *Config {
	cfg := &Config{}
	cfg.Server.Addr = "127.0.0.1:7345"
	cfg.Server.AllowedOrigins = []string{
		"tauri://localhost",
		"http://tauri.localhost",
		"http://localhost:5173", // vite dev server
	}
	cfg.Server.ReadHeaderTimeoutSeconds = defaultReadHeaderTimeoutSeconds
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return cfg
}

// Load layers, lowest first: defaults, the YAML config file, a .env file in
// the working directory, and CURSORD_* environment variables. A missing
// config file or .env is not an error.
func Load(cfgFile string) (*Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := NewConfig()
	v := viper.New()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(fileName)
		v.SetConfigType("yaml")
		if dir := configDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// never appear in a config file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.allowed_origins", cfg.Server.AllowedOrigins)
	v.SetDefault("server.read_header_timeout_seconds", cfg.Server.ReadHeaderTimeoutSeconds)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, fileName)
}
