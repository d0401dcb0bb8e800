package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// DevServer holds the settings of the development server.
type DevServer struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static"`
	Wasm      string `mapstructure:"wasm"`
	Index     string `mapstructure:"index"`
	// API is the upstream the /api and /ws paths are proxied to.
	API    string `mapstructure:"api"`
	Watch  bool   `mapstructure:"watch"`
	Routes string `mapstructure:"routes"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// LoadDevServer reads forumdev.yaml (or file, when not empty) from the
// working directory, then FORUMDEV_* environment variables, on top of the
// defaults. A missing file is not an error.
func LoadDevServer(logger *slog.Logger, v *viper.Viper, file string) (*DevServer, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetDefault("addr", ":8080")
	v.SetDefault("static", "web")
	v.SetDefault("wasm", "web/app.wasm")
	v.SetDefault("index", "web/index.html")
	v.SetDefault("api", "http://localhost:8081")
	v.SetDefault("watch", true)
	v.SetDefault("routes", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("forumdev")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FORUMDEV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		logger.Debug("config file not found, using defaults and environment")
	}

	var cfg DevServer
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.StaticDir == "" {
		return nil, errors.New("static directory must be set")
	}
	return &cfg, nil
}
