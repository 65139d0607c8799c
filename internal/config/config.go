package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode" validate:"oneof=debug release"`
	Port       int           `mapstructure:"port" validate:"min=1,max=65535"`
	Secret     string        `mapstructure:"secret" validate:"required"`
	ReadLimit  int64         `mapstructure:"read_limit" validate:"min=1024"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	SendBuffer int           `mapstructure:"send_buffer" validate:"min=1"`

	// Subscribe rate limiting, per client session.
	SubscribeLimit    int           `mapstructure:"subscribe_limit" validate:"min=1"`
	SubscribeInterval time.Duration `mapstructure:"subscribe_interval"`

	// Client-side knobs, used by the livewatch binary.
	GatewayURL       string        `mapstructure:"gateway_url" validate:"required"`
	ERPBaseURL       string        `mapstructure:"erp_base_url" validate:"required"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	BackoffBase      time.Duration `mapstructure:"backoff_base"`
	BackoffCap       time.Duration `mapstructure:"backoff_cap"`
	MaxRetries       int           `mapstructure:"max_retries" validate:"min=1"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("secret", "dev-only-secret")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("subscribe_limit", 30)
	v.SetDefault("subscribe_interval", "10s")
	v.SetDefault("gateway_url", "ws://localhost:8080/api/ws/live")
	v.SetDefault("erp_base_url", "http://localhost:8069")
	v.SetDefault("handshake_timeout", "10s")
	v.SetDefault("backoff_base", "1s")
	v.SetDefault("backoff_cap", "30s")
	v.SetDefault("max_retries", 5)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
