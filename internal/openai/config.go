package openai

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	BaseURL         string        `mapstructure:"BaseURL"`
	APIKey          string        `mapstructure:"APIKey"`
	TranscribeModel string        `mapstructure:"TranscribeModel"`
	ChatModel       string        `mapstructure:"ChatModel"`
	Timeout         time.Duration `mapstructure:"Timeout"`
}

func NewConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("cannot read config from %s: %w", path, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}

	// Установка значений по умолчанию
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = "gpt-4o-transcribe"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}

	return &cfg, nil
}
