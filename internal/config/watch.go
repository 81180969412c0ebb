package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Watch reloads the config file on change and invokes onChange with the
// freshly parsed configuration. Invalid edits are logged and skipped.
func Watch(configPath string, logger *zap.Logger, onChange func(*Config)) error {
	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config for watching: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("config file changed", zap.String("file", e.Name))

		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			logger.Error("ignoring config change", zap.Error(err))
			return
		}
		loadEnvOverrides(&cfg)
		if err := validate(&cfg); err != nil {
			logger.Error("ignoring invalid config change", zap.Error(err))
			return
		}
		onChange(&cfg)
	})
	v.WatchConfig()

	return nil
}

// defaultFile mirrors setDefaults for the generated starter config.
type defaultFile struct {
	Server struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
	} `yaml:"server"`
	Security struct {
		AdminPassword string `yaml:"admin_password"`
	} `yaml:"security"`
	Channels struct {
		Telegram struct {
			Enabled  bool   `yaml:"enabled"`
			BotToken string `yaml:"bot_token"`
			ChatID   int64  `yaml:"chat_id"`
		} `yaml:"telegram"`
		Discord struct {
			Enabled   bool   `yaml:"enabled"`
			Token     string `yaml:"token"`
			ChannelID string `yaml:"channel_id"`
		} `yaml:"discord"`
	} `yaml:"channels"`
	Reminders struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"reminders"`
	Billing struct {
		TrialDays int `yaml:"trial_days"`
	} `yaml:"billing"`
}

// WriteDefault writes a starter config file. Fails if the file exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	var f defaultFile
	f.Server.Address = "0.0.0.0"
	f.Server.Port = 8080
	f.Reminders.Enabled = true
	f.Billing.TrialDays = 7

	out, err := yaml.Marshal(&f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, out, 0600)
}
