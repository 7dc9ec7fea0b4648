package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Settings configure one taskctl invocation. Precedence: flags, then
// TASKCTL_* environment variables, then ~/.config/taskflow/taskctl.yaml.
type Settings struct {
	API      string
	Token    string
	Store    string
	Timeout  time.Duration
	LogLevel string
	// PollInterval is how often `status --watch` checks the server.
	PollInterval time.Duration
}

func configDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "taskflow")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "taskflow")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("taskctl")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir())
	v.SetEnvPrefix("TASKCTL")
	v.AutomaticEnv()

	v.SetDefault("api", "http://localhost:8080")
	v.SetDefault("store", filepath.Join(configDir(), "taskctl.db"))
	v.SetDefault("timeout", "15s")
	v.SetDefault("log_level", "warn")
	v.SetDefault("poll_interval", "30s")
	return v
}

// loadSettings binds the persistent flags and reads the optional config file.
func loadSettings(v *viper.Viper, flags *pflag.FlagSet) (Settings, error) {
	for key, flag := range map[string]string{
		"api": "api", "token": "token", "store": "store", "timeout": "timeout", "log_level": "log-level",
		"poll_interval": "poll-interval",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return Settings{}, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	s := Settings{
		API:      v.GetString("api"),
		Token:    v.GetString("token"),
		Store:    v.GetString("store"),
		Timeout:  v.GetDuration("timeout"),
		LogLevel: v.GetString("log_level"),

		PollInterval: v.GetDuration("poll_interval"),
	}
	if s.API == "" {
		return s, fmt.Errorf("api url is empty")
	}
	if s.Timeout <= 0 {
		s.Timeout = 15 * time.Second
	}
	return s, nil
}
