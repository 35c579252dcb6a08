package config

import (
	"os"
	"strconv"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type MQConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// SchedulerConfig controls the reminder poller.
type SchedulerConfig struct {
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	Enabled             *bool  `yaml:"enabled"`
	Topic               string `yaml:"topic"`
}

// BackendConfig points the recurrence consumer at the task API.
// ServiceToken, when set, authenticates occurrences generated from queue
// deliveries, which carry no caller credential of their own.
type BackendConfig struct {
	BaseURL      string `yaml:"base_url"`
	ServiceToken string `yaml:"service_token"`
}

// IsEnabled treats an unset flag as enabled.
func (c SchedulerConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// PollInterval returns the configured interval in seconds, defaulting to 60.
func (c SchedulerConfig) PollInterval() int {
	if c.PollIntervalSeconds <= 0 {
		return 60
	}
	return c.PollIntervalSeconds
}

func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
}

func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

func OverrideSchedulerFromEnv(cfg *SchedulerConfig) {
	if interval := os.Getenv("REMINDER_POLL_INTERVAL"); interval != "" {
		if v, err := strconv.Atoi(interval); err == nil {
			cfg.PollIntervalSeconds = v
		}
	}
	if enabled := os.Getenv("REMINDER_SCHEDULER_ENABLED"); enabled != "" {
		if v, err := strconv.ParseBool(enabled); err == nil {
			cfg.Enabled = &v
		}
	}
	if topic := os.Getenv("REMINDER_TOPIC"); topic != "" {
		cfg.Topic = topic
	}
}

func OverrideBackendFromEnv(cfg *BackendConfig) {
	if url := os.Getenv("BACKEND_URL"); url != "" {
		cfg.BaseURL = url
	}
	if token := os.Getenv("BACKEND_SERVICE_TOKEN"); token != "" {
		cfg.ServiceToken = token
	}
}
