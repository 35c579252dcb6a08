// Package config loads the service configuration from the layered yaml
// config directory, with environment variables taking highest precedence.
package config

import (
	"log"

	"gopkg.in/yaml.v3"

	base "taskflow/pkg/config"
)

type Config struct {
	DB        base.DBConfig        `yaml:"db"`
	MQ        base.MQConfig        `yaml:"mq"`
	Redis     base.RedisConfig     `yaml:"redis"`
	Scheduler base.SchedulerConfig `yaml:"scheduler"`
	Backend   base.BackendConfig   `yaml:"backend"`
	Server    base.ServerConfig    `yaml:"server"`
}

func Load() *Config {
	env := base.GetConfigEnv()
	configDir := base.GetEnv("CONFIG_DIR", "config")

	cfgMap, err := base.LoadConfig(env, configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var cfg Config
	cfgData, err := yaml.Marshal(cfgMap)
	if err != nil {
		log.Fatalf("failed to marshal config: %v", err)
	}
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	base.OverrideDBFromEnv(&cfg.DB)
	base.OverrideMQFromEnv(&cfg.MQ)
	base.OverrideRedisFromEnv(&cfg.Redis)
	base.OverrideSchedulerFromEnv(&cfg.Scheduler)
	base.OverrideBackendFromEnv(&cfg.Backend)
	base.OverrideServerFromEnv(&cfg.Server)

	return &cfg
}
