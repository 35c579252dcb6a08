package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the layered configuration for an environment.
// base.yaml is always read; <env>.yaml overrides it when present; values from
// secrets.env are substituted into ${VAR} placeholders.
func LoadConfig(env string, configDir string) (map[string]interface{}, error) {
	if configDir == "" {
		configDir = "config"
	}

	baseConfig, err := loadYAMLFile(filepath.Join(configDir, "base.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to load base.yaml: %w", err)
	}

	envConfig := make(map[string]interface{})
	if env != "" && env != "base" {
		envFile := filepath.Join(configDir, fmt.Sprintf("%s.yaml", env))
		if _, err := os.Stat(envFile); err == nil {
			envConfig, err = loadYAMLFile(envFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load %s.yaml: %w", env, err)
			}
		}
	}

	merged := mergeMaps(baseConfig, envConfig)

	secretsFile := filepath.Join(configDir, "secrets.env")
	if _, err := os.Stat(secretsFile); err == nil {
		secrets, err := loadEnvFile(secretsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load secrets.env: %w", err)
		}
		merged = substituteEnvVars(merged, secrets)
	}

	return merged, nil
}

func loadYAMLFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config map[string]interface{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	env := make(map[string]string)
	lines := strings.Split(string(data), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			value = strings.Trim(value, `"`)
			value = strings.Trim(value, `'`)
			env[key] = value
		}
	}

	return env, nil
}

// mergeMaps merges src over dst, recursing into nested maps.
func mergeMaps(dst, src map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for k, v := range dst {
		result[k] = v
	}

	for k, v := range src {
		if dstMap, ok := result[k].(map[string]interface{}); ok {
			if srcMap, ok := v.(map[string]interface{}); ok {
				result[k] = mergeMaps(dstMap, srcMap)
			} else {
				result[k] = v
			}
		} else {
			result[k] = v
		}
	}

	return result
}

func substituteEnvVars(config map[string]interface{}, env map[string]string) map[string]interface{} {
	result := make(map[string]interface{})
	for k, v := range config {
		switch val := v.(type) {
		case string:
			result[k] = substituteString(val, env)
		case map[string]interface{}:
			result[k] = substituteEnvVars(val, env)
		default:
			result[k] = v
		}
	}
	return result
}

func substituteString(s string, env map[string]string) string {
	if !strings.Contains(s, "${") {
		return s
	}

	result := s
	for key, value := range env {
		placeholder := fmt.Sprintf("${%s}", key)
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}

// GetEnv returns the environment variable value or a default.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetConfigEnv returns the active config environment (CONFIG_ENV, default local).
func GetConfigEnv() string {
	return GetEnv("CONFIG_ENV", "local")
}
