package logger

import (
	"os"
	"strings"
)

func DefaultConfig() Config {
	return Config{
		Level:      getEnvOrDefault("INPUTSWITCH_LOG_LEVEL", "info"),
		Debug:      getEnvBoolOrDefault("INPUTSWITCH_DEBUG", false),
		Output:     getEnvOrDefault("INPUTSWITCH_LOG_OUTPUT", "stderr"),
		TimeFormat: getEnvOrDefault("INPUTSWITCH_LOG_TIME_FORMAT", ""),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	value = strings.ToLower(value)

	return value == "true" || value == "1" || value == "yes" || value == "on"
}

func InitWithDefaults() error {
	return Init(DefaultConfig())
}
