// Package config provides reusable helpers for loading and validating
// configuration from environment variables. All loaders are fail-open: an
// invalid value falls back to the supplied default with a warning instead
// of stopping the process.
package config

import (
	"fmt"
	"os"
	"time"
)

// ConfigLoadResult carries the outcome of loading a single value.
type ConfigLoadResult struct {
	Value           interface{}
	Warnings        []string
	FallbackApplied bool
}

// LoadEnvString returns the environment value or the default when unset.
// No validation, no warnings.
func LoadEnvString(envKey, defaultValue string) string {
	value := os.Getenv(envKey)
	if value == "" {
		return defaultValue
	}
	return value
}

// LoadEnvWithFallback loads a string value and validates it. An unset
// variable silently uses the default; a set-but-invalid variable falls back
// with a warning.
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult {
	value := os.Getenv(envKey)
	if value == "" {
		return ConfigLoadResult{Value: defaultValue}
	}

	if validator != nil {
		if err := validator(value); err != nil {
			warning := fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%s'",
				envKey, value, err, defaultValue)
			return ConfigLoadResult{
				Value:           defaultValue,
				Warnings:        []string{warning},
				FallbackApplied: true,
			}
		}
	}

	return ConfigLoadResult{Value: value}
}

// LoadEnvDuration loads a duration value ("30m", "1h") and validates it.
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) ConfigLoadResult {
	valueStr := os.Getenv(envKey)
	if valueStr == "" {
		return ConfigLoadResult{Value: defaultValue}
	}

	parsed, err := time.ParseDuration(valueStr)
	if err != nil {
		warning := fmt.Sprintf(
			"Invalid %s='%s': %v, falling back to default '%v'",
			envKey, valueStr, err, defaultValue)
		return ConfigLoadResult{
			Value:           defaultValue,
			Warnings:        []string{warning},
			FallbackApplied: true,
		}
	}

	if validator != nil {
		if err := validator(parsed); err != nil {
			warning := fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%v'",
				envKey, valueStr, err, defaultValue)
			return ConfigLoadResult{
				Value:           defaultValue,
				Warnings:        []string{warning},
				FallbackApplied: true,
			}
		}
	}

	return ConfigLoadResult{Value: parsed}
}

// LoadEnvInt loads an integer value and validates it.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) ConfigLoadResult {
	valueStr := os.Getenv(envKey)
	if valueStr == "" {
		return ConfigLoadResult{Value: defaultValue}
	}

	var parsed int
	if _, err := fmt.Sscanf(valueStr, "%d", &parsed); err != nil {
		warning := fmt.Sprintf(
			"Invalid %s='%s': invalid integer format, falling back to default '%d'",
			envKey, valueStr, defaultValue)
		return ConfigLoadResult{
			Value:           defaultValue,
			Warnings:        []string{warning},
			FallbackApplied: true,
		}
	}

	if validator != nil {
		if err := validator(parsed); err != nil {
			warning := fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%d'",
				envKey, valueStr, err, defaultValue)
			return ConfigLoadResult{
				Value:           defaultValue,
				Warnings:        []string{warning},
				FallbackApplied: true,
			}
		}
	}

	return ConfigLoadResult{Value: parsed}
}
