package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/biodockify/enginehost/internal/logging"
)

// EnvPrefix is prepended to every `env` tag when reading the environment.
const EnvPrefix = "BIODOCKIFY_"

var durationType = reflect.TypeOf(time.Duration(0))

// LoadConfig loads configuration with proper precedence: CLI args > env vars > config file.
// opts must be a pointer to a struct whose fields carry `toml` (dotted path)
// and `env` tags; a string field named Config holds the file path. If cmd is
// provided, flags explicitly set via CLI will not be overwritten.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config target must be a pointer to a struct, got %T", opts)
	}
	v = v.Elem()
	t := v.Type()

	changedFlags := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changedFlags[f.Name] = true
			}
		})
	}

	var configPath string
	if field := v.FieldByName("Config"); field.IsValid() && field.Kind() == reflect.String {
		configPath = field.String()
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// A missing file means defaults.
		case err != nil:
			return fmt.Errorf("failed to read config %s: %w", configPath, err)
		default:
			var config map[string]any
			if err := toml.Unmarshal(data, &config); err != nil {
				return fmt.Errorf("failed to parse TOML config: %w", err)
			}

			for i := 0; i < v.NumField(); i++ {
				fieldType := t.Field(i)
				if changedFlags[fieldNameToFlag(fieldType.Name)] {
					continue
				}
				if tomlPath := fieldType.Tag.Get("toml"); tomlPath != "" {
					if value := getNestedValue(config, tomlPath); value != nil {
						if err := setFieldValue(v.Field(i), value); err != nil {
							return fmt.Errorf("config %s: %w", tomlPath, err)
						}
					}
				}
			}
		}
	}

	for i := 0; i < v.NumField(); i++ {
		fieldType := t.Field(i)
		if changedFlags[fieldNameToFlag(fieldType.Name)] {
			continue
		}
		if envKey := fieldType.Tag.Get("env"); envKey != "" {
			if envValue := os.Getenv(EnvPrefix + envKey); envValue != "" {
				if err := setFieldValueFromString(v.Field(i), envValue); err != nil {
					return fmt.Errorf("env %s%s: %w", EnvPrefix, envKey, err)
				}
			}
		}
	}

	return nil
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Example: "EngineReadyAddr" -> "engine-ready-addr", "Port" -> "port".
func fieldNameToFlag(fieldName string) string {
	var result []rune
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '-')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue retrieves a value from nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data

	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

// setFieldValue sets a field from a decoded TOML value.
func setFieldValue(field reflect.Value, value any) error {
	if !field.CanSet() {
		return nil
	}

	if field.Type() == durationType {
		switch d := value.(type) {
		case string:
			parsed, err := time.ParseDuration(d)
			if err != nil {
				return err
			}
			field.SetInt(int64(parsed))
		case int64:
			// bare integers are seconds
			field.SetInt(int64(time.Duration(d) * time.Second))
		case float64:
			field.SetInt(int64(d * float64(time.Second)))
		default:
			return fmt.Errorf("expected duration, got %T", value)
		}
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		if i, ok := value.(int64); ok {
			field.SetInt(i)
		} else if i, intOk := value.(int); intOk {
			field.SetInt(int64(i))
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		switch arr := value.(type) {
		case []any:
			slice := make([]string, 0, len(arr))
			for _, item := range arr {
				if s, ok := item.(string); ok {
					slice = append(slice, s)
				}
			}
			field.Set(reflect.ValueOf(slice))
		case map[string]any:
			// [engine.env] style tables become KEY=VALUE pairs
			field.Set(reflect.ValueOf(tableToPairs(arr)))
		}
	}
	return nil
}

// setFieldValueFromString sets a field value from string (for env vars).
func setFieldValueFromString(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	if field.Type() == durationType {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(parsed))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Comma-separated for env vars
			parts := strings.Split(value, ",")
			slice := make([]string, len(parts))
			for i, part := range parts {
				slice[i] = strings.TrimSpace(part)
			}
			field.Set(reflect.ValueOf(slice))
		}
	}
	return nil
}

// LoadLoggingConfig loads the [logging] table from a TOML config file.
// Returns default config if file doesn't exist or can't be parsed.
func LoadLoggingConfig(configPath string) logging.Config {
	defaults := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}

	if configPath == "" {
		return defaults
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return defaults
	}

	raw := struct {
		Logging logging.Config `toml:"logging"`
	}{Logging: defaults}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return defaults
	}

	cfg := raw.Logging
	if cfg.Level == "" {
		cfg.Level = defaults.Level
	}
	if cfg.Format == "" {
		cfg.Format = defaults.Format
	}
	if cfg.Modules == nil {
		cfg.Modules = make(map[string]string)
	}
	return cfg
}
