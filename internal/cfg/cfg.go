package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"health-risk/internal/common"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Port             int
	ModelsDir        string
	ONNXRuntimeLib   string
	EagerLoad        bool
	ModelLoadTimeout time.Duration
	DataPath         string // empty disables assessment history
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	MaxRequestBody   int64
	KafkaBrokers     []string // empty disables assessment events
	KafkaTopic       string
	LogLevel         string
	LogFormat        string
}

type ConfigFile struct {
	Server struct {
		Port           int    `yaml:"port"`
		ReadTimeout    string `yaml:"readTimeout"`
		WriteTimeout   string `yaml:"writeTimeout"`
		MaxRequestBody int64  `yaml:"maxRequestBody"`
	} `yaml:"server"`

	Models struct {
		Dir            string `yaml:"dir"`
		ONNXRuntimeLib string `yaml:"onnxRuntimeLib"`
		EagerLoad      *bool  `yaml:"eagerLoad"`
		LoadTimeout    string `yaml:"loadTimeout"`
	} `yaml:"models"`

	History struct {
		DataPath string `yaml:"dataPath"`
	} `yaml:"history"`

	Events struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"events"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Load reads .env if present, then the YAML file named by CONFIG_FILE if set.
// Environment variables override file values.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	return loadFromEnv()
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		Port:             common.DefaultPort,
		ModelsDir:        common.DefaultModelsDir,
		EagerLoad:        common.DefaultEagerLoad,
		ModelLoadTimeout: common.DefaultModelLoadTimeout,
		ReadTimeout:      common.DefaultReadTimeout,
		WriteTimeout:     common.DefaultWriteTimeout,
		MaxRequestBody:   common.DefaultMaxRequestBody,
		KafkaTopic:       common.DefaultKafkaTopic,
		LogLevel:         common.DefaultLogLevel,
		LogFormat:        common.DefaultLogFormat,
	}
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	settings := Defaults()
	if err := config.apply(&settings); err != nil {
		return Settings{}, fmt.Errorf("config file %s: %w", path, err)
	}

	return finish(settings)
}

func loadFromEnv() (Settings, error) {
	return finish(Defaults())
}

// apply copies every value the file sets over s.
func (c *ConfigFile) apply(s *Settings) error {
	if c.Server.Port != 0 {
		s.Port = c.Server.Port
	}
	if c.Server.MaxRequestBody != 0 {
		s.MaxRequestBody = c.Server.MaxRequestBody
	}
	if c.Models.Dir != "" {
		s.ModelsDir = c.Models.Dir
	}
	if c.Models.ONNXRuntimeLib != "" {
		s.ONNXRuntimeLib = c.Models.ONNXRuntimeLib
	}
	if c.Models.EagerLoad != nil {
		s.EagerLoad = *c.Models.EagerLoad
	}
	if c.History.DataPath != "" {
		s.DataPath = c.History.DataPath
	}
	if len(c.Events.Brokers) > 0 {
		s.KafkaBrokers = c.Events.Brokers
	}
	if c.Events.Topic != "" {
		s.KafkaTopic = c.Events.Topic
	}
	if c.Logging.Level != "" {
		s.LogLevel = c.Logging.Level
	}
	if c.Logging.Format != "" {
		s.LogFormat = c.Logging.Format
	}

	durations := []struct {
		field string
		raw   string
		dst   *time.Duration
	}{
		{"server.readTimeout", c.Server.ReadTimeout, &s.ReadTimeout},
		{"server.writeTimeout", c.Server.WriteTimeout, &s.WriteTimeout},
		{"models.loadTimeout", c.Models.LoadTimeout, &s.ModelLoadTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.field, d.raw, err)
		}
		*d.dst = v
	}
	return nil
}

// finish applies environment overrides, fills derived values and validates.
func finish(s Settings) (Settings, error) {
	s.Port = getIntOrDefault(common.EnvPort, s.Port)
	s.ModelsDir = getEnvOrDefault(common.EnvModelsDir, s.ModelsDir)
	s.ONNXRuntimeLib = getEnvOrDefault(common.EnvONNXRuntimeLib, s.ONNXRuntimeLib)
	s.EagerLoad = getBoolOrDefault(common.EnvEagerLoad, s.EagerLoad)
	s.ModelLoadTimeout = getDurationOrDefault(common.EnvModelLoadTimeout, s.ModelLoadTimeout)
	s.DataPath = getEnvOrDefault(common.EnvDataPath, s.DataPath)
	s.ReadTimeout = getDurationOrDefault(common.EnvReadTimeout, s.ReadTimeout)
	s.WriteTimeout = getDurationOrDefault(common.EnvWriteTimeout, s.WriteTimeout)
	s.MaxRequestBody = int64(getIntOrDefault(common.EnvMaxRequestBody, int(s.MaxRequestBody)))
	s.KafkaBrokers = splitOrDefault(os.Getenv(common.EnvKafkaBrokers), s.KafkaBrokers)
	s.KafkaTopic = getEnvOrDefault(common.EnvKafkaTopic, s.KafkaTopic)
	s.LogLevel = strings.ToLower(getEnvOrDefault(common.EnvLogLevel, s.LogLevel))
	s.LogFormat = strings.ToLower(getEnvOrDefault(common.EnvLogFormat, s.LogFormat))

	if s.ONNXRuntimeLib == "" {
		s.ONNXRuntimeLib = filepath.Join(s.ModelsDir, common.DefaultONNXRuntimeLib)
	}

	if err := validateSettings(&s); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return s, nil
}

// HistoryEnabled reports whether assessments are persisted.
func (s *Settings) HistoryEnabled() bool {
	return s.DataPath != ""
}

// EventsEnabled reports whether assessments are published to Kafka.
func (s *Settings) EventsEnabled() bool {
	return len(s.KafkaBrokers) > 0
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// validateSettings performs validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.Port < common.MinPort || settings.Port > common.MaxPort {
		return fmt.Errorf("port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.Port)
	}

	if settings.ModelsDir == "" {
		return fmt.Errorf("models directory cannot be empty")
	}
	if settings.ModelLoadTimeout <= 0 || settings.ModelLoadTimeout > common.MaxModelLoadTimeout {
		return fmt.Errorf("model load timeout must be between 0 and %v, got %v", common.MaxModelLoadTimeout, settings.ModelLoadTimeout)
	}

	// Validate time durations
	if settings.ReadTimeout < time.Second || settings.ReadTimeout > common.MaxHTTPTimeout {
		return fmt.Errorf("read timeout must be between 1s and %v, got %v", common.MaxHTTPTimeout, settings.ReadTimeout)
	}
	if settings.WriteTimeout < time.Second || settings.WriteTimeout > common.MaxHTTPTimeout {
		return fmt.Errorf("write timeout must be between 1s and %v, got %v", common.MaxHTTPTimeout, settings.WriteTimeout)
	}

	if settings.MaxRequestBody <= 0 || settings.MaxRequestBody > common.MaxRequestBodyLimit {
		return fmt.Errorf("max request body must be between 1 and %d bytes, got %d", common.MaxRequestBodyLimit, settings.MaxRequestBody)
	}

	if len(settings.KafkaBrokers) > 0 && settings.KafkaTopic == "" {
		return fmt.Errorf("kafka topic is required when brokers are set")
	}

	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil || settings.LogLevel == "" {
		return fmt.Errorf("invalid log level %q", settings.LogLevel)
	}
	if settings.LogFormat != common.LogFormatJSON && settings.LogFormat != common.LogFormatConsole {
		return fmt.Errorf("log format must be %q or %q, got %q", common.LogFormatJSON, common.LogFormatConsole, settings.LogFormat)
	}

	return nil
}
