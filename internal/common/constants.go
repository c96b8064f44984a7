package common

import "time"

// Environment variable keys
const (
	EnvConfigFile       = "CONFIG_FILE"
	EnvPort             = "PORT"
	EnvModelsDir        = "MODELS_DIR"
	EnvONNXRuntimeLib   = "ONNXRUNTIME_LIB"
	EnvEagerLoad        = "EAGER_LOAD"
	EnvModelLoadTimeout = "MODEL_LOAD_TIMEOUT"
	EnvDataPath         = "DATA_PATH"
	EnvReadTimeout      = "READ_TIMEOUT"
	EnvWriteTimeout     = "WRITE_TIMEOUT"
	EnvMaxRequestBody   = "MAX_REQUEST_BODY"
	EnvKafkaBrokers     = "KAFKA_BROKERS"
	EnvKafkaTopic       = "KAFKA_TOPIC"
	EnvLogLevel         = "LOG_LEVEL"
	EnvLogFormat        = "LOG_FORMAT"
)

// Configuration defaults
const (
	DefaultPort             = 8080
	DefaultModelsDir        = "models/saved"
	DefaultONNXRuntimeLib   = "libonnxruntime.so" // relative to the models directory
	DefaultEagerLoad        = true
	DefaultModelLoadTimeout = 5 * time.Second
	DefaultReadTimeout      = 10 * time.Second
	DefaultWriteTimeout     = 15 * time.Second
	DefaultMaxRequestBody   = 1 << 20 // 1 MiB
	DefaultKafkaTopic       = "risk-assessments"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
)

// Log formats
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Validation constants
const (
	MinPort             = 1024
	MaxPort             = 65535
	MaxModelLoadTimeout = 2 * time.Minute
	MaxHTTPTimeout      = 5 * time.Minute
	MaxRequestBodyLimit = 64 << 20 // 64 MiB
)
