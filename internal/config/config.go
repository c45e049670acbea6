package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" validate:"required"`
	Storage StorageConfig `mapstructure:"storage" validate:"required"`
	Task    TaskConfig    `mapstructure:"task" validate:"required"`
	STT     STTConfig     `mapstructure:"stt" validate:"required"`
	LLM     LLMConfig     `mapstructure:"llm" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// ShutdownTimeoutSeconds bounds how long graceful shutdown waits for open requests
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// StorageConfig controls where uploaded videos are kept while they are analyzed.
type StorageConfig struct {
	UploadDir         string   `mapstructure:"upload_dir" validate:"required"`
	MaxUploadBytes    int64    `mapstructure:"max_upload_bytes" validate:"gt=0"`
	AllowedExtensions []string `mapstructure:"allowed_extensions" validate:"required,min=1,dive,startswith=."`
}

// TaskConfig contains settings for the background analysis workers.
type TaskConfig struct {
	// WorkerCount is the number of videos analyzed concurrently
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
	// QueueSize is the number of accepted videos that may wait for a worker
	QueueSize int `mapstructure:"queue_size" validate:"gt=0"`
}

// STTConfig selects and configures the speech-to-text backend.
type STTConfig struct {
	Provider string `mapstructure:"provider" validate:"required,oneof=whisper gemini"`
	Language string `mapstructure:"language" validate:"required"`
	// WhisperBinary is the whisper CLI executable, looked up in PATH when not absolute
	WhisperBinary string `mapstructure:"whisper_binary" validate:"required_if=Provider whisper"`
	WhisperModel  string `mapstructure:"whisper_model" validate:"required_if=Provider whisper"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name" validate:"required"`
	// TranscriptionModel is used when STT.Provider is "gemini"
	TranscriptionModel string `mapstructure:"transcription_model" validate:"required"`
	// PromptTemplatePath overrides the built-in extraction prompt when set
	PromptTemplatePath string `mapstructure:"prompt_template_path"`
}
