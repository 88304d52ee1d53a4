package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	ImageGen ImageGenConfig `mapstructure:"imagegen"`
	Stock    StockConfig    `mapstructure:"stock"`
	Render   RenderConfig   `mapstructure:"render"`
	Export   ExportConfig   `mapstructure:"export"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logs     LogsConfig     `mapstructure:"logs"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// LLMConfig drives caption generation through an OpenAI-compatible
// chat completions endpoint.
type LLMConfig struct {
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// ImageGenConfig drives the asynchronous AI image generation service.
// Optional: with an empty base URL the ai-generate mode is disabled and
// stock images remain available.
type ImageGenConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	APIKey            string `mapstructure:"api_key"`
	PollIntervalSecs  int    `mapstructure:"poll_interval_secs"`
	RetryIntervalSecs int    `mapstructure:"retry_interval_secs"`
}

type StockConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// RenderConfig controls card rasterization. FontFile points at an optional
// TTF with CJK coverage; without it the bundled Go fonts are used.
type RenderConfig struct {
	BaseWidth int    `mapstructure:"base_width"`
	Scale     int    `mapstructure:"scale"`
	FontFile  string `mapstructure:"font_file"`
}

type ExportConfig struct {
	Workers int `mapstructure:"workers"`
}

// StorageConfig configures the optional S3 archive upload for exports.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Provider  string `mapstructure:"provider"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
}

type LogsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 1500)
	v.SetDefault("imagegen.poll_interval_secs", 2)
	v.SetDefault("imagegen.retry_interval_secs", 5)
	v.SetDefault("stock.base_url", "https://picsum.photos")
	v.SetDefault("render.base_width", 800)
	v.SetDefault("render.scale", 2)
	v.SetDefault("export.workers", 4)
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.provider", "s3")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "rednote-exports")
	v.SetDefault("logs.buffer_size", 500)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("llm.api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.base_url", "OPENAI_BASE_URL")
	v.BindEnv("llm.model", "LLM_MODEL")
	v.BindEnv("imagegen.base_url", "IMAGEGEN_BASE_URL")
	v.BindEnv("imagegen.api_key", "IMAGEGEN_API_KEY")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	v.BindEnv("storage.use_ssl", "S3_USE_SSL")
	v.BindEnv("render.font_file", "RENDER_FONT_FILE")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate fails fast on configuration the service cannot run without.
// Caption generation requires LLM credentials; everything else degrades
// gracefully (image generation disabled, archive upload disabled).
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required: set OPENAI_API_KEY or llm.api_key in the config file")
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Storage.Enabled && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
		return fmt.Errorf("storage is enabled but S3_ACCESS_KEY/S3_SECRET_KEY are not set")
	}
	return nil
}
