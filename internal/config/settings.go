package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Settings holds the values that change between deployments. The constants in
// environmentVariables.go are the defaults.
type Settings struct {
	Prod       bool   `mapstructure:"prod"`
	LogLevel   string `mapstructure:"log_level"`
	ListenAddr string `mapstructure:"listen_addr"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisPoolSize int    `mapstructure:"redis_pool_size"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	QdrantHost    string `mapstructure:"qdrant_host"`
	QdrantPort    int    `mapstructure:"qdrant_port"`

	LLMProvider         string `mapstructure:"llm_provider"`
	OpenAIAPIKey        string `mapstructure:"openai_api_key"`
	OpenAIChatModel     string `mapstructure:"openai_chat_model"`
	OpenAIEmbedModel    string `mapstructure:"openai_embed_model"`
	GoogleAPIKey        string `mapstructure:"google_api_key"`
	GeminiModel         string `mapstructure:"gemini_model"`
	GoogleEmbedModel    string `mapstructure:"google_embed_model"`
	EmbeddingDimensions int    `mapstructure:"embedding_dimensions"`

	SearchProvider string `mapstructure:"search_provider"`
	SearchAPIKey   string `mapstructure:"search_api_key"`

	JWTSecret  string `mapstructure:"jwt_secret"`
	AuthBypass bool   `mapstructure:"auth_bypass"`

	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int     `mapstructure:"rate_limit_burst"`
}

func defaults() Settings {
	return Settings{
		LogLevel:            "debug",
		ListenAddr:          ServerListenAddr,
		RedisAddr:           RedisAddr,
		PostgresDSN:         PostgresDSN,
		QdrantHost:          QdrantHost,
		QdrantPort:          QdrantGrpcPort,
		LLMProvider:         LLMProviderOpenAI,
		OpenAIChatModel:     OpenAIChatModel,
		OpenAIEmbedModel:    OpenAIEmbedModel,
		GeminiModel:         GeminiModelName,
		GoogleEmbedModel:    GoogleEmbedModel,
		EmbeddingDimensions: int(EmbeddingOutputDimensionality),
		SearchProvider:      "serper",
		RateLimitPerSecond:  RATE_LIMIT_PER_SECOND,
		RateLimitBurst:      BURST_RATE_LIMIT_PER_SECOND,
	}
}

// Load reads config.yaml (optional) and RESEARCH_* environment variables on top
// of the defaults. path may be empty.
func Load(path string) (Settings, error) {
	v := viper.New()
	d := defaults()
	v.SetDefault("prod", d.Prod)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("redis_addr", d.RedisAddr)
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_pool_size", 0)
	v.SetDefault("postgres_dsn", d.PostgresDSN)
	v.SetDefault("qdrant_host", d.QdrantHost)
	v.SetDefault("qdrant_port", d.QdrantPort)
	v.SetDefault("llm_provider", d.LLMProvider)
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_chat_model", d.OpenAIChatModel)
	v.SetDefault("openai_embed_model", d.OpenAIEmbedModel)
	v.SetDefault("google_api_key", "")
	v.SetDefault("gemini_model", d.GeminiModel)
	v.SetDefault("google_embed_model", d.GoogleEmbedModel)
	v.SetDefault("embedding_dimensions", d.EmbeddingDimensions)
	v.SetDefault("search_provider", d.SearchProvider)
	v.SetDefault("search_api_key", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("auth_bypass", false)
	v.SetDefault("rate_limit_per_second", d.RateLimitPerSecond)
	v.SetDefault("rate_limit_burst", d.RateLimitBurst)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	switch s.LLMProvider {
	case LLMProviderOpenAI, LLMProviderGemini:
	default:
		return fmt.Errorf("llm_provider must be %q or %q, got %q", LLMProviderOpenAI, LLMProviderGemini, s.LLMProvider)
	}
	if s.EmbeddingDimensions <= 0 {
		return errors.New("embedding_dimensions must be > 0")
	}
	if !s.AuthBypass && s.JWTSecret == "" {
		return errors.New("jwt_secret is required unless auth_bypass is set")
	}
	if s.RateLimitPerSecond <= 0 || s.RateLimitBurst <= 0 {
		return errors.New("rate_limit_per_second and rate_limit_burst must be > 0")
	}
	return nil
}
