package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Assistant AssistantConfig
	Knowledge KnowledgeConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type AIConfig struct {
	OpenAIAPIKey   string
	Model          string
	EmbeddingModel string
	Temperature    float64
	// DummyMode 为true时跳过所有OpenAI调用，直接走关键词匹配
	DummyMode bool
}

type AssistantConfig struct {
	CompanyName string
	BookingURL  string
}

type KnowledgeConfig struct {
	// Path 知识库CSV路径（question,answer两列）
	Path string
	// TopK 检索返回的上下文条数
	TopK int
}

type CORSConfig struct {
	// AllowedOrigins 为空时放行所有来源（开发模式）
	AllowedOrigins []string
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
}

var AppConfig *Config

func LoadConfig() error {
	// 设置默认值
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.env", "development")

	// AI配置默认值
	viper.SetDefault("ai.model", "gpt-4o-mini")
	viper.SetDefault("ai.embedding_model", "text-embedding-3-small")
	viper.SetDefault("ai.temperature", 0.4)
	viper.SetDefault("ai.dummy_mode", false)

	// 助手人设默认值
	viper.SetDefault("assistant.company_name", "{{FÖRETAGSNAMN}}")
	viper.SetDefault("assistant.booking_url", "{{BOKNINGSLÄNK}}")

	// 知识库默认值
	viper.SetDefault("knowledge.path", "./knowledge_base.csv")
	viper.SetDefault("knowledge.top_k", 3)

	// CORS与限流默认值
	viper.SetDefault("cors.allowed_origins", []string{})
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests_per_minute", 60)

	// 读取环境变量
	viper.SetEnvPrefix("CHATBOT")
	viper.AutomaticEnv()

	// 兼容原有环境变量命名
	if port := os.Getenv("PORT"); port != "" {
		viper.Set("server.port", port)
	}
	if env := os.Getenv("ENV"); env != "" {
		viper.Set("server.env", env)
	}
	if openaiKey := os.Getenv("OPENAI_API_KEY"); openaiKey != "" {
		viper.Set("ai.openai_api_key", openaiKey)
	}
	if model := os.Getenv("MODEL"); model != "" {
		viper.Set("ai.model", model)
	}
	if embeddingModel := os.Getenv("EMBEDDING_MODEL"); embeddingModel != "" {
		viper.Set("ai.embedding_model", embeddingModel)
	}
	if dummyMode := os.Getenv("DUMMY_MODE"); strings.EqualFold(dummyMode, "true") {
		viper.Set("ai.dummy_mode", true)
	}
	if companyName := os.Getenv("COMPANY_NAME"); companyName != "" {
		viper.Set("assistant.company_name", companyName)
	}
	if bookingURL := os.Getenv("BOOKING_URL"); bookingURL != "" {
		viper.Set("assistant.booking_url", bookingURL)
	}
	if kbPath := os.Getenv("KB_PATH"); kbPath != "" {
		viper.Set("knowledge.path", kbPath)
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		// 支持逗号分隔的来源列表
		parts := strings.Split(origins, ",")
		allowed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				allowed = append(allowed, p)
			}
		}
		viper.Set("cors.allowed_origins", allowed)
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		AI: AIConfig{
			OpenAIAPIKey:   viper.GetString("ai.openai_api_key"),
			Model:          viper.GetString("ai.model"),
			EmbeddingModel: viper.GetString("ai.embedding_model"),
			Temperature:    viper.GetFloat64("ai.temperature"),
			DummyMode:      viper.GetBool("ai.dummy_mode"),
		},
		Assistant: AssistantConfig{
			CompanyName: viper.GetString("assistant.company_name"),
			BookingURL:  viper.GetString("assistant.booking_url"),
		},
		Knowledge: KnowledgeConfig{
			Path: viper.GetString("knowledge.path"),
			TopK: viper.GetInt("knowledge.top_k"),
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("cors.allowed_origins"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           viper.GetBool("rate_limit.enabled"),
			RequestsPerMinute: viper.GetInt("rate_limit.requests_per_minute"),
		},
	}

	return nil
}

// GetAppConfig 获取全局配置，未加载时返回默认配置
func GetAppConfig() *Config {
	if AppConfig == nil {
		_ = LoadConfig()
	}
	return AppConfig
}
