package bootstrap

import (
	"context"
	"log"
	"time"

	"github.com/aihub/chatbot-go/internal/config"
	"github.com/aihub/chatbot-go/internal/di"
	apperrors "github.com/aihub/chatbot-go/internal/errors"
	"github.com/aihub/chatbot-go/internal/knowledge"
	"github.com/aihub/chatbot-go/internal/logger"
	"github.com/aihub/chatbot-go/internal/services"
	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// 整库向量化的启动预算，超时只意味着索引留空、检索走关键词兜底
const embeddingBuildTimeout = 2 * time.Minute

// App encapsulates process-wide state built once at startup and read-only
// afterwards (knowledge records, vector index) plus cleanup tasks.
type App struct {
	cleanupTasks []func() error
	records      []knowledge.Record
	index        *knowledge.VectorIndex
}

// KnowledgeRows returns the number of loaded knowledge records.
func (a *App) KnowledgeRows() int {
	return len(a.records)
}

// IndexReady reports whether the embedding build has completed.
func (a *App) IndexReady() bool {
	return a.index != nil && a.index.HasEntries()
}

// Global app instance for controllers to access
var globalApp *App

// GetApp returns the global app instance
func GetApp() *App {
	return globalApp
}

// Init bootstraps configuration, logger, the knowledge base and the service
// graph required by the Beego application.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize structured logger.
	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	// Load dynamic configuration.
	if err := config.LoadConfig(); err != nil {
		return nil, err
	}
	cfg := config.AppConfig

	app := &App{index: knowledge.NewVectorIndex()}

	// 加载知识库。失败只降级，不阻止启动——之后全程无上下文模式。
	records, err := knowledge.LoadRecords(cfg.Knowledge.Path)
	if err != nil {
		kbErr := apperrors.NewDegradationError(apperrors.ErrCodeKBUnavailable, "knowledge base unavailable").WithCause(err)
		logger.Warn("Could not read knowledge base, continuing without local knowledge",
			zap.String("path", cfg.Knowledge.Path),
			zap.String("code", string(kbErr.Code)),
			zap.Error(err))
		records = nil
	} else {
		logger.Info("Knowledge base loaded",
			zap.String("path", cfg.Knowledge.Path),
			zap.Int("rows", len(records)))
	}
	app.records = records

	// 通过DI容器组装服务依赖图
	container := di.InitContainer()
	providers := []interface{}{
		func() *config.Config { return cfg },
		func() []knowledge.Record { return records },
		func() *knowledge.VectorIndex { return app.index },
		func(c *config.Config) knowledge.Embedder {
			if c.AI.DummyMode {
				return &knowledge.NoopEmbedder{}
			}
			return knowledge.NewOpenAIEmbedder(c.AI.OpenAIAPIKey, c.AI.EmbeddingModel)
		},
		func(c *config.Config) services.CompletionClient {
			if c.AI.DummyMode {
				return nil
			}
			return openai.NewClient(c.AI.OpenAIAPIKey)
		},
		func(recs []knowledge.Record, index *knowledge.VectorIndex, embedder knowledge.Embedder, c *config.Config) *knowledge.ContextRetriever {
			return knowledge.NewContextRetriever(recs, index, embedder, c.Knowledge.TopK)
		},
		knowledge.NewKeywordMatcher,
		services.NewMetricsService,
		services.NewChatService,
		services.NewLeadService,
	}
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	var embedder knowledge.Embedder
	err = container.Invoke(func(chat *services.ChatService, lead *services.LeadService, emb knowledge.Embedder) {
		services.SetGlobalChatService(chat)
		services.SetGlobalLeadService(lead)
		embedder = emb
	})
	if err != nil {
		return nil, err
	}

	// 启动时异步构建向量索引。服务在构建完成前就开始接收请求，
	// 此时检索透明退回关键词匹配；构建失败同样只是留空索引。
	if len(records) > 0 && embedder.Ready() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), embeddingBuildTimeout)
			defer cancel()

			if err := app.index.Build(ctx, records, embedder); err != nil {
				logger.Warn("Could not build knowledge base embeddings",
					zap.Error(err))
				return
			}
			logger.Info("Knowledge base embeddings ready",
				zap.Int("entries", app.index.Len()))
		}()
	} else if len(records) > 0 {
		logger.Info("Embedding provider not configured, retrieval will use keyword matching")
	}

	globalApp = app
	return app, nil
}

// Shutdown closes resources gracefully and flushes log buffers.
func (a *App) Shutdown() {
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			log.Printf("Cleanup error: %v\n", err)
		}
	}
	logger.Sync()
}
