package services

import (
	"context"
	"errors"
	"testing"

	"github.com/aihub/chatbot-go/internal/config"
	apperrors "github.com/aihub/chatbot-go/internal/errors"
	"github.com/aihub/chatbot-go/internal/knowledge"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCompletionClient 可控的生成后端替身
type stubCompletionClient struct {
	reply    string
	err      error
	noChoice bool
	calls    int
	lastReq  openai.ChatCompletionRequest
}

func (s *stubCompletionClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	if s.noChoice {
		return openai.ChatCompletionResponse{}, nil
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: "assistant", Content: s.reply}},
		},
	}, nil
}

// stubQueryEmbedder 服务层测试用的向量生成器
type stubQueryEmbedder struct {
	err error
}

func (s *stubQueryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubQueryEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (s *stubQueryEmbedder) Dimensions() int { return 3 }
func (s *stubQueryEmbedder) Ready() bool     { return true }

func testConfig() *config.Config {
	return &config.Config{
		AI: config.AIConfig{
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    0.4,
		},
		Assistant: config.AssistantConfig{
			CompanyName: "Testbolaget",
			BookingURL:  "https://example.com/boka",
		},
		Knowledge: config.KnowledgeConfig{TopK: 3},
	}
}

func priceRecords() []knowledge.Record {
	return []knowledge.Record{{Question: "Vad kostar det?", Answer: "99 kr/mån"}}
}

// newTestService 组装一个检索索引为空（走无上下文路径）的服务
func newTestService(cfg *config.Config, records []knowledge.Record, client CompletionClient) *ChatService {
	retriever := knowledge.NewContextRetriever(records, knowledge.NewVectorIndex(), &stubQueryEmbedder{}, cfg.Knowledge.TopK)
	return NewChatService(cfg, records, retriever, knowledge.NewKeywordMatcher(), client, nil)
}

func TestChatMissingMessageRejectedBeforeAnything(t *testing.T) {
	client := &stubCompletionClient{reply: "svar"}
	service := newTestService(testConfig(), priceRecords(), client)

	for _, req := range []*ChatRequest{nil, {}, {Message: "   "}} {
		result, err := service.Chat(context.Background(), req)
		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, apperrors.IsValidation(err))

		appErr := apperrors.GetAppError(err)
		assert.Equal(t, apperrors.ErrCodeMissingMessage, appErr.Code)
		assert.Equal(t, 400, appErr.HTTPCode)
	}
	// 验证短路：生成后端从未被调用
	assert.Equal(t, 0, client.calls)
}

func TestChatSuccess(t *testing.T) {
	client := &stubCompletionClient{reply: "  Det kostar 99 kr/mån.  "}
	service := newTestService(testConfig(), priceRecords(), client)

	result, err := service.Chat(context.Background(), &ChatRequest{Message: "vad kostar det"})
	require.NoError(t, err)
	assert.Equal(t, "Det kostar 99 kr/mån.", result.Reply)
	assert.Equal(t, SourceModel, result.Source)
	assert.Equal(t, StateSucceeded, result.State)

	assert.Equal(t, "gpt-4o-mini", client.lastReq.Model)
	assert.InDelta(t, 0.4, float64(client.lastReq.Temperature), 1e-6)
}

func TestChatMessageOrder(t *testing.T) {
	// 构建有内容的索引，让上下文system消息出现
	embedder := &stubQueryEmbedder{}
	index := knowledge.NewVectorIndex()
	require.NoError(t, index.Build(context.Background(), priceRecords(), embedder))

	cfg := testConfig()
	retriever := knowledge.NewContextRetriever(priceRecords(), index, embedder, cfg.Knowledge.TopK)
	client := &stubCompletionClient{reply: "ok"}
	service := NewChatService(cfg, priceRecords(), retriever, knowledge.NewKeywordMatcher(), client, nil)

	history := []ChatMessage{
		{Role: "user", Content: "hej"},
		{Role: "assistant", Content: "Hej! Hur kan jag hjälpa dig?"},
	}
	_, err := service.Chat(context.Background(), &ChatRequest{Message: "vad kostar det", History: history})
	require.NoError(t, err)

	messages := client.lastReq.Messages
	require.Len(t, messages, 5)

	// 人设 → 上下文 → 历史（保序） → 当前消息
	assert.Equal(t, "system", messages[0].Role)
	assert.Contains(t, messages[0].Content, "Testbolaget")
	assert.Contains(t, messages[0].Content, "https://example.com/boka")

	assert.Equal(t, "system", messages[1].Role)
	assert.Contains(t, messages[1].Content, "KONTEKST FRÅN KB:")
	assert.Contains(t, messages[1].Content, "Q: Vad kostar det?\nA: 99 kr/mån")

	assert.Equal(t, "hej", messages[2].Content)
	assert.Equal(t, "Hej! Hur kan jag hjälpa dig?", messages[3].Content)

	assert.Equal(t, "user", messages[4].Role)
	assert.Equal(t, "vad kostar det", messages[4].Content)
}

func TestChatNoContextMessageWhenIndexEmpty(t *testing.T) {
	client := &stubCompletionClient{reply: "ok"}
	service := newTestService(testConfig(), priceRecords(), client)

	_, err := service.Chat(context.Background(), &ChatRequest{Message: "vad kostar det"})
	require.NoError(t, err)

	// 只有人设和用户消息，没有上下文system消息
	require.Len(t, client.lastReq.Messages, 2)
	assert.Equal(t, "system", client.lastReq.Messages[0].Role)
	assert.Equal(t, "user", client.lastReq.Messages[1].Role)
}

func TestChatEmptyCompletionGetsRephrasePrompt(t *testing.T) {
	client := &stubCompletionClient{reply: "   "}
	service := newTestService(testConfig(), priceRecords(), client)

	result, err := service.Chat(context.Background(), &ChatRequest{Message: "vad kostar det"})
	require.NoError(t, err)
	assert.Equal(t, "Jag är osäker, kan du omformulera?", result.Reply)
	assert.Equal(t, StateSucceeded, result.State)
}

func TestChatGenerationFailureDegradesToKeyword(t *testing.T) {
	client := &stubCompletionClient{err: errors.New("401 unauthorized")}
	service := newTestService(testConfig(), priceRecords(), client)

	result, err := service.Chat(context.Background(), &ChatRequest{Message: "vad kostar det"})
	require.NoError(t, err)
	assert.Equal(t, "99 kr/mån", result.Reply)
	assert.Equal(t, SourceKeyword, result.Source)
	assert.Equal(t, StateDegradedToKeyword, result.State)
	// 不重试生成后端
	assert.Equal(t, 1, client.calls)
}

func TestChatGenerationFailureEmptyKBGetsApology(t *testing.T) {
	client := &stubCompletionClient{err: errors.New("network error")}
	service := newTestService(testConfig(), nil, client)

	result, err := service.Chat(context.Background(), &ChatRequest{Message: "vad kostar det"})
	require.NoError(t, err)
	assert.Equal(t, "Jag kan tyvärr inte svara just nu.", result.Reply)
	assert.Equal(t, SourceApology, result.Source)
	assert.Equal(t, StateDegradedToApology, result.State)
}

func TestChatNoChoicesDegrades(t *testing.T) {
	client := &stubCompletionClient{noChoice: true}
	service := newTestService(testConfig(), priceRecords(), client)

	result, err := service.Chat(context.Background(), &ChatRequest{Message: "vad kostar det"})
	require.NoError(t, err)
	assert.Equal(t, "99 kr/mån", result.Reply)
	assert.Equal(t, StateDegradedToKeyword, result.State)
}

func TestChatNilClientDegrades(t *testing.T) {
	service := newTestService(testConfig(), priceRecords(), nil)

	result, err := service.Chat(context.Background(), &ChatRequest{Message: "vad kostar det"})
	require.NoError(t, err)
	assert.Equal(t, "99 kr/mån", result.Reply)
	assert.Equal(t, StateDegradedToKeyword, result.State)
}

func TestChatRetrievalFailureContinuesWithoutContext(t *testing.T) {
	// 索引有内容但查询时向量化失败：检索失败被吸收，生成照常进行
	buildEmbedder := &stubQueryEmbedder{}
	index := knowledge.NewVectorIndex()
	require.NoError(t, index.Build(context.Background(), priceRecords(), buildEmbedder))

	cfg := testConfig()
	failingEmbedder := &stubQueryEmbedder{err: errors.New("embedding timeout")}
	retriever := knowledge.NewContextRetriever(priceRecords(), index, failingEmbedder, cfg.Knowledge.TopK)
	client := &stubCompletionClient{reply: "svar utan kontext"}
	service := NewChatService(cfg, priceRecords(), retriever, knowledge.NewKeywordMatcher(), client, nil)

	result, err := service.Chat(context.Background(), &ChatRequest{Message: "vad kostar det"})
	require.NoError(t, err)
	assert.Equal(t, "svar utan kontext", result.Reply)
	assert.Equal(t, StateSucceeded, result.State)
	require.Len(t, client.lastReq.Messages, 2)
}

func TestChatDummyModeSkipsGeneration(t *testing.T) {
	cfg := testConfig()
	cfg.AI.DummyMode = true
	client := &stubCompletionClient{reply: "ska inte användas"}
	service := newTestService(cfg, priceRecords(), client)

	result, err := service.Chat(context.Background(), &ChatRequest{Message: "vad kostar det"})
	require.NoError(t, err)
	assert.Equal(t, "99 kr/mån", result.Reply)
	assert.Equal(t, StateDegradedToKeyword, result.State)
	assert.Equal(t, 0, client.calls)
}

func TestChatDummyModeApology(t *testing.T) {
	cfg := testConfig()
	cfg.AI.DummyMode = true
	service := newTestService(cfg, priceRecords(), nil)

	result, err := service.Chat(context.Background(), &ChatRequest{Message: "xyzzy"})
	require.NoError(t, err)
	assert.Equal(t, "Jag kan tyvärr inte svara på det just nu.", result.Reply)
	assert.Equal(t, StateDegradedToApology, result.State)
}
