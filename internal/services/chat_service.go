package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aihub/chatbot-go/internal/config"
	apperrors "github.com/aihub/chatbot-go/internal/errors"
	"github.com/aihub/chatbot-go/internal/knowledge"
	"github.com/aihub/chatbot-go/internal/logger"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// CompletionClient 聊天补全后端接口，*openai.Client直接满足
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatRequest 聊天请求
type ChatRequest struct {
	Message string        `json:"message" validate:"required"`
	History []ChatMessage `json:"history,omitempty"`
}

// ChatMessage 调用方携带的历史消息，原样透传给模型
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse 聊天响应
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ReplySource 标记回复来自哪一级降级，仅内部使用，不随响应返回
type ReplySource string

const (
	SourceModel   ReplySource = "model"
	SourceKeyword ReplySource = "keyword"
	SourceApology ReplySource = "apology"
)

// ChatResult 服务层结果，Source与State用于日志和指标
type ChatResult struct {
	Reply  string
	Source ReplySource
	State  ChatState
}

// ChatState 回答状态机的状态
type ChatState string

const (
	StateIdle              ChatState = "idle"
	StateRetrieving        ChatState = "retrieving"
	StateGenerating        ChatState = "generating"
	StateSucceeded         ChatState = "succeeded"
	StateDegradedToKeyword ChatState = "degraded_to_keyword"
	StateDegradedToApology ChatState = "degraded_to_apology"
)

// 固定回复文案（瑞典语，与人设一致）
const (
	// 模型返回空文本时的"请换个说法"
	replyPleaseRephrase = "Jag är osäker, kan du omformulera?"
	// 生成失败且关键词兜底也落空时的致歉语
	replyApologyDegraded = "Jag kan tyvärr inte svara just nu."
	// dummy模式下关键词落空时的致歉语
	replyApologyDummy = "Jag kan tyvärr inte svara på det just nu."
)

// ChatService 回答编排服务：检索上下文、调用生成后端、逐级降级。
// 除缺失message外不向调用方返回任何错误——语法合法的请求总能得到可用回复。
type ChatService struct {
	cfg       *config.Config
	records   []knowledge.Record
	retriever *knowledge.ContextRetriever
	matcher   *knowledge.KeywordMatcher
	client    CompletionClient
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewChatService 创建聊天服务
func NewChatService(
	cfg *config.Config,
	records []knowledge.Record,
	retriever *knowledge.ContextRetriever,
	matcher *knowledge.KeywordMatcher,
	client CompletionClient,
	metrics *MetricsService,
) *ChatService {
	return &ChatService{
		cfg:       cfg,
		records:   records,
		retriever: retriever,
		matcher:   matcher,
		client:    client,
		metrics:   metrics,
		logger:    logger.GetLogger(),
	}
}

// Chat 处理一次聊天请求。状态流转：
// Idle → Retrieving → Generating → {Succeeded, DegradedToKeyword, DegradedToApology}。
// 降级只发生一跳，绝不回头重试检索或生成。
func (s *ChatService) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	started := time.Now()

	// 验证先于任何状态流转
	if req == nil || strings.TrimSpace(req.Message) == "" {
		s.observe("validation_error", started)
		return nil, apperrors.NewValidationError(apperrors.ErrCodeMissingMessage, "message saknas")
	}

	// dummy模式：完全跳过Generating，直接走关键词匹配
	if s.cfg.AI.DummyMode {
		result := s.keywordReply(req.Message, replyApologyDummy)
		s.observe(s.outcome(result), started)
		return result, nil
	}

	// Idle → Retrieving：检索失败不致命，按无上下文继续
	contextBlock, err := s.retriever.Retrieve(ctx, req.Message)
	if err != nil {
		degradeErr := apperrors.NewDegradationError(apperrors.ErrCodeRetrievalFailed, "context retrieval failed").WithCause(err)
		s.logger.Warn("Context retrieval failed, continuing without context",
			zap.String("code", string(degradeErr.Code)),
			zap.Error(err))
		contextBlock = ""
	}

	// Retrieving → Generating
	result := s.generate(ctx, req, contextBlock)
	s.observe(s.outcome(result), started)
	return result, nil
}

// generate 调用生成后端并提取回复文本。任何失败（网络、鉴权、配额、
// 响应异常）一律视为GenerationFailure，不区分也不重试，立即降级到关键词匹配。
func (s *ChatService) generate(ctx context.Context, req *ChatRequest, contextBlock string) *ChatResult {
	if s.client == nil {
		s.logger.Warn("Completion client not configured, degrading to keyword match")
		return s.keywordReply(req.Message, replyApologyDegraded)
	}

	completion, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.cfg.AI.Model,
		Messages:    s.buildMessages(contextBlock, req),
		Temperature: float32(s.cfg.AI.Temperature),
	})
	if err != nil {
		degradeErr := apperrors.NewDegradationError(apperrors.ErrCodeGenerationFailed, "chat completion failed").WithCause(err)
		s.logger.Warn("Chat completion failed, degrading to keyword match",
			zap.String("code", string(degradeErr.Code)),
			zap.Error(err))
		return s.keywordReply(req.Message, replyApologyDegraded)
	}
	if len(completion.Choices) == 0 {
		s.logger.Warn("Chat completion returned no choices, degrading to keyword match")
		return s.keywordReply(req.Message, replyApologyDegraded)
	}

	// Generating → Succeeded
	reply := strings.TrimSpace(completion.Choices[0].Message.Content)
	if reply == "" {
		reply = replyPleaseRephrase
	}
	return &ChatResult{Reply: reply, Source: SourceModel, State: StateSucceeded}
}

// keywordReply 关键词兜底：命中则作为降级回复，落空则返回固定致歉语
func (s *ChatService) keywordReply(message, apology string) *ChatResult {
	if answer := s.matcher.Match(message, s.records); answer != "" {
		return &ChatResult{Reply: answer, Source: SourceKeyword, State: StateDegradedToKeyword}
	}
	s.logger.Info("Keyword matcher found nothing, replying with apology",
		zap.String("code", string(apperrors.ErrCodeNoMatch)))
	return &ChatResult{Reply: apology, Source: SourceApology, State: StateDegradedToApology}
}

// buildMessages 组装发给模型的消息序列：人设system消息、可选的上下文
// system消息（仅当检索到内容）、调用方历史（原样保序）、当前用户消息在最后
func (s *ChatService) buildMessages(contextBlock string, req *ChatRequest) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+3)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: s.systemPrompt(),
	})
	if contextBlock != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "KONTEKST FRÅN KB:\n" + contextBlock,
		})
	}
	for _, h := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    h.Role,
			Content: h.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})
	return messages
}

// systemPrompt 固定的助手人设与行为规则（公司名与预订链接来自配置）
func (s *ChatService) systemPrompt() string {
	return fmt.Sprintf(`Du är en professionell svensk kundservice- och säljassistent för företaget %s.
Mål: svara korrekt, kortfattat och trevligt, samla leads, och erbjuda bokning när det passar.
Regler:
- Svara på svenska.
- Om du är osäker: fråga ett förtydligande eller erbjud mänsklig handoff.
- Använd alltid fakta från kontexten först. Om inget hittas: ge ett försiktigt svar och markera att du är osäker.
- För säljfrågor: erbjud nästa steg (t.ex. 'Vill du boka en snabb demo?') och länka bokningen: %s.
- Samla lead-fält när relevant: namn, e-post, telefon, företagsnamn, behov (frivilligt). Bekräfta innan du sparar.
- Om användaren vill prata med människa: samla kontaktuppgifter och säg "Jag vidarebefordrar detta till en kollega direkt."
- Håll svaren under 120 ord. Använd punktlistor vid behov.`,
		s.cfg.Assistant.CompanyName, s.cfg.Assistant.BookingURL)
}

// outcome 状态到指标标签的映射
func (s *ChatService) outcome(result *ChatResult) string {
	switch result.State {
	case StateSucceeded:
		return "success"
	case StateDegradedToKeyword:
		return "degraded_keyword"
	default:
		return "degraded_apology"
	}
}

func (s *ChatService) observe(outcome string, started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveChat(outcome, time.Since(started))
	}
}

// 全局聊天服务实例，bootstrap初始化后供controller使用
var globalChatService *ChatService

// SetGlobalChatService 设置全局聊天服务
func SetGlobalChatService(s *ChatService) {
	globalChatService = s
}

// GetChatService 获取全局聊天服务
func GetChatService() *ChatService {
	return globalChatService
}
