package services

import (
	"strings"
	"sync"
	"time"

	apperrors "github.com/aihub/chatbot-go/internal/errors"
	"github.com/aihub/chatbot-go/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Lead 潜在客户记录
type Lead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	Need      string    `json:"need,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LeadRequest lead采集请求，邮箱和电话至少填一项
type LeadRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email" validate:"required_without=Phone"`
	Phone   string `json:"phone" validate:"required_without=Email"`
	Company string `json:"company"`
	Need    string `json:"need"`
}

// LeadService 进程内追加式lead存储，不做持久化
type LeadService struct {
	mu      sync.Mutex
	leads   []Lead
	metrics *MetricsService
	logger  *zap.Logger
}

// NewLeadService 创建lead服务
func NewLeadService(metrics *MetricsService) *LeadService {
	return &LeadService{
		metrics: metrics,
		logger:  logger.GetLogger(),
	}
}

// Add 保存一条lead。缺少联系方式时返回验证错误。
func (s *LeadService) Add(req *LeadRequest) (*Lead, error) {
	if req == nil || (strings.TrimSpace(req.Email) == "" && strings.TrimSpace(req.Phone) == "") {
		return nil, apperrors.NewValidationError(apperrors.ErrCodeMissingContact, "Minst e-post eller telefon krävs")
	}

	lead := Lead{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Company:   strings.TrimSpace(req.Company),
		Need:      strings.TrimSpace(req.Need),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.leads = append(s.leads, lead)
	total := len(s.leads)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ObserveLead()
	}
	s.logger.Info("Lead captured",
		zap.String("lead_id", lead.ID),
		zap.Int("total", total))

	return &lead, nil
}

// Count 当前lead数量
func (s *LeadService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.leads)
}

// List 返回lead列表的副本
func (s *LeadService) List() []Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Lead, len(s.leads))
	copy(out, s.leads)
	return out
}

// 全局lead服务实例
var globalLeadService *LeadService

// SetGlobalLeadService 设置全局lead服务
func SetGlobalLeadService(s *LeadService) {
	globalLeadService = s
}

// GetLeadService 获取全局lead服务
func GetLeadService() *LeadService {
	return globalLeadService
}
