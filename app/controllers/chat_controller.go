package controllers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/aihub/chatbot-go/internal/errors"
	"github.com/aihub/chatbot-go/internal/services"
)

// ChatController 聊天接口
type ChatController struct {
	BaseController
}

// Post 处理 POST /api/chat。
// 只有message缺失会返回400，其余故障都在服务层降级成可用回复。
func (c *ChatController) Post() {
	var req services.ChatRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONBadRequest("message saknas")
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSONBadRequest("message saknas")
		return
	}

	chatService := services.GetChatService()
	if chatService == nil {
		c.JSONError(http.StatusServiceUnavailable, "Tjänsten startar, försök igen strax.")
		return
	}

	result, err := chatService.Chat(c.Ctx.Request.Context(), &req)
	if err != nil {
		appErr := apperrors.GetAppError(err)
		c.JSONError(appErr.HTTPCode, appErr.Message)
		return
	}

	c.JSON(http.StatusOK, services.ChatResponse{Reply: result.Reply})
}
