package controllers

import (
	"net/http"

	"github.com/aihub/chatbot-go/app/bootstrap"
)

// RootController 服务信息
type RootController struct {
	BaseController
}

// Index 返回服务标识
func (c *RootController) Index() {
	c.JSON(http.StatusOK, map[string]interface{}{
		"service": "chatbot-go",
		"status":  "running",
	})
}

// HealthController 健康检查
type HealthController struct {
	BaseController
}

// Health 返回 {ok:true, kb_rows:n}
func (c *HealthController) Health() {
	kbRows := 0
	if app := bootstrap.GetApp(); app != nil {
		kbRows = app.KnowledgeRows()
	}
	c.JSON(http.StatusOK, map[string]interface{}{
		"ok":      true,
		"kb_rows": kbRows,
	})
}
