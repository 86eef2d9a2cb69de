package controllers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/aihub/chatbot-go/internal/errors"
	"github.com/aihub/chatbot-go/internal/services"
)

// LeadController lead采集接口
type LeadController struct {
	BaseController
}

// Post 处理 POST /api/lead，邮箱和电话至少要有一项
func (c *LeadController) Post() {
	var req services.LeadRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONBadRequest("Minst e-post eller telefon krävs")
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSONBadRequest("Minst e-post eller telefon krävs")
		return
	}

	leadService := services.GetLeadService()
	if leadService == nil {
		c.JSONError(http.StatusServiceUnavailable, "Tjänsten startar, försök igen strax.")
		return
	}

	lead, err := leadService.Add(&req)
	if err != nil {
		appErr := apperrors.GetAppError(err)
		c.JSONError(appErr.HTTPCode, appErr.Message)
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"ok":   true,
		"lead": lead,
	})
}
