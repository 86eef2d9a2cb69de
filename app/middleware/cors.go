package middleware

import (
	"github.com/aihub/chatbot-go/internal/config"
	"github.com/beego/beego/v2/server/web/context"
)

// CORSMiddleware CORS中间件。允许列表来自配置，
// 列表为空时放行所有来源（开发模式，与原始行为一致）。
func CORSMiddleware(ctx *context.Context) {
	origin := ctx.Input.Header("Origin")
	allowedOrigins := config.GetAppConfig().CORS.AllowedOrigins

	allowed := false
	if origin == "" || len(allowedOrigins) == 0 {
		// 同源请求或未配置列表时放行
		allowed = true
	} else {
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin {
				allowed = true
				break
			}
		}
	}

	if !allowed {
		ctx.Output.SetStatus(403)
		ctx.Output.JSON(map[string]interface{}{
			"error": "Origin not allowed by CORS: " + origin,
		}, true, false)
		return
	}

	if origin != "" {
		ctx.Output.Header("Access-Control-Allow-Origin", origin)
	} else {
		ctx.Output.Header("Access-Control-Allow-Origin", "*")
	}
	ctx.Output.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	ctx.Output.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin")
	ctx.Output.Header("Access-Control-Max-Age", "3600")

	// 处理OPTIONS预检请求
	if ctx.Input.Method() == "OPTIONS" {
		ctx.Output.SetStatus(204)
		ctx.Output.Body([]byte(""))
	}
}
