package router

import (
	"github.com/aihub/chatbot-go/app/controllers"
	"github.com/aihub/chatbot-go/app/middleware"
	"github.com/beego/beego/v2/server/web"
)

// Init registers all routes. Must be called after config is loaded.
func Init() {
	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.HealthController{}, "get:Health")
	web.Router("/metrics", &controllers.MetricsController{}, "get:Metrics")

	web.InsertFilter("/*", web.BeforeRouter, middleware.CORSMiddleware)
	web.InsertFilter("/api/*", web.BeforeRouter, middleware.RateLimitMiddleware)

	web.Router("/api/chat", &controllers.ChatController{}, "post:Post")
	web.Router("/api/lead", &controllers.LeadController{}, "post:Post")
}
