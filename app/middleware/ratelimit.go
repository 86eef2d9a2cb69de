package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aihub/chatbot-go/internal/config"
	"github.com/beego/beego/v2/server/web/context"
	"golang.org/x/time/rate"
)

// visitor 单个客户端的限流状态
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	visitorsMu sync.Mutex
	visitors   = make(map[string]*visitor)
)

func init() {
	// 定期清理不活跃的客户端，避免map无限增长
	go func() {
		for range time.Tick(5 * time.Minute) {
			visitorsMu.Lock()
			for ip, v := range visitors {
				if time.Since(v.lastSeen) > 10*time.Minute {
					delete(visitors, ip)
				}
			}
			visitorsMu.Unlock()
		}
	}()
}

// RateLimitMiddleware 按客户端IP限流的中间件（令牌桶，默认60次/分钟）
func RateLimitMiddleware(ctx *context.Context) {
	cfg := config.GetAppConfig().RateLimit
	if !cfg.Enabled {
		return
	}

	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}

	ip := clientIP(ctx)

	visitorsMu.Lock()
	v, ok := visitors[ip]
	if !ok {
		v = &visitor{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		}
		visitors[ip] = v
	}
	v.lastSeen = time.Now()
	visitorsMu.Unlock()

	if !v.limiter.Allow() {
		ctx.Output.SetStatus(http.StatusTooManyRequests)
		ctx.Output.JSON(map[string]interface{}{
			"error": "För många förfrågningar, försök igen senare.",
		}, true, false)
	}
}

// clientIP 获取客户端真实IP，优先代理头
func clientIP(ctx *context.Context) string {
	if xff := ctx.Input.Header("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	if xrip := ctx.Input.Header("X-Real-IP"); xrip != "" {
		return xrip
	}
	return ctx.Input.IP()
}
