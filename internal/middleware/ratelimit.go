package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"public-clipboard/internal/limiter"
)

// RateLimit 返回一个基于客户端地址的限流中间件。
// 限流器是进程内的滑动窗口，与 WebSocket 写路径共用同一个实例，
// 因此两个入口消耗同一份配额。
func RateLimit(sw *limiter.SlidingWindow) gin.HandlerFunc {
	if sw == nil {
		panic("SlidingWindow cannot be nil for RateLimit middleware")
	}
	return func(c *gin.Context) {
		// 在反向代理后面时 ClientIP 会读取 X-Forwarded-For
		if !sw.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}
