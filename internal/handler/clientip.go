package handler

import (
	"net/http"
	"strings"
)

// ClientIP 解析请求的客户端地址：优先取 X-Forwarded-For 的第一跳。
// WebSocket 握手和 HTTP 兜底接口共用这一套规则，封禁判定才能对得上。
func ClientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		if idx := strings.Index(header, ","); idx >= 0 {
			return strings.TrimSpace(header[:idx])
		}
		return strings.TrimSpace(header)
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
