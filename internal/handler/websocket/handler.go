package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"public-clipboard/internal/handler"
	"public-clipboard/internal/hub"
)

// WebSocketHandler 负责 WebSocket 升级和客户端接入。
// 连接建立后客户端处于未加入状态，协议交互全部在 Hub 里进行。
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

func NewWebSocketHandler(h *hub.Hub) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 画板是公开匿名的，来源不做限制
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		hub: h,
	}
}

// HandleConnection 处理 GET /ws 的升级请求。
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	ip := handler.ClientIP(c.Request)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := hub.NewClient(h.hub, conn, ip)
	client.Run()
}
