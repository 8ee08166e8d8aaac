package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"public-clipboard/internal/dto"
)

// Client 代表一个连接到 Hub 的 WebSocket 客户端。
// 连接建立时尚未加入任何画板（boardID 为 -1），join_board 成功后
// 才会分配身份并进入房间。
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte // 发送缓冲，满了直接丢帧

	mu      sync.Mutex // 保护下面的会话元数据
	boardID int
	userID  string
	label   string
	ip      string
}

// NewClient 创建一个未加入画板的客户端。ip 是握手时解析出的原始地址。
func NewClient(hub *Hub, conn *websocket.Conn, ip string) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, 256),
		boardID: -1,
		ip:      ip,
	}
}

// Run 启动客户端的读写 goroutine。
func (c *Client) Run() {
	go c.writePump()
	go c.readPump()
}

// join 在加入成功后写入会话身份。
func (c *Client) join(boardID int, userID, label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boardID = boardID
	c.userID = userID
	c.label = label
}

// session 返回当前会话元数据的一致快照。
func (c *Client) session() (boardID int, userID, label, ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.boardID, c.userID, c.label, c.ip
}

// Send 把出站消息序列化后放入发送缓冲。
// 缓冲已满或通道已关闭时丢弃消息，慢客户端自行承担丢帧。
func (c *Client) Send(env dto.OutEnvelope) {
	data, err := json.Marshal(env)
	if err != nil {
		logrus.WithError(err).Error("Failed to encode outgoing message")
		return
	}
	defer func() {
		// send 在注销时由 Hub 关闭，竞态下的写入在这里吸收
		_ = recover()
	}()
	select {
	case c.send <- data:
	default:
		_, userID, _, _ := c.session()
		logrus.WithField("user_id", userID).Warn("Client send buffer full, dropping message")
	}
}

// SendError 发送一条 error 帧。
func (c *Client) SendError(message string) {
	c.Send(dto.OutEnvelope{Type: dto.TypeError, Payload: dto.ErrorPayload{Message: message}})
}

// Close 强制断开连接（封禁时使用），读写泵会随之退出。
func (c *Client) Close() {
	if c.conn == nil {
		return
	}
	c.conn.Close()
}

// readPump 把入站消息泵送到 Hub 的处理通道，连接断开时触发注销。
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.messageChan <- hubMessage{kind: msgDisconnect, client: c}:
		case <-time.After(1 * time.Second):
			logrus.Warn("Timeout sending disconnect message to Hub channel")
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).Warn("WebSocket read error (unexpected close)")
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		select {
		case c.hub.messageChan <- hubMessage{kind: msgInbound, client: c, raw: message}:
		default:
			logrus.Warn("Hub message channel full, dropping client message")
		}
	}
}

// writePump 把发送缓冲里的消息写到连接上，并定期发 Ping 保活。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
