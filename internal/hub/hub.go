package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"public-clipboard/internal/dto"
	"public-clipboard/internal/limiter"
	"public-clipboard/internal/service"
)

// WebSocket 连接参数
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 32 * 1024
)

type messageKind int

const (
	msgInbound messageKind = iota
	msgDisconnect
)

// hubMessage 是 Hub 内部通道上流转的事件。
type hubMessage struct {
	kind   messageKind
	client *Client
	raw    []byte
}

// Hub 维护房间成员关系并驱动协议状态机。
// 房间注册表由 Hub 持有，画板数据的变更全部委托给 BoardService。
type Hub struct {
	messageChan chan hubMessage

	roomsMu  sync.RWMutex
	rooms    map[int]map[*Client]bool
	counters map[int]int // 每块画板的匿名用户编号计数

	boards  *service.BoardService
	limiter *limiter.SlidingWindow // 为 nil 时限流关闭
	log     *logrus.Logger
}

func NewHub(boards *service.BoardService, rateLimiter *limiter.SlidingWindow, log *logrus.Logger) *Hub {
	if boards == nil {
		panic("BoardService cannot be nil for Hub")
	}
	return &Hub{
		messageChan: make(chan hubMessage, 512),
		rooms:       make(map[int]map[*Client]bool),
		counters:    make(map[int]int),
		boards:      boards,
		limiter:     rateLimiter,
		log:         log,
	}
}

// Run 启动 Hub 的主事件循环，应在单独的 goroutine 中运行。
// 消息处理派发到独立 goroutine：同一画板上的写入由 store 的画板锁串行化，
// 主循环自身绝不做 I/O。
func (h *Hub) Run() {
	log := h.log.WithField("component", "hub")
	log.Info("Hub is running...")

	for msg := range h.messageChan {
		switch msg.kind {
		case msgInbound:
			go h.handleInbound(msg.client, msg.raw)
		case msgDisconnect:
			go h.handleDisconnect(msg.client)
		}
	}
	log.Info("Hub is shutting down...")
}

// Stop 关闭事件通道，Run 随之退出。
func (h *Hub) Stop() {
	close(h.messageChan)
}

// addToRoom 把客户端加入房间并返回分配的匿名身份。
func (h *Hub) addToRoom(boardID int, client *Client) (userID, label string) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	if _, ok := h.rooms[boardID]; !ok {
		h.rooms[boardID] = make(map[*Client]bool)
	}
	h.rooms[boardID][client] = true

	h.counters[boardID]++
	n := h.counters[boardID]
	return fmt.Sprintf("user-%d-%d", boardID, n), fmt.Sprintf("Anonymous #%d", n)
}

// removeFromRoom 把客户端移出房间，空房间的表项直接删除。
func (h *Hub) removeFromRoom(boardID int, client *Client) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	set, ok := h.rooms[boardID]
	if !ok {
		return
	}
	if _, present := set[client]; present {
		delete(set, client)
		close(client.send)
	}
	if len(set) == 0 {
		delete(h.rooms, boardID)
	}
}

// findInRoom 按用户 ID 在房间里查找在线客户端。
func (h *Hub) findInRoom(boardID int, userID string) *Client {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	for client := range h.rooms[boardID] {
		_, id, _, _ := client.session()
		if id == userID {
			return client
		}
	}
	return nil
}

// BroadcastToBoard 向房间内所有客户端发送消息，exclude 不为 nil 时跳过它。
// 先在锁内取成员快照，发送在锁外进行；慢客户端丢帧而不是拖慢全房间。
func (h *Hub) BroadcastToBoard(boardID int, env dto.OutEnvelope, exclude *Client) {
	h.roomsMu.RLock()
	targets := make([]*Client, 0, len(h.rooms[boardID]))
	for client := range h.rooms[boardID] {
		if client != exclude {
			targets = append(targets, client)
		}
	}
	h.roomsMu.RUnlock()

	for _, client := range targets {
		client.Send(env)
	}
}

// handleDisconnect 处理连接断开：已加入的客户端要通知房间其他人。
func (h *Hub) handleDisconnect(client *Client) {
	boardID, userID, label, _ := client.session()
	if boardID < 0 {
		return
	}
	h.removeFromRoom(boardID, client)
	h.BroadcastToBoard(boardID, dto.OutEnvelope{
		Type:    dto.TypeUserLeft,
		Payload: dto.UserInfo{UserID: userID, UserLabel: label},
	}, nil)
	h.log.WithFields(logrus.Fields{"board_id": boardID, "user_id": userID}).Info("Client disconnected")
}

// handleInbound 是协议状态机的入口。
// 未加入画板的连接只接受 join_board，其余消息一律拒绝。
func (h *Hub) handleInbound(client *Client, raw []byte) {
	ctx := context.Background()

	env, err := dto.ParseEnvelope(raw)
	if err != nil {
		client.SendError("Invalid message format")
		return
	}

	boardID, userID, label, ip := client.session()
	if boardID < 0 {
		if env.Type != dto.TypeJoinBoard {
			client.SendError(service.ClientMessage(service.ErrMustJoin))
			return
		}
		h.handleJoin(ctx, client, env)
		return
	}

	// 限流只覆盖已加入后的写操作，按原始地址计数
	if h.limiter != nil && !h.limiter.Allow(ip) {
		client.SendError(service.ClientMessage(service.ErrRateLimited))
		return
	}

	actor := service.Actor{UserID: userID, Label: label, IP: ip}
	switch env.Type {
	case dto.TypeCreateObject:
		h.handleCreate(ctx, client, boardID, env, actor)
	case dto.TypeUpdateObject:
		h.handleUpdate(ctx, client, boardID, env, actor)
	case dto.TypeDeleteObject:
		h.handleDelete(ctx, client, boardID, env, actor)
	case dto.TypeCopyContent:
		h.handleCopy(ctx, client, boardID, env, actor)
	case dto.TypeBanUser:
		h.handleBan(ctx, client, boardID, env)
	default:
		client.SendError(service.ClientMessage(service.ErrUnknownType))
	}
}

// handleJoin 处理 join_board：校验画板号、封禁检查、分配身份、下发全量状态。
func (h *Hub) handleJoin(ctx context.Context, client *Client, env dto.Envelope) {
	p, err := dto.ParseJoinBoard(env.Payload)
	if err != nil || !h.boards.ValidBoardID(p.BoardID) {
		client.SendError(service.ClientMessage(service.ErrInvalidBoardID))
		return
	}

	_, _, _, ip := client.session()
	banned, err := h.boards.IsBanned(ctx, p.BoardID, ip)
	if err != nil {
		h.log.WithError(err).WithField("board_id", p.BoardID).Error("Ban check failed")
	}
	if banned {
		notifyAndClose(client, service.ClientMessage(service.ErrBanned))
		return
	}

	board, err := h.boards.LoadBoard(ctx, p.BoardID)
	if err != nil {
		client.SendError(service.ClientMessage(err))
		return
	}

	userID, label := h.addToRoom(p.BoardID, client)
	client.join(p.BoardID, userID, label)

	client.Send(dto.OutEnvelope{
		Type: dto.TypeBoardState,
		Payload: dto.BoardStatePayload{
			Board: board,
			User:  dto.UserInfo{UserID: userID, UserLabel: label},
		},
	})
	h.BroadcastToBoard(p.BoardID, dto.OutEnvelope{
		Type:    dto.TypeUserJoined,
		Payload: dto.UserInfo{UserID: userID, UserLabel: label},
	}, client)

	h.log.WithFields(logrus.Fields{"board_id": p.BoardID, "user_id": userID}).Info("Client joined board")
}

func (h *Hub) handleCreate(ctx context.Context, client *Client, boardID int, env dto.Envelope, actor service.Actor) {
	p, err := dto.ParseCreateObject(env.Payload)
	if err != nil {
		// 坐标或尺寸缺失、非法都归到这一条
		client.SendError(service.ClientMessage(service.ErrInvalidPayload))
		return
	}
	obj, err := h.boards.CreateObject(ctx, boardID, p, actor)
	if err != nil {
		client.SendError(service.ClientMessage(err))
		return
	}
	// 创建者也收到广播，客户端以服务端下发的对象为准
	h.BroadcastToBoard(boardID, dto.OutEnvelope{
		Type:    dto.TypeObjectCreated,
		Payload: dto.ObjectPayload{Object: obj},
	}, nil)
}

func (h *Hub) handleUpdate(ctx context.Context, client *Client, boardID int, env dto.Envelope, actor service.Actor) {
	p, err := dto.ParseUpdateObject(env.Payload)
	if err != nil {
		client.SendError(service.ClientMessage(service.ErrInvalidPayload))
		return
	}
	obj, err := h.boards.UpdateObject(ctx, boardID, p, actor)
	if err != nil {
		client.SendError(service.ClientMessage(err))
		return
	}
	h.BroadcastToBoard(boardID, dto.OutEnvelope{
		Type:    dto.TypeObjectUpdated,
		Payload: dto.ObjectPayload{Object: obj},
	}, nil)
}

func (h *Hub) handleDelete(ctx context.Context, client *Client, boardID int, env dto.Envelope, actor service.Actor) {
	p, err := dto.ParseDeleteObject(env.Payload)
	if err != nil {
		client.SendError("Invalid message format")
		return
	}
	if err := h.boards.DeleteObject(ctx, boardID, p.ObjectID, actor); err != nil {
		client.SendError(service.ClientMessage(err))
		return
	}
	h.BroadcastToBoard(boardID, dto.OutEnvelope{
		Type:    dto.TypeObjectDeleted,
		Payload: dto.ObjectDeletedPayload{ID: p.ObjectID},
	}, nil)
}

// handleCopy 只做审计，不产生广播。
func (h *Hub) handleCopy(ctx context.Context, client *Client, boardID int, env dto.Envelope, actor service.Actor) {
	p, err := dto.ParseCopyContent(env.Payload)
	if err != nil {
		client.SendError("Invalid message format")
		return
	}
	if err := h.boards.CopyContent(ctx, boardID, p.ObjectID, actor); err != nil {
		client.SendError(service.ClientMessage(err))
	}
}

// handleBan 封禁目标用户：目标必须还在房间里，封的是其原始地址。
func (h *Hub) handleBan(ctx context.Context, client *Client, boardID int, env dto.Envelope) {
	p, err := dto.ParseBanUser(env.Payload)
	if err != nil {
		client.SendError("Invalid message format")
		return
	}
	if p.UserID == "" {
		client.SendError(service.ClientMessage(service.ErrMissingUserID))
		return
	}

	target := h.findInRoom(boardID, p.UserID)
	if target == nil {
		client.SendError(service.ClientMessage(service.ErrUserNotFound))
		return
	}

	_, _, _, targetIP := target.session()
	if err := h.boards.Ban(ctx, boardID, targetIP, time.Duration(p.DurationMs)*time.Millisecond); err != nil {
		h.log.WithError(err).WithField("board_id", boardID).Error("Failed to ban user")
		client.SendError("Invalid message format")
		return
	}

	notifyAndClose(target, "You have been banned from this board.")
}

// notifyAndClose 发送错误帧后延迟断开，给 writePump 留出冲刷发送缓冲的时间。
func notifyAndClose(c *Client, message string) {
	c.SendError(message)
	go func() {
		time.Sleep(100 * time.Millisecond)
		c.Close()
	}()
}
