package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"public-clipboard/internal/domain"
	"public-clipboard/internal/dto"
	"public-clipboard/internal/handler"
	"public-clipboard/internal/hub"
	"public-clipboard/internal/service"
)

// BoardHandler 提供 WebSocket 之外的 HTTP 兜底接口。
// 变更接口复用同一套服务管线，并向房间里的在线客户端广播。
type BoardHandler struct {
	boards *service.BoardService
	hub    *hub.Hub
}

func NewBoardHandler(boards *service.BoardService, h *hub.Hub) *BoardHandler {
	if boards == nil {
		panic("BoardService cannot be nil for BoardHandler")
	}
	if h == nil {
		panic("Hub cannot be nil for BoardHandler")
	}
	return &BoardHandler{boards: boards, hub: h}
}

// Health 处理 GET /health。
func (h *BoardHandler) Health(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, gin.H{"ok": true, "time": domain.NowMillis()})
}

// boardID 解析并校验 URL 里的画板号。
func (h *BoardHandler) boardID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || !h.boards.ValidBoardID(id) {
		ErrorResponse(c, http.StatusBadRequest, "Invalid board id")
		return 0, false
	}
	return id, true
}

// GetBoard 处理 GET /api/boards/:id，返回完整画板状态。
func (h *BoardHandler) GetBoard(c *gin.Context) {
	id, ok := h.boardID(c)
	if !ok {
		return
	}
	board, err := h.boards.LoadBoard(c.Request.Context(), id)
	if err != nil {
		ErrorResponse(c, statusFor(err), service.ClientMessage(err))
		return
	}
	SuccessResponse(c, http.StatusOK, board)
}

// GetHistory 处理 GET /api/boards/:id/history。
func (h *BoardHandler) GetHistory(c *gin.Context) {
	id, ok := h.boardID(c)
	if !ok {
		return
	}
	board, err := h.boards.LoadBoard(c.Request.Context(), id)
	if err != nil {
		ErrorResponse(c, statusFor(err), service.ClientMessage(err))
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"history": board.History})
}

type actionRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// PostAction 处理 POST /api/boards/:id/actions：没有 WebSocket 的客户端
// 用它提交变更。会话身份固定为 rest/Anonymous，地址照常参与封禁判定。
func (h *BoardHandler) PostAction(c *gin.Context) {
	id, ok := h.boardID(c)
	if !ok {
		return
	}

	ip := handler.ClientIP(c.Request)
	banned, err := h.boards.IsBanned(c.Request.Context(), id, ip)
	if err != nil {
		logrus.WithError(err).WithField("board_id", id).Error("Ban check failed")
	}
	if banned {
		ErrorResponse(c, http.StatusForbidden, "You are banned from this board")
		return
	}

	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid message format")
		return
	}
	if len(req.Payload) == 0 {
		req.Payload = json.RawMessage("{}")
	}

	actor := service.Actor{UserID: "rest", Label: "Anonymous", IP: ip}
	ctx := c.Request.Context()

	switch req.Type {
	case dto.TypeCreateObject:
		p, err := dto.ParseCreateObject(req.Payload)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "Invalid coordinates or size")
			return
		}
		obj, err := h.boards.CreateObject(ctx, id, p, actor)
		if err != nil {
			ErrorResponse(c, statusFor(err), service.ClientMessage(err))
			return
		}
		h.hub.BroadcastToBoard(id, dto.OutEnvelope{
			Type:    dto.TypeObjectCreated,
			Payload: dto.ObjectPayload{Object: obj},
		}, nil)

	case dto.TypeUpdateObject:
		p, err := dto.ParseUpdateObject(req.Payload)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "Invalid coordinates or size")
			return
		}
		obj, err := h.boards.UpdateObject(ctx, id, p, actor)
		if err != nil {
			ErrorResponse(c, statusFor(err), service.ClientMessage(err))
			return
		}
		h.hub.BroadcastToBoard(id, dto.OutEnvelope{
			Type:    dto.TypeObjectUpdated,
			Payload: dto.ObjectPayload{Object: obj},
		}, nil)

	case dto.TypeDeleteObject:
		p, err := dto.ParseDeleteObject(req.Payload)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "Invalid message format")
			return
		}
		if err := h.boards.DeleteObject(ctx, id, p.ObjectID, actor); err != nil {
			ErrorResponse(c, statusFor(err), service.ClientMessage(err))
			return
		}
		h.hub.BroadcastToBoard(id, dto.OutEnvelope{
			Type:    dto.TypeObjectDeleted,
			Payload: dto.ObjectDeletedPayload{ID: p.ObjectID},
		}, nil)

	case dto.TypeCopyContent:
		p, err := dto.ParseCopyContent(req.Payload)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "Invalid message format")
			return
		}
		if err := h.boards.CopyContent(ctx, id, p.ObjectID, actor); err != nil {
			ErrorResponse(c, statusFor(err), service.ClientMessage(err))
			return
		}

	default:
		ErrorResponse(c, http.StatusBadRequest, "Unknown action type")
		return
	}

	SuccessResponse(c, http.StatusOK, gin.H{"ok": true})
}
