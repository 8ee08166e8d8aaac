package dto

import (
	"encoding/json"

	"public-clipboard/internal/domain"
)

// 客户端到服务端的消息类型
const (
	TypeJoinBoard    = "join_board"
	TypeCreateObject = "create_object"
	TypeUpdateObject = "update_object"
	TypeDeleteObject = "delete_object"
	TypeCopyContent  = "copy_content"
	TypeBanUser      = "ban_user"
)

// 服务端到客户端的消息类型
const (
	TypeBoardState    = "board_state"
	TypeObjectCreated = "object_created"
	TypeObjectUpdated = "object_updated"
	TypeObjectDeleted = "object_deleted"
	TypeUserJoined    = "user_joined"
	TypeUserLeft      = "user_left"
	TypeError         = "error"
)

// Envelope 是所有 WebSocket 入站消息的统一外壳。
// Payload 延迟解码，由各消息类型的解析函数负责校验。
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// OutEnvelope 是出站消息的外壳，Payload 为已构造好的值。
type OutEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// JoinBoardPayload 对应 join_board。
type JoinBoardPayload struct {
	BoardID int
}

// CreateObjectPayload 对应 create_object。宽高必须为正。
type CreateObjectPayload struct {
	Coordinates domain.Coordinates
	Size        domain.Size
	Content     string
}

// UpdateObjectPayload 对应 update_object。
// 坐标、尺寸、内容均为可选；Has* 标志记录字段是否在报文中出现，
// 出现但格式非法的字段会导致整条消息被拒绝。
type UpdateObjectPayload struct {
	ObjectID       string
	HasCoordinates bool
	Coordinates    domain.Coordinates
	HasSize        bool
	Size           domain.Size
	HasContent     bool
	Content        string
}

// DeleteObjectPayload 对应 delete_object。
type DeleteObjectPayload struct {
	ObjectID string
}

// CopyContentPayload 对应 copy_content。
type CopyContentPayload struct {
	ObjectID string
}

// BanUserPayload 对应 ban_user。DurationMs 为 0 时使用服务端默认时长。
type BanUserPayload struct {
	UserID     string
	DurationMs int64
}

// ErrorPayload 对应 error 出站消息。
type ErrorPayload struct {
	Message string `json:"message"`
}

// UserInfo 是分配给连接的匿名身份。
type UserInfo struct {
	UserID    string `json:"userId"`
	UserLabel string `json:"userLabel"`
}

// BoardStatePayload 对应 board_state。
type BoardStatePayload struct {
	Board *domain.Board `json:"board"`
	User  UserInfo      `json:"user"`
}

// ObjectPayload 用于 object_created / object_updated。
type ObjectPayload struct {
	Object domain.TextObject `json:"object"`
}

// ObjectDeletedPayload 对应 object_deleted。
type ObjectDeletedPayload struct {
	ID string `json:"id"`
}
