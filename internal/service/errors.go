package service

import "errors"

// 业务哨兵错误，调用方用 errors.Is 判断后映射到协议文案或 HTTP 状态码。
var (
	ErrInvalidBoardID  = errors.New("invalid board id")
	ErrInvalidPayload  = errors.New("invalid message format")
	ErrObjectNotFound  = errors.New("object not found")
	ErrMissingObjectID = errors.New("missing object id")
	ErrMissingUserID   = errors.New("missing user id")
	ErrUserNotFound    = errors.New("user not found")
	ErrOutOfBounds     = errors.New("object outside canvas bounds")
	ErrCollision       = errors.New("object overlaps with existing content")
	ErrBanned          = errors.New("banned from this board")
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrMustJoin        = errors.New("must join board first")
	ErrUnknownType     = errors.New("unknown message type")
)

// ClientMessage 把业务错误翻译成发给客户端的文案。
// 未识别的错误统一回 "Invalid message format"，不向客户端泄露内部细节。
func ClientMessage(err error) string {
	switch {
	case errors.Is(err, ErrMustJoin):
		return "Must join board first"
	case errors.Is(err, ErrInvalidBoardID):
		return "Invalid board id"
	case errors.Is(err, ErrBanned):
		return "You are banned from this board"
	case errors.Is(err, ErrInvalidPayload):
		return "Invalid coordinates or size"
	case errors.Is(err, ErrOutOfBounds):
		return "Object outside canvas bounds"
	case errors.Is(err, ErrCollision):
		return "Object overlaps with existing content"
	case errors.Is(err, ErrObjectNotFound):
		return "Object not found"
	case errors.Is(err, ErrMissingObjectID):
		return "Missing object id"
	case errors.Is(err, ErrMissingUserID):
		return "Missing user id"
	case errors.Is(err, ErrUserNotFound):
		return "User not found"
	case errors.Is(err, ErrUnknownType):
		return "Unknown message type"
	case errors.Is(err, ErrRateLimited):
		return "Rate limit exceeded"
	default:
		return "Invalid message format"
	}
}
