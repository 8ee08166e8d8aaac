package http

import (
	"errors"
	"net/http"

	"public-clipboard/internal/service"
)

// statusFor 把业务错误映射到 HTTP 状态码。
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrObjectNotFound), errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrBanned):
		return http.StatusForbidden
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrInvalidBoardID),
		errors.Is(err, service.ErrInvalidPayload),
		errors.Is(err, service.ErrMissingObjectID),
		errors.Is(err, service.ErrMissingUserID),
		errors.Is(err, service.ErrOutOfBounds),
		errors.Is(err, service.ErrCollision),
		errors.Is(err, service.ErrUnknownType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
