package tasks

import (
	"encoding/json"

	"public-clipboard/internal/domain"
)

// 任务类型常量
const (
	TypeEventArchive = "event:archive" // 分析事件落库
	TypeBoardSweep   = "board:sweep"   // 空闲画板缓存清理
)

// EventArchivePayload 是事件归档任务的负载。
type EventArchivePayload struct {
	Event domain.AnalyticsEvent
}

// NewEventArchivePayload 序列化一个事件归档任务的负载。
func NewEventArchivePayload(event domain.AnalyticsEvent) ([]byte, error) {
	return json.Marshal(EventArchivePayload{Event: event})
}

// NewBoardSweepPayload 返回清理任务的负载（目前为空对象，留作扩展）。
func NewBoardSweepPayload() ([]byte, error) {
	return json.Marshal(struct{}{})
}
