package domain

// AnalyticsEvent 是一条轻量的分析事件，按到达顺序写入 Redis 列表，
// 再由后台 worker 异步归档到数据库。
type AnalyticsEvent struct {
	Type      string `json:"type"`
	BoardID   int    `json:"boardId"`
	ObjectID  string `json:"objectId,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// BanRecord 是一条封禁审计记录，持久化在有序集合中，score 为封禁时刻。
type BanRecord struct {
	BoardID    int    `json:"boardId"`
	IP         string `json:"ip"` // 加盐哈希
	DurationMs int64  `json:"durationMs"`
}
