package domain

import "time"

// 历史记录的操作类型常量
const (
	ActionCreate = "create"
	ActionEdit   = "edit"
	ActionMove   = "move"
	ActionDelete = "delete"
	ActionCopy   = "copy"
)

// Coordinates 表示对象在画布上的左上角坐标。
type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size 表示对象的宽高。
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TextObject 是画板上的一个文本矩形。
// ID 由服务端生成，客户端永远不能指定；同一 ID 的对象通过 update 原地修改。
type TextObject struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"` // 目前固定为 "text"
	Coordinates Coordinates `json:"coordinates"`
	Size        Size        `json:"size"`
	Content     string      `json:"content"`
	CreatedBy   string      `json:"createdBy"`
	CreatedAt   int64       `json:"createdAt"` // Unix 毫秒
	ModifiedBy  string      `json:"modifiedBy"`
	ModifiedAt  int64       `json:"modifiedAt"`
}

// HistoryEntry 是一条不可变的审计记录。
// UserIP 存放的是加盐哈希后的网络地址，绝不存明文。
type HistoryEntry struct {
	Action    string         `json:"action"` // create|edit|move|delete|copy
	ObjectID  string         `json:"objectId"`
	User      string         `json:"user"`
	UserIP    string         `json:"userIp"`
	Timestamp int64          `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// Board 表示一块画板的完整状态。
// Objects 按插入顺序排列；History 最新在前，超出上限时丢弃最旧的条目。
type Board struct {
	ID           int            `json:"id"`
	Objects      []TextObject   `json:"objects"`
	LastActivity int64          `json:"lastActivity"`
	History      []HistoryEntry `json:"history"`
}

// NewBoard 创建一块空画板。
func NewBoard(id int) *Board {
	return &Board{
		ID:           id,
		Objects:      []TextObject{},
		LastActivity: NowMillis(),
		History:      []HistoryEntry{},
	}
}

// FindObject 按 ID 查找对象，返回其副本。
func (b *Board) FindObject(id string) (TextObject, bool) {
	for _, obj := range b.Objects {
		if obj.ID == id {
			return obj, true
		}
	}
	return TextObject{}, false
}

// UpsertObject 按 ID 原地替换对象，不存在则追加到末尾（保持插入顺序）。
func (b *Board) UpsertObject(obj TextObject) {
	for i := range b.Objects {
		if b.Objects[i].ID == obj.ID {
			b.Objects[i] = obj
			return
		}
	}
	b.Objects = append(b.Objects, obj)
}

// RemoveObject 按 ID 删除对象，返回被删除的对象。
func (b *Board) RemoveObject(id string) (TextObject, bool) {
	for i := range b.Objects {
		if b.Objects[i].ID == id {
			removed := b.Objects[i]
			b.Objects = append(b.Objects[:i], b.Objects[i+1:]...)
			return removed, true
		}
	}
	return TextObject{}, false
}

// RecordHistory 把记录插到最前面，超过 limit 时截断尾部。
func (b *Board) RecordHistory(entry HistoryEntry, limit int) {
	b.History = append([]HistoryEntry{entry}, b.History...)
	if limit > 0 && len(b.History) > limit {
		b.History = b.History[:limit]
	}
}

// Clone 返回画板的深拷贝，用于在锁外安全读取。
func (b *Board) Clone() *Board {
	out := &Board{
		ID:           b.ID,
		Objects:      make([]TextObject, len(b.Objects)),
		LastActivity: b.LastActivity,
		History:      make([]HistoryEntry, len(b.History)),
	}
	copy(out.Objects, b.Objects)
	copy(out.History, b.History)
	return out
}

// NowMillis 返回当前的 Unix 毫秒时间戳（协议内所有时间戳的统一格式）。
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
