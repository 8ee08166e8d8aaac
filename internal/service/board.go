package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"public-clipboard/internal/domain"
	"public-clipboard/internal/dto"
	"public-clipboard/internal/repository"
	"public-clipboard/internal/store"
)

// Actor 是执行一次操作的会话身份。
// IP 是原始地址，只用于封禁判定和哈希，永不写入画板数据。
type Actor struct {
	UserID string
	Label  string
	IP     string
}

// EventEnqueuer 把分析事件交给后台归档队列，实现方必须尽力而为。
type EventEnqueuer interface {
	EnqueueEvent(event domain.AnalyticsEvent)
}

// BoardLimits 是画板服务的静态参数。
type BoardLimits struct {
	MinBoardID         int
	MaxBoardID         int
	MaxContentLength   int
	HistoryLimit       int
	DefaultBanDuration time.Duration
}

// BoardService 实现画板上的全部变更管线。
// 每条管线在画板锁内完成 读取-校验-提交-落盘，单写者语义由 store 保证。
type BoardService struct {
	store    *store.BoardStore
	bans     repository.BanRepository
	events   repository.EventRepository
	enqueuer EventEnqueuer // 可以为 nil（归档未开启）
	canvas   domain.Canvas
	limits   BoardLimits
	ipSalt   string
	log      *logrus.Logger
}

func NewBoardService(
	boards *store.BoardStore,
	bans repository.BanRepository,
	events repository.EventRepository,
	enqueuer EventEnqueuer,
	canvas domain.Canvas,
	limits BoardLimits,
	ipSalt string,
	log *logrus.Logger,
) *BoardService {
	return &BoardService{
		store:    boards,
		bans:     bans,
		events:   events,
		enqueuer: enqueuer,
		canvas:   canvas,
		limits:   limits,
		ipSalt:   ipSalt,
		log:      log,
	}
}

// ValidBoardID 判断画板号是否在配置区间内。
func (s *BoardService) ValidBoardID(id int) bool {
	return id >= s.limits.MinBoardID && id <= s.limits.MaxBoardID
}

// HashIP 返回地址的加盐 sha256 十六进制摘要，历史记录里只存这个。
func (s *BoardService) HashIP(ip string) string {
	sum := sha256.Sum256([]byte(s.ipSalt + ":" + ip))
	return hex.EncodeToString(sum[:])
}

// IsBanned 查询某地址在某画板上是否被封禁。
// 封禁名单里存的是哈希后的地址。
func (s *BoardService) IsBanned(ctx context.Context, boardID int, ip string) (bool, error) {
	return s.bans.IsBanned(ctx, boardID, s.HashIP(ip))
}

// Ban 封禁某地址。duration 为 0 时使用默认时长。
func (s *BoardService) Ban(ctx context.Context, boardID int, ip string, duration time.Duration) error {
	if duration <= 0 {
		duration = s.limits.DefaultBanDuration
	}
	if err := s.bans.Ban(ctx, boardID, s.HashIP(ip), duration); err != nil {
		return fmt.Errorf("ban on board %d: %w", boardID, err)
	}
	s.log.WithFields(logrus.Fields{
		"board_id": boardID,
		"duration": duration.String(),
	}).Info("User banned from board")
	return nil
}

// LoadBoard 返回画板状态的快照副本，加入和 HTTP 查询使用。
func (s *BoardService) LoadBoard(ctx context.Context, boardID int) (*domain.Board, error) {
	if !s.ValidBoardID(boardID) {
		return nil, ErrInvalidBoardID
	}
	var snapshot *domain.Board
	s.store.View(ctx, boardID, func(b *domain.Board) {
		snapshot = b.Clone()
	})
	return snapshot, nil
}

// truncateContent 把内容按字节截断到上限，超长内容不拒绝。
func (s *BoardService) truncateContent(content string) string {
	if len(content) > s.limits.MaxContentLength {
		return content[:s.limits.MaxContentLength]
	}
	return content
}

func actorLabel(actor Actor) string {
	if actor.Label == "" {
		return "Anonymous"
	}
	return actor.Label
}

// CreateObject 在画板上放置一个新对象。
// 校验顺序固定：先画布边界，后碰撞。
func (s *BoardService) CreateObject(ctx context.Context, boardID int, p dto.CreateObjectPayload, actor Actor) (domain.TextObject, error) {
	nowMs := domain.NowMillis()
	obj := domain.TextObject{
		ID:          uuid.NewString(),
		Type:        "text",
		Coordinates: p.Coordinates,
		Size:        p.Size,
		Content:     s.truncateContent(p.Content),
		CreatedBy:   actorLabel(actor),
		CreatedAt:   nowMs,
		ModifiedBy:  actorLabel(actor),
		ModifiedAt:  nowMs,
	}

	err := s.store.Mutate(ctx, boardID, func(b *domain.Board) error {
		if !s.canvas.Contains(obj.Coordinates, obj.Size) {
			return ErrOutOfBounds
		}
		if domain.HasCollision(b.Objects, obj) {
			return ErrCollision
		}
		b.UpsertObject(obj)
		b.RecordHistory(domain.HistoryEntry{
			Action:    domain.ActionCreate,
			ObjectID:  obj.ID,
			User:      actorLabel(actor),
			UserIP:    s.HashIP(actor.IP),
			Timestamp: domain.NowMillis(),
			Details: map[string]any{
				"coordinates": obj.Coordinates,
				"size":        obj.Size,
			},
		}, s.limits.HistoryLimit)
		return nil
	})
	if err != nil {
		return domain.TextObject{}, err
	}

	s.recordEvent(ctx, "object_created", boardID, obj.ID)
	return obj, nil
}

// UpdateObject 合并提供的字段后重新校验并提交。
// 报文里带了坐标就记 "move"，否则记 "edit"。
func (s *BoardService) UpdateObject(ctx context.Context, boardID int, p dto.UpdateObjectPayload, actor Actor) (domain.TextObject, error) {
	var updated domain.TextObject
	err := s.store.Mutate(ctx, boardID, func(b *domain.Board) error {
		existing, ok := b.FindObject(p.ObjectID)
		if !ok {
			return ErrObjectNotFound
		}

		updated = existing
		if p.HasCoordinates {
			updated.Coordinates = p.Coordinates
		}
		if p.HasSize {
			updated.Size = p.Size
		}
		if p.HasContent {
			updated.Content = s.truncateContent(p.Content)
		}
		updated.ModifiedBy = actorLabel(actor)
		updated.ModifiedAt = domain.NowMillis()

		if !s.canvas.Contains(updated.Coordinates, updated.Size) {
			return ErrOutOfBounds
		}
		if domain.HasCollision(b.Objects, updated) {
			return ErrCollision
		}
		b.UpsertObject(updated)

		action := domain.ActionEdit
		if p.HasCoordinates {
			action = domain.ActionMove
		}
		b.RecordHistory(domain.HistoryEntry{
			Action:    action,
			ObjectID:  updated.ID,
			User:      actorLabel(actor),
			UserIP:    s.HashIP(actor.IP),
			Timestamp: domain.NowMillis(),
			Details: map[string]any{
				"coordinates": updated.Coordinates,
				"size":        updated.Size,
			},
		}, s.limits.HistoryLimit)
		return nil
	})
	if err != nil {
		return domain.TextObject{}, err
	}

	s.recordEvent(ctx, "object_updated", boardID, updated.ID)
	return updated, nil
}

// DeleteObject 从画板上移除对象。
func (s *BoardService) DeleteObject(ctx context.Context, boardID int, objectID string, actor Actor) error {
	if objectID == "" {
		return ErrMissingObjectID
	}
	err := s.store.Mutate(ctx, boardID, func(b *domain.Board) error {
		removed, ok := b.RemoveObject(objectID)
		if !ok {
			return ErrObjectNotFound
		}
		b.RecordHistory(domain.HistoryEntry{
			Action:    domain.ActionDelete,
			ObjectID:  removed.ID,
			User:      actorLabel(actor),
			UserIP:    s.HashIP(actor.IP),
			Timestamp: domain.NowMillis(),
		}, s.limits.HistoryLimit)
		return nil
	})
	if err != nil {
		return err
	}

	s.recordEvent(ctx, "object_deleted", boardID, objectID)
	return nil
}

// CopyContent 只记录一条拷贝审计，不改动对象本身，也不广播。
// 没带对象 ID 时静默忽略。
func (s *BoardService) CopyContent(ctx context.Context, boardID int, objectID string, actor Actor) error {
	if objectID == "" {
		return nil
	}
	err := s.store.Mutate(ctx, boardID, func(b *domain.Board) error {
		b.RecordHistory(domain.HistoryEntry{
			Action:    domain.ActionCopy,
			ObjectID:  objectID,
			User:      actorLabel(actor),
			UserIP:    s.HashIP(actor.IP),
			Timestamp: domain.NowMillis(),
		}, s.limits.HistoryLimit)
		return nil
	})
	if err != nil {
		return err
	}

	s.recordEvent(ctx, "object_copied", boardID, objectID)
	return nil
}

// EvictIdleBoards 清理空闲画板缓存，后台 worker 调用。
func (s *BoardService) EvictIdleBoards(idleTTL time.Duration) int {
	return s.store.EvictIdle(idleTTL.Milliseconds())
}

// recordEvent 尽力而为地记录分析事件：写 Redis 列表并投递归档任务。
// 任何失败只记日志，绝不影响变更管线。
func (s *BoardService) recordEvent(ctx context.Context, eventType string, boardID int, objectID string) {
	ev := domain.AnalyticsEvent{
		Type:      eventType,
		BoardID:   boardID,
		ObjectID:  objectID,
		Timestamp: domain.NowMillis(),
	}
	if err := s.events.Push(ctx, ev); err != nil {
		s.log.WithError(err).WithField("board_id", boardID).Warn("Failed to record analytics event")
	}
	if s.enqueuer != nil {
		s.enqueuer.EnqueueEvent(ev)
	}
}
