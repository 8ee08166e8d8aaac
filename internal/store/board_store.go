package store

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"public-clipboard/internal/domain"
	"public-clipboard/internal/repository"
)

// BoardStore 是画板的内存缓存，写操作透写到快照仓库。
// 每块画板有独立的互斥锁：同一画板上的变更串行执行，
// 不同画板互不阻塞。
type BoardStore struct {
	mu      sync.Mutex
	entries map[int]*boardEntry
	repo    repository.BoardRepository
	log     *logrus.Logger
}

type boardEntry struct {
	mu    sync.Mutex
	board *domain.Board
}

func NewBoardStore(repo repository.BoardRepository, log *logrus.Logger) *BoardStore {
	return &BoardStore{
		entries: make(map[int]*boardEntry),
		repo:    repo,
		log:     log,
	}
}

// entry 返回画板的缓存条目，必要时从仓库加载。
// 快照不存在或无法解码时给一块全新画板，服务不因持久层损坏而拒绝。
func (s *BoardStore) entry(ctx context.Context, boardID int) *boardEntry {
	s.mu.Lock()
	e, ok := s.entries[boardID]
	if !ok {
		e = &boardEntry{}
		s.entries[boardID] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	if e.board == nil {
		board, err := s.repo.Load(ctx, boardID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				s.log.WithError(err).WithField("board_id", boardID).Warn("Failed to load board snapshot, starting fresh")
			}
			board = domain.NewBoard(boardID)
		}
		e.board = board
	}
	e.mu.Unlock()
	return e
}

// View 在持有画板锁的情况下执行只读回调。
// 回调内不得保留对画板内部切片的引用。
func (s *BoardStore) View(ctx context.Context, boardID int, fn func(*domain.Board)) {
	e := s.entry(ctx, boardID)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.board)
}

// Mutate 在持有画板锁的情况下执行变更回调，成功后透写快照。
// 回调返回错误时画板保持原状不落盘。
func (s *BoardStore) Mutate(ctx context.Context, boardID int, fn func(*domain.Board) error) error {
	e := s.entry(ctx, boardID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := fn(e.board); err != nil {
		return err
	}
	e.board.LastActivity = domain.NowMillis()
	if err := s.repo.Save(ctx, e.board); err != nil {
		// 快照写失败不回滚内存状态，下一次成功的变更会补写
		s.log.WithError(err).WithField("board_id", boardID).Error("Failed to persist board snapshot")
	}
	return nil
}

// EvictIdle 把空闲超过 ttl 的画板从内存中移除。
// Redis 快照保留，画板再次被访问时会重新加载。
func (s *BoardStore) EvictIdle(ttl int64) int {
	cutoff := domain.NowMillis() - ttl
	evicted := 0

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			continue // 正在使用的画板肯定不空闲
		}
		idle := e.board != nil && e.board.LastActivity < cutoff
		e.mu.Unlock()
		if idle {
			delete(s.entries, id)
			evicted++
		}
	}
	return evicted
}
