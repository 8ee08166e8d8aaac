package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"public-clipboard/internal/service"
)

// BoardSweepHandler 周期性地把空闲画板从内存缓存里清掉。
// 快照是透写的，清掉的画板下次加入时会从 Redis 重新加载。
type BoardSweepHandler struct {
	boards  *service.BoardService
	idleTTL time.Duration
}

func NewBoardSweepHandler(boards *service.BoardService, idleTTL time.Duration) *BoardSweepHandler {
	if boards == nil {
		panic("BoardService cannot be nil for BoardSweepHandler")
	}
	return &BoardSweepHandler{boards: boards, idleTTL: idleTTL}
}

func (h *BoardSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	evicted := h.boards.EvictIdleBoards(h.idleTTL)
	if evicted > 0 {
		logrus.WithField("evicted", evicted).Info("Idle boards evicted from cache")
	}
	return nil
}
