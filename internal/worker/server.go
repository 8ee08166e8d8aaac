package worker

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"public-clipboard/internal/repository"
	"public-clipboard/internal/service"
	"public-clipboard/internal/tasks"
)

// WorkerServer 封装 asynq worker 的启动和关闭。
// 清理任务始终注册；事件归档处理器只在归档仓库可用时注册。
type WorkerServer struct {
	server      *asynq.Server
	log         *logrus.Entry
	archiveRepo repository.EventArchiveRepository // 可以为 nil
	boards      *service.BoardService
	idleTTL     time.Duration
}

func NewWorkerServer(
	redisOpt asynq.RedisClientOpt,
	archiveRepo repository.EventArchiveRepository,
	boards *service.BoardService,
	idleTTL time.Duration,
	logger *logrus.Logger,
) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 3,
				"low":     1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	return &WorkerServer{
		server:      server,
		log:         logEntry,
		archiveRepo: archiveRepo,
		boards:      boards,
		idleTTL:     idleTTL,
	}
}

// Start 运行 worker，应在单独的 goroutine 中调用。
func (ws *WorkerServer) Start() {
	mux := asynq.NewServeMux()

	sweepHandler := NewBoardSweepHandler(ws.boards, ws.idleTTL)
	mux.HandleFunc(tasks.TypeBoardSweep, sweepHandler.ProcessTask)

	if ws.archiveRepo != nil {
		archiveHandler := NewEventArchiveHandler(ws.archiveRepo)
		mux.HandleFunc(tasks.TypeEventArchive, archiveHandler.ProcessTask)
	}

	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(mux); err != nil {
		if !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		} else {
			ws.log.Info("Worker server stopped.")
		}
	}
}

// Shutdown 优雅关闭 worker。
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
