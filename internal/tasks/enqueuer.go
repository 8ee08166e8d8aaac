package tasks

import (
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"public-clipboard/internal/domain"
)

// Enqueuer 把分析事件投递到归档队列。
// 投递是尽力而为的：失败只记日志，调用方不会阻塞也不会收到错误。
type Enqueuer struct {
	client *asynq.Client
	log    *logrus.Entry
}

func NewEnqueuer(client *asynq.Client, logger *logrus.Logger) *Enqueuer {
	return &Enqueuer{
		client: client,
		log:    logger.WithField("component", "task_enqueuer"),
	}
}

func (e *Enqueuer) EnqueueEvent(event domain.AnalyticsEvent) {
	payload, err := NewEventArchivePayload(event)
	if err != nil {
		e.log.WithError(err).Error("Failed to encode event archive payload")
		return
	}
	task := asynq.NewTask(TypeEventArchive, payload)
	if _, err := e.client.Enqueue(task, asynq.Queue("low"), asynq.MaxRetry(3)); err != nil {
		e.log.WithError(err).Warn("Failed to enqueue event archive task")
	}
}
