package gormpersist

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"public-clipboard/internal/domain"
)

// ArchivedEvent 是落库后的分析事件行。
type ArchivedEvent struct {
	ID        uint   `gorm:"primaryKey"`
	Type      string `gorm:"size:32;index"`
	BoardID   int    `gorm:"index"`
	ObjectID  string `gorm:"size:64"`
	Timestamp int64  `gorm:"index"`
}

func (ArchivedEvent) TableName() string {
	return "archived_events"
}

// EventArchiveRepository 把事件批量写入 MySQL。
type EventArchiveRepository struct {
	db *gorm.DB
}

func NewEventArchiveRepository(db *gorm.DB) *EventArchiveRepository {
	return &EventArchiveRepository{db: db}
}

// AutoMigrate 建表，启动时调用一次。
func (r *EventArchiveRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&ArchivedEvent{})
}

func (r *EventArchiveRepository) SaveBatch(ctx context.Context, events []domain.AnalyticsEvent) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]ArchivedEvent, 0, len(events))
	for _, ev := range events {
		rows = append(rows, ArchivedEvent{
			Type:      ev.Type,
			BoardID:   ev.BoardID,
			ObjectID:  ev.ObjectID,
			Timestamp: ev.Timestamp,
		})
	}
	if err := r.db.WithContext(ctx).CreateInBatches(rows, 200).Error; err != nil {
		return fmt.Errorf("failed to archive %d events: %w", len(rows), err)
	}
	return nil
}
