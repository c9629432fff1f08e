package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"skillmatch/internal/storage/models"

	"gorm.io/gorm"
)

// Writer 把事件写入 outbox 表
type Writer struct {
	db       *gorm.DB
	exchange string
	routes   map[string]string
}

// NewWriter routes 为事件类型到路由键的映射
func NewWriter(db *gorm.DB, exchange string, routes map[string]string) *Writer {
	return &Writer{db: db, exchange: exchange, routes: routes}
}

// Enqueue 写入一条待发布事件
func (w *Writer) Enqueue(ctx context.Context, aggregateID, eventType string, payload interface{}) error {
	msg, err := w.buildMessage(aggregateID, eventType, payload)
	if err != nil {
		return err
	}
	if err := w.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("写入outbox失败: %w", err)
	}
	return nil
}

func (w *Writer) buildMessage(aggregateID, eventType string, payload interface{}) (*models.OutboxMessage, error) {
	routingKey, ok := w.routes[eventType]
	if !ok || routingKey == "" {
		routingKey = eventType
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化事件失败: %w", err)
	}

	return &models.OutboxMessage{
		AggregateID:      aggregateID,
		EventType:        eventType,
		Payload:          string(body),
		TargetExchange:   w.exchange,
		TargetRoutingKey: routingKey,
		Status:           models.OutboxStatusPending,
	}, nil
}
