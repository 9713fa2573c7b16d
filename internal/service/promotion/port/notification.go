package port

import (
	"context"
	"time"

	"promohub/internal/service/promotion/domain"
)

// Notification 是广播给订阅者的消息体。
// 创建/更新事件携带 Promotion（对外响应结构），删除事件只携带 PromotionID。
type Notification struct {
	Event       domain.EventType `json:"event"`
	Promotion   any              `json:"promotion,omitempty"`
	PromotionID string           `json:"promotionId,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// EventPublisher 是通知旁路的出站端口。
// Publish 必须立即返回且不能失败：投递是尽力而为的，不影响变更本身的结果。
type EventPublisher interface {
	Publish(ctx context.Context, n Notification)
}

// NopPublisher 丢弃所有通知。
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Notification) {}
