// internal/service/promotion/domain/event.go
package domain

// EventType 是通知旁路上广播的事件名。
type EventType string

const (
	EventPromotionCreated EventType = "promotion_created"
	EventPromotionUpdated EventType = "promotion_updated"
	EventPromotionDeleted EventType = "promotion_deleted"
)
