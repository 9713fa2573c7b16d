package notify

import (
	"context"

	"promohub/internal/pkg/mq"
)

// KafkaSink 把事件写入 kafka topic，key 为促销 ID，保证同一促销的事件落在同一分区。
type KafkaSink struct {
	writer mq.MessageWriter
}

func NewKafkaSink(writer mq.MessageWriter) *KafkaSink {
	return &KafkaSink{writer: writer}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Deliver(ctx context.Context, msg Message) error {
	// mq.ProduceMessage 会自动处理追踪上下文注入
	return mq.ProduceMessage(ctx, s.writer, []byte(msg.Notification.PromotionID), msg.Payload)
}
