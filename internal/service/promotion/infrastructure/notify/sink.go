package notify

import (
	"context"
	"encoding/json"

	"promohub/internal/service/promotion/port"
)

// Message 是分发给各投递通道的消息，Payload 是已经序列化好的 JSON。
type Message struct {
	Notification port.Notification
	Payload      []byte
}

// NewMessage 序列化通知。
func NewMessage(n port.Notification) (Message, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return Message{}, err
	}
	return Message{Notification: n, Payload: payload}, nil
}

// Sink 是一个投递通道：websocket、kafka、redis、webhook。
type Sink interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}
