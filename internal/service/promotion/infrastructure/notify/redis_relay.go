package notify

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"promohub/internal/pkg/logger"
	"promohub/internal/pkg/redis"
	"promohub/internal/service/promotion/port"
)

// RedisRelay 通过 redis pub/sub 在多个实例之间转发事件。
// 启用后 Hub 不再直接作为 Sink，而是由 Forward 把频道中的消息送入本地 Hub，
// 这样每个实例的订阅者都能收到任意实例产生的事件，且只收到一次。
type RedisRelay struct {
	client  *redis.Client
	channel string
}

func NewRedisRelay(client *redis.Client, channel string) *RedisRelay {
	return &RedisRelay{client: client, channel: channel}
}

func (r *RedisRelay) Name() string { return "redis" }

func (r *RedisRelay) Deliver(ctx context.Context, msg Message) error {
	return r.client.Publish(ctx, r.channel, msg.Payload)
}

// Forward 订阅频道并转发给 hub，直到 ctx 结束。
func (r *RedisRelay) Forward(ctx context.Context, hub *Hub) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return errors.Wrap(err, "redis subscribe")
	}
	logger.Ctx(ctx).Info().Str("channel", r.channel).Msg("redis relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			msg, err := decodeRelayed(m.Payload)
			if err != nil {
				logger.Ctx(ctx).Warn().Err(err).Msg("skip malformed relayed event")
				continue
			}
			if err := hub.Deliver(ctx, msg); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

func decodeRelayed(payload string) (Message, error) {
	var n port.Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return Message{}, errors.Wrap(err, "decode relayed event")
	}
	if n.Event == "" {
		return Message{}, errors.New("relayed event has no name")
	}
	return Message{Notification: n, Payload: []byte(payload)}, nil
}
