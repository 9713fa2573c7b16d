package redis

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// Client 封装 go-redis 的通用客户端，单节点与集群地址都可使用。
type Client struct {
	rdb goredis.UniversalClient
}

// NewClient 根据逗号分隔的地址创建客户端，并在返回前 ping 一次。
func NewClient(addrs, password string) (*Client, error) {
	list := make([]string, 0)
	for _, a := range strings.Split(addrs, ",") {
		if a = strings.TrimSpace(a); a != "" {
			list = append(list, a)
		}
	}
	if len(list) == 0 {
		return nil, errors.New("redis: no address configured")
	}

	rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    list,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return &Client{rdb: rdb}, nil
}

// Publish 向频道发布一条消息。
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	return errors.Wrap(c.rdb.Publish(ctx, channel, payload).Err(), "redis publish")
}

// Subscribe 订阅频道，调用方负责关闭返回的 PubSub。
func (c *Client) Subscribe(ctx context.Context, channel string) *goredis.PubSub {
	return c.rdb.Subscribe(ctx, channel)
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
