package infrastructure

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"promohub/internal/pkg/logger"
)

// MongoConfig 描述 MongoDB 连接。
type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// MongoStore 持有 mongo 客户端，与 MySQLStore 一样由组合根显式注入。
type MongoStore struct {
	cfg MongoConfig

	mu     sync.Mutex
	client *mongo.Client
}

func NewMongoStore(cfg MongoConfig) *MongoStore {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &MongoStore{cfg: cfg}
}

// Connect 建立或复用连接，已有客户端 ping 失败时重新连接。
func (s *MongoStore) Connect(ctx context.Context) (*mongo.Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		pingCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		err := s.client.Ping(pingCtx, readpref.Primary())
		cancel()
		if err == nil {
			return s.client.Database(s.cfg.Database), nil
		}
		logger.Ctx(ctx).Warn().Err(err).Msg("mongo client is stale, reconnecting")
		_ = s.client.Disconnect(ctx)
		s.client = nil
	}

	connCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(connCtx, options.Client().ApplyURI(s.cfg.URI))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	if err := client.Ping(connCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "ping mongo")
	}

	s.client = client
	logger.Ctx(ctx).Info().Str("database", s.cfg.Database).Msg("mongo connected")
	return client.Database(s.cfg.Database), nil
}

// Disconnect 断开客户端，之后可以再次 Connect。
func (s *MongoStore) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(ctx)
	s.client = nil
	if err != nil {
		return errors.Wrap(err, "disconnect mongo")
	}
	logger.Ctx(ctx).Info().Msg("mongo disconnected")
	return nil
}
