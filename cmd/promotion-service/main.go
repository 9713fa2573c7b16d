// cmd/promotion-service/main.go
package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/otel"

	"promohub/internal/pkg/bootstrap"
	"promohub/internal/pkg/httpclient"
	"promohub/internal/pkg/logger"
	"promohub/internal/pkg/mq"
	"promohub/internal/pkg/redis"
	"promohub/internal/service/promotion/application"
	"promohub/internal/service/promotion/domain"
	"promohub/internal/service/promotion/infrastructure"
	"promohub/internal/service/promotion/infrastructure/notify"
	"promohub/internal/service/promotion/interfaces"
)

const serviceName = "promotion-service"

type shutdownFunc = func(ctx context.Context) error

func main() {
	cfg, err := bootstrap.LoadConfig("")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Setup(serviceName, cfg.Log.Level, cfg.Log.Pretty)

	// otel.Tracer 返回的 tracer 会在 bootstrap.Run 设置全局 provider 后自动生效
	tracer := otel.Tracer(serviceName)
	ctx := context.Background()

	repo, ready, closeStore, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open store")
	}
	hooks := []shutdownFunc{closeStore}

	// ---- 通知旁路 ----
	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := notify.NewHub()
	go hub.Run(hubCtx)
	hooks = append(hooks, func(context.Context) error { stopHub(); return nil })

	var sinks []notify.Sink
	if cfg.Infra.Redis.Enabled {
		rdb, err := redis.NewClient(cfg.Infra.Redis.Addr, cfg.Infra.Redis.Password)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		relay := notify.NewRedisRelay(rdb, cfg.Infra.Redis.Channel)
		sinks = append(sinks, relay)
		go func() {
			if err := relay.Forward(hubCtx, hub); err != nil {
				log.Error().Err(err).Msg("redis relay stopped")
			}
		}()
		hooks = append(hooks, func(context.Context) error { return rdb.Close() })
	} else {
		sinks = append(sinks, hub)
	}
	if cfg.Infra.Kafka.Enabled {
		writer := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.Topic)
		sinks = append(sinks, notify.NewKafkaSink(writer))
		hooks = append(hooks, func(context.Context) error { return writer.Close() })
	}
	if cfg.Infra.Webhook.Enabled {
		sinks = append(sinks, notify.NewWebhookSink(httpclient.NewClient(tracer, httpclient.WithHeader("X-Source", serviceName)), cfg.Infra.Webhook.URL))
	}

	dispatcher := notify.NewDispatcher(cfg.Notify.QueueSize, tracer, sinks...)
	dispatcher.Start()
	// 钩子逆序执行，dispatcher 最后注册，所以最先排空队列
	hooks = append(hooks, dispatcher.Close)

	svc := application.NewPromotionService(repo, dispatcher, tracer, application.WithMaxLimit(cfg.App.MaxLimit))
	handler := interfaces.NewPromotionHandler(svc,
		interfaces.WithHub(hub),
		interfaces.WithDevelopment(cfg.App.IsDevelopment()),
		interfaces.WithReadiness(ready),
	)

	log.Info().
		Str("driver", cfg.Store.Driver).
		Int("sinks", len(sinks)).
		Str("node", hub.NodeID()).
		Msg("promotion service wired")

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        cfg.App.Port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Engine)
		},
		OnShutdown: hooks,
	})
}

// openRepository 按 store.driver 选择存储实现，同时返回就绪检查与关闭函数。
// 就绪检查只做 ping，不重建连接，仓储持有的句柄始终有效。
func openRepository(ctx context.Context, cfg *bootstrap.Config) (domain.PromotionRepository, func(context.Context) error, shutdownFunc, error) {
	switch cfg.Store.Driver {
	case bootstrap.DriverMySQL:
		m := cfg.Infra.MySQL
		store := infrastructure.NewMySQLStore(infrastructure.MySQLConfig{
			DSN: m.DSN, Host: m.Host, Port: m.Port, User: m.User, Password: m.Password, Database: m.Database,
		})
		db, err := store.Connect(ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := infrastructure.AutoMigrate(ctx, db); err != nil {
			return nil, nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "mysql pool")
		}
		return infrastructure.NewGormPromotionRepository(db), sqlDB.PingContext, store.Disconnect, nil

	case bootstrap.DriverMongo:
		store := infrastructure.NewMongoStore(infrastructure.MongoConfig{
			URI:      cfg.Infra.Mongo.URI,
			Database: cfg.Infra.Mongo.Database,
			Timeout:  10 * time.Second,
		})
		db, err := store.Connect(ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		ready := func(ctx context.Context) error {
			return db.Client().Ping(ctx, readpref.Primary())
		}
		return infrastructure.NewMongoPromotionRepository(db), ready, store.Disconnect, nil

	case bootstrap.DriverMemory:
		log.Warn().Msg("using in-memory store, data will not survive a restart")
		return infrastructure.NewMemoryRepository(), nil, func(context.Context) error { return nil }, nil
	}
	return nil, nil, nil, errors.Errorf("unknown store driver %q", cfg.Store.Driver)
}
