package infrastructure

import (
	"context"
	"fmt"
	"sync"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"promohub/internal/pkg/logger"
)

// MySQLConfig 描述 MySQL 连接。DSN 非空时优先使用，否则由其余字段拼装。
type MySQLConfig struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// FormatDSN 使用驱动自带的 Config 拼装 DSN，保证转义正确。
func (c MySQLConfig) FormatDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	cfg := mysqldriver.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// MySQLStore 持有 gorm 连接句柄，由组合根显式创建并注入，不依赖全局单例。
// Connect 是幂等的：句柄存活时直接复用，失效时重新建立。
type MySQLStore struct {
	cfg       MySQLConfig
	dialector func() gorm.Dialector

	mu sync.Mutex
	db *gorm.DB
}

func NewMySQLStore(cfg MySQLConfig) *MySQLStore {
	return &MySQLStore{
		cfg:       cfg,
		dialector: func() gorm.Dialector { return mysql.Open(cfg.FormatDSN()) },
	}
}

// NewMySQLStoreWithDialector 使用给定的方言器，测试中配合 sqlmock 使用。
func NewMySQLStoreWithDialector(d gorm.Dialector) *MySQLStore {
	return &MySQLStore{dialector: func() gorm.Dialector { return d }}
}

// Connect 建立或复用连接。
func (s *MySQLStore) Connect(ctx context.Context) (*gorm.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err == nil && sqlDB.PingContext(ctx) == nil {
			return s.db, nil
		}
		logger.Ctx(ctx).Warn().Msg("mysql handle is stale, reconnecting")
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
		s.db = nil
	}

	db, err := gorm.Open(s.dialector(), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "mysql pool")
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	s.db = db
	logger.Ctx(ctx).Info().Msg("mysql connected")
	return db, nil
}

// Disconnect 关闭连接池，之后可以再次 Connect。
func (s *MySQLStore) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	s.db = nil
	if err != nil {
		return errors.Wrap(err, "mysql pool")
	}
	if err := sqlDB.Close(); err != nil {
		return errors.Wrap(err, "close mysql")
	}
	logger.Ctx(ctx).Info().Msg("mysql disconnected")
	return nil
}

// DB 返回当前句柄，未连接时为 nil。
func (s *MySQLStore) DB() *gorm.DB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db
}

// AutoMigrate 同步 promotions 表结构。
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	return errors.Wrap(db.WithContext(ctx).AutoMigrate(&PromotionModel{}), "auto migrate promotions")
}
