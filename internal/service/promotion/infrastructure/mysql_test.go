package infrastructure

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
)

func TestMySQLConfigFormatDSN(t *testing.T) {
	explicit := MySQLConfig{DSN: "u:p@tcp(h:1)/db", Host: "ignored"}
	if got := explicit.FormatDSN(); got != "u:p@tcp(h:1)/db" {
		t.Fatalf("explicit dsn = %q", got)
	}

	dsn := MySQLConfig{Host: "db", Port: 3306, User: "root", Password: "p@ss:word", Database: "promotions"}.FormatDSN()
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN(%q): %v", dsn, err)
	}
	if cfg.Addr != "db:3306" || cfg.Passwd != "p@ss:word" || cfg.DBName != "promotions" {
		t.Errorf("parsed = %+v", cfg)
	}
	if !cfg.ParseTime || cfg.Loc != time.UTC {
		t.Errorf("parseTime = %v, loc = %v", cfg.ParseTime, cfg.Loc)
	}
	if !strings.Contains(dsn, "charset=utf8mb4") {
		t.Errorf("dsn = %q", dsn)
	}
}

func TestMySQLStoreConnectReuseDisconnect(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	mock.MatchExpectationsInOrder(false)

	store := NewMySQLStoreWithDialector(mysql.New(mysql.Config{Conn: db, SkipInitializeWithVersion: true}))
	ctx := context.Background()

	// gorm.Open 自身 ping 一次，第二次 Connect 复用前再 ping 一次
	mock.ExpectPing()
	mock.ExpectPing()

	first, err := store.Connect(ctx)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	second, err := store.Connect(ctx)
	if err != nil {
		t.Fatalf("second Connect: %v", err)
	}
	if first != second || store.DB() != first {
		t.Fatal("healthy handle should be reused")
	}

	mock.ExpectClose()
	if err := store.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if store.DB() != nil {
		t.Fatal("handle should be cleared after Disconnect")
	}
	if err := store.Disconnect(ctx); err != nil {
		t.Fatalf("second Disconnect: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
