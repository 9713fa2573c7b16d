// cmd/promotion-migrate/main.go
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"promohub/internal/pkg/bootstrap"
	"promohub/internal/pkg/logger"
	"promohub/internal/service/promotion/infrastructure"
)

func main() {
	var (
		configPath = flag.String("config", "", "配置文件路径，默认读取 CONFIG_PATH 或 config.yaml")
		dsn        = flag.String("dsn", "", "覆盖配置中的 MySQL DSN")
		check      = flag.Bool("check", false, "只检查不写库")
		timeout    = flag.Duration("timeout", 5*time.Minute, "整体超时")
	)
	flag.Parse()

	cfg, err := bootstrap.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Setup("promotion-migrate", cfg.Log.Level, cfg.Log.Pretty)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	m := cfg.Infra.MySQL
	mc := infrastructure.MySQLConfig{DSN: m.DSN, Host: m.Host, Port: m.Port, User: m.User, Password: m.Password, Database: m.Database}
	if *dsn != "" {
		mc.DSN = *dsn
	}
	store := infrastructure.NewMySQLStore(mc)
	db, err := store.Connect(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect mysql")
	}
	defer store.Disconnect(context.Background())

	if !*check {
		if err := infrastructure.AutoMigrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("auto migrate failed")
		}
	}

	report, err := infrastructure.RepairLegacyRows(ctx, db, time.Now(), *check)
	if err != nil {
		log.Error().Err(err).Int("scanned", report.Total).Msg("migration aborted")
		store.Disconnect(context.Background())
		os.Exit(1)
	}

	for _, issue := range report.Issues {
		log.Warn().
			Str("promotion_id", issue.ID).
			Str("field", issue.Field).
			Str("value", issue.Value).
			Msg(issue.Problem)
	}
	log.Info().
		Bool("check", *check).
		Int("total", report.Total).
		Int("updated", report.Updated).
		Int("issues", len(report.Issues)).
		Msg("migration finished")

	if *check && len(report.Issues) > 0 {
		store.Disconnect(context.Background())
		os.Exit(2)
	}
}
