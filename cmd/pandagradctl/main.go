package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ssebin/pandagrad-sub000/config"
	"github.com/ssebin/pandagrad-sub000/internal/repository"
	"github.com/ssebin/pandagrad-sub000/internal/service"
	"github.com/ssebin/pandagrad-sub000/pkg/database"
	applogger "github.com/ssebin/pandagrad-sub000/pkg/logger"
	"github.com/ssebin/pandagrad-sub000/pkg/redis"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "pandagradctl",
		Short:         "PandaGrad 任务目录运维工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认 ./config/config.yaml）")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(calendarCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(statusCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// app 子命令共享的依赖
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	rdb    *redis.Client
	svc    *service.Service
}

// bootstrap 加载配置、连接数据库并组装 Service
// Redis 可选：连接成功时日历导入会同步失效服务端缓存
func bootstrap() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, db: db}
	var cache service.CalendarCache
	if rdb, err := redis.NewClient(&cfg.Redis, logger); err != nil {
		logger.Warn("Redis 连接失败，跳过日历缓存", zap.Error(err))
	} else {
		a.rdb = rdb
		cache = rdb
	}

	a.svc = service.NewService(cfg, repository.NewRepository(db), cache, logger)
	return a, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	if a.rdb != nil {
		a.rdb.Close()
	}
	a.logger.Sync()
}
