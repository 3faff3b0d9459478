package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssebin/pandagrad-sub000/config"
	"github.com/ssebin/pandagrad-sub000/pkg/database"
	applogger "github.com/ssebin/pandagrad-sub000/pkg/logger"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := applogger.NewLogger(&cfg.Log)
			if err != nil {
				return fmt.Errorf("初始化日志失败: %w", err)
			}
			defer logger.Sync()

			db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
			if err != nil {
				return fmt.Errorf("数据库连接失败: %w", err)
			}
			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
			}
			defer sqlDB.Close()

			if err := database.RunMigrations(sqlDB, logger); err != nil {
				return err
			}
			logger.Info("迁移完成", zap.String("db", cfg.Database.Name))
			return nil
		},
	}
}
