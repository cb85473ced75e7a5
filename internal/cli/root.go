package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"meal-planner/internal/config"
	"meal-planner/internal/database"
	"meal-planner/internal/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "meal-planner",
	Short:         "Household meal planning backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	// 不带子命令时直接启动服务
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml)")
	rootCmd.AddCommand(serveCmd, migrateCmd, userCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap 加载配置、日志和数据库，所有子命令共用
func bootstrap() (*config.Config, *logger.Logger, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	// ensure basic directories exist
	if cfg.Database.Driver == "" || cfg.Database.Driver == "sqlite" {
		if err := ensureDir(filepath.Dir(cfg.Database.Path)); err != nil {
			return nil, nil, nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	if err := ensureDir(cfg.Backup.Dir); err != nil {
		return nil, nil, nil, fmt.Errorf("create backup dir: %w", err)
	}

	db, err := database.Init(cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	return cfg, log, db, nil
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
