// Package cli 命令行入口
package cli

import (
	"fmt"
	"os"

	"shrimpy/config"
	"shrimpy/database"
	"shrimpy/logger"
	"shrimpy/middleware"

	"github.com/spf13/cobra"
)

// Version 版本号，构建时可通过 -ldflags 覆盖
var Version = "1.0.0"

// Execute 执行根命令
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCmd 构建命令树
func NewRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           "shrimpy",
		Short:         "Shrimpy Seafood menu site",
		Long:          "Public restaurant menu with an admin panel for managing dishes.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "外部配置文件路径（可选）")

	cmd.AddCommand(
		newServeCmd(&configFile),
		newSeedCmd(&configFile),
		newRolesCmd(&configFile),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig 加载配置并初始化日志
func loadConfig(configFile string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	logger.New(logger.Config{Format: cfg.Log.Format, Level: cfg.Log.Level})
	return cfg, nil
}

// bootstrap 加载配置、连接数据库并初始化 JWT
func bootstrap(configFile string) (*config.Config, error) {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return nil, err
	}
	if err := database.Init(cfg); err != nil {
		return nil, fmt.Errorf("数据库初始化失败: %w", err)
	}
	middleware.InitJWT(cfg)
	return cfg, nil
}
