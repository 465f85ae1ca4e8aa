package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"shrimpy/config"
	"shrimpy/database"
	"shrimpy/menu"
	"shrimpy/router"
	"shrimpy/service"
	"shrimpy/storage"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// sessionPurgeInterval 过期会话清理间隔
const sessionPurgeInterval = time.Hour

func newServeCmd(configFile *string) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap(*configFile)
			if err != nil {
				return err
			}

			// 命令行参数覆盖端口配置
			if port != "" {
				if !strings.HasPrefix(port, ":") {
					port = ":" + port
				}
				cfg.Server.Port = port
				log.Info().Str("port", port).Msg("命令行指定端口")
			}

			config.PrintConfig()
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "监听端口，如: 8080 或 :8080")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	bucket, fs, err := storage.NewFromConfig(cfg.Storage)
	if err != nil {
		return fmt.Errorf("初始化图片存储失败: %w", err)
	}
	log.Info().Str("bucket", bucket.Name()).Str("dir", cfg.Storage.Dir).Msg("图片存储已就绪")

	mailer := service.NewEmailService(&cfg.Email, cfg.Restaurant.Name)
	if !mailer.Enabled() && !cfg.Auth.AutoConfirm {
		log.Warn().Msg("邮件服务未启用且未开启自动确认，注册将无法完成")
	}
	auth := service.NewAuthService(database.DB, cfg, mailer)

	store := database.NewMenuItemStore(database.DB)
	menuService := service.NewMenuService(store, bucket, menu.NewQuery(store), int64(cfg.Storage.MaxUploadMB)<<20)

	r, err := router.SetupRouter(cfg, router.Deps{Auth: auth, Menu: menuService, Storage: fs})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go purgeSessions(ctx, auth)

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("%s 已启动", cfg.Restaurant.Name)
		log.Info().Msgf("  菜单页面: %s/", cfg.Server.BaseURL)
		log.Info().Msgf("  后台管理: %s/admin", cfg.Server.BaseURL)
		log.Info().Msgf("  Swagger:  %s/swagger/index.html", cfg.Server.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("服务器启动失败: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("正在关闭服务器")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func purgeSessions(ctx context.Context, auth *service.AuthService) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := auth.PurgeExpiredSessions(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("清理过期会话失败")
				continue
			}
			if n > 0 {
				log.Info().Int64("count", n).Msg("已清理过期会话")
			}
		}
	}
}
