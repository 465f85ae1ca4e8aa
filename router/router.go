package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"shrimpy/api"
	"shrimpy/config"
	_ "shrimpy/docs"
	"shrimpy/logger"
	"shrimpy/menu"
	"shrimpy/metrics"
	"shrimpy/middleware"
	"shrimpy/service"
	"shrimpy/storage"
	"shrimpy/web"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// AuthService 认证、会话与角色
type AuthService interface {
	api.Authenticator
	Resolve(ctx context.Context, sessionID string) (*service.Session, error)
}

// MenuService 菜品管理与菜单查询
type MenuService interface {
	api.MenuManager
	Query() *menu.Query
}

// Deps 路由依赖
type Deps struct {
	Auth    AuthService
	Menu    MenuService
	Storage afero.Fs
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, deps Deps) (*gin.Engine, error) {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.IsRelease() {
		r.Use(logger.GinLogger())
	} else {
		r.Use(gin.Logger())
	}
	r.Use(metrics.Middleware())

	// CORS 中间件
	r.Use(CORSMiddleware())

	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	// 每个请求解析一次会话
	r.Use(middleware.LoadSession(deps.Auth))

	query := deps.Menu.Query()
	pageHandler := api.NewPageHandler(query, cfg)

	// 页面
	r.GET("/", pageHandler.Index)
	r.GET("/admin/login", pageHandler.Login)
	r.GET("/admin", middleware.AdminOnly(deps.Auth, middleware.PageMode), pageHandler.Admin)

	// 图片对象的公开地址
	if deps.Storage != nil {
		prefix := strings.TrimRight(cfg.Storage.PublicBaseURL, "/")
		if strings.HasPrefix(prefix, "/") {
			files := http.StripPrefix(prefix, storage.Handler(deps.Storage))
			r.GET(prefix+"/*filepath", gin.WrapH(files))
		}
	}

	// 后台管理 API
	adminMenuHandler := api.NewAdminMenuHandler(deps.Menu)
	adminAPI := r.Group("/admin/api")
	adminAPI.Use(middleware.AdminOnly(deps.Auth, middleware.JSONMode))
	{
		adminAPI.GET("/menu-items", adminMenuHandler.List)
		adminAPI.POST("/menu-items", adminMenuHandler.Create)
		adminAPI.GET("/menu-items/export", adminMenuHandler.Export)
		adminAPI.PUT("/menu-items/:id", adminMenuHandler.Update)
		adminAPI.DELETE("/menu-items/:id", adminMenuHandler.Delete)
	}

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Prometheus 指标
	r.GET("/metrics", metrics.Handler())

	// API v1 路由组
	v1 := r.Group("/api/v1")
	{
		menuHandler := api.NewMenuHandler(query)
		v1.GET("/menu-items", menuHandler.List)
		v1.GET("/categories", menuHandler.Categories)

		authHandler := api.NewAuthHandler(deps.Auth)
		auth := v1.Group("/auth")
		{
			auth.POST("/sign-up", authHandler.SignUp)
			auth.POST("/sign-in",
				middleware.LoginRateLimit(cfg.Auth.LoginMaxAttempts, time.Duration(cfg.Auth.LoginWindowSeconds)*time.Second),
				authHandler.SignIn)
			auth.POST("/sign-out", authHandler.SignOut)
			auth.GET("/session", middleware.RequireSession(middleware.APIMode), authHandler.Session)
			auth.GET("/confirm", authHandler.Confirm)
		}
	}

	// 未匹配的 API 路径返回 JSON
	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			api.NotFound(c, "Resource not found.")
			return
		}
		c.String(http.StatusNotFound, "404 page not found")
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return r, nil
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
