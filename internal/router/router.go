package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "sudooom.im.roomgate/docs"
	"sudooom.im.roomgate/internal/config"
	"sudooom.im.roomgate/internal/handler"
	"sudooom.im.roomgate/internal/health"
	"sudooom.im.roomgate/internal/jwt"
	"sudooom.im.roomgate/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(
	cfg *config.Config,
	jwtService *jwt.Service,
	roomHandler *handler.RoomHandler,
	healthChecker *health.Checker,
) *gin.Engine {
	// 设置 Gin 模式
	if cfg.HTTP.Mode != "" {
		gin.SetMode(cfg.HTTP.Mode)
	}

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowCredentials,
	))
	r.Use(middleware.Logger())

	// Swagger 文档路由
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 探针
	r.GET("/health", healthChecker.Live)
	r.GET("/ready", healthChecker.Ready)

	// API v1，匿名请求也可以进入，由服务层决定是否需要登录
	v1 := r.Group("/api/v1")
	v1.Use(middleware.OptionalAuth(jwtService))
	{
		rooms := v1.Group("/rooms")
		{
			if cfg.Features.AllowCanAccessRoom {
				rooms.POST("/access", roomHandler.CheckRoomAccess)
			}
			rooms.GET("/:rid/members", roomHandler.ListMembers)
		}
	}

	return r
}
