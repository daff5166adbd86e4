package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"sudooom.im.roomgate/internal/access"
	"sudooom.im.roomgate/internal/config"
	"sudooom.im.roomgate/internal/handler"
	"sudooom.im.roomgate/internal/health"
	"sudooom.im.roomgate/internal/jwt"
	imNats "sudooom.im.roomgate/internal/nats"
	"sudooom.im.roomgate/internal/repository"
	"sudooom.im.roomgate/internal/repository/memory"
	"sudooom.im.roomgate/internal/router"
	"sudooom.im.roomgate/internal/service"
	"sudooom.im.roomgate/internal/settings"
)

// stores 存储驱动提供的各类查询
type stores struct {
	users         service.UserFinder
	rooms         service.RoomFinder
	members       service.MemberStore
	subscriptions access.SubscriptionChecker
	permissions   access.PermissionChecker
	teams         access.TeamFinder
}

func main() {
	configPath := pflag.StringP("config", "c", "configs/config.yaml", "config file path")
	pflag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.App.LogLevel),
	}))
	slog.SetDefault(logger)

	// 创建上下文
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 存储
	var (
		st *stores
		db *pgxpool.Pool
	)
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		store, err := memory.LoadSeedFile(cfg.Storage.SeedFile)
		if err != nil {
			logger.Error("Failed to load seed file", "path", cfg.Storage.SeedFile, "error", err)
			os.Exit(1)
		}
		st = &stores{
			users:         store.Users(),
			rooms:         store.Rooms(),
			members:       store.Subscriptions(),
			subscriptions: store.Subscriptions(),
			permissions:   store.Permissions(),
			teams:         store.Teams(),
		}
		logger.Info("Using memory storage", "seed", cfg.Storage.SeedFile)
	default:
		db, err = connectDatabase(ctx, cfg.Database)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		logger.Info("Connected to PostgreSQL", "host", cfg.Database.Host)

		subscriptions := repository.NewSubscriptionRepository(db)
		st = &stores{
			users:         repository.NewUserRepository(db),
			rooms:         repository.NewRoomRepository(db),
			members:       subscriptions,
			subscriptions: subscriptions,
			permissions:   repository.NewPermissionRepository(db),
			teams:         repository.NewTeamRepository(db),
		}
	}

	// 运行时设置
	var (
		sp          settings.Provider
		redisClient *redis.Client
	)
	if cfg.Redis.Enabled {
		redisClient = connectRedis(cfg.Redis)
		defer redisClient.Close()
		sp = settings.NewRedisProvider(redisClient, cfg.Settings.AllowAnonymousRead)
		logger.Info("Using Redis settings", "addr", cfg.Redis.Addr())
	} else {
		sp = settings.NewMemoryProvider(cfg.Settings.AllowAnonymousRead)
	}

	// 初始化服务
	policy := access.DefaultPolicy(st.subscriptions, st.permissions, st.teams, sp)
	engine := access.NewEngine(policy, sp)
	gate := access.NewBroadcastGate(st.permissions)
	roomService := service.NewRoomAccessService(st.users, st.rooms, st.members, engine, gate)

	if cfg.Features.AllowCanAccessRoom {
		logger.Warn("Deprecated method enabled", "method", service.MethodCanAccessRoom)
	}

	// NATS RPC
	var (
		natsConn  *nats.Conn
		rpcServer *imNats.RPCServer
	)
	if cfg.NATS.Enabled {
		natsClient, err := imNats.NewClient(cfg.NATS, cfg.App.Name)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		natsConn = natsClient.Conn()
		logger.Info("Connected to NATS", "url", cfg.NATS.URL)

		rpcHandler := handler.NewRPCHandler(roomService, cfg.Features.AllowCanAccessRoom)
		rpcServer = imNats.NewRPCServer(natsConn, rpcHandler, imNats.ServerConfig{
			Subject:    cfg.RPC.Subject,
			QueueGroup: cfg.RPC.QueueGroup,
			Workers:    cfg.RPC.Workers,
			QueueSize:  cfg.RPC.QueueSize,
		})
		if err := rpcServer.Start(ctx); err != nil {
			logger.Error("Failed to start RPC server", "error", err)
			os.Exit(1)
		}
		logger.Info("RPC methods registered", "methods", rpcHandler.Methods())
	}

	// HTTP
	jwtService := jwt.NewService(cfg.JWT.SecretKey, cfg.JWT.AccessExpire)
	healthChecker := health.NewChecker(natsConn, redisClient, db)
	r := router.SetupRouter(cfg, jwtService, handler.NewRoomHandler(roomService), healthChecker)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("HTTP server started", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("RoomGate service started", "name", cfg.App.Name, "storage", cfg.Storage.Driver)

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	if rpcServer != nil {
		rpcServer.Stop()
	}
	cancel()
	logger.Info("RoomGate service stopped")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// connectRedis 连接 Redis
func connectRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// connectDatabase 连接 PostgreSQL
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	poolConfig.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
