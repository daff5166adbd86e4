package nats

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"sudooom.im.roomgate/internal/handler"
	"sudooom.im.roomgate/internal/proto"
	"sudooom.im.roomgate/internal/workerpool"
	appErrors "sudooom.im.roomgate/pkg/errors"
)

// Dispatcher 处理原始请求并返回编码后的响应
type Dispatcher interface {
	HandleMessage(ctx context.Context, data []byte) []byte
}

// ServerConfig RPC 服务配置
type ServerConfig struct {
	Subject    string
	QueueGroup string
	Workers    int
	QueueSize  int
}

// RPCServer 基于 NATS 请求-应答的 RPC 入口
// 使用队列组在多个实例间负载均衡，请求交给 worker pool 处理
type RPCServer struct {
	nc           *nats.Conn
	dispatcher   Dispatcher
	config       ServerConfig
	pool         *workerpool.Pool
	subscription *nats.Subscription
	cancel       context.CancelFunc
	logger       *slog.Logger
}

// NewRPCServer 创建 RPC 服务
func NewRPCServer(nc *nats.Conn, dispatcher Dispatcher, config ServerConfig) *RPCServer {
	if config.Subject == "" {
		config.Subject = proto.SubjectRoomGateRPC
	}
	if config.QueueGroup == "" {
		config.QueueGroup = proto.QueueGroupRoomGate
	}

	return &RPCServer{
		nc:         nc,
		dispatcher: dispatcher,
		config:     config,
		logger:     slog.Default().With("component", "RPCServer"),
	}
}

// Start 启动订阅
func (s *RPCServer) Start(ctx context.Context) error {
	workerCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.pool = workerpool.New(s.config.Workers, s.config.QueueSize, s.logger)

	sub, err := s.nc.QueueSubscribe(s.config.Subject, s.config.QueueGroup, func(msg *nats.Msg) {
		s.enqueue(workerCtx, msg)
	})
	if err != nil {
		cancel()
		s.pool.Shutdown()
		return err
	}

	s.subscription = sub
	s.logger.Info("NATS RPC server started",
		"subject", s.config.Subject,
		"queueGroup", s.config.QueueGroup,
		"workers", s.config.Workers,
		"queueSize", s.config.QueueSize,
	)
	return nil
}

// enqueue 请求入队，队列满时立即回复繁忙
func (s *RPCServer) enqueue(ctx context.Context, msg *nats.Msg) {
	ok := s.pool.TrySubmit(func() {
		s.respond(msg, s.handle(ctx, msg.Data))
	})
	if ok {
		return
	}

	current, capacity := s.pool.QueueUsage()
	s.logger.Warn("RPC queue full, rejecting request", "queued", current, "capacity", capacity)
	s.respond(msg, handler.EncodeResponse(&proto.RPCResponse{
		Error: handler.ToRPCError(appErrors.ErrTooManyRequest),
	}))
}

// handle 分发请求，处理过程中 panic 时回复服务器内部错误
func (s *RPCServer) handle(ctx context.Context, data []byte) (out []byte) {
	defer func() {
		if r := recover(); r != nil {
			var req proto.RPCRequest
			_ = json.Unmarshal(data, &req)
			s.logger.Error("RPC handler panic recovered", "reqId", req.ReqID, "method", req.Method, "panic", r)
			out = handler.EncodeResponse(&proto.RPCResponse{
				ReqID: req.ReqID,
				Error: handler.ToRPCError(appErrors.ErrServerError.WithMethod(req.Method)),
			})
		}
	}()
	return s.dispatcher.HandleMessage(ctx, data)
}

func (s *RPCServer) respond(msg *nats.Msg, data []byte) {
	if msg.Reply == "" {
		// 没有回复地址的请求只处理不应答
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Error("Failed to respond", "subject", msg.Subject, "error", err)
	}
}

// Stop 停止订阅，等待处理中的请求完成
func (s *RPCServer) Stop() error {
	if s.subscription != nil {
		if err := s.subscription.Unsubscribe(); err != nil {
			s.logger.Error("Failed to unsubscribe", "error", err)
		}
	}

	if s.pool != nil {
		s.pool.Shutdown()
	}

	if s.cancel != nil {
		s.cancel()
	}

	s.logger.Info("NATS RPC server stopped")
	return nil
}
