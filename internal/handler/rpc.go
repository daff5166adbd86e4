package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"sudooom.im.roomgate/internal/proto"
	"sudooom.im.roomgate/internal/service"
	appErrors "sudooom.im.roomgate/pkg/errors"
)

// rpcMethod RPC 方法处理函数
type rpcMethod func(ctx context.Context, req *proto.RPCRequest) (any, error)

// RPCHandler NATS RPC 处理器，按方法名分发
type RPCHandler struct {
	roomService RoomService
	methods     map[string]rpcMethod
	logger      *slog.Logger
}

// NewRPCHandler 创建 RPC 处理器
// allowCanAccessRoom 为 false 时不注册已废弃的 canAccessRoom
func NewRPCHandler(roomService RoomService, allowCanAccessRoom bool) *RPCHandler {
	h := &RPCHandler{
		roomService: roomService,
		logger:      slog.Default().With("component", "RPCHandler"),
	}

	h.methods = map[string]rpcMethod{
		service.MethodGetUsersOfRoom: h.getUsersOfRoom,
	}
	if allowCanAccessRoom {
		h.methods[service.MethodCanAccessRoom] = h.canAccessRoom
	}
	return h
}

// Methods 已注册的方法名
func (h *RPCHandler) Methods() []string {
	names := make([]string, 0, len(h.methods))
	for name := range h.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HandleMessage 解码请求、分发并编码响应
func (h *RPCHandler) HandleMessage(ctx context.Context, data []byte) []byte {
	var req proto.RPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.logger.Error("Failed to unmarshal RPC request", "error", err)
		return EncodeResponse(&proto.RPCResponse{
			Error: ToRPCError(appErrors.ErrInvalidParams.WithMessage("Malformed request")),
		})
	}
	return EncodeResponse(h.Handle(ctx, &req))
}

// Handle 分发单个请求
// 未携带 reqId 的请求分配一个，便于日志关联
func (h *RPCHandler) Handle(ctx context.Context, req *proto.RPCRequest) *proto.RPCResponse {
	if req.ReqID == "" {
		req.ReqID = uuid.NewString()
	}

	method, ok := h.methods[req.Method]
	if !ok {
		return &proto.RPCResponse{
			ReqID: req.ReqID,
			Error: ToRPCError(appErrors.ErrInvalidParams.WithMessage("Method not found").WithMethod(req.Method)),
		}
	}

	result, err := method(ctx, req)
	if err != nil {
		return &proto.RPCResponse{ReqID: req.ReqID, Error: ToRPCError(err)}
	}
	return &proto.RPCResponse{ReqID: req.ReqID, Result: result}
}

func (h *RPCHandler) canAccessRoom(ctx context.Context, req *proto.RPCRequest) (any, error) {
	var params proto.CanAccessRoomParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	if params.UserID == "" {
		params.UserID = req.UserID
	}

	h.logger.Warn("Deprecated method called",
		"method", service.MethodCanAccessRoom,
		"reqId", req.ReqID,
		"userId", params.UserID,
		"roomId", params.RoomID)

	result, err := h.roomService.CheckRoomAccess(ctx, service.CheckRoomAccessParams{
		RoomID: params.RoomID,
		UserID: params.UserID,
		Extra:  params.ExtraData,
	})
	if err != nil {
		return nil, err
	}
	return accessResultData(result), nil
}

func (h *RPCHandler) getUsersOfRoom(ctx context.Context, req *proto.RPCRequest) (any, error) {
	var params proto.GetUsersOfRoomParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	listParams := service.ListRoomMembersParams{
		RoomID:         params.RoomID,
		UserID:         req.UserID,
		IncludeOffline: params.ShowAll,
		Filter:         params.Filter,
	}
	if params.Limit != nil {
		listParams.Limit = *params.Limit
	}
	if params.Skip != nil {
		listParams.Skip = *params.Skip
	}

	return h.roomService.ListRoomMembers(ctx, listParams)
}

// decodeParams 解析方法参数，缺省参数按空对象处理
func decodeParams(req *proto.RPCRequest, v any) error {
	if len(req.Params) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params, v); err != nil {
		return appErrors.ErrInvalidParams.WithMessage("Malformed params").WithMethod(req.Method).Wrap(err)
	}
	return nil
}

// ToRPCError 转换为 RPC 错误
func ToRPCError(err error) *proto.RPCError {
	appErr := appErrors.As(err)
	return &proto.RPCError{
		Code:    appErr.Code,
		Kind:    appErr.Kind,
		Message: appErr.Message,
		Method:  appErr.Method,
	}
}

// EncodeResponse 编码响应
func EncodeResponse(resp *proto.RPCResponse) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("Failed to marshal RPC response", "reqId", resp.ReqID, "error", err)
		data, _ = json.Marshal(&proto.RPCResponse{ReqID: resp.ReqID, Error: ToRPCError(err)})
	}
	return data
}
