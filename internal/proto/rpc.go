package proto

import "encoding/json"

// NATS Subject 常量定义
const (
	// SubjectRoomGateRPC 房间访问 RPC 请求
	SubjectRoomGateRPC = "roomgate.rpc"

	// QueueGroupRoomGate 服务队列组名称
	QueueGroupRoomGate = "roomgate-group"
)

// ============== 请求 ==============

// RPCRequest RPC 请求封装
type RPCRequest struct {
	ReqID  string          `json:"reqId"`
	Method string          `json:"method"`
	UserID string          `json:"userId,omitempty"` // 调用方已认证的用户，匿名为空
	Params json.RawMessage `json:"params,omitempty"`
}

// CanAccessRoomParams canAccessRoom 参数
type CanAccessRoomParams struct {
	RoomID    string         `json:"rid"`
	UserID    string         `json:"uid,omitempty"` // 为空时取 RPCRequest.UserID
	ExtraData map[string]any `json:"extraData,omitempty"`
}

// GetUsersOfRoomParams getUsersOfRoom 参数
type GetUsersOfRoomParams struct {
	RoomID  string `json:"rid"`
	ShowAll bool   `json:"showAll"`
	Limit   *int   `json:"limit,omitempty"`
	Skip    *int   `json:"skip,omitempty"`
	Filter  string `json:"filter,omitempty"`
}

// ============== 响应 ==============

// RPCResponse RPC 响应封装，Result 与 Error 二选一
type RPCResponse struct {
	ReqID  string    `json:"reqId"`
	Result any       `json:"result,omitempty"`
	Error  *RPCError `json:"error,omitempty"`
}

// RPCError RPC 错误
type RPCError struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Method  string `json:"method,omitempty"`
}
