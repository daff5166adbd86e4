package service

import (
	"context"
	"errors"
	"log/slog"

	"sudooom.im.roomgate/internal/access"
	"sudooom.im.roomgate/internal/member"
	"sudooom.im.roomgate/internal/model"
	"sudooom.im.roomgate/internal/repository"
	appErrors "sudooom.im.roomgate/pkg/errors"
)

// 对外方法名，用于错误诊断
const (
	MethodCanAccessRoom  = "canAccessRoom"
	MethodGetUsersOfRoom = "getUsersOfRoom"
)

// UserFinder 用户查询
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// RoomFinder 房间查询
type RoomFinder interface {
	FindByID(ctx context.Context, id string) (*model.Room, error)
	FindAccessByID(ctx context.Context, id string) (*model.Room, error)
}

// MemberStore 成员计数与分页查询
type MemberStore interface {
	CountMembers(ctx context.Context, q member.Query) (int, error)
	FindMembers(ctx context.Context, q member.Query) ([]model.Member, error)
}

// CheckRoomAccessParams 房间访问检查参数
type CheckRoomAccessParams struct {
	RoomID string
	UserID string
	Extra  map[string]any
}

// AccessResult 访问检查结果
// Allowed 为 false 时 Room 为 nil，对应对外协议中的字面量 false
type AccessResult struct {
	Allowed bool
	Room    *model.Room
}

// ListRoomMembersParams 成员列表参数
type ListRoomMembersParams struct {
	RoomID         string
	UserID         string // 当前登录用户
	IncludeOffline bool
	Limit          int
	Skip           int
	Filter         string
}

// RoomAccessService 房间访问与成员列表服务
type RoomAccessService struct {
	users   UserFinder
	rooms   RoomFinder
	members MemberStore
	engine  *access.Engine
	gate    *access.BroadcastGate
	logger  *slog.Logger
}

// NewRoomAccessService 创建房间访问服务
func NewRoomAccessService(users UserFinder, rooms RoomFinder, members MemberStore, engine *access.Engine, gate *access.BroadcastGate) *RoomAccessService {
	return &RoomAccessService{
		users:   users,
		rooms:   rooms,
		members: members,
		engine:  engine,
		gate:    gate,
		logger:  slog.Default().With("component", "RoomAccessService"),
	}
}

// CheckRoomAccess 检查用户（可为匿名）能否查看房间
// 允许时返回房间（有用户时附带 username），拒绝时返回 Allowed=false
func (s *RoomAccessService) CheckRoomAccess(ctx context.Context, params CheckRoomAccessParams) (*AccessResult, error) {
	if params.RoomID == "" {
		return nil, appErrors.ErrInvalidRoom.WithMethod(MethodCanAccessRoom)
	}

	room, err := s.rooms.FindByID(ctx, params.RoomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, appErrors.ErrInvalidRoom.WithMethod(MethodCanAccessRoom)
		}
		return nil, s.internalError(MethodCanAccessRoom, "Failed to find room", err, "roomId", params.RoomID)
	}

	var user *model.User
	if params.UserID != "" {
		user, err = s.users.FindByID(ctx, params.UserID)
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return nil, s.internalError(MethodCanAccessRoom, "Failed to find user", err, "userId", params.UserID)
		}
	}

	allowed, err := s.engine.Decide(ctx, access.Request{
		Room:   room,
		UserID: params.UserID,
		User:   user,
		Extra:  params.Extra,
	})
	if err != nil {
		var appErr *appErrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr.WithMethod(MethodCanAccessRoom)
		}
		return nil, s.internalError(MethodCanAccessRoom, "Failed to decide room access", err,
			"roomId", params.RoomID, "userId", params.UserID)
	}

	if !allowed {
		return &AccessResult{Allowed: false}, nil
	}

	if user != nil {
		room.Username = user.Username
	}
	return &AccessResult{Allowed: true, Room: room}, nil
}

// ListRoomMembers 查询房间成员
// 先重新校验访问权限，广播房间再校验成员列表权限；total 与 records 使用相同条件
func (s *RoomAccessService) ListRoomMembers(ctx context.Context, params ListRoomMembersParams) (*model.MemberPage, error) {
	if params.RoomID == "" {
		return nil, appErrors.ErrInvalidRoom.WithMethod(MethodGetUsersOfRoom)
	}
	if params.UserID == "" {
		return nil, appErrors.ErrUnauthenticated.WithMethod(MethodGetUsersOfRoom)
	}

	room, err := s.rooms.FindAccessByID(ctx, params.RoomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, appErrors.ErrNotAllowed.WithMethod(MethodGetUsersOfRoom)
		}
		return nil, s.internalError(MethodGetUsersOfRoom, "Failed to find room", err, "roomId", params.RoomID)
	}

	allowed, err := s.engine.Evaluate(ctx, room, &model.User{ID: params.UserID}, nil)
	if err != nil {
		return nil, s.internalError(MethodGetUsersOfRoom, "Failed to evaluate room access", err,
			"roomId", params.RoomID, "userId", params.UserID)
	}
	if !allowed {
		return nil, appErrors.ErrNotAllowed.WithMessage("Not authorized").WithMethod(MethodGetUsersOfRoom)
	}

	visible, err := s.gate.CheckBroadcastVisibility(ctx, room, params.UserID)
	if err != nil {
		return nil, s.internalError(MethodGetUsersOfRoom, "Failed to check broadcast permission", err,
			"roomId", params.RoomID, "userId", params.UserID)
	}
	if !visible {
		return nil, appErrors.ErrNotAllowed.WithMethod(MethodGetUsersOfRoom)
	}

	q := member.Query{
		RoomID:         params.RoomID,
		IncludeOffline: params.IncludeOffline,
		Filter:         params.Filter,
		Limit:          params.Limit,
		Skip:           params.Skip,
	}.Normalize()

	// 计数和分页是两次独立读取，并发写入时允许少量偏差
	total, err := s.members.CountMembers(ctx, q)
	if err != nil {
		return nil, s.internalError(MethodGetUsersOfRoom, "Failed to count members", err, "roomId", params.RoomID)
	}

	records, err := s.members.FindMembers(ctx, q)
	if err != nil {
		return nil, s.internalError(MethodGetUsersOfRoom, "Failed to find members", err, "roomId", params.RoomID)
	}

	return &model.MemberPage{
		Total:   total,
		Records: records,
	}, nil
}

// internalError 记录日志并包装为服务器内部错误
func (s *RoomAccessService) internalError(method, msg string, err error, attrs ...any) error {
	s.logger.Error(msg, append(attrs, "method", method, "error", err)...)
	return appErrors.ErrServerError.WithMethod(method).Wrap(err)
}
