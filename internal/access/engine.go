package access

import (
	"context"
	"fmt"
	"log/slog"

	"sudooom.im.roomgate/internal/model"
	"sudooom.im.roomgate/internal/settings"
	appErrors "sudooom.im.roomgate/pkg/errors"
)

// Request 访问判断输入
type Request struct {
	Room   *model.Room
	UserID string      // 调用方提供的用户 ID，可为空
	User   *model.User // UserID 解析出的用户，解析失败为 nil
	Extra  map[string]any
}

// Engine 房间访问判断
//
// 判断顺序（短路）：
//  1. 房间不存在 -> InvalidRoom
//  2. 提供了 UserID 但没有有效用户 -> InvalidUser
//  3. 执行访问策略
//  4. 拒绝 + 匿名 + 未开启匿名读取 -> InvalidUser
//  5. 其他拒绝 -> false
//  6. 允许 -> true
type Engine struct {
	policy   Policy
	settings settings.Provider
	logger   *slog.Logger
}

// NewEngine 创建访问判断引擎
func NewEngine(policy Policy, sp settings.Provider) *Engine {
	return &Engine{
		policy:   policy,
		settings: sp,
		logger:   slog.Default().With("component", "AccessEngine"),
	}
}

// Decide 判断是否允许访问
// 返回 false, nil 表示策略拒绝；前置条件不满足时返回 AppError
func (e *Engine) Decide(ctx context.Context, req Request) (bool, error) {
	if req.Room == nil {
		return false, appErrors.ErrInvalidRoom
	}

	var user *model.User
	if req.UserID != "" {
		if !req.User.Valid() {
			return false, appErrors.ErrInvalidUser
		}
		user = req.User
	}

	// 匿名请求只读取一次设置，策略与后续判断使用同一个值
	var anonymousRead bool
	if user == nil {
		v, err := settings.AnonymousRead(ctx, e.settings)
		if err != nil {
			return false, fmt.Errorf("read anonymous setting: %w", err)
		}
		anonymousRead = v
		ctx = settings.WithAnonymousRead(ctx, v)
	}

	allowed, err := e.Evaluate(ctx, req.Room, user, req.Extra)
	if err != nil {
		return false, err
	}
	if allowed {
		return true, nil
	}

	if user == nil && !anonymousRead {
		return false, appErrors.ErrInvalidUser.WithMessage("Anonymous access forbidden")
	}

	e.logger.Debug("Room access denied", "roomId", req.Room.ID, "userId", req.UserID)
	return false, nil
}

// Evaluate 仅执行访问策略，不做前置校验
func (e *Engine) Evaluate(ctx context.Context, room *model.Room, user *model.User, extra map[string]any) (bool, error) {
	allowed, err := e.policy.CanAccess(ctx, room, user, extra)
	if err != nil {
		return false, fmt.Errorf("evaluate access policy: %w", err)
	}
	return allowed, nil
}
