package access

import (
	"context"
	"fmt"

	"sudooom.im.roomgate/internal/model"
	"sudooom.im.roomgate/internal/settings"
)

// 权限名称
const (
	PermissionViewPublicRoom          = "view-c-room"
	PermissionViewLivechatRooms       = "view-livechat-rooms"
	PermissionViewBroadcastMemberList = "view-broadcast-member-list"
)

// ExtraVisitorToken 访客令牌（在线客服房间通过 extra 传入）
const ExtraVisitorToken = "visitorToken"

// Policy 房间可访问性判断
// user 为 nil 表示匿名访问；返回 false 表示拒绝，error 仅表示读取失败
type Policy interface {
	CanAccess(ctx context.Context, room *model.Room, user *model.User, extra map[string]any) (bool, error)
}

// PolicyFunc 函数形式的 Policy
type PolicyFunc func(ctx context.Context, room *model.Room, user *model.User, extra map[string]any) (bool, error)

// CanAccess 实现 Policy
func (f PolicyFunc) CanAccess(ctx context.Context, room *model.Room, user *model.User, extra map[string]any) (bool, error) {
	return f(ctx, room, user, extra)
}

// SubscriptionChecker 订阅关系查询
type SubscriptionChecker interface {
	IsSubscribed(ctx context.Context, roomID, userID string) (bool, error)
}

// PermissionChecker 权限查询，scope 为空表示全局权限
type PermissionChecker interface {
	HasPermission(ctx context.Context, userID, permission, scope string) (bool, error)
}

// TeamFinder 团队查询，团队不存在时返回 nil, nil
type TeamFinder interface {
	FindTeam(ctx context.Context, teamID string) (*model.Team, error)
	IsTeamMember(ctx context.Context, teamID, userID string) (bool, error)
}

// Registry 按房间类型分派的策略表，未注册的类型一律拒绝
type Registry struct {
	policies map[model.RoomType]Policy
}

// NewRegistry 创建策略表
func NewRegistry() *Registry {
	return &Registry{policies: make(map[model.RoomType]Policy)}
}

// Register 注册房间类型策略
func (r *Registry) Register(roomType model.RoomType, policy Policy) *Registry {
	r.policies[roomType] = policy
	return r
}

// CanAccess 实现 Policy
func (r *Registry) CanAccess(ctx context.Context, room *model.Room, user *model.User, extra map[string]any) (bool, error) {
	policy, ok := r.policies[room.Type]
	if !ok {
		return false, nil
	}
	return policy.CanAccess(ctx, room, user, extra)
}

// AnyOf 任一策略允许即允许，按顺序短路
func AnyOf(policies ...Policy) Policy {
	return PolicyFunc(func(ctx context.Context, room *model.Room, user *model.User, extra map[string]any) (bool, error) {
		for _, p := range policies {
			ok, err := p.CanAccess(ctx, room, user, extra)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	})
}

// PublicPolicy 公开频道
// 匿名用户取决于匿名读取设置；登录用户需要 view-c-room 权限；
// 属于私有团队的频道还要求是团队成员
type PublicPolicy struct {
	Settings    settings.Provider
	Permissions PermissionChecker
	Teams       TeamFinder
}

// CanAccess 实现 Policy
func (p *PublicPolicy) CanAccess(ctx context.Context, room *model.Room, user *model.User, extra map[string]any) (bool, error) {
	if room.TeamID != "" && p.Teams != nil {
		team, err := p.Teams.FindTeam(ctx, room.TeamID)
		if err != nil {
			return false, fmt.Errorf("find team: %w", err)
		}
		if team != nil && team.Type == model.TeamTypePrivate {
			if user == nil {
				return false, nil
			}
			member, err := p.Teams.IsTeamMember(ctx, room.TeamID, user.ID)
			if err != nil {
				return false, fmt.Errorf("check team member: %w", err)
			}
			if !member {
				return false, nil
			}
		}
	}

	if user == nil {
		return settings.AnonymousRead(ctx, p.Settings)
	}
	return p.Permissions.HasPermission(ctx, user.ID, PermissionViewPublicRoom, "")
}

// PrivatePolicy 私有群组，必须已订阅
type PrivatePolicy struct {
	Subscriptions SubscriptionChecker
}

// CanAccess 实现 Policy
func (p *PrivatePolicy) CanAccess(ctx context.Context, room *model.Room, user *model.User, extra map[string]any) (bool, error) {
	if user == nil {
		return false, nil
	}
	return p.Subscriptions.IsSubscribed(ctx, room.ID, user.ID)
}

// DirectPolicy 私聊，只有参与者可以访问
type DirectPolicy struct{}

// CanAccess 实现 Policy
func (DirectPolicy) CanAccess(ctx context.Context, room *model.Room, user *model.User, extra map[string]any) (bool, error) {
	if user == nil {
		return false, nil
	}
	return room.HasParticipant(user.ID), nil
}

// LivechatPolicy 在线客服房间
// 访客凭令牌访问；坐席是接待人或具有 view-livechat-rooms 权限
type LivechatPolicy struct {
	Permissions PermissionChecker
}

// CanAccess 实现 Policy
func (p *LivechatPolicy) CanAccess(ctx context.Context, room *model.Room, user *model.User, extra map[string]any) (bool, error) {
	if token, ok := extra[ExtraVisitorToken].(string); ok && token != "" && token == room.VisitorToken {
		return true, nil
	}
	if user == nil {
		return false, nil
	}
	if room.ServedBy != "" && room.ServedBy == user.ID {
		return true, nil
	}
	return p.Permissions.HasPermission(ctx, user.ID, PermissionViewLivechatRooms, room.ID)
}

// SubscriptionPolicy 已订阅房间的用户总是可以访问
type SubscriptionPolicy struct {
	Subscriptions SubscriptionChecker
}

// CanAccess 实现 Policy
func (p *SubscriptionPolicy) CanAccess(ctx context.Context, room *model.Room, user *model.User, extra map[string]any) (bool, error) {
	if user == nil || user.ID == "" {
		return false, nil
	}
	return p.Subscriptions.IsSubscribed(ctx, room.ID, user.ID)
}

// DefaultPolicy 默认访问策略：房间类型策略或已订阅
func DefaultPolicy(subs SubscriptionChecker, perms PermissionChecker, teams TeamFinder, sp settings.Provider) Policy {
	registry := NewRegistry().
		Register(model.RoomTypePublic, &PublicPolicy{Settings: sp, Permissions: perms, Teams: teams}).
		Register(model.RoomTypePrivate, &PrivatePolicy{Subscriptions: subs}).
		Register(model.RoomTypeDirect, DirectPolicy{}).
		Register(model.RoomTypeLivechat, &LivechatPolicy{Permissions: perms})

	return AnyOf(registry, &SubscriptionPolicy{Subscriptions: subs})
}
