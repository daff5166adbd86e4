package access

import (
	"context"
	"fmt"

	"sudooom.im.roomgate/internal/model"
)

// BroadcastGate 广播房间成员列表权限
// 与通用访问判断相互独立：能进入房间不代表能查看广播房间的成员
type BroadcastGate struct {
	permissions PermissionChecker
}

// NewBroadcastGate 创建广播房间权限检查
func NewBroadcastGate(permissions PermissionChecker) *BroadcastGate {
	return &BroadcastGate{permissions: permissions}
}

// CheckBroadcastVisibility 非广播房间直接通过；广播房间需要房间范围内的 view-broadcast-member-list 权限
func (g *BroadcastGate) CheckBroadcastVisibility(ctx context.Context, room *model.Room, userID string) (bool, error) {
	if !room.Broadcast {
		return true, nil
	}
	ok, err := g.permissions.HasPermission(ctx, userID, PermissionViewBroadcastMemberList, room.ID)
	if err != nil {
		return false, fmt.Errorf("check broadcast permission: %w", err)
	}
	return ok, nil
}
