package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PermissionRepository 权限仓库
// 用户的有效角色 = 全局角色 ∪ 房间订阅上的角色（scope 为房间 ID 时）
type PermissionRepository struct {
	db *pgxpool.Pool
}

// NewPermissionRepository 创建权限仓库
func NewPermissionRepository(db *pgxpool.Pool) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// HasPermission 检查用户在 scope 范围内是否拥有权限，scope 为空表示全局
func (r *PermissionRepository) HasPermission(ctx context.Context, userID, permission, scope string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM permissions p
			WHERE p.id = $1 AND p.roles && (
				COALESCE((SELECT u.roles FROM users u WHERE u.id = $2), '{}') ||
				COALESCE((SELECT s.roles FROM subscriptions s WHERE s.user_id = $2 AND s.room_id = $3), '{}')
			)
		)
	`

	var granted bool
	if err := r.db.QueryRow(ctx, query, permission, userID, scope).Scan(&granted); err != nil {
		return false, err
	}
	return granted, nil
}
