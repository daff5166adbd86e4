package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"sudooom.im.roomgate/internal/member"
	"sudooom.im.roomgate/internal/model"
)

const memberFrom = `FROM subscriptions s JOIN users u ON u.id = s.user_id`

// SubscriptionRepository 订阅仓库
type SubscriptionRepository struct {
	db *pgxpool.Pool
}

// NewSubscriptionRepository 创建订阅仓库
func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// IsSubscribed 检查用户是否订阅了房间
func (r *SubscriptionRepository) IsSubscribed(ctx context.Context, roomID, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM subscriptions WHERE room_id = $1 AND user_id = $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, roomID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CountMembers 统计满足条件的成员数量，忽略分页
func (r *SubscriptionRepository) CountMembers(ctx context.Context, q member.Query) (int, error) {
	where, args := q.Where()
	query := fmt.Sprintf(`SELECT COUNT(*) %s WHERE %s`, memberFrom, where)

	var count int
	err := r.db.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

// FindMembers 查询一页成员，条件与 CountMembers 相同
func (r *SubscriptionRepository) FindMembers(ctx context.Context, q member.Query) ([]model.Member, error) {
	where, args := q.Where()
	page, pageArgs := q.Page(len(args) + 1)
	args = append(args, pageArgs...)

	query := fmt.Sprintf(`
		SELECT u.id, s.username, COALESCE(u.name, ''), u.status, u.active
		%s
		WHERE %s
		ORDER BY %s
		%s
	`, memberFrom, where, q.OrderBy(), page)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]model.Member, 0)
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.Username, &m.Name, &m.Status, &m.Active); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
