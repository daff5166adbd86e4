package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sudooom.im.roomgate/internal/model"
)

// TeamRepository 团队仓库
type TeamRepository struct {
	db *pgxpool.Pool
}

// NewTeamRepository 创建团队仓库
func NewTeamRepository(db *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{db: db}
}

// FindTeam 根据 ID 查找团队，不存在时返回 nil
func (r *TeamRepository) FindTeam(ctx context.Context, teamID string) (*model.Team, error) {
	query := `SELECT id, name, type, main_room_id FROM teams WHERE id = $1`

	var team model.Team
	err := r.db.QueryRow(ctx, query, teamID).Scan(
		&team.ID,
		&team.Name,
		&team.Type,
		&team.MainRoomID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &team, nil
}

// IsTeamMember 团队成员即团队主房间的订阅者
func (r *TeamRepository) IsTeamMember(ctx context.Context, teamID, userID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM teams t
			JOIN subscriptions s ON s.room_id = t.main_room_id
			WHERE t.id = $1 AND s.user_id = $2
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, teamID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
