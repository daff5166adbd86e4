package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sudooom.im.roomgate/internal/model"
)

// RoomRepository 房间仓库
type RoomRepository struct {
	db *pgxpool.Pool
}

// NewRoomRepository 创建房间仓库
func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

// FindByID 根据 ID 查找房间（全部字段）
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*model.Room, error) {
	query := `
		SELECT id, type, COALESCE(name, ''), broadcast, read_only, COALESCE(team_id, ''), team_main,
		       COALESCE(owner_id, ''), COALESCE(uids, '{}'), COALESCE(served_by, ''), COALESCE(visitor_token, '')
		FROM rooms WHERE id = $1
	`

	var room model.Room
	err := r.db.QueryRow(ctx, query, id).Scan(
		&room.ID,
		&room.Type,
		&room.Name,
		&room.Broadcast,
		&room.ReadOnly,
		&room.TeamID,
		&room.TeamMain,
		&room.OwnerID,
		&room.UIDs,
		&room.ServedBy,
		&room.VisitorToken,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	return &room, nil
}

// FindAccessByID 只查询访问判断所需字段以及 broadcast
func (r *RoomRepository) FindAccessByID(ctx context.Context, id string) (*model.Room, error) {
	query := `
		SELECT id, type, broadcast, COALESCE(team_id, ''), COALESCE(uids, '{}'),
		       COALESCE(served_by, ''), COALESCE(visitor_token, '')
		FROM rooms WHERE id = $1
	`

	var room model.Room
	err := r.db.QueryRow(ctx, query, id).Scan(
		&room.ID,
		&room.Type,
		&room.Broadcast,
		&room.TeamID,
		&room.UIDs,
		&room.ServedBy,
		&room.VisitorToken,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	return &room, nil
}
