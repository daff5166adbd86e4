package memory

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"sudooom.im.roomgate/internal/member"
	"sudooom.im.roomgate/internal/model"
	"sudooom.im.roomgate/internal/repository"
)

// Store 进程内存储，实现与 Postgres 仓库相同的查询契约
// 返回值均为副本，调用方修改不会影响存储
type Store struct {
	mu            sync.RWMutex
	users         map[string]model.User
	rooms         map[string]model.Room
	teams         map[string]model.Team
	subscriptions map[string]model.Subscription // roomID/userID
	permissions   map[string][]string           // permission -> roles
}

// Seed 初始化数据（YAML）
type Seed struct {
	Users         []model.User         `yaml:"users"`
	Rooms         []model.Room         `yaml:"rooms"`
	Teams         []model.Team         `yaml:"teams"`
	Subscriptions []model.Subscription `yaml:"subscriptions"`
	Permissions   map[string][]string  `yaml:"permissions"`
}

// NewStore 创建空存储
func NewStore() *Store {
	return &Store{
		users:         make(map[string]model.User),
		rooms:         make(map[string]model.Room),
		teams:         make(map[string]model.Team),
		subscriptions: make(map[string]model.Subscription),
		permissions:   make(map[string][]string),
	}
}

// LoadSeedFile 从 YAML 文件加载初始化数据
func LoadSeedFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}

	s := NewStore()
	s.Apply(seed)
	return s, nil
}

// Apply 写入初始化数据
func (s *Store) Apply(seed Seed) {
	for _, u := range seed.Users {
		s.PutUser(u)
	}
	for _, r := range seed.Rooms {
		s.PutRoom(r)
	}
	for _, t := range seed.Teams {
		s.PutTeam(t)
	}
	for _, sub := range seed.Subscriptions {
		s.PutSubscription(sub)
	}
	for perm, roles := range seed.Permissions {
		s.SetPermission(perm, roles...)
	}
}

// PutUser 写入用户
func (s *Store) PutUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutRoom 写入房间
func (s *Store) PutRoom(r model.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.ID] = r
}

// PutTeam 写入团队
func (s *Store) PutTeam(t model.Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[t.ID] = t
}

// PutSubscription 写入订阅
func (s *Store) PutSubscription(sub model.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[subKey(sub.RoomID, sub.UserID)] = sub
}

// RemoveSubscription 删除订阅
func (s *Store) RemoveSubscription(roomID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, subKey(roomID, userID))
}

// SetPermission 设置权限对应的角色
func (s *Store) SetPermission(permission string, roles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions[permission] = slices.Clone(roles)
}

// Users 用户查询
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Rooms 房间查询
func (s *Store) Rooms() *RoomRepository { return &RoomRepository{s: s} }

// Teams 团队查询
func (s *Store) Teams() *TeamRepository { return &TeamRepository{s: s} }

// Subscriptions 订阅与成员查询
func (s *Store) Subscriptions() *SubscriptionRepository { return &SubscriptionRepository{s: s} }

// Permissions 权限查询
func (s *Store) Permissions() *PermissionRepository { return &PermissionRepository{s: s} }

// UserRepository 内存用户仓库
type UserRepository struct{ s *Store }

// FindByID 根据 ID 查找用户
func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u.Roles = slices.Clone(u.Roles)
	return &u, nil
}

// RoomRepository 内存房间仓库
type RoomRepository struct{ s *Store }

// FindByID 根据 ID 查找房间
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*model.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	room, ok := r.s.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	room.UIDs = slices.Clone(room.UIDs)
	return &room, nil
}

// FindAccessByID 只返回访问判断所需字段以及 broadcast
func (r *RoomRepository) FindAccessByID(ctx context.Context, id string) (*model.Room, error) {
	full, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.Room{
		ID:           full.ID,
		Type:         full.Type,
		Broadcast:    full.Broadcast,
		TeamID:       full.TeamID,
		UIDs:         full.UIDs,
		ServedBy:     full.ServedBy,
		VisitorToken: full.VisitorToken,
	}, nil
}

// TeamRepository 内存团队仓库
type TeamRepository struct{ s *Store }

// FindTeam 根据 ID 查找团队，不存在时返回 nil
func (r *TeamRepository) FindTeam(ctx context.Context, teamID string) (*model.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.teams[teamID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// IsTeamMember 团队成员即团队主房间的订阅者
func (r *TeamRepository) IsTeamMember(ctx context.Context, teamID, userID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.teams[teamID]
	if !ok {
		return false, nil
	}
	_, ok = r.s.subscriptions[subKey(t.MainRoomID, userID)]
	return ok, nil
}

// SubscriptionRepository 内存订阅仓库
type SubscriptionRepository struct{ s *Store }

// IsSubscribed 检查用户是否订阅了房间
func (r *SubscriptionRepository) IsSubscribed(ctx context.Context, roomID, userID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.subscriptions[subKey(roomID, userID)]
	return ok, nil
}

// CountMembers 统计满足条件的成员数量，忽略分页
func (r *SubscriptionRepository) CountMembers(ctx context.Context, q member.Query) (int, error) {
	return len(r.matching(q)), nil
}

// FindMembers 查询一页成员，条件与 CountMembers 相同
func (r *SubscriptionRepository) FindMembers(ctx context.Context, q member.Query) ([]model.Member, error) {
	rows := r.matching(q)
	sort.Slice(rows, func(i, j int) bool { return member.Less(rows[i], rows[j]) })

	start, end := q.Window(len(rows))
	members := make([]model.Member, 0, end-start)
	for _, row := range rows[start:end] {
		members = append(members, row.ToMember())
	}
	return members, nil
}

// matching 订阅 JOIN 用户后按条件过滤
func (r *SubscriptionRepository) matching(q member.Query) []member.Row {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var rows []member.Row
	for _, sub := range r.s.subscriptions {
		u, ok := r.s.users[sub.UserID]
		if !ok {
			continue
		}
		row := member.Row{
			RoomID:   sub.RoomID,
			UserID:   u.ID,
			Username: sub.Username,
			Name:     u.Name,
			Status:   u.Status,
			Active:   u.Active,
		}
		if q.Match(row) {
			rows = append(rows, row)
		}
	}
	return rows
}

// PermissionRepository 内存权限仓库
type PermissionRepository struct{ s *Store }

// HasPermission 用户全局角色或房间订阅角色命中权限即通过
func (r *PermissionRepository) HasPermission(ctx context.Context, userID, permission, scope string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	granted := r.s.permissions[permission]
	if len(granted) == 0 {
		return false, nil
	}

	var roles []string
	if u, ok := r.s.users[userID]; ok {
		roles = append(roles, u.Roles...)
	}
	if scope != "" {
		if sub, ok := r.s.subscriptions[subKey(scope, userID)]; ok {
			roles = append(roles, sub.Roles...)
		}
	}

	for _, role := range roles {
		if slices.Contains(granted, role) {
			return true, nil
		}
	}
	return false, nil
}

func subKey(roomID, userID string) string {
	return roomID + "/" + userID
}
