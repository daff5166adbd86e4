package memory

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sudooom.im.roomgate/internal/member"
	"sudooom.im.roomgate/internal/model"
	"sudooom.im.roomgate/internal/repository"
)

const seedYAML = `
users:
  - id: u1
    username: alice
    name: Alice
    status: online
    active: true
    roles: [user]
  - id: u2
    username: bob
    status: offline
    active: true
    roles: [user, admin]
rooms:
  - id: GENERAL
    type: c
    name: general
  - id: T1MAIN
    type: p
    team_main: true
    team_id: T1
teams:
  - id: T1
    name: core
    type: 1
    main_room_id: T1MAIN
subscriptions:
  - id: s1
    room_id: GENERAL
    user_id: u1
    username: alice
  - id: s2
    room_id: GENERAL
    user_id: u2
    username: bob
    roles: [owner]
  - id: s3
    room_id: T1MAIN
    user_id: u1
    username: alice
permissions:
  view-c-room: [user]
  view-broadcast-member-list: [owner]
`

func loadSeed(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	s, err := LoadSeedFile(path)
	require.NoError(t, err)
	return s
}

func TestLoadSeedFile(t *testing.T) {
	s := loadSeed(t)
	ctx := context.Background()

	u, err := s.Users().FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.True(t, u.Active)

	room, err := s.Rooms().FindByID(ctx, "GENERAL")
	require.NoError(t, err)
	assert.Equal(t, model.RoomTypePublic, room.Type)

	team, err := s.Teams().FindTeam(ctx, "T1")
	require.NoError(t, err)
	require.NotNil(t, team)
	assert.Equal(t, model.TeamTypePrivate, team.Type)
}

func TestLoadSeedFile_Missing(t *testing.T) {
	_, err := LoadSeedFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestStore_NotFound(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.Users().FindByID(ctx, "x")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	_, err = s.Rooms().FindByID(ctx, "x")
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)

	_, err = s.Rooms().FindAccessByID(ctx, "x")
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)

	team, err := s.Teams().FindTeam(ctx, "x")
	require.NoError(t, err)
	assert.Nil(t, team)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := loadSeed(t)
	ctx := context.Background()

	room, err := s.Rooms().FindByID(ctx, "GENERAL")
	require.NoError(t, err)
	room.Username = "alice"
	room.Name = "changed"

	again, err := s.Rooms().FindByID(ctx, "GENERAL")
	require.NoError(t, err)
	assert.Empty(t, again.Username)
	assert.Equal(t, "general", again.Name)
}

func TestStore_FindAccessByIDProjection(t *testing.T) {
	s := loadSeed(t)
	s.PutRoom(model.Room{ID: "B1", Type: model.RoomTypePublic, Name: "news", Broadcast: true, OwnerID: "u1"})

	room, err := s.Rooms().FindAccessByID(context.Background(), "B1")
	require.NoError(t, err)
	assert.True(t, room.Broadcast)
	assert.Equal(t, model.RoomTypePublic, room.Type)
	assert.Empty(t, room.Name, "name is outside the access projection")
	assert.Empty(t, room.OwnerID)
}

func TestStore_HasPermission(t *testing.T) {
	s := loadSeed(t)
	perms := s.Permissions()
	ctx := context.Background()

	ok, err := perms.HasPermission(ctx, "u1", "view-c-room", "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = perms.HasPermission(ctx, "u1", "view-broadcast-member-list", "GENERAL")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = perms.HasPermission(ctx, "u2", "view-broadcast-member-list", "GENERAL")
	require.NoError(t, err)
	assert.True(t, ok, "room-scoped role from the subscription")

	ok, err = perms.HasPermission(ctx, "u2", "view-broadcast-member-list", "")
	require.NoError(t, err)
	assert.False(t, ok, "subscription roles only apply inside their room")

	ok, err = perms.HasPermission(ctx, "u1", "unknown-permission", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_TeamMembership(t *testing.T) {
	s := loadSeed(t)
	ctx := context.Background()

	ok, err := s.Teams().IsTeamMember(ctx, "T1", "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Teams().IsTeamMember(ctx, "T1", "u2")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Teams().IsTeamMember(ctx, "T404", "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Members(t *testing.T) {
	s := loadSeed(t)
	subs := s.Subscriptions()
	ctx := context.Background()

	q := member.Query{RoomID: "GENERAL"}
	total, err := subs.CountMembers(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	q.IncludeOffline = true
	total, err = subs.CountMembers(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	members, err := subs.FindMembers(ctx, q)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "alice", members[0].Username)
	assert.Equal(t, "bob", members[1].Username)

	s.RemoveSubscription("GENERAL", "u1")
	members, err = subs.FindMembers(ctx, q)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "u2", members[0].ID)
}

func TestStore_FindMembersEmptyRoom(t *testing.T) {
	s := loadSeed(t)

	members, err := s.Subscriptions().FindMembers(context.Background(), member.Query{RoomID: "NOPE", Limit: 10, Skip: 5})
	require.NoError(t, err)
	assert.NotNil(t, members)
	assert.Empty(t, members)
}

func TestStore_FindMembersHugeLimit(t *testing.T) {
	s := loadSeed(t)

	q := member.Query{RoomID: "GENERAL", IncludeOffline: true, Limit: math.MaxInt, Skip: 1}
	members, err := s.Subscriptions().FindMembers(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "bob", members[0].Username)
}
