package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sudooom.im.roomgate/internal/access"
	"sudooom.im.roomgate/internal/member"
	"sudooom.im.roomgate/internal/model"
	"sudooom.im.roomgate/internal/repository/memory"
	"sudooom.im.roomgate/internal/settings"
	appErrors "sudooom.im.roomgate/pkg/errors"
)

func strPtr(s string) *string { return &s }

type fixture struct {
	store    *memory.Store
	settings *settings.MemoryProvider
	svc      *RoomAccessService
}

// newFixture 构造基于内存存储的服务
//
//	R3: 公开房间，5 个有效成员（3 在线 2 离线）+ 1 个未解析用户名的订阅
//	P1: 私有房间，只有 alice 订阅
//	B1: 广播房间，alice 订阅，mod 具有房间内 moderator 角色
func newFixture(t *testing.T, anonymousRead bool) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.SetPermission(access.PermissionViewPublicRoom, "user")
	store.SetPermission(access.PermissionViewBroadcastMemberList, "moderator", "admin")

	users := []model.User{
		{ID: "u1", Username: "alice", Name: "Alice", Status: model.StatusOnline, Active: true, Roles: []string{"user"}},
		{ID: "u2", Username: "bob", Name: "Bob", Status: model.StatusAway, Active: true, Roles: []string{"user"}},
		{ID: "u3", Username: "carol", Name: "Carol", Status: model.StatusBusy, Active: false, Roles: []string{"user"}},
		{ID: "u4", Username: "dave", Name: "Dave", Status: model.StatusOffline, Active: true, Roles: []string{"user"}},
		{ID: "u5", Username: "erin", Name: "Erin", Status: model.StatusOffline, Active: true, Roles: []string{"user"}},
		{ID: "u6", Username: "", Status: model.StatusOnline, Active: true, Roles: []string{"user"}},
		{ID: "mod", Username: "mod", Name: "Moderator", Status: model.StatusOnline, Active: true, Roles: []string{"user"}},
	}
	for _, u := range users {
		store.PutUser(u)
	}

	store.PutRoom(model.Room{ID: "R3", Type: model.RoomTypePublic, Name: "general"})
	store.PutRoom(model.Room{ID: "P1", Type: model.RoomTypePrivate, Name: "secret"})
	store.PutRoom(model.Room{ID: "B1", Type: model.RoomTypePublic, Name: "announcements", Broadcast: true})

	for _, id := range []string{"u1", "u2", "u3", "u4", "u5"} {
		u, err := store.Users().FindByID(context.Background(), id)
		require.NoError(t, err)
		store.PutSubscription(model.Subscription{ID: "s-R3-" + id, RoomID: "R3", UserID: id, Username: strPtr(u.Username)})
	}
	store.PutSubscription(model.Subscription{ID: "s-R3-u6", RoomID: "R3", UserID: "u6"})
	store.PutSubscription(model.Subscription{ID: "s-P1-u1", RoomID: "P1", UserID: "u1", Username: strPtr("alice")})
	store.PutSubscription(model.Subscription{ID: "s-B1-u1", RoomID: "B1", UserID: "u1", Username: strPtr("alice")})
	store.PutSubscription(model.Subscription{ID: "s-B1-mod", RoomID: "B1", UserID: "mod", Username: strPtr("mod"), Roles: []string{"moderator"}})

	sp := settings.NewMemoryProvider(anonymousRead)
	policy := access.DefaultPolicy(store.Subscriptions(), store.Permissions(), store.Teams(), sp)
	engine := access.NewEngine(policy, sp)
	gate := access.NewBroadcastGate(store.Permissions())

	return &fixture{
		store:    store,
		settings: sp,
		svc:      NewRoomAccessService(store.Users(), store.Rooms(), store.Subscriptions(), engine, gate),
	}
}

func requireAppError(t *testing.T, err error, target *appErrors.AppError, method string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, target), "expected %v, got %v", target, err)

	var appErr *appErrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, method, appErr.Method)
}

func TestCheckRoomAccess_InvalidRoom(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	for _, userID := range []string{"", "u1", "ghost"} {
		t.Run("user="+userID, func(t *testing.T) {
			_, err := f.svc.CheckRoomAccess(ctx, CheckRoomAccessParams{RoomID: "R2", UserID: userID})
			requireAppError(t, err, appErrors.ErrInvalidRoom, MethodCanAccessRoom)
		})
	}

	_, err := f.svc.CheckRoomAccess(ctx, CheckRoomAccessParams{RoomID: ""})
	requireAppError(t, err, appErrors.ErrInvalidRoom, MethodCanAccessRoom)
}

func TestCheckRoomAccess_InvalidUser(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.CheckRoomAccess(ctx, CheckRoomAccessParams{RoomID: "R3", UserID: "ghost"})
	requireAppError(t, err, appErrors.ErrInvalidUser, MethodCanAccessRoom)

	// 用户存在但没有用户名
	_, err = f.svc.CheckRoomAccess(ctx, CheckRoomAccessParams{RoomID: "R3", UserID: "u6"})
	requireAppError(t, err, appErrors.ErrInvalidUser, MethodCanAccessRoom)
}

func TestCheckRoomAccess_AttachesUsername(t *testing.T) {
	f := newFixture(t, false)

	result, err := f.svc.CheckRoomAccess(context.Background(), CheckRoomAccessParams{RoomID: "P1", UserID: "u1"})
	require.NoError(t, err)
	require.True(t, result.Allowed)
	require.NotNil(t, result.Room)
	assert.Equal(t, "P1", result.Room.ID)
	assert.Equal(t, "alice", result.Room.Username)

	// 存储中的房间不受影响
	stored, err := f.store.Rooms().FindByID(context.Background(), "P1")
	require.NoError(t, err)
	assert.Empty(t, stored.Username)
}

func TestCheckRoomAccess_DeniedUserIsFalse(t *testing.T) {
	f := newFixture(t, false)

	result, err := f.svc.CheckRoomAccess(context.Background(), CheckRoomAccessParams{RoomID: "P1", UserID: "u2"})
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Nil(t, result.Room)
}

func TestCheckRoomAccess_Anonymous(t *testing.T) {
	ctx := context.Background()

	t.Run("anonymous read enabled, denied", func(t *testing.T) {
		f := newFixture(t, true)
		result, err := f.svc.CheckRoomAccess(ctx, CheckRoomAccessParams{RoomID: "P1"})
		require.NoError(t, err)
		assert.False(t, result.Allowed)
	})

	t.Run("anonymous read disabled, denied", func(t *testing.T) {
		f := newFixture(t, false)
		_, err := f.svc.CheckRoomAccess(ctx, CheckRoomAccessParams{RoomID: "P1"})
		requireAppError(t, err, appErrors.ErrInvalidUser, MethodCanAccessRoom)
	})

	t.Run("anonymous read enabled, public room", func(t *testing.T) {
		f := newFixture(t, true)
		result, err := f.svc.CheckRoomAccess(ctx, CheckRoomAccessParams{RoomID: "R3"})
		require.NoError(t, err)
		require.True(t, result.Allowed)
		assert.Empty(t, result.Room.Username)
	})

	t.Run("setting flip is seen by the next request", func(t *testing.T) {
		f := newFixture(t, false)
		_, err := f.svc.CheckRoomAccess(ctx, CheckRoomAccessParams{RoomID: "R3"})
		requireAppError(t, err, appErrors.ErrInvalidUser, MethodCanAccessRoom)

		f.settings.SetAllowAnonymousRead(true)
		result, err := f.svc.CheckRoomAccess(ctx, CheckRoomAccessParams{RoomID: "R3"})
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})
}

func TestCheckRoomAccess_PublicRoomDeniedByPredicate(t *testing.T) {
	// R1：非广播公开房间，匿名，开启匿名读取，策略拒绝 -> false
	store := memory.NewStore()
	store.PutRoom(model.Room{ID: "R1", Type: model.RoomTypePublic})
	sp := settings.NewMemoryProvider(true)
	denyAll := access.PolicyFunc(func(context.Context, *model.Room, *model.User, map[string]any) (bool, error) {
		return false, nil
	})
	svc := NewRoomAccessService(store.Users(), store.Rooms(), store.Subscriptions(),
		access.NewEngine(denyAll, sp), access.NewBroadcastGate(store.Permissions()))

	result, err := svc.CheckRoomAccess(context.Background(), CheckRoomAccessParams{RoomID: "R1"})
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestCheckRoomAccess_ExtraData(t *testing.T) {
	f := newFixture(t, false)
	f.store.PutRoom(model.Room{ID: "L1", Type: model.RoomTypeLivechat, VisitorToken: "visitor-1"})

	result, err := f.svc.CheckRoomAccess(context.Background(), CheckRoomAccessParams{
		RoomID: "L1",
		Extra:  map[string]any{access.ExtraVisitorToken: "visitor-1"},
	})
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestListRoomMembers_Preconditions(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.ListRoomMembers(ctx, ListRoomMembersParams{UserID: "u1"})
	requireAppError(t, err, appErrors.ErrInvalidRoom, MethodGetUsersOfRoom)

	_, err = f.svc.ListRoomMembers(ctx, ListRoomMembersParams{RoomID: "R3"})
	requireAppError(t, err, appErrors.ErrUnauthenticated, MethodGetUsersOfRoom)

	_, err = f.svc.ListRoomMembers(ctx, ListRoomMembersParams{RoomID: "missing", UserID: "u1"})
	requireAppError(t, err, appErrors.ErrNotAllowed, MethodGetUsersOfRoom)

	_, err = f.svc.ListRoomMembers(ctx, ListRoomMembersParams{RoomID: "P1", UserID: "u2"})
	requireAppError(t, err, appErrors.ErrNotAllowed, MethodGetUsersOfRoom)
	assert.Equal(t, "Not authorized", appErrors.GetMessage(err))
}

func TestListRoomMembers_OnlineOnlyPage(t *testing.T) {
	f := newFixture(t, true)

	// R3：5 个有效成员（3 在线 2 离线），limit=2 skip=0 -> total=3, records=2
	page, err := f.svc.ListRoomMembers(context.Background(), ListRoomMembersParams{
		RoomID: "R3",
		UserID: "u1",
		Limit:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "alice", page.Records[0].Username)
	assert.Equal(t, "bob", page.Records[1].Username)

	for _, m := range page.Records {
		assert.NotEqual(t, model.StatusOffline, m.Status)
	}
}

func TestListRoomMembers_IncludeOffline(t *testing.T) {
	f := newFixture(t, true)

	page, err := f.svc.ListRoomMembers(context.Background(), ListRoomMembersParams{
		RoomID:         "R3",
		UserID:         "u1",
		IncludeOffline: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Records, 5, "subscription without username is never listed")

	offline := 0
	for _, m := range page.Records {
		if m.Status == model.StatusOffline {
			offline++
		}
	}
	assert.Equal(t, 2, offline)
}

func TestListRoomMembers_CountsDeactivatedUsers(t *testing.T) {
	f := newFixture(t, true)

	page, err := f.svc.ListRoomMembers(context.Background(), ListRoomMembersParams{RoomID: "R3", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)

	var carol *model.Member
	for i := range page.Records {
		if page.Records[i].Username == "carol" {
			carol = &page.Records[i]
		}
	}
	require.NotNil(t, carol)
	assert.False(t, carol.Active)
}

func TestListRoomMembers_Filter(t *testing.T) {
	f := newFixture(t, true)

	page, err := f.svc.ListRoomMembers(context.Background(), ListRoomMembersParams{
		RoomID:         "R3",
		UserID:         "u1",
		IncludeOffline: true,
		Filter:         "a",
	})
	require.NoError(t, err)

	// alice, carol, dave 的用户名含 a
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Records, 3)
	assert.Equal(t, []string{"alice", "carol", "dave"}, usernames(page.Records))
}

func TestListRoomMembers_TotalInvariantToPagination(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	for _, includeOffline := range []bool{false, true} {
		var totals []int
		for _, p := range [][2]int{{0, 0}, {1, 0}, {2, 1}, {10, 3}, {0, 4}} {
			page, err := f.svc.ListRoomMembers(ctx, ListRoomMembersParams{
				RoomID:         "R3",
				UserID:         "u1",
				IncludeOffline: includeOffline,
				Limit:          p[0],
				Skip:           p[1],
			})
			require.NoError(t, err)
			totals = append(totals, page.Total)
		}
		for _, total := range totals {
			assert.Equal(t, totals[0], total)
		}
	}
}

func TestListRoomMembers_PaginationGapless(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	full, err := f.svc.ListRoomMembers(ctx, ListRoomMembersParams{RoomID: "R3", UserID: "u1", IncludeOffline: true})
	require.NoError(t, err)
	assert.Equal(t, full.Total, len(full.Records))

	for _, k := range []int{1, 2, 3, 4} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			var collected []model.Member
			for skip := 0; skip < full.Total+k; skip += k {
				page, err := f.svc.ListRoomMembers(ctx, ListRoomMembersParams{
					RoomID:         "R3",
					UserID:         "u1",
					IncludeOffline: true,
					Limit:          k,
					Skip:           skip,
				})
				require.NoError(t, err)
				collected = append(collected, page.Records...)
			}
			assert.Equal(t, full.Records, collected)
		})
	}
}

func TestListRoomMembers_Broadcast(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	// alice 能访问广播房间，但不能看成员列表
	result, err := f.svc.CheckRoomAccess(ctx, CheckRoomAccessParams{RoomID: "B1", UserID: "u1"})
	require.NoError(t, err)
	require.True(t, result.Allowed)
	assert.Equal(t, "B1", result.Room.ID)

	_, err = f.svc.ListRoomMembers(ctx, ListRoomMembersParams{RoomID: "B1", UserID: "u1"})
	requireAppError(t, err, appErrors.ErrNotAllowed, MethodGetUsersOfRoom)
	assert.Equal(t, "Not allowed", appErrors.GetMessage(err))

	// moderator 角色来自房间订阅
	page, err := f.svc.ListRoomMembers(ctx, ListRoomMembersParams{RoomID: "B1", UserID: "mod"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, []string{"alice", "mod"}, usernames(page.Records))
}

func TestListRoomMembers_StoreFailure(t *testing.T) {
	f := newFixture(t, true)
	boom := errors.New("connection refused")
	f.svc.members = failingMembers{err: boom}

	_, err := f.svc.ListRoomMembers(context.Background(), ListRoomMembersParams{RoomID: "R3", UserID: "u1"})
	requireAppError(t, err, appErrors.ErrServerError, MethodGetUsersOfRoom)
	assert.ErrorIs(t, err, boom)
}

type failingMembers struct{ err error }

func (f failingMembers) CountMembers(context.Context, member.Query) (int, error) { return 0, f.err }

func (f failingMembers) FindMembers(context.Context, member.Query) ([]model.Member, error) {
	return nil, f.err
}

func usernames(members []model.Member) []string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Username)
	}
	return names
}
