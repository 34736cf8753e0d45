package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/catalog"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/repository"
)

type adminFixture struct {
	env         *testEnv
	admin       *AdminService
	community   *CommunityService
	communities *fakeCommunities
	requests    *fakeRequests
	root        *model.UserProfile
	user        *model.UserProfile
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	env := newTestEnv(t)
	communities := newFakeCommunities()
	requests := &fakeRequests{}
	community := NewCommunityService(communities, requests, env.states)
	accounts := NewAccountService(env.profiles, env.states, func(id int64) bool { return id == 100 })
	return &adminFixture{
		env:         env,
		admin:       NewAdminService(env.profiles, community, accounts, env.states),
		community:   community,
		communities: communities,
		requests:    requests,
		root:        env.addUser(100, "root"),
		user:        env.addUser(1, "ahmad"),
	}
}

func TestAdmin_NonAdminIsDenied(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	_, err := f.admin.Stats(ctx, f.user)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.ErrorIs(t, f.admin.SetPoints(ctx, f.user, 1, 500), ErrPermissionDenied)
	assert.ErrorIs(t, f.admin.SetBlocked(ctx, f.user, 100, true), ErrPermissionDenied)
	assert.ErrorIs(t, f.admin.DeleteMessage(ctx, f.user, "general", "x"), ErrPermissionDenied)
	_, err = f.admin.ClearMessages(ctx, nil, "general")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	p, err := f.env.profiles.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.TotalPoints)
}

func TestAdmin_SetPoints(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	// Load the user's state so the cached copy has to follow the edit.
	tracker := NewTrackerService(f.env.states, nil, 0)
	_, err := tracker.Summary(ctx, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, f.admin.SetPoints(ctx, f.root, 1, -5), ErrInvalidPoints)
	require.NoError(t, f.admin.SetPoints(ctx, f.root, 1, 1050))

	p, err := f.env.profiles.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1050), p.TotalPoints)
	assert.Equal(t, 11, p.Level)

	s, err := tracker.Summary(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1050), s.TotalXP)
	assert.Equal(t, 11, s.Level)

	ev := f.env.xp.all()
	require.Len(t, ev, 1)
	assert.Equal(t, model.XPReasonAdminEdit, ev[0].Reason)
	assert.Equal(t, int64(1050), ev[0].Amount)
}

func TestAdmin_SetPointsWinsOverQueuedProgress(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	tracker := NewTrackerService(f.env.states, nil, 0)

	f.env.writer.hold()
	_, err := tracker.Toggle(ctx, 1, catalog.ActSubuh)
	require.NoError(t, err)
	require.NoError(t, f.admin.SetPoints(ctx, f.root, 1, 150))
	f.env.writer.release()

	p, err := f.env.profiles.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(150), p.TotalPoints)
	assert.Equal(t, 2, p.Level)
}

func TestAdmin_Moderation(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.admin.SetBlocked(ctx, f.root, 100, true), ErrSelfModeration)
	assert.ErrorIs(t, f.admin.SetRole(ctx, f.root, 1, "superuser"), ErrInvalidRole)

	require.NoError(t, f.admin.SetRole(ctx, f.root, 1, model.RoleAdmin))
	require.NoError(t, f.admin.SetBlocked(ctx, f.root, 1, true))
	p, err := f.env.profiles.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin())
	assert.True(t, p.IsBlocked)

	stats, err := f.admin.Stats(ctx, f.root)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.BlockedUsers)

	users, err := f.admin.Users(ctx, f.root, 0, 0)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, f.admin.SoftDelete(ctx, f.root, 1))
	p, err = f.env.profiles.Get(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, p.DeletedAt)

	require.NoError(t, f.admin.HardDelete(ctx, f.root, 1))
	_, err = f.env.profiles.Get(ctx, 1)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestAdmin_Requests(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	req, err := f.community.RequestCommunity(ctx, f.user, "Kajian Tafsir", "")
	require.NoError(t, err)
	other, err := f.community.RequestCommunity(ctx, f.user, "Spam", "")
	require.NoError(t, err)

	pending, err := f.admin.PendingRequests(ctx, f.root)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	c, err := f.admin.ApproveRequest(ctx, f.root, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "kajian-tafsir", c.ID)
	assert.Equal(t, f.user.ID, c.CreatedBy)
	assert.Equal(t, []int64{f.user.ID}, c.MemberIDs)

	_, err = f.admin.ApproveRequest(ctx, f.root, req.ID)
	assert.ErrorIs(t, err, ErrRequestNotPending)

	require.NoError(t, f.admin.RejectRequest(ctx, f.root, other.ID))
	assert.ErrorIs(t, f.admin.RejectRequest(ctx, f.root, other.ID), repository.ErrRequestNotFound)

	pending, err = f.admin.PendingRequests(ctx, f.root)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAdmin_InviteAndMessages(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	require.NoError(t, f.community.EnsureDefaults(ctx))
	got := f.env.record()

	require.NoError(t, f.admin.Invite(ctx, f.root, "general", 1))
	assert.ErrorIs(t, f.admin.Invite(ctx, f.root, "general", 1), ErrAlreadyMember)

	m, err := f.community.Send(ctx, "general", f.user, "halo")
	require.NoError(t, err)
	require.NoError(t, f.admin.DeleteMessage(ctx, f.root, "general", m.ID))
	assert.ErrorIs(t, f.admin.DeleteMessage(ctx, f.root, "general", m.ID), repository.ErrMessageNotFound)

	n, err := f.admin.ClearMessages(ctx, f.root, "general")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var names []string
	for _, e := range *got {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"chat.message", "chat.deleted", "chat.cleared"}, names)
}
