package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/events"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/repository"
)

func newCommunityEnv(t *testing.T) (*testEnv, *CommunityService, *fakeCommunities, *fakeRequests) {
	t.Helper()
	env := newTestEnv(t)
	communities := newFakeCommunities()
	requests := &fakeRequests{}
	return env, NewCommunityService(communities, requests, env.states), communities, requests
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"General", "general"},
		{"Kajian  Subuh Jakarta", "kajian-subuh-jakarta"},
		{"  Ramadhan ", "ramadhan"},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slug(tt.in), tt.in)
	}
}

func TestEnsureDefaults_Idempotent(t *testing.T) {
	_, svc, communities, _ := newCommunityEnv(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureDefaults(ctx))
	require.NoError(t, svc.EnsureDefaults(ctx))

	for _, id := range []string{"general", "ramadhan"} {
		c, err := communities.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, c.MessageCount, id)
		msgs := communities.messages[id]
		require.Len(t, msgs, 1)
		assert.Equal(t, model.SystemSenderID, msgs[0].SenderID)
		assert.Equal(t, SystemSenderName, msgs[0].SenderName)
		assert.Contains(t, msgs[0].Content, c.Name)
	}
}

func TestSend(t *testing.T) {
	env, svc, communities, _ := newCommunityEnv(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureDefaults(ctx))
	got := env.record()
	sender := &model.UserProfile{ID: 7, Username: "fatimah"}

	_, err := svc.Send(ctx, "general", sender, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = svc.Send(ctx, "general", sender, strings.Repeat("a", MaxMessageLength+1))
	assert.ErrorIs(t, err, ErrMessageTooLong)

	_, err = svc.Send(ctx, "missing", sender, "halo")
	assert.ErrorIs(t, err, repository.ErrCommunityNotFound)

	m, err := svc.Send(ctx, "general", sender, "  Assalamualaikum  ")
	require.NoError(t, err)
	assert.Equal(t, "Assalamualaikum", m.Content)
	assert.Equal(t, "fatimah", m.SenderName)

	c, err := communities.Get(ctx, "general")
	require.NoError(t, err)
	assert.Equal(t, 2, c.MessageCount)

	require.Len(t, *got, 1)
	ev, ok := (*got)[0].(events.ChatMessage)
	require.True(t, ok)
	assert.Equal(t, m.ID, ev.Message.ID)
}

func TestHistory_Pages(t *testing.T) {
	env, svc, _, _ := newCommunityEnv(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureDefaults(ctx))
	sender := &model.UserProfile{ID: 7, Username: "fatimah"}

	for i := 0; i < 60; i++ {
		env.now = env.now.Add(time.Minute)
		_, err := svc.Send(ctx, "general", sender, "pesan")
		require.NoError(t, err)
	}

	page, err := svc.History(ctx, "general", 7, time.Time{})
	require.NoError(t, err)
	require.Len(t, page, HistoryPageSize)
	for i := 1; i < len(page); i++ {
		assert.True(t, page[i-1].CreatedAt.Before(page[i].CreatedAt))
	}

	older, err := svc.History(ctx, "general", 7, page[0].CreatedAt)
	require.NoError(t, err)
	assert.Len(t, older, 11)
}

func TestPrivateCommunity(t *testing.T) {
	_, svc, communities, _ := newCommunityEnv(t)
	ctx := context.Background()
	_, err := svc.create(ctx, "Halaqah Rahasia", "", 1, true)
	require.NoError(t, err)

	err = svc.Join(ctx, "halaqah-rahasia", 2)
	assert.ErrorIs(t, err, ErrNotMember)
	_, err = svc.Send(ctx, "halaqah-rahasia", &model.UserProfile{ID: 2}, "halo")
	assert.ErrorIs(t, err, ErrNotMember)

	_, err = svc.History(ctx, "halaqah-rahasia", 1, time.Time{})
	assert.NoError(t, err)

	require.NoError(t, communities.AddMember(ctx, "halaqah-rahasia", 2))
	_, err = svc.Send(ctx, "halaqah-rahasia", &model.UserProfile{ID: 2}, "halo")
	assert.NoError(t, err)
}

func TestJoinAndList(t *testing.T) {
	env, svc, _, _ := newCommunityEnv(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureDefaults(ctx))
	env.now = env.now.Add(time.Hour)
	_, err := svc.create(ctx, "Kajian", "", 3, false)
	require.NoError(t, err)

	require.NoError(t, svc.Join(ctx, "general", 9))
	require.NoError(t, svc.Join(ctx, "general", 9))
	c, err := svc.Get(ctx, "general")
	require.NoError(t, err)
	assert.Equal(t, []int64{model.SystemSenderID, 9}, c.MemberIDs)

	_, err = svc.Send(ctx, "ramadhan", &model.UserProfile{ID: 9}, "marhaban")
	require.NoError(t, err)

	newest, err := svc.List(ctx, repository.OrderNewest, 0)
	require.NoError(t, err)
	require.Len(t, newest, 3)
	assert.Equal(t, "kajian", newest[0].ID)

	popular, err := svc.List(ctx, repository.OrderPopular, 0)
	require.NoError(t, err)
	assert.Equal(t, "ramadhan", popular[0].ID)
}

func TestRequestCommunity(t *testing.T) {
	_, svc, _, requests := newCommunityEnv(t)
	ctx := context.Background()

	_, err := svc.RequestCommunity(ctx, &model.UserProfile{ID: 4}, " ", "")
	assert.ErrorIs(t, err, ErrInvalidName)

	req, err := svc.RequestCommunity(ctx, &model.UserProfile{ID: 4, DisplayName: "Umar"}, "Kajian Tafsir", "Tafsir mingguan")
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, req.Status)
	assert.Equal(t, "Umar", req.RequesterName)

	pending, err := requests.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
