package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/events"
)

type fakeMailer struct {
	calls [][]string
	err   error
}

func (m *fakeMailer) SendVersion(_ context.Context, _ string, recipients []string) error {
	m.calls = append(m.calls, recipients)
	return m.err
}

func TestBroadcast(t *testing.T) {
	env := newTestEnv(t)
	a := env.addUser(1, "a")
	a.Email = "a@example.com"
	env.profiles.put(a)
	env.addUser(2, "b")
	c := env.addUser(3, "c")
	c.Email = "c@example.com"
	env.profiles.put(c)

	meta := &fakeMetadata{}
	mailer := &fakeMailer{}
	svc := NewBroadcastService(meta, env.profiles, mailer, env.states)
	got := env.record()
	ctx := context.Background()

	_, err := svc.Publish(ctx, "  ")
	assert.ErrorIs(t, err, ErrEmptyVersion)

	res, err := svc.Publish(ctx, "2.1.0")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 2, res.Recipients)
	require.Len(t, mailer.calls, 1)
	assert.Equal(t, []string{"a@example.com", "c@example.com"}, mailer.calls[0])

	res, err = svc.Publish(ctx, "2.1.0")
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Len(t, mailer.calls, 1)

	require.Len(t, *got, 1)
	assert.Equal(t, events.VersionBroadcast{Version: "2.1.0", Recipients: 2}, (*got)[0])
}

func TestBroadcast_NoRecipientsSendsNothing(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "a")
	mailer := &fakeMailer{}
	svc := NewBroadcastService(&fakeMetadata{}, env.profiles, mailer, env.states)

	res, err := svc.Publish(context.Background(), "1.0.0")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Zero(t, res.Recipients)
	assert.Empty(t, mailer.calls)
}

func TestBroadcast_MailerFailure(t *testing.T) {
	env := newTestEnv(t)
	p := env.addUser(1, "a")
	p.Email = "a@example.com"
	env.profiles.put(p)
	mailer := &fakeMailer{err: errors.New("smtp down")}
	svc := NewBroadcastService(&fakeMetadata{}, env.profiles, mailer, env.states)

	_, err := svc.Publish(context.Background(), "1.0.0")
	assert.ErrorContains(t, err, "smtp down")
}
