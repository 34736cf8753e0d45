package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/auth"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/badge"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/catalog"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/config"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/events"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/prayer"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/relay"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/repository"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service/memstore"
)

const adminID = 1

type apiEnv struct {
	srv         *httptest.Server
	server      *Server
	profiles    *memstore.Profiles
	communities *memstore.Communities
	issuer      *auth.Issuer
	bus         *events.Bus
}

type envOption func(*Deps)

func withTranscriber(cfg config.TranscribeConfig) envOption {
	return func(d *Deps) { d.Transcriber = relay.NewTranscriber(cfg) }
}

func withHealth(fn func(context.Context) error) envOption {
	return func(d *Deps) { d.Health = fn }
}

func newAPIEnv(t *testing.T, opts ...envOption) *apiEnv {
	t.Helper()
	loc := time.FixedZone("WIB", 7*3600)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, loc)
	clock := func() time.Time { return now }

	stores := memstore.New()
	env := &apiEnv{
		profiles:    stores.Profiles,
		communities: memstore.NewCommunities(),
		bus:         events.New(),
	}
	issuer, err := auth.NewIssuer("test-secret", "assistant-test", time.Hour, nil)
	require.NoError(t, err)
	env.issuer = issuer

	states := service.NewStates(stores.Deps(), memstore.Writer{}, env.bus, loc, clock)
	accounts := service.NewAccountService(env.profiles, states, func(id int64) bool { return id == adminID })
	community := service.NewCommunityService(env.communities, &memstore.Requests{}, states)
	require.NoError(t, community.EnsureDefaults(context.Background()))

	deps := Deps{
		Config:    &config.Config{HTTP: config.HTTPConfig{CORSOrigins: []string{"*"}}},
		Issuer:    issuer,
		Accounts:  accounts,
		Tracker:   service.NewTrackerService(states, []int64{100, 500}, 50),
		Gardens:   service.NewGardenService(states, nil),
		Ranking:   service.NewRankingService(env.profiles, clock, loc, 10),
		Community: community,
		Admin:     service.NewAdminService(env.profiles, community, accounts, states),
		Bus:       env.bus,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	env.server = New(deps)
	env.srv = httptest.NewServer(env.server.Handler())
	t.Cleanup(func() {
		env.server.Close()
		env.srv.Close()
	})
	return env
}

func (e *apiEnv) addUser(t *testing.T, id int64, name string) string {
	t.Helper()
	p := model.UserProfile{ID: id, Username: name, DisplayName: name, Level: 1, GardenHealth: 100, Role: model.RoleUser}
	e.profiles.Put(p)
	token, _, err := e.issuer.Issue(&p)
	require.NoError(t, err)
	return token
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		env := newAPIEnv(t)
		resp, body := env.do(t, http.MethodGet, "/healthz", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("degraded", func(t *testing.T) {
		env := newAPIEnv(t, withHealth(func(context.Context) error { return errors.New("connection refused") }))
		resp, body := env.do(t, http.MethodGet, "/healthz", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "degraded", body["status"])
	})
}

func TestAuth(t *testing.T) {
	env := newAPIEnv(t)
	token := env.addUser(t, 10, "aisyah")

	resp, _ := env.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["is_admin"])

	// Tokens also travel in the query string for EventSource and WebSocket.
	resp, _ = env.do(t, http.MethodGet, "/api/me?token="+token, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, env.profiles.SetBlocked(context.Background(), 10, true))
	resp, _ = env.do(t, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	ghost := model.UserProfile{ID: 99}
	ghostToken, _, err := env.issuer.Issue(&ghost)
	require.NoError(t, err)
	resp, _ = env.do(t, http.MethodGet, "/api/me", ghostToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestToggleAndSummary(t *testing.T) {
	env := newAPIEnv(t)
	token := env.addUser(t, 10, "aisyah")

	resp, body := env.do(t, http.MethodPost, "/api/acts/"+catalog.ActSubuh+"/toggle", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["added"])
	assert.EqualValues(t, 20, body["xp"])
	assert.EqualValues(t, 20, body["delta"])

	resp, body = env.do(t, http.MethodGet, "/api/summary", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 20, body["total_xp"])
	assert.Equal(t, []any{catalog.ActSubuh}, body["today"])

	resp, body = env.do(t, http.MethodPost, "/api/acts/"+catalog.ActSubuh+"/toggle", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["added"])
	assert.EqualValues(t, 0, body["xp"])

	resp, _ = env.do(t, http.MethodPost, "/api/acts/bogus/toggle", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.EqualValues(t, 0, env.profiles.Snapshot(10).TotalPoints)
}

func TestClaimErrors(t *testing.T) {
	env := newAPIEnv(t)
	token := env.addUser(t, 10, "aisyah")

	resp, _ := env.do(t, http.MethodPost, "/api/badges/nope/claim", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/badges/"+catalog.BadgeAlHafizBronze+"/claim", token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestValidation(t *testing.T) {
	env := newAPIEnv(t)
	token := env.addUser(t, 10, "aisyah")

	resp, _ := env.do(t, http.MethodPost, "/api/listened", token, map[string]int{"surah": 115})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, "/api/me/email", token, map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, "/api/me/email", token, map[string]string{"email": "a@example.com"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "a@example.com", env.profiles.Snapshot(10).Email)

	resp, _ = env.do(t, http.MethodPost, "/api/garden/health", token, map[string]string{"status": "sometimes"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/leaderboard?kind=monthly", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLeaderboard(t *testing.T) {
	env := newAPIEnv(t)
	token := env.addUser(t, 10, "aisyah")
	env.addUser(t, 11, "umar")
	require.NoError(t, env.profiles.SetPoints(context.Background(), 10, 300, 3))
	require.NoError(t, env.profiles.SetPoints(context.Background(), 11, 500, 5))

	resp, body := env.do(t, http.MethodGet, "/api/leaderboard?kind="+model.LeaderboardAllTime, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries, ok := body["entries"].([]any)
	require.True(t, ok)
	require.Len(t, entries, 2)
	assert.EqualValues(t, 11, entries[0].(map[string]any)["user_id"])
	assert.EqualValues(t, 2, body["rank"])
}

func TestAdminGate(t *testing.T) {
	env := newAPIEnv(t)
	userToken := env.addUser(t, 10, "aisyah")
	adminToken := env.addUser(t, adminID, "admin")

	resp, _ := env.do(t, http.MethodGet, "/api/admin/stats", userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/api/admin/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, body["total_users"])

	resp, _ = env.do(t, http.MethodPut, "/api/admin/users/10/points", adminToken, map[string]int{"points": -5})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, "/api/admin/users/10/points", adminToken, map[string]int{"points": 1200})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.EqualValues(t, 1200, env.profiles.Snapshot(10).TotalPoints)

	resp, _ = env.do(t, http.MethodPost, fmt.Sprintf("/api/admin/users/%d/block", adminID), adminToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/admin/users/10/block", adminToken, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, "/api/me", userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/admin/broadcast", adminToken, map[string]string{"version": "1.2.0"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestCommunityHTTP(t *testing.T) {
	env := newAPIEnv(t)
	token := env.addUser(t, 10, "aisyah")

	resp, body := env.do(t, http.MethodPost, "/api/communities/general/messages", token, map[string]string{"content": "  assalamualaikum "})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "assalamualaikum", body["content"])

	resp, body = env.do(t, http.MethodGet, "/api/communities/general/messages", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "assalamualaikum", msgs[1].(map[string]any)["content"])

	resp, _ = env.do(t, http.MethodGet, "/api/communities/general/messages?before=yesterday", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/communities/missing/messages", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/communities?order=random", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTranscribe(t *testing.T) {
	var gotAuth, gotType string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/cold-model") {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"loading","estimated_time":12.4}`))
			return
		}
		_, _ = w.Write([]byte(`{"text":"bismillah"}`))
	}))
	defer upstream.Close()

	audio := bytes.Repeat([]byte{0x1a}, 64)
	post := func(env *apiEnv, query string, body []byte) (*http.Response, map[string]any) {
		req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/transcribe"+query, bytes.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "audio/webm")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		var out map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return resp, out
	}

	t.Run("method not allowed", func(t *testing.T) {
		env := newAPIEnv(t)
		resp, body := env.do(t, http.MethodGet, "/api/transcribe", "", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "Method not allowed. Use POST.", body["error"])
	})

	t.Run("missing token", func(t *testing.T) {
		env := newAPIEnv(t, withTranscriber(config.TranscribeConfig{Endpoint: upstream.URL}))
		resp, body := post(env, "", audio)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, relay.ErrNoToken.Error(), body["error"])
	})

	cfg := config.TranscribeConfig{Token: "hf_test", Endpoint: upstream.URL, MinBytes: 16, MaxBytes: 128}

	t.Run("short audio", func(t *testing.T) {
		env := newAPIEnv(t, withTranscriber(cfg))
		resp, _ := post(env, "", audio[:8])
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("too large", func(t *testing.T) {
		env := newAPIEnv(t, withTranscriber(cfg))
		resp, _ := post(env, "", bytes.Repeat([]byte{1}, 512))
		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	})

	t.Run("model loading", func(t *testing.T) {
		env := newAPIEnv(t, withTranscriber(cfg))
		resp, body := post(env, "?model=cold-model", audio)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.EqualValues(t, 13, body["estimated_time"])
		assert.Equal(t, "13", resp.Header.Get("Retry-After"))
	})

	t.Run("success", func(t *testing.T) {
		env := newAPIEnv(t, withTranscriber(cfg))
		resp, body := post(env, "", audio)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "bismillah", body["text"])
		assert.Equal(t, "Bearer hf_test", gotAuth)
		assert.Equal(t, "audio/webm", gotType)
	})
}

func TestOptionalFeaturesUnavailable(t *testing.T) {
	env := newAPIEnv(t)
	resp, _ := env.do(t, http.MethodGet, "/api/content", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, "/api/weather?lat=1&lon=2", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrPermissionDenied, http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", service.ErrNotMember), http.StatusForbidden},
		{repository.ErrUserNotFound, http.StatusNotFound},
		{prayer.ErrCityMissing, http.StatusNotFound},
		{badge.ErrAlreadyClaimed, http.StatusConflict},
		{service.ErrCommunityExists, http.StatusConflict},
		{service.ErrEmptyMessage, http.StatusBadRequest},
		{prayer.ErrUpstream, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusOf(tc.err), tc.err.Error())
	}
	assert.Equal(t, "FORBIDDEN", codeOf(service.ErrNotMember))
	assert.Equal(t, "INTERNAL", codeOf(errors.New("boom")))
}

func dialChat(t *testing.T, env *apiEnv, token string) (*websocket.Conn, *json.Decoder) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/chat?token=" + token
	conn, err := websocket.Dial(wsURL, "", env.srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn, json.NewDecoder(conn)
}

func readFrames(t *testing.T, dec *json.Decoder, n int) map[string]wsFrame {
	t.Helper()
	got := make(map[string]wsFrame, n)
	for i := 0; i < n; i++ {
		var f wsFrame
		require.NoError(t, dec.Decode(&f))
		got[f.Type] = f
	}
	return got
}

func TestChatWebSocket(t *testing.T) {
	env := newAPIEnv(t)
	tokenA := env.addUser(t, 10, "aisyah")
	tokenB := env.addUser(t, 11, "umar")

	connA, decA := dialChat(t, env, tokenA)
	connB, decB := dialChat(t, env, tokenB)
	encA := json.NewEncoder(connA)
	encB := json.NewEncoder(connB)

	require.NoError(t, encA.Encode(wsFrame{Type: "chat.send", RequestID: "early", Payload: mustJSON(sendPayload{Content: "hi"})}))
	early := readFrames(t, decA, 1)
	require.Contains(t, early, "chat.error")
	assert.Equal(t, "early", early["chat.error"].RequestID)

	for _, c := range []struct {
		enc *json.Encoder
		dec *json.Decoder
	}{{encA, decA}, {encB, decB}} {
		require.NoError(t, c.enc.Encode(wsFrame{Type: "chat.join", RequestID: "j", Payload: mustJSON(joinPayload{CommunityID: "general"})}))
		joined := readFrames(t, c.dec, 1)
		require.Contains(t, joined, "chat.joined")
		var payload struct {
			Messages []model.CommunityMessage `json:"messages"`
		}
		require.NoError(t, json.Unmarshal(joined["chat.joined"].Payload, &payload))
		assert.Len(t, payload.Messages, 1)
	}
	assert.Eventually(t, func() bool { return env.server.chat.size("general") == 2 }, time.Second, 10*time.Millisecond)
	assert.True(t, env.profiles.Snapshot(10).IsOnline)

	require.NoError(t, encA.Encode(wsFrame{Type: "chat.send", RequestID: "s1", Payload: mustJSON(sendPayload{Content: "assalamualaikum"})}))

	sender := readFrames(t, decA, 2)
	require.Contains(t, sender, "chat.ack")
	require.Contains(t, sender, "chat.message")
	assert.Equal(t, "s1", sender["chat.ack"].RequestID)

	other := readFrames(t, decB, 1)
	require.Contains(t, other, "chat.message")
	var msg model.CommunityMessage
	require.NoError(t, json.Unmarshal(other["chat.message"].Payload, &msg))
	assert.Equal(t, "assalamualaikum", msg.Content)
	assert.EqualValues(t, 10, msg.SenderID)

	require.NoError(t, encB.Encode(wsFrame{Type: "chat.send", RequestID: "s2", Payload: mustJSON(sendPayload{Content: "   "})}))
	empty := readFrames(t, decB, 1)
	require.Contains(t, empty, "chat.error")
	var werr wsError
	require.NoError(t, json.Unmarshal(empty["chat.error"].Payload, &werr))
	assert.Equal(t, "INVALID_ARGUMENT", werr.Code)

	require.NoError(t, connA.Close())
	assert.Eventually(t, func() bool {
		return env.server.chat.size("general") == 1 && !env.profiles.Snapshot(10).IsOnline
	}, 2*time.Second, 10*time.Millisecond)
}

func TestChatHubDropsSlowPeers(t *testing.T) {
	hub := newChatHub()
	fast := newChatPeer(1, nil)
	slow := newChatPeer(2, nil)
	hub.join(fast, "general")
	hub.join(slow, "general")

	for i := 0; i < peerOutboxSize; i++ {
		require.True(t, slow.push(wsFrame{Type: "filler"}))
	}
	hub.broadcast("general", wsFrame{Type: "chat.message"})

	assert.Equal(t, 1, hub.size("general"))
	assert.Equal(t, "", hub.room(slow))
	select {
	case <-slow.done:
	default:
		t.Fatal("slow peer was not closed")
	}

	hub.join(fast, "ramadhan")
	assert.Equal(t, 0, hub.size("general"))
	assert.Equal(t, "ramadhan", hub.room(fast))
}
