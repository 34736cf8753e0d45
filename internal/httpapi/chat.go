package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/websocket"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/events"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
)

const (
	maxFramesPerSecond     = 20
	maxDecodeErrorsPerConn = 5
	maxFramePayloadBytes   = 16 * 1024
	peerOutboxSize         = 64
)

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type joinPayload struct {
	CommunityID string `json:"community_id"`
}

type sendPayload struct {
	Content string `json:"content"`
}

type historyPayload struct {
	Before string `json:"before"`
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// chatPeer is one connection. Frames are queued and written by writeLoop so
// a slow client never blocks event delivery.
type chatPeer struct {
	userID int64
	conn   io.Closer
	out    chan wsFrame
	done   chan struct{}
	once   sync.Once
}

func newChatPeer(userID int64, conn io.Closer) *chatPeer {
	return &chatPeer{
		userID: userID,
		conn:   conn,
		out:    make(chan wsFrame, peerOutboxSize),
		done:   make(chan struct{}),
	}
}

// push queues f and reports false when the peer is gone or too far behind.
func (p *chatPeer) push(f wsFrame) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.out <- f:
		return true
	default:
		return false
	}
}

func (p *chatPeer) close() {
	p.once.Do(func() {
		close(p.done)
		if p.conn != nil {
			_ = p.conn.Close()
		}
	})
}

func (p *chatPeer) writeLoop(enc *json.Encoder) {
	for {
		select {
		case <-p.done:
			return
		case f := <-p.out:
			if err := enc.Encode(f); err != nil {
				p.close()
				return
			}
		}
	}
}

func (p *chatPeer) fail(requestID, code, msg string) {
	p.push(wsFrame{Type: "chat.error", RequestID: requestID, Payload: mustJSON(wsError{Code: code, Message: msg})})
}

// failErr reports a service error. Unexpected errors are logged and hidden.
func (p *chatPeer) failErr(requestID string, err error) {
	code := codeOf(err)
	if code == "INTERNAL" {
		log.Error().Err(err).Int64("user_id", p.userID).Msg("Chat request failed")
		p.fail(requestID, code, "internal error")
		return
	}
	p.fail(requestID, code, err.Error())
}

// chatHub tracks which community each peer is watching.
type chatHub struct {
	mu    sync.Mutex
	rooms map[string]map[*chatPeer]struct{}
	peers map[*chatPeer]string
}

func newChatHub() *chatHub {
	return &chatHub{
		rooms: make(map[string]map[*chatPeer]struct{}),
		peers: make(map[*chatPeer]string),
	}
}

func (h *chatHub) join(p *chatPeer, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(p)
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*chatPeer]struct{})
	}
	h.rooms[room][p] = struct{}{}
	h.peers[p] = room
}

func (h *chatHub) leave(p *chatPeer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(p)
}

func (h *chatHub) leaveLocked(p *chatPeer) {
	room, ok := h.peers[p]
	if !ok {
		return
	}
	delete(h.peers, p)
	delete(h.rooms[room], p)
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
}

func (h *chatHub) room(p *chatPeer) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.peers[p]
}

func (h *chatHub) size(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}

// broadcast sends f to everyone in room. Peers that cannot keep up are
// disconnected.
func (h *chatHub) broadcast(room string, f wsFrame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for p := range h.rooms[room] {
		if !p.push(f) {
			log.Debug().Int64("user_id", p.userID).Str("community", room).Msg("Dropping slow chat peer")
			p.close()
			h.leaveLocked(p)
		}
	}
}

func (h *chatHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for p := range h.peers {
		p.close()
	}
	h.rooms = make(map[string]map[*chatPeer]struct{})
	h.peers = make(map[*chatPeer]string)
}

// attach forwards stored, deleted and cleared messages to the rooms.
func (h *chatHub) attach(bus *events.Bus) (detach func()) {
	unsubs := []func(){
		events.Subscribe(bus, func(e events.ChatMessage) {
			h.broadcast(e.Message.CommunityID, wsFrame{Type: "chat.message", Payload: mustJSON(e.Message)})
		}),
		events.Subscribe(bus, func(e events.ChatDeleted) {
			h.broadcast(e.CommunityID, wsFrame{Type: "chat.deleted", Payload: mustJSON(gin.H{
				"community_id": e.CommunityID,
				"message_id":   e.MessageID,
			})})
		}),
		events.Subscribe(bus, func(e events.ChatCleared) {
			h.broadcast(e.CommunityID, wsFrame{Type: "chat.cleared", Payload: mustJSON(gin.H{
				"community_id": e.CommunityID,
			})})
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// checkOrigin accepts the configured CORS origins.
func (s *Server) checkOrigin(cfg *websocket.Config, r *http.Request) error {
	origin, err := websocket.Origin(cfg, r)
	if err != nil {
		return err
	}
	cfg.Origin = origin
	allowed := s.deps.Config.HTTP.CORSOrigins
	if len(allowed) == 0 || (len(allowed) == 1 && allowed[0] == "*") {
		return nil
	}
	if origin == nil {
		return errors.New("missing origin")
	}
	for _, o := range allowed {
		if u, err := url.Parse(o); err == nil && u.Scheme == origin.Scheme && u.Host == origin.Host {
			return nil
		}
	}
	return errors.New("origin not allowed")
}

func (s *Server) handleChat(c *gin.Context) {
	p := profile(c)
	srv := websocket.Server{
		Handshake: s.checkOrigin,
		Handler: func(conn *websocket.Conn) {
			s.serveChat(conn, p)
		},
	}
	srv.ServeHTTP(c.Writer, c.Request)
}

func (s *Server) serveChat(conn *websocket.Conn, p *model.UserProfile) {
	peer := newChatPeer(p.ID, conn)
	defer func() {
		s.chat.leave(peer)
		peer.close()
	}()
	go peer.writeLoop(json.NewEncoder(conn))

	ctx := conn.Request().Context()
	s.setPresence(ctx, p.ID, true)
	defer s.setPresence(context.Background(), p.ID, false)

	decoder := json.NewDecoder(conn)
	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			select {
			case <-peer.done:
				return
			default:
			}
			decodeErrors++
			peer.fail("", "INVALID_ARGUMENT", "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			peer.fail(frame.RequestID, "INVALID_ARGUMENT", "payload too large")
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			peer.fail(frame.RequestID, "RESOURCE_EXHAUSTED", "rate limit exceeded")
			return
		}

		switch frame.Type {
		case "chat.join":
			s.chatJoin(ctx, peer, frame)
		case "chat.send":
			s.chatSend(ctx, peer, p, frame)
		case "chat.history.before":
			s.chatHistory(ctx, peer, frame)
		default:
			peer.fail(frame.RequestID, "INVALID_ARGUMENT", "unsupported frame type")
		}
	}
}

func (s *Server) setPresence(ctx context.Context, userID int64, online bool) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.deps.Accounts.SetPresence(ctx, userID, online); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Bool("online", online).Msg("Failed to update presence")
	}
}

func (s *Server) chatJoin(ctx context.Context, peer *chatPeer, frame wsFrame) {
	var payload joinPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil || payload.CommunityID == "" {
		peer.fail(frame.RequestID, "INVALID_ARGUMENT", "community_id is required")
		return
	}
	msgs, err := s.deps.Community.History(ctx, payload.CommunityID, peer.userID, time.Time{})
	if err != nil {
		peer.failErr(frame.RequestID, err)
		return
	}
	s.chat.join(peer, payload.CommunityID)
	peer.push(wsFrame{Type: "chat.joined", RequestID: frame.RequestID, Payload: mustJSON(gin.H{
		"community_id": payload.CommunityID,
		"messages":     msgs,
	})})
}

func (s *Server) chatSend(ctx context.Context, peer *chatPeer, p *model.UserProfile, frame wsFrame) {
	room := s.chat.room(peer)
	if room == "" {
		peer.fail(frame.RequestID, "FAILED_PRECONDITION", "join a community first")
		return
	}
	var payload sendPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		peer.fail(frame.RequestID, "INVALID_ARGUMENT", "invalid send payload")
		return
	}
	msg, err := s.deps.Community.Send(ctx, room, p, payload.Content)
	if err != nil {
		peer.failErr(frame.RequestID, err)
		return
	}
	peer.push(wsFrame{Type: "chat.ack", RequestID: frame.RequestID, Payload: mustJSON(gin.H{"message_id": msg.ID})})
}

func (s *Server) chatHistory(ctx context.Context, peer *chatPeer, frame wsFrame) {
	room := s.chat.room(peer)
	if room == "" {
		peer.fail(frame.RequestID, "FAILED_PRECONDITION", "join a community first")
		return
	}
	var payload historyPayload
	_ = json.Unmarshal(frame.Payload, &payload)
	before, ok := parseBefore(payload.Before)
	if !ok {
		peer.fail(frame.RequestID, "INVALID_ARGUMENT", "before must be an RFC 3339 timestamp")
		return
	}
	msgs, err := s.deps.Community.History(ctx, room, peer.userID, before)
	if err != nil {
		peer.failErr(frame.RequestID, err)
		return
	}
	peer.push(wsFrame{Type: "chat.history", RequestID: frame.RequestID, Payload: mustJSON(gin.H{
		"community_id": room,
		"messages":     msgs,
	})})
}

// codeOf names an error for chat frames.
func codeOf(err error) string {
	switch statusOf(err) {
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusBadRequest:
		return "INVALID_ARGUMENT"
	case http.StatusConflict:
		return "FAILED_PRECONDITION"
	}
	return "INTERNAL"
}
