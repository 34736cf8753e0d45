package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/events"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/i18n"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
)

// Community errors.
var (
	ErrEmptyMessage      = errors.New("message is empty")
	ErrMessageTooLong    = errors.New("message is too long")
	ErrInvalidName       = errors.New("community name is empty")
	ErrCommunityExists   = errors.New("community already exists")
	ErrNotMember         = errors.New("not a member of this private community")
	ErrRequestNotPending = errors.New("community request is not pending")
	ErrAlreadyMember     = errors.New("user is already a member")
)

// Chat limits.
const (
	HistoryPageSize  = 50
	MaxMessageLength = 2000
	SystemSenderName = "System"
)

// DefaultCommunities are created on startup when missing.
var DefaultCommunities = []struct{ Name, Description string }{
	{"General", "Ruang obrolan umum untuk semua pengguna"},
	{"Ramadhan", "Berbagi semangat dan amalan di bulan Ramadhan"},
}

// Slug turns a community name into its id: lower case with runs of white
// space replaced by a dash.
func Slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// CommunityService manages communities, their messages and creation
// requests.
type CommunityService struct {
	communities CommunityStore
	requests    RequestStore
	states      *States
}

// NewCommunityService creates a new CommunityService instance.
func NewCommunityService(communities CommunityStore, requests RequestStore, states *States) *CommunityService {
	return &CommunityService{communities: communities, requests: requests, states: states}
}

// EnsureDefaults creates the system communities that do not exist yet, each
// with a welcome message.
func (s *CommunityService) EnsureDefaults(ctx context.Context) error {
	for _, d := range DefaultCommunities {
		if _, err := s.create(ctx, d.Name, d.Description, model.SystemSenderID, false); err != nil && !errors.Is(err, ErrCommunityExists) {
			return err
		}
	}
	return nil
}

func (s *CommunityService) create(ctx context.Context, name, description string, creator int64, private bool) (*model.Community, error) {
	id := Slug(name)
	if id == "" {
		return nil, ErrInvalidName
	}

	c := &model.Community{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		CreatedBy:   creator,
		MemberIDs:   []int64{creator},
		MemberCount: 1,
		IsPrivate:   private,
		CreatedAt:   s.states.Now(),
	}
	created, err := s.communities.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, fmt.Errorf("%w: %s", ErrCommunityExists, id)
	}

	welcome := &model.CommunityMessage{
		ID:          uuid.NewString(),
		CommunityID: id,
		Content:     i18n.Sprintf(i18n.CommunityWelcome, c.Name),
		SenderID:    model.SystemSenderID,
		SenderName:  SystemSenderName,
		CreatedAt:   c.CreatedAt,
	}
	if err := s.communities.AppendMessage(ctx, welcome); err != nil {
		return nil, err
	}
	c.MessageCount = 1
	c.LastMessageAt = &welcome.CreatedAt

	log.Info().Str("community", id).Int64("created_by", creator).Msg("Community created")
	return c, nil
}

// List returns communities, newest first or by message count.
func (s *CommunityService) List(ctx context.Context, order string, limit int) ([]*model.Community, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.communities.List(ctx, order, limit)
}

// Get returns one community.
func (s *CommunityService) Get(ctx context.Context, id string) (*model.Community, error) {
	return s.communities.Get(ctx, id)
}

// Join adds the user to a public community.
func (s *CommunityService) Join(ctx context.Context, id string, userID int64) error {
	c, err := s.communities.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.HasMember(userID) {
		return nil
	}
	if c.IsPrivate {
		return ErrNotMember
	}
	return s.communities.AddMember(ctx, id, userID)
}

func (s *CommunityService) canRead(ctx context.Context, id string, userID int64) error {
	c, err := s.communities.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.IsPrivate && !c.HasMember(userID) {
		return ErrNotMember
	}
	return nil
}

// Send appends a message from sender. Content is trimmed and must not be
// empty.
func (s *CommunityService) Send(ctx context.Context, communityID string, sender *model.UserProfile, content string) (*model.CommunityMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}
	if err := s.canRead(ctx, communityID, sender.ID); err != nil {
		return nil, err
	}

	m := &model.CommunityMessage{
		ID:          uuid.NewString(),
		CommunityID: communityID,
		Content:     content,
		SenderID:    sender.ID,
		SenderName:  sender.Name(),
		CreatedAt:   s.states.Now(),
	}
	if err := s.communities.AppendMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	s.states.Publish(events.ChatMessage{Message: m})
	return m, nil
}

// History returns one page of messages in ascending order, older than
// before. A zero before returns the latest page.
func (s *CommunityService) History(ctx context.Context, communityID string, userID int64, before time.Time) ([]*model.CommunityMessage, error) {
	if err := s.canRead(ctx, communityID, userID); err != nil {
		return nil, err
	}
	return s.communities.History(ctx, communityID, before, HistoryPageSize)
}

// RequestCommunity files a creation request for admins to review.
func (s *CommunityService) RequestCommunity(ctx context.Context, requester *model.UserProfile, name, description string) (*model.CommunityRequest, error) {
	if Slug(name) == "" {
		return nil, ErrInvalidName
	}
	req := &model.CommunityRequest{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(name),
		Description:   strings.TrimSpace(description),
		RequesterID:   requester.ID,
		RequesterName: requester.Name(),
		Status:        model.RequestPending,
		CreatedAt:     s.states.Now(),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}
