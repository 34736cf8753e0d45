// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/events"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
)

// Common errors for account operations.
var (
	ErrAccountDisabled = errors.New("account is blocked or deleted")
	ErrInvalidEmail    = errors.New("invalid email address")
)

var validate = validator.New()

// AccountService handles identity and presence.
type AccountService struct {
	profiles ProfileStore
	states   *States
	admins   func(int64) bool
}

// NewAccountService creates a new AccountService instance. isAdmin reports
// admin ids granted by configuration.
func NewAccountService(profiles ProfileStore, states *States, isAdmin func(int64) bool) *AccountService {
	if isAdmin == nil {
		isAdmin = func(int64) bool { return false }
	}
	return &AccountService{profiles: profiles, states: states, admins: isAdmin}
}

// EnsureUser returns the user's profile, creating it on first contact.
// Returns the profile and whether it was newly created.
func (s *AccountService) EnsureUser(ctx context.Context, id int64, username, displayName string) (*model.UserProfile, bool, error) {
	p, created, err := s.profiles.GetOrCreate(ctx, id, username, displayName)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure user: %w", err)
	}

	if !created && (p.Username != username || p.DisplayName != displayName) && (username != "" || displayName != "") {
		if err := s.profiles.UpdateIdentity(ctx, id, username, displayName); err != nil {
			// The profile still exists; the stale name is only cosmetic.
			log.Warn().Err(err).Int64("user_id", id).Msg("Failed to update identity")
		} else {
			p.Username, p.DisplayName = username, displayName
			s.states.Refresh(id, func(st *UserState) {
				st.Profile.Username, st.Profile.DisplayName = username, displayName
			})
		}
	}
	return p, created, nil
}

// Authorize returns the profile of an active user, or ErrAccountDisabled
// for blocked and soft-deleted ones.
func (s *AccountService) Authorize(ctx context.Context, id int64) (*model.UserProfile, error) {
	p, err := s.profiles.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active() {
		return nil, ErrAccountDisabled
	}
	return p, nil
}

// IsAdmin reports whether the user may use admin operations, either by role
// or by configuration.
func (s *AccountService) IsAdmin(p *model.UserProfile) bool {
	return p != nil && (p.IsAdmin() || s.admins(p.ID))
}

// Profile returns the current working copy of the user's profile.
func (s *AccountService) Profile(ctx context.Context, id int64) (*model.UserProfile, error) {
	st, err := s.states.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	return &st.Profile, nil
}

// SetEmail stores the address used for release broadcasts. An empty address
// unsubscribes.
func (s *AccountService) SetEmail(ctx context.Context, id int64, email string) error {
	email = strings.TrimSpace(email)
	if email != "" && validate.Var(email, "email") != nil {
		return ErrInvalidEmail
	}
	if err := s.profiles.SetEmail(ctx, id, email); err != nil {
		return fmt.Errorf("failed to set email: %w", err)
	}
	return s.states.With(ctx, id, func(st *UserState) error {
		st.Profile.Email = email
		return nil
	})
}

// SetPresence records whether the user is connected.
func (s *AccountService) SetPresence(ctx context.Context, id int64, online bool) error {
	now := s.states.Now()
	if err := s.profiles.SetPresence(ctx, id, online, now); err != nil {
		return fmt.Errorf("failed to set presence: %w", err)
	}
	s.states.Publish(events.PresenceChanged{UserID: id, Online: online})
	return nil
}
