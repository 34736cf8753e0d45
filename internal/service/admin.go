package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/events"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/ledger"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
)

// Admin errors.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidPoints    = errors.New("points must not be negative")
	ErrInvalidRole      = errors.New("unknown role")
	ErrSelfModeration   = errors.New("admins cannot moderate themselves")
)

// AdminService implements the moderation dashboard. Every operation checks
// the actor first and does nothing for non-admins.
type AdminService struct {
	profiles  AdminProfileStore
	community *CommunityService
	accounts  *AccountService
	states    *States
}

// NewAdminService creates a new AdminService instance.
func NewAdminService(profiles AdminProfileStore, community *CommunityService, accounts *AccountService, states *States) *AdminService {
	return &AdminService{profiles: profiles, community: community, accounts: accounts, states: states}
}

func (s *AdminService) check(actor *model.UserProfile) error {
	if !s.accounts.IsAdmin(actor) {
		return ErrPermissionDenied
	}
	return nil
}

func (s *AdminService) checkTarget(actor *model.UserProfile, target int64) error {
	if err := s.check(actor); err != nil {
		return err
	}
	if actor.ID == target {
		return ErrSelfModeration
	}
	return nil
}

// Stats returns the dashboard counters.
func (s *AdminService) Stats(ctx context.Context, actor *model.UserProfile) (*model.AdminStats, error) {
	if err := s.check(actor); err != nil {
		return nil, err
	}
	return s.profiles.Stats(ctx, s.states.Today())
}

// Users lists profiles for the dashboard.
func (s *AdminService) Users(ctx context.Context, actor *model.UserProfile, limit, offset int) ([]*model.UserProfile, error) {
	if err := s.check(actor); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.profiles.List(ctx, limit, offset)
}

// SetPoints overwrites a user's XP total and recomputes the level.
func (s *AdminService) SetPoints(ctx context.Context, actor *model.UserProfile, userID, points int64) error {
	if err := s.check(actor); err != nil {
		return err
	}
	if points < 0 {
		return ErrInvalidPoints
	}

	err := s.states.With(ctx, userID, func(st *UserState) error {
		if err := s.profiles.SetPoints(ctx, userID, points, ledger.Level(points)); err != nil {
			return err
		}
		old := st.Profile.TotalPoints
		st.Profile.TotalPoints = points
		s.states.creditXP(st, old, model.XPReasonAdminEdit, nil)
		// Supersedes any queued profile write still carrying the old total.
		s.states.persistProfile(st)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set points: %w", err)
	}
	s.audit(actor, userID, "set_points")
	return nil
}

// SetRole changes a user's role.
func (s *AdminService) SetRole(ctx context.Context, actor *model.UserProfile, userID int64, role model.Role) error {
	if err := s.checkTarget(actor, userID); err != nil {
		return err
	}
	if !role.Valid() {
		return ErrInvalidRole
	}
	if err := s.profiles.SetRole(ctx, userID, role); err != nil {
		return err
	}
	s.states.Refresh(userID, func(st *UserState) { st.Profile.Role = role })
	s.audit(actor, userID, "set_role")
	return nil
}

// SetBlocked blocks or unblocks a user.
func (s *AdminService) SetBlocked(ctx context.Context, actor *model.UserProfile, userID int64, blocked bool) error {
	if err := s.checkTarget(actor, userID); err != nil {
		return err
	}
	if err := s.profiles.SetBlocked(ctx, userID, blocked); err != nil {
		return err
	}
	s.states.Refresh(userID, func(st *UserState) { st.Profile.IsBlocked = blocked })
	s.audit(actor, userID, "set_blocked")
	return nil
}

// SoftDelete marks a user deleted. The profile stays in the store.
func (s *AdminService) SoftDelete(ctx context.Context, actor *model.UserProfile, userID int64) error {
	if err := s.checkTarget(actor, userID); err != nil {
		return err
	}
	at := s.states.Now()
	if err := s.profiles.SoftDelete(ctx, userID, at); err != nil {
		return err
	}
	s.states.Refresh(userID, func(st *UserState) { st.Profile.DeletedAt = &at })
	s.audit(actor, userID, "soft_delete")
	return nil
}

// HardDelete removes a user and everything stored for them.
func (s *AdminService) HardDelete(ctx context.Context, actor *model.UserProfile, userID int64) error {
	if err := s.checkTarget(actor, userID); err != nil {
		return err
	}
	if err := s.profiles.HardDelete(ctx, userID); err != nil {
		return err
	}
	s.states.Evict(userID)
	s.audit(actor, userID, "hard_delete")
	return nil
}

// PendingRequests lists community requests awaiting review.
func (s *AdminService) PendingRequests(ctx context.Context, actor *model.UserProfile) ([]*model.CommunityRequest, error) {
	if err := s.check(actor); err != nil {
		return nil, err
	}
	return s.community.requests.ListPending(ctx)
}

// ApproveRequest creates the requested community, owned by the requester.
func (s *AdminService) ApproveRequest(ctx context.Context, actor *model.UserProfile, requestID string) (*model.Community, error) {
	if err := s.check(actor); err != nil {
		return nil, err
	}
	req, err := s.community.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != model.RequestPending {
		return nil, ErrRequestNotPending
	}

	c, err := s.community.create(ctx, req.Name, req.Description, req.RequesterID, false)
	if err != nil {
		return nil, err
	}
	if err := s.community.requests.SetStatus(ctx, requestID, model.RequestApproved); err != nil {
		return nil, err
	}
	return c, nil
}

// RejectRequest declines a pending community request.
func (s *AdminService) RejectRequest(ctx context.Context, actor *model.UserProfile, requestID string) error {
	if err := s.check(actor); err != nil {
		return err
	}
	return s.community.requests.SetStatus(ctx, requestID, model.RequestRejected)
}

// Invite adds a user to a community, private ones included.
func (s *AdminService) Invite(ctx context.Context, actor *model.UserProfile, communityID string, userID int64) error {
	if err := s.check(actor); err != nil {
		return err
	}
	c, err := s.community.communities.Get(ctx, communityID)
	if err != nil {
		return err
	}
	if c.HasMember(userID) {
		return ErrAlreadyMember
	}
	return s.community.communities.AddMember(ctx, communityID, userID)
}

// DeleteMessage removes one chat message.
func (s *AdminService) DeleteMessage(ctx context.Context, actor *model.UserProfile, communityID, messageID string) error {
	if err := s.check(actor); err != nil {
		return err
	}
	if err := s.community.communities.DeleteMessage(ctx, communityID, messageID); err != nil {
		return err
	}
	s.states.Publish(events.ChatDeleted{CommunityID: communityID, MessageID: messageID})
	return nil
}

// ClearMessages removes every message of a community.
func (s *AdminService) ClearMessages(ctx context.Context, actor *model.UserProfile, communityID string) (int64, error) {
	if err := s.check(actor); err != nil {
		return 0, err
	}
	n, err := s.community.communities.ClearMessages(ctx, communityID)
	if err != nil {
		return 0, err
	}
	s.states.Publish(events.ChatCleared{CommunityID: communityID})
	log.Info().Int64("admin_id", actor.ID).Str("community", communityID).Int64("removed", n).Msg("Chat cleared")
	return n, nil
}

func (s *AdminService) audit(actor *model.UserProfile, target int64, action string) {
	log.Info().
		Int64("admin_id", actor.ID).
		Int64("user_id", target).
		Str("action", action).
		Msg("Admin action")
}
