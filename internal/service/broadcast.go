package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/events"
)

// LatestVersionKey is the metadata key of the published app version.
const LatestVersionKey = "latest_version"

// ErrEmptyVersion is returned when no version is given.
var ErrEmptyVersion = errors.New("version is empty")

// Mailer delivers the release announcement.
type Mailer interface {
	SendVersion(ctx context.Context, version string, recipients []string) error
}

// BroadcastResult reports what a version update did.
type BroadcastResult struct {
	Version    string `json:"version"`
	Previous   string `json:"previous"`
	Changed    bool   `json:"changed"`
	Recipients int    `json:"recipients"`
}

// BroadcastService announces new app versions by email.
type BroadcastService struct {
	metadata MetadataStore
	emails   EmailStore
	mailer   Mailer
	states   *States
}

// NewBroadcastService creates a new BroadcastService instance.
func NewBroadcastService(metadata MetadataStore, emails EmailStore, mailer Mailer, states *States) *BroadcastService {
	return &BroadcastService{metadata: metadata, emails: emails, mailer: mailer, states: states}
}

// Publish stores version as the latest one. When it differs from the stored
// marker every subscribed address receives one BCC email. With no addresses
// nothing is sent.
func (s *BroadcastService) Publish(ctx context.Context, version string) (*BroadcastResult, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return nil, ErrEmptyVersion
	}

	prev, err := s.metadata.Swap(ctx, LatestVersionKey, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update version marker: %w", err)
	}
	res := &BroadcastResult{Version: version, Previous: prev, Changed: prev != version}
	if !res.Changed {
		return res, nil
	}

	recipients, err := s.emails.ListEmails(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list emails: %w", err)
	}
	if len(recipients) == 0 {
		log.Info().Str("version", version).Msg("No subscribers for version broadcast")
		return res, nil
	}

	if err := s.mailer.SendVersion(ctx, version, recipients); err != nil {
		return res, fmt.Errorf("failed to send version broadcast: %w", err)
	}
	res.Recipients = len(recipients)
	s.states.Publish(events.VersionBroadcast{Version: version, Recipients: res.Recipients})

	log.Info().Str("version", version).Int("recipients", res.Recipients).Msg("Version broadcast sent")
	return res, nil
}
