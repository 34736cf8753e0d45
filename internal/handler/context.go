// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/i18n"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/repository"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
)

// ProfileKey is the telebot context key holding the caller's profile. The
// account middleware sets it before any handler runs.
const ProfileKey = "profile"

// SessionKey holds the *service.SessionOutcome of the caller's daily
// bookkeeping, when the account middleware ran it for this update.
const SessionKey = "session"

// handlerTimeout bounds every store round trip made on behalf of one update.
const handlerTimeout = 15 * time.Second

var errUsage = errors.New("usage")

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), handlerTimeout)
}

// Profile returns the caller's profile, or nil outside the account
// middleware.
func Profile(c tele.Context) *model.UserProfile {
	p, _ := c.Get(ProfileKey).(*model.UserProfile)
	return p
}

// Session returns the bookkeeping outcome stored by the account middleware,
// or nil.
func Session(c tele.Context) *service.SessionOutcome {
	out, _ := c.Get(SessionKey).(*service.SessionOutcome)
	return out
}

// DisplayName derives a profile name from a Telegram user.
func DisplayName(u *tele.User) string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		name = u.Username
	}
	return name
}

// args splits the command payload into fields.
func args(c tele.Context) []string {
	return strings.Fields(c.Message().Payload)
}

func parseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errUsage
	}
	return id, nil
}

// callbackData splits a button press into its unique name and payload,
// dropping the prefix telebot adds to inline buttons.
func callbackData(c tele.Context) (unique, payload string) {
	cb := c.Callback()
	if cb == nil {
		return "", ""
	}
	data := strings.TrimPrefix(cb.Data, "\f")
	unique, payload, _ = strings.Cut(data, "|")
	return unique, payload
}

// errorText maps service errors to a reply.
func errorText(err error) string {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		return i18n.Sprintf(i18n.PermissionDenied)
	case errors.Is(err, service.ErrAccountDisabled):
		return "⛔ Akun Anda diblokir atau telah dihapus"
	case errors.Is(err, service.ErrUnknownBadge):
		return "❌ Lencana tidak ditemukan"
	case errors.Is(err, service.ErrBadgeNotUnlocked):
		return "🔒 Lencana ini belum terbuka"
	case errors.Is(err, service.ErrBadgeAlreadyClaimed):
		return "✅ Lencana ini sudah diklaim"
	case errors.Is(err, service.ErrEmptyMessage):
		return "❌ Pesan tidak boleh kosong"
	case errors.Is(err, service.ErrMessageTooLong):
		return "❌ Pesan terlalu panjang"
	case errors.Is(err, service.ErrNotMember):
		return "🔒 Komunitas ini privat, minta undangan admin"
	case errors.Is(err, service.ErrAlreadyMember):
		return "ℹ️ Pengguna sudah menjadi anggota"
	case errors.Is(err, service.ErrCommunityExists):
		return "❌ Komunitas dengan nama itu sudah ada"
	case errors.Is(err, service.ErrInvalidName):
		return "❌ Nama komunitas tidak boleh kosong"
	case errors.Is(err, service.ErrRequestNotPending):
		return "ℹ️ Permintaan ini sudah diproses"
	case errors.Is(err, service.ErrInvalidEmail):
		return "❌ Alamat email tidak valid"
	case errors.Is(err, service.ErrSelfModeration):
		return "❌ Admin tidak dapat memoderasi dirinya sendiri"
	case errors.Is(err, service.ErrInvalidPoints):
		return "❌ Poin tidak boleh negatif"
	case errors.Is(err, service.ErrInvalidRole):
		return "❌ Peran tidak dikenal (user/admin)"
	case errors.Is(err, service.ErrEmptyVersion):
		return "❌ Versi tidak boleh kosong"
	case errors.Is(err, repository.ErrUserNotFound):
		return "❌ Pengguna tidak ditemukan"
	case errors.Is(err, repository.ErrCommunityNotFound):
		return "❌ Komunitas tidak ditemukan"
	case errors.Is(err, repository.ErrMessageNotFound):
		return "❌ Pesan tidak ditemukan"
	case errors.Is(err, repository.ErrRequestNotFound):
		return "❌ Permintaan tidak ditemukan"
	}
	log.Error().Err(err).Msg("Handler failed")
	return i18n.Sprintf(i18n.GenericSaveFailure)
}
