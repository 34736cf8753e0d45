package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/config"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/handler"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/i18n"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
)

// privateUserCache tracks users who have used the bot in whitelisted groups.
// This allows them to use the bot in private chat.
var (
	privateUserCache = make(map[int64]bool)
	privateUserMu    sync.RWMutex
)

// AllowPrivateUser marks a user as allowed to use private chat.
func AllowPrivateUser(userID int64) {
	privateUserMu.Lock()
	defer privateUserMu.Unlock()
	privateUserCache[userID] = true
}

// IsPrivateUserAllowed checks if a user is allowed to use private chat.
func IsPrivateUserAllowed(userID int64) bool {
	privateUserMu.RLock()
	defer privateUserMu.RUnlock()
	return privateUserCache[userID]
}

// WhitelistMiddleware creates a middleware that checks if the chat is whitelisted.
func WhitelistMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			sender := c.Sender()

			if chat == nil || sender == nil {
				return nil
			}

			if chat.Type == tele.ChatPrivate {
				// Allow if user has previously used bot in whitelisted group
				if IsPrivateUserAllowed(sender.ID) {
					return next(c)
				}

				// If whitelist is empty, allow all private chats
				if len(cfg.Whitelist.Chats) == 0 {
					return next(c)
				}

				log.Debug().
					Int64("user_id", sender.ID).
					Msg("Ignoring private chat from user not in whitelist cache")
				return nil
			}

			if !cfg.IsChatAllowed(chat.ID) {
				log.Debug().
					Int64("chat_id", chat.ID).
					Msg("Ignoring command from non-whitelisted chat")
				return nil
			}

			AllowPrivateUser(sender.ID)

			return next(c)
		}
	}
}

// AccountMiddleware makes sure the sender has a profile and stores it in the
// context. Blocked and deleted accounts are refused. Every update from an
// active user also runs the daily session bookkeeping, so the login streak and
// garden maintenance advance whichever command the user opens the day with.
func AccountMiddleware(accounts *service.AccountService, tracker *service.TrackerService) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || sender.IsBot {
				return nil
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			p, created, err := accounts.EnsureUser(ctx, sender.ID, sender.Username, handler.DisplayName(sender))
			if err != nil {
				log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to load account")
				return c.Reply(i18n.Sprintf(i18n.GenericSaveFailure))
			}
			if created {
				log.Info().Int64("user_id", sender.ID).Str("username", sender.Username).Msg("New user registered")
			}
			if !p.Active() {
				if c.Callback() != nil {
					return c.Respond(&tele.CallbackResponse{Text: blockedText})
				}
				return c.Reply(blockedText)
			}

			c.Set(handler.ProfileKey, p)

			if tracker != nil {
				out, err := tracker.StartSession(ctx, p.ID)
				if err != nil {
					// The command itself may still succeed; the next update retries.
					log.Warn().Err(err).Int64("user_id", p.ID).Msg("Failed to start session")
				} else {
					c.Set(handler.SessionKey, out)
				}
			}
			return next(c)
		}
	}
}

const blockedText = "⛔ Akun Anda diblokir atau telah dihapus"

// ErrNoProfile is returned by middleware that runs before AccountMiddleware.
var ErrNoProfile = errors.New("no profile in context")

// AdminMiddleware creates a middleware that checks if the user is an admin,
// either by role or by configuration.
func AdminMiddleware(accounts *service.AccountService) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			p := handler.Profile(c)
			if p == nil {
				return ErrNoProfile
			}

			if !accounts.IsAdmin(p) {
				log.Warn().
					Int64("user_id", p.ID).
					Str("command", c.Text()).
					Msg("Non-admin attempted admin command")
				return c.Reply(i18n.Sprintf(i18n.PermissionDenied))
			}

			return next(c)
		}
	}
}

// LoggingMiddleware creates a middleware that logs all incoming messages.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received message")

			return next(c)
		}
	}
}

// RecoveryMiddleware creates a middleware that recovers from panics.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ Terjadi kesalahan internal, silakan coba lagi nanti")
				}
			}()
			return next(c)
		}
	}
}
