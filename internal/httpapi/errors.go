package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/badge"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/garden"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/ledger"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/prayer"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/repository"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
)

var errUnavailable = errors.New("feature is not configured")

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrPermissionDenied),
		errors.Is(err, service.ErrSelfModeration),
		errors.Is(err, service.ErrNotMember),
		errors.Is(err, service.ErrAccountDisabled):
		return http.StatusForbidden

	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrCommunityNotFound),
		errors.Is(err, repository.ErrMessageNotFound),
		errors.Is(err, repository.ErrRequestNotFound),
		errors.Is(err, service.ErrUnknownBadge),
		errors.Is(err, prayer.ErrCityMissing),
		errors.Is(err, prayer.ErrNoSchedule):
		return http.StatusNotFound

	case errors.Is(err, service.ErrCommunityExists),
		errors.Is(err, service.ErrRequestNotPending),
		errors.Is(err, service.ErrAlreadyMember),
		errors.Is(err, badge.ErrNotUnlocked),
		errors.Is(err, badge.ErrAlreadyClaimed),
		errors.Is(err, garden.ErrSpeciesLocked):
		return http.StatusConflict

	case errors.Is(err, ledger.ErrUnknownAct),
		errors.Is(err, garden.ErrUnknownStatus),
		errors.Is(err, garden.ErrUnknownSpecies),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrMessageTooLong),
		errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidPoints),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrSurahOutOfRange),
		errors.Is(err, service.ErrEmptyVersion):
		return http.StatusBadRequest

	case errors.Is(err, prayer.ErrUpstream),
		errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error. Unexpected errors are logged and hidden.
func fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		e := log.Error().Err(err).Str("path", c.Request.URL.Path)
		if p := profile(c); p != nil {
			e = e.Int64("user_id", p.ID)
		}
		e.Msg("Request failed")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
