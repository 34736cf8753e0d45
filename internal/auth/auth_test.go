package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
)

func TestIssueAndParse(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	iss, err := NewIssuer("s3cret", "muslim-assistant", time.Hour, func() time.Time { return now })
	require.NoError(t, err)

	token, exp, err := iss.Issue(&model.UserProfile{ID: 42, Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	claims, err := iss.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "42", claims.Subject)

	now = now.Add(2 * time.Hour)
	_, err = iss.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejects(t *testing.T) {
	iss, err := NewIssuer("s3cret", "muslim-assistant", 0, nil)
	require.NoError(t, err)
	other, err := NewIssuer("other", "muslim-assistant", 0, nil)
	require.NoError(t, err)

	forged, _, err := other.Issue(&model.UserProfile{ID: 1})
	require.NoError(t, err)
	_, err = iss.Parse(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = iss.Parse(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewIssuer("", "", 0, nil)
	assert.ErrorIs(t, err, ErrNoSecret)
}
