package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateToken(t *testing.T) {
	svc := NewJWTService("secret", "console")

	token, err := IssueToken("secret", "console", "kakao|123", "owner@clinic.kr", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "kakao|123", claims.ExternalUserID())
	assert.Equal(t, "owner@clinic.kr", claims.Email)
}

func TestValidateToken_Rejects(t *testing.T) {
	svc := NewJWTService("secret", "console")

	wrongSecret, _ := IssueToken("other", "console", "u1", "", time.Hour)
	wrongIssuer, _ := IssueToken("secret", "someone-else", "u1", "", time.Hour)
	expired, _ := IssueToken("secret", "console", "u1", "", -time.Minute)
	noSubject, _ := IssueToken("secret", "console", "", "", time.Hour)

	for name, tok := range map[string]string{
		"wrong secret": wrongSecret,
		"wrong issuer": wrongIssuer,
		"expired":      expired,
		"no subject":   noSubject,
		"garbage":      "not.a.token",
	} {
		_, err := svc.ValidateToken(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}
