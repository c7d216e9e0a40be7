package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaderhub/shaderhub-api/internal/models"
	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
)

const testSessionSecret = "session-secret"

func signSession(t *testing.T, secret string, claims models.SessionClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{SessionSecret: testSessionSecret, Issuer: "https://auth.shaderhub.dev"})
	token := signSession(t, testSessionSecret, models.SessionClaims{
		UserID: "user_1",
		Roles:  []string{models.RoleAdmin},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://auth.shaderhub.dev",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user_1", claims.UserID)
	assert.True(t, claims.HasRole(models.RoleAdmin))
}

func TestAuthServiceRejectsInvalidTokens(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{SessionSecret: testSessionSecret, Issuer: "https://auth.shaderhub.dev"})
	valid := jwt.RegisteredClaims{
		Issuer:    "https://auth.shaderhub.dev",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	cases := map[string]string{
		"wrong secret": signSession(t, "other", models.SessionClaims{UserID: "u1", RegisteredClaims: valid}),
		"wrong issuer": signSession(t, testSessionSecret, models.SessionClaims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://evil.example",
			ExpiresAt: valid.ExpiresAt,
		}}),
		"expired": signSession(t, testSessionSecret, models.SessionClaims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    valid.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}),
		"missing user": signSession(t, testSessionSecret, models.SessionClaims{RegisteredClaims: valid}),
		"garbage":      "not-a-token",
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
		})
	}
}
