package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: 1717171717, ID: "V1StGXR8_Z5jdHi"}
	out, err := ParseCursor(in.Encode())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in, *out)
}

func TestParseCursorLegacyTimestamp(t *testing.T) {
	out, err := ParseCursor("1717171717")
	require.NoError(t, err)
	assert.Equal(t, &Cursor{CreatedAt: 1717171717}, out)
}

func TestParseCursorEmpty(t *testing.T) {
	out, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	_, err := ParseCursor("!!not-base64!!")
	assert.Error(t, err)

	_, err = ParseCursor(Cursor{CreatedAt: 1}.Encode())
	assert.Error(t, err, "id is required for compound cursors")
}

func TestSessionClaimsHasRole(t *testing.T) {
	claims := &SessionClaims{UserID: "u1", Roles: []string{"member", RoleAdmin}}
	assert.True(t, claims.HasRole(RoleAdmin))
	assert.False(t, (&SessionClaims{}).HasRole(RoleAdmin))
	var nilClaims *SessionClaims
	assert.False(t, nilClaims.HasRole(RoleAdmin))
}
