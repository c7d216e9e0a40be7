package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignedURLSigner creates and validates short-lived archive download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate returns a token granting access to the archive of objectID.
func (s *SignedURLSigner) Generate(objectID string) (string, time.Time, error) {
	if objectID == "" {
		return "", time.Time{}, fmt.Errorf("object id required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl)
	encodedID := base64.RawURLEncoding.EncodeToString([]byte(objectID))
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	token := strings.Join([]string{encodedID, exp, s.sign(encodedID, exp)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the object it grants access to.
func (s *SignedURLSigner) Parse(token string) (string, time.Time, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", time.Time{}, fmt.Errorf("invalid token format")
	}
	encodedID, exp, signature := parts[0], parts[1], parts[2]

	if !hmac.Equal([]byte(s.sign(encodedID, exp)), []byte(signature)) {
		return "", time.Time{}, fmt.Errorf("invalid token signature")
	}
	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("invalid timestamp")
	}
	expiresAt := time.Unix(expUnix, 0)
	if s.now().After(expiresAt) {
		return "", time.Time{}, fmt.Errorf("token expired")
	}
	rawID, err := base64.RawURLEncoding.DecodeString(encodedID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("decode object id: %w", err)
	}
	return string(rawID), expiresAt, nil
}

func (s *SignedURLSigner) sign(encodedID, exp string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(encodedID + "|" + exp))
	return hex.EncodeToString(mac.Sum(nil))
}
