package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidToken reports a download token that is malformed or carries a bad signature.
	ErrInvalidToken = errors.New("invalid download token")
	// ErrTokenExpired reports a well-formed download token past its expiry.
	ErrTokenExpired = errors.New("download token expired")
)

// downloadClaims is the signed body of a download token.
type downloadClaims struct {
	JobID     string `json:"j"`
	Path      string `json:"p"`
	ExpiresAt int64  `json:"e"`
}

// SignedURLSigner issues HMAC-SHA256 tokens that grant time-limited access to one export file.
// A token is base64url(claims) "." base64url(signature).
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer. A non-positive ttl falls back to one day.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate signs a token for relPath of job jobID.
func (s *SignedURLSigner) Generate(jobID, relPath string) (string, time.Time, error) {
	if jobID == "" || relPath == "" {
		return "", time.Time{}, errors.New("job id and path are required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	body, err := json.Marshal(downloadClaims{JobID: jobID, Path: relPath, ExpiresAt: expiresAt.Unix()})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode token: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(body)
	return payload + "." + s.sign(payload), expiresAt, nil
}

// Parse verifies a token and returns what it grants. With allowExpired the expiry is not enforced.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	payload, signature, found := strings.Cut(token, ".")
	if !found || !hmac.Equal([]byte(signature), []byte(s.sign(payload))) {
		return "", "", time.Time{}, ErrInvalidToken
	}

	body, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", "", time.Time{}, ErrInvalidToken
	}
	var claims downloadClaims
	if err := json.Unmarshal(body, &claims); err != nil || claims.JobID == "" || claims.Path == "" {
		return "", "", time.Time{}, ErrInvalidToken
	}

	expiresAt = time.Unix(claims.ExpiresAt, 0)
	if !allowExpired && s.now().After(expiresAt) {
		return "", "", time.Time{}, ErrTokenExpired
	}
	return claims.JobID, claims.Path, expiresAt, nil
}

func (s *SignedURLSigner) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
