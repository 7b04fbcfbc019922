package utils // package utils provides token, password and normalization helpers

import (
	"crypto/sha256" // SHA‑256 hashing for refresh tokens at rest
	"encoding/hex"  // hex encoding of digests
	"errors"        // sentinel error for verification failures
	"time"          // expiry computation

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"       // unique jti per token
)

// ErrInvalidToken is returned for every refresh verification failure:
// bad signature, wrong kind, expired, malformed.  Callers must not be able
// to tell these apart.
var ErrInvalidToken = errors.New("invalid token")

// Token kind discriminators embedded in the `kind` claim.  An access token
// presented to the refresh endpoint fails even if an operator ever deploys
// both kinds with the same secret by mistake.
const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

// TokenPair bundles a freshly issued access/refresh pair with expiry
// metadata for the response body.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	AccessExp    time.Time `json:"access_expires"`
	RefreshToken string    `json:"refresh_token"`
	RefreshExp   time.Time `json:"refresh_expires"`
}

// TokenService signs and verifies the two token kinds.  The secrets are
// distinct by construction (config refuses to start otherwise) and each
// kind has its own TTL.  The account id is the sole identity claim.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenService builds a TokenService from the configured secrets and
// TTLs (access in minutes, refresh in days).
func NewTokenService(accessSecret, refreshSecret string, accessTTLMin, refreshTTLDays int) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     time.Duration(accessTTLMin) * time.Minute,
		refreshTTL:    time.Duration(refreshTTLDays) * 24 * time.Hour,
	}
}

// Issue signs a new access/refresh pair for an account.  Both tokens are
// HS256 JWTs carrying the account id as subject; they differ in secret,
// TTL and the `kind` claim.
func (s *TokenService) Issue(userID string) (TokenPair, error) {
	now := time.Now().UTC()
	accessExp := now.Add(s.accessTTL)
	refreshExp := now.Add(s.refreshTTL)

	access, err := sign(s.accessSecret, userID, kindAccess, now, accessExp)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := sign(s.refreshSecret, userID, kindRefresh, now, refreshExp)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		AccessExp:    accessExp,
		RefreshToken: refresh,
		RefreshExp:   refreshExp,
	}, nil
}

// VerifyRefresh validates a refresh token and returns the embedded account
// id.  Every failure mode collapses into ErrInvalidToken.
func (s *TokenService) VerifyRefresh(token string) (string, error) {
	return verify(s.refreshSecret, token, kindRefresh)
}

// VerifyAccess validates an access token and returns the embedded account
// id.  Used by the auth middleware.
func (s *TokenService) VerifyAccess(token string) (string, error) {
	return verify(s.accessSecret, token, kindAccess)
}

func sign(secret []byte, userID, kind string, iat, exp time.Time) (string, error) {
	// The jti makes every token unique even when two are signed for the
	// same account within one second; rotation depends on the new pair
	// differing from the old one.
	claims := jwt.MapClaims{
		"sub":  userID,
		"kind": kind,
		"jti":  uuid.NewString(),
		"exp":  exp.Unix(),
		"iat":  iat.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func verify(secret []byte, token, kind string) (string, error) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil || !tok.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	if k, _ := claims["kind"].(string); k != kind {
		return "", ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// HashRefreshRaw returns the SHA‑256 hash of a refresh token as a hex
// string.  Only the hash is persisted, so stolen database rows cannot be
// exchanged for sessions.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
