package auth

import (
	"crypto/rsa"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/calbridge/calbridge/internal/apierr"
)

const (
	// assertionLifetime is the exp-iat span of the signed assertion,
	// the maximum Google accepts.
	assertionLifetime = time.Hour

	// assertionReuseSafety is subtracted from the assertion expiry when
	// deciding whether a cached assertion may be reused, so a token
	// exchange never races the expiry.
	assertionReuseSafety = time.Minute
)

// Signer builds and signs the RS256 JWT-bearer assertion presented to
// the token endpoint. Signing is deterministic for a fixed issue time,
// so assertions are cached and reused across authentication attempts
// within the same validity span.
type Signer struct {
	key      *rsa.PrivateKey
	email    string
	subject  string
	scope    string
	audience string
	now      func() time.Time

	mu        sync.Mutex
	assertion string
	expiresAt time.Time
}

// NewSigner parses the credential's private key and prepares a signer
// for the given scopes. An optional subject enables domain-wide
// delegation; empty means the service account acts as itself.
func NewSigner(creds *Credentials, scopes []string, subject string) (*Signer, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(creds.PrivateKey))
	if err != nil {
		return nil, &apierr.SigningError{Reason: "cannot parse RSA private key", Err: err}
	}
	return &Signer{
		key:      key,
		email:    creds.ClientEmail,
		subject:  subject,
		scope:    strings.Join(scopes, " "),
		audience: creds.TokenURI,
		now:      time.Now,
	}, nil
}

// Assertion returns a signed assertion, reusing the cached one while it
// has more than a minute of validity left.
func (s *Signer) Assertion() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.assertion != "" && now.Before(s.expiresAt.Add(-assertionReuseSafety)) {
		return s.assertion, nil
	}

	signed, expiresAt, err := s.sign(now)
	if err != nil {
		return "", err
	}
	s.assertion = signed
	s.expiresAt = expiresAt
	return signed, nil
}

func (s *Signer) sign(now time.Time) (string, time.Time, error) {
	issuedAt := now.Truncate(time.Second)
	expiresAt := issuedAt.Add(assertionLifetime)

	claims := jwt.MapClaims{
		"iss":   s.email,
		"scope": s.scope,
		"aud":   s.audience,
		"iat":   issuedAt.Unix(),
		"exp":   expiresAt.Unix(),
	}
	if s.subject != "" {
		claims["sub"] = s.subject
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, &apierr.SigningError{Reason: "signing assertion", Err: err}
	}
	return signed, expiresAt, nil
}
