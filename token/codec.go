package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultNamespace separates admin session tokens from any other artifact
// signed with the same secret.
const DefaultNamespace = "admin-session"

var (
	// ErrInvalidSignature covers every token that cannot be trusted:
	// malformed input, a bad MAC, a foreign algorithm or namespace, missing
	// claims, or an issue time in the future.
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrExpired is returned for an authentic token older than maxAge.
	ErrExpired = errors.New("token expired")
)

// Config configures a [Codec].
type Config struct {
	Secret []byte
	// Namespace defaults to DefaultNamespace.
	Namespace string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Codec signs and parses session tokens. It is stateless and safe for
// concurrent use.
type Codec struct {
	key       []byte
	namespace string
	now       func() time.Time
	parser    *jwt.Parser
}

type claims struct {
	// IssuedAtMillis keeps the issue time at millisecond precision; the
	// registered iat claim is whole seconds.
	IssuedAtMillis int64 `json:"iat_ms"`
	jwt.RegisteredClaims
}

// NewCodec validates cfg and derives the signing key.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	cfg.Namespace = strings.TrimSpace(cfg.Namespace)
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	mac := hmac.New(sha256.New, cfg.Secret)
	mac.Write([]byte(cfg.Namespace))

	return &Codec{
		key:       mac.Sum(nil),
		namespace: cfg.Namespace,
		now:       cfg.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithAudience(cfg.Namespace),
			jwt.WithTimeFunc(cfg.Now),
		),
	}, nil
}

// Namespace returns the namespace the codec signs under.
func (c *Codec) Namespace() string {
	return c.namespace
}

// Encode mints a token for principal issued at issuedAt. Every call embeds a
// fresh random ID, so two tokens are never equal.
func (c *Codec) Encode(principal string, issuedAt time.Time) (string, error) {
	if principal == "" {
		return "", errors.New("token principal is required")
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		IssuedAtMillis: issuedAt.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  principal,
			Audience: jwt.ClaimStrings{c.namespace},
			IssuedAt: jwt.NewNumericDate(issuedAt),
			ID:       uuid.NewString(),
		},
	})
	return tok.SignedString(c.key)
}

// Decode verifies raw and returns the embedded principal and issue time.
// A token is accepted while now < issuedAt + maxAge.
func (c *Codec) Decode(raw string, maxAge time.Duration) (string, time.Time, error) {
	if raw == "" {
		return "", time.Time{}, ErrInvalidSignature
	}

	var cl claims
	_, err := c.parser.ParseWithClaims(raw, &cl, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	})
	if err != nil {
		return "", time.Time{}, ErrInvalidSignature
	}
	if cl.Subject == "" || cl.IssuedAtMillis <= 0 {
		return "", time.Time{}, ErrInvalidSignature
	}

	issuedAt := time.UnixMilli(cl.IssuedAtMillis)
	now := c.now()
	if issuedAt.After(now) {
		return "", time.Time{}, ErrInvalidSignature
	}
	if maxAge <= 0 || !now.Before(issuedAt.Add(maxAge)) {
		return "", time.Time{}, ErrExpired
	}

	return cl.Subject, issuedAt, nil
}
