package crypto

import (
	stderrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/turtacn/credence/internal/domain/models"
	"github.com/turtacn/credence/pkg/constants"
	"github.com/turtacn/credence/pkg/errors"
)

// tokenClaims is the JWT payload of an auth token.
type tokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 auth tokens with the token-signing key.
// Validation is pure and touches no storage.
type TokenManager struct {
	keys   *KeyStore
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// TokenOption configures a TokenManager.
type TokenOption func(*TokenManager)

// WithTTL sets the lifetime of issued tokens.
func WithTTL(ttl time.Duration) TokenOption {
	return func(m *TokenManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithIssuer sets the "iss" claim issued and required.
func WithIssuer(issuer string) TokenOption {
	return func(m *TokenManager) {
		if issuer != "" {
			m.issuer = issuer
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewTokenManager returns a manager bound to ks. The token slot must be configured.
func NewTokenManager(ks *KeyStore, opts ...TokenOption) (*TokenManager, error) {
	if err := ks.Require(SlotTokenSigning); err != nil {
		return nil, err
	}
	m := &TokenManager{
		keys:   ks,
		ttl:    constants.AuthTokenDefaultTTL,
		issuer: constants.AuthTokenIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL returns the lifetime of issued tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue mints a token for claims.AccountID and claims.Username. IssuedAt and
// ExpiresAt on the input are ignored; the clock and TTL decide them.
func (m *TokenManager) Issue(claims models.AccountClaims) (string, error) {
	if claims.AccountID == uuid.Nil || claims.Username == "" {
		return "", errors.ErrInvalidRequest.WithMessage("token claims need an account id and username")
	}
	key, err := m.keys.Key(SlotTokenSigning)
	if err != nil {
		return "", err
	}

	issuedAt := m.now()
	payload := tokenClaims{
		Username: claims.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.AccountID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(key[:])
	if err != nil {
		return "", errors.ErrInternal("failed to sign auth token", err)
	}
	return signed, nil
}

// Validate verifies token and returns the identity it carries. Any failure is
// ErrInvalidToken; an otherwise valid but expired token is ErrExpiredToken,
// which renders the same to clients.
func (m *TokenManager) Validate(token string) (*models.AccountClaims, error) {
	if token == "" {
		return nil, errors.ErrInvalidToken.WithMessage("empty auth token")
	}
	key, err := m.keys.Key(SlotTokenSigning)
	if err != nil {
		return nil, err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(m.now),
	)

	var payload tokenClaims
	_, err = parser.ParseWithClaims(token, &payload, func(*jwt.Token) (interface{}, error) {
		return key[:], nil
	})
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrExpiredToken.WithCause(err)
		}
		return nil, errors.ErrInvalidToken.WithCause(err)
	}

	accountID, err := uuid.Parse(payload.Subject)
	if err != nil || payload.Username == "" {
		return nil, errors.ErrInvalidToken.WithMessage("auth token carries no account identity")
	}

	claims := &models.AccountClaims{
		AccountID: accountID,
		Username:  payload.Username,
	}
	if payload.IssuedAt != nil {
		claims.IssuedAt = payload.IssuedAt.Time
	}
	if payload.ExpiresAt != nil {
		claims.ExpiresAt = payload.ExpiresAt.Time
	}
	return claims, nil
}
