// Package service provides application-level services that orchestrate domain services and repositories
package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/turtacn/credence/internal/application/dto"
	"github.com/turtacn/credence/internal/domain/models"
	"github.com/turtacn/credence/internal/domain/repository"
	domainService "github.com/turtacn/credence/internal/domain/service"
	"github.com/turtacn/credence/internal/infrastructure/crypto"
	"github.com/turtacn/credence/pkg/constants"
	"github.com/turtacn/credence/pkg/errors"
	"github.com/turtacn/credence/pkg/logger"
)

const tracerName = "github.com/turtacn/credence/internal/application/service"

// Authentication results recorded in metrics.
const (
	resultSuccess     = "success"
	resultFailure     = "failure"
	resultRateLimited = "rate_limited"
	resultError       = "error"
)

// TokenIssuer mints auth tokens.
type TokenIssuer interface {
	Issue(claims models.AccountClaims) (string, error)
	TTL() time.Duration
}

// AuthAppService defines the interface for authentication application service
type AuthAppService interface {
	// Authenticate checks username and password and returns the account with a
	// fresh auth token. Unknown usernames and wrong passwords both yield
	// errors.ErrAuthenticationFailed.
	Authenticate(ctx context.Context, username, password string, client dto.ClientInfo) (*dto.AuthenticatedAccount, error)
}

// authAppServiceImpl is the concrete implementation of AuthAppService
type authAppServiceImpl struct {
	accounts     repository.AccountRepository
	tokens       TokenIssuer
	rateLimiter  domainService.RateLimitService
	auditService domainService.AuditService
	metrics      domainService.Metrics
	logger       logger.Logger

	// dummyDigest is compared against when the username is unknown.
	dummyDigest *crypto.Digest
}

// NewAuthAppService creates a new instance of AuthAppService. rateLimiter,
// auditService and metrics may be nil. params is the work factor of the
// digest compared for unknown usernames, so both paths cost the same.
func NewAuthAppService(
	accounts repository.AccountRepository,
	tokens TokenIssuer,
	rateLimiter domainService.RateLimitService,
	auditService domainService.AuditService,
	metrics domainService.Metrics,
	params crypto.DigestParams,
	log logger.Logger,
) AuthAppService {
	if metrics == nil {
		metrics = domainService.NewNoopMetrics()
	}
	log = log.WithComponent("AuthAppService")
	return &authAppServiceImpl{
		accounts:     accounts,
		tokens:       tokens,
		rateLimiter:  rateLimiter,
		auditService: auditService,
		metrics:      metrics,
		logger:       log,
		dummyDigest:  newDummyDigest(params, log),
	}
}

// Authenticate implements password authentication.
func (s *authAppServiceImpl) Authenticate(ctx context.Context, username, password string, client dto.ClientInfo) (*dto.AuthenticatedAccount, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "AuthAppService.Authenticate")
	defer span.End()
	start := time.Now()

	// 1. Check rate limit for the client
	if limited := s.checkRateLimit(ctx, username, client); limited != nil {
		s.metrics.RecordAuthentication(resultRateLimited, time.Since(start))
		span.SetStatus(codes.Error, "rate limited")
		return nil, limited
	}

	// 2. Resolve the account; unknown names cost one digest comparison too
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			s.dummyDigest.Correct(password)
			return nil, s.reject(ctx, start, username, nil, client, "unknown_account")
		}
		s.logger.Error(ctx, "Failed to look up account", err)
		s.metrics.RecordAuthentication(resultError, time.Since(start))
		span.RecordError(err)
		return nil, errors.ErrInternal("account lookup failed", err)
	}

	// 3. Verify the password against the stored digest
	digest, err := crypto.ParseDigest(account.PasswordDigest)
	if err != nil {
		s.logger.Error(ctx, "Stored password digest is malformed", err,
			logger.String("account_id", account.ID.String()),
		)
		s.metrics.RecordAuthentication(resultError, time.Since(start))
		s.audit(ctx, models.NewAuditEvent(constants.EventTypeAuthentication, constants.AuditResultFailure).
			WithAccount(account.ID, account.Username).
			WithContextInfo(client.IPAddress, client.UserAgent, client.TraceID).
			WithReason("invalid_digest"))
		span.RecordError(err)
		return nil, err
	}
	if !digest.Correct(password) {
		return nil, s.reject(ctx, start, username, account, client, "wrong_password")
	}

	// 4. Issue the token
	token, err := s.tokens.Issue(models.ClaimsFor(account))
	if err != nil {
		s.logger.Error(ctx, "Failed to issue auth token", err)
		s.metrics.RecordAuthentication(resultError, time.Since(start))
		span.RecordError(err)
		return nil, err
	}
	expiresAt := time.Now().Add(s.tokens.TTL()).Unix()

	if s.rateLimiter != nil {
		if err := s.rateLimiter.Reset(ctx, constants.RateLimitScopeLogin, rateLimitIdentifier(username, client)); err != nil {
			s.logger.Warn(ctx, "Failed to reset login rate limit", logger.Error(err))
		}
	}

	// 5. Audit and return response
	s.audit(ctx, models.NewAuditEvent(constants.EventTypeAuthentication, constants.AuditResultSuccess).
		WithAccount(account.ID, account.Username).
		WithContextInfo(client.IPAddress, client.UserAgent, client.TraceID))
	s.metrics.RecordAuthentication(resultSuccess, time.Since(start))
	span.SetAttributes(attribute.String("credence.account_id", account.ID.String()))

	s.logger.Info(ctx, "Account authenticated",
		logger.String("account_id", account.ID.String()),
		logger.String("client_ip", client.IPAddress),
	)
	return dto.NewAuthenticatedAccount(account, token, expiresAt), nil
}

// checkRateLimit returns ErrRateLimitExceeded when the client is over its
// login budget. A limiter failure lets the attempt through.
func (s *authAppServiceImpl) checkRateLimit(ctx context.Context, username string, client dto.ClientInfo) error {
	if s.rateLimiter == nil {
		return nil
	}
	allowed, _, resetAt, err := s.rateLimiter.Allow(ctx, constants.RateLimitScopeLogin, rateLimitIdentifier(username, client))
	if err != nil {
		s.logger.Warn(ctx, "Login rate limit check failed", logger.Error(err))
		return nil
	}
	if allowed {
		return nil
	}

	s.metrics.RecordRateLimitHit(constants.RateLimitScopeLogin)
	s.audit(ctx, models.NewAuditEvent(constants.EventTypeRateLimitExceeded, constants.AuditResultFailure).
		WithUsername(username).
		WithContextInfo(client.IPAddress, client.UserAgent, client.TraceID))
	s.logger.Warn(ctx, "Login rate limit exceeded", logger.String("client_ip", client.IPAddress))

	retryAfter := int64(time.Until(resetAt).Seconds()) + 1
	return errors.ErrRateLimitExceeded.WithMetadata("retry_after", retryAfter)
}

func (s *authAppServiceImpl) reject(ctx context.Context, start time.Time, username string, account *models.Account, client dto.ClientInfo, reason string) error {
	event := models.NewAuditEvent(constants.EventTypeAuthentication, constants.AuditResultFailure).
		WithUsername(username).
		WithContextInfo(client.IPAddress, client.UserAgent, client.TraceID).
		WithReason(reason)
	if account != nil {
		event.WithAccount(account.ID, account.Username)
	}
	s.audit(ctx, event)
	s.metrics.RecordAuthentication(resultFailure, time.Since(start))
	// Unknown usernames and wrong passwords share one info line; the reason is debug only.
	s.logger.Info(ctx, "Authentication failed", logger.String("client_ip", client.IPAddress))
	s.logger.Debug(ctx, "Authentication failure reason", logger.String("reason", reason))
	return errors.ErrAuthenticationFailed
}

func (s *authAppServiceImpl) audit(ctx context.Context, event *models.AuditEvent) {
	if s.auditService == nil {
		return
	}
	if err := s.auditService.LogEvent(ctx, event); err != nil {
		s.logger.Warn(ctx, "Failed to record audit event",
			logger.String("event_type", string(event.EventType)),
			logger.Error(err),
		)
	}
}

// newDummyDigest returns a digest of a random password with params, so that
// unknown usernames cost one full comparison at the configured work factor.
func newDummyDigest(params crypto.DigestParams, log logger.Logger) *crypto.Digest {
	secret, err := crypto.GenerateKeySecret()
	if err != nil {
		secret = "credence-unknown-account"
	}
	d, err := crypto.NewDigestWithParams(secret, params)
	if err != nil {
		log.Warn(context.Background(), "Falling back to default work factor for unknown-account digest", logger.Error(err))
		d, _ = crypto.NewDigest(secret)
	}
	return d
}

// rateLimitIdentifier buckets attempts by client IP, or by username when the
// IP is unknown.
func rateLimitIdentifier(username string, client dto.ClientInfo) string {
	if client.IPAddress != "" {
		return client.IPAddress
	}
	return "user:" + username
}
