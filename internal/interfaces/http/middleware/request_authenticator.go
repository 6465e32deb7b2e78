// Package middleware holds the gin middleware of the Credence API: transport
// security, bearer-token authentication, request ids, observability and
// per-client rate limiting.
package middleware

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/credence/internal/application/dto"
	"github.com/turtacn/credence/internal/config"
	"github.com/turtacn/credence/internal/domain/models"
	"github.com/turtacn/credence/internal/domain/repository"
	"github.com/turtacn/credence/internal/domain/service"
	"github.com/turtacn/credence/pkg/constants"
	"github.com/turtacn/credence/pkg/errors"
	"github.com/turtacn/credence/pkg/logger"
)

const accountLookupTimeout = 5 * time.Second

// Token validation results recorded in metrics.
const (
	tokenValid          = "valid"
	tokenInvalid        = "invalid"
	tokenExpired        = "expired"
	tokenUnknownAccount = "unknown_account"
)

// TokenValidator verifies auth tokens.
type TokenValidator interface {
	Validate(token string) (*models.AccountClaims, error)
}

// RequestAuthenticator answers the two questions asked of every API request:
// did it arrive over a secure transport, and which account does its bearer
// token name.
type RequestAuthenticator struct {
	tokens              TokenValidator
	accounts            repository.AccountRepository
	requireTLS          bool
	trustForwardedProto bool
	metrics             service.Metrics
	auditService        service.AuditService
	logger              logger.Logger

	lookups singleflight.Group
}

// NewRequestAuthenticator creates an authenticator. metrics and auditService may be nil.
func NewRequestAuthenticator(
	tokens TokenValidator,
	accounts repository.AccountRepository,
	cfg *config.ServerConfig,
	metrics service.Metrics,
	auditService service.AuditService,
	log logger.Logger,
) *RequestAuthenticator {
	if metrics == nil {
		metrics = service.NewNoopMetrics()
	}
	a := &RequestAuthenticator{
		tokens:       tokens,
		accounts:     accounts,
		metrics:      metrics,
		auditService: auditService,
		logger:       log.WithComponent("RequestAuthenticator"),
	}
	if cfg != nil {
		a.requireTLS = cfg.RequireTLS
		a.trustForwardedProto = cfg.TrustForwardedProto
	}
	return a
}

// BearerToken extracts the token from an Authorization header value. The
// value must be exactly "Bearer <token>": case-sensitive scheme, one space,
// and a non-empty token without whitespace.
func BearerToken(header string) (string, error) {
	const prefix = constants.TokenScheme + " "
	if !strings.HasPrefix(header, prefix) {
		return "", errors.ErrInvalidToken.WithMessage("authorization header is not a bearer token")
	}
	token := header[len(prefix):]
	if token == "" || strings.ContainsAny(token, " \t\r\n") {
		return "", errors.ErrInvalidToken.WithMessage("malformed bearer token")
	}
	return token, nil
}

// Secure reports whether r arrived over TLS. When TLS is not required every
// request counts as secure. A forwarded "https" proto is only honored behind
// a trusted terminating proxy.
func (a *RequestAuthenticator) Secure(r *http.Request) bool {
	if !a.requireTLS {
		return true
	}
	if r.TLS != nil {
		return true
	}
	return a.trustForwardedProto && strings.EqualFold(r.Header.Get(constants.HeaderForwardedProto), "https")
}

// AuthenticatedAccount resolves the account named by r's bearer token. Any
// problem with the header or token is errors.ErrInvalidToken; a valid token
// for an account that no longer exists is errors.ErrAccountNotFound. Both
// render identically. When ctx ends before the account is resolved its error
// is returned.
func (a *RequestAuthenticator) AuthenticatedAccount(ctx context.Context, r *http.Request) (*models.Account, error) {
	token, err := BearerToken(r.Header.Get(constants.HeaderAuthorization))
	if err != nil {
		a.reject(ctx, r, tokenInvalid, err)
		return nil, err
	}

	claims, err := a.tokens.Validate(token)
	if err != nil {
		result := tokenInvalid
		if errors.Is(err, errors.ErrExpiredToken) {
			result = tokenExpired
		}
		a.reject(ctx, r, result, err)
		return nil, err
	}

	account, err := a.findAccount(ctx, claims)
	if err != nil {
		if ctx.Err() != nil {
			a.logger.Debug(ctx, "Account lookup abandoned", logger.Error(ctx.Err()))
			return nil, ctx.Err()
		}
		if errors.Is(err, errors.ErrNotFound) {
			err = errors.ErrAccountNotFound.WithMessage("token names an unknown account")
			a.reject(ctx, r, tokenUnknownAccount, err)
			return nil, err
		}
		a.logger.Error(ctx, "Failed to load token account", err)
		return nil, errors.ErrInternal("account lookup failed", err)
	}
	if account.Username != claims.Username {
		err = errors.ErrInvalidToken.WithMessage("token username does not match account")
		a.reject(ctx, r, tokenInvalid, err)
		return nil, err
	}

	a.metrics.RecordTokenValidation(tokenValid)
	return account, nil
}

// findAccount coalesces concurrent lookups of one account id. The lookup runs
// under the caller's context and timeout, and each caller stops waiting as
// soon as its own context ends.
func (a *RequestAuthenticator) findAccount(ctx context.Context, claims *models.AccountClaims) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lookup := func(ctx context.Context) (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(ctx, accountLookupTimeout)
		defer cancel()
		return a.accounts.FindByID(lookupCtx, claims.AccountID)
	}

	ch := a.lookups.DoChan(claims.AccountID.String(), func() (interface{}, error) {
		return lookup(ctx)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}

	// A shared lookup cut short by another caller's cancellation is retried
	// under this caller's context.
	if res.Err != nil && res.Shared && ctx.Err() == nil &&
		(stderrors.Is(res.Err, context.Canceled) || stderrors.Is(res.Err, context.DeadlineExceeded)) {
		res.Val, res.Err = lookup(ctx)
	}
	if res.Err != nil {
		return nil, res.Err
	}
	account, _ := res.Val.(*models.Account)
	if account == nil {
		return nil, errors.ErrResourceNotFound("account")
	}
	return account, nil
}

func (a *RequestAuthenticator) reject(ctx context.Context, r *http.Request, result string, err error) {
	a.metrics.RecordTokenValidation(result)
	// One info line for every rejection; the cause is debug only.
	a.logger.Info(ctx, "Auth token rejected", logger.String("client_ip", clientIP(r)))
	a.logger.Debug(ctx, "Auth token rejection cause", logger.String("result", result), logger.Error(err))
	if a.auditService == nil {
		return
	}
	event := models.NewAuditEvent(constants.EventTypeTokenRejected, constants.AuditResultFailure).
		WithContextInfo(clientIP(r), r.UserAgent(), "").
		WithReason(result)
	if err := a.auditService.LogEvent(ctx, event); err != nil {
		a.logger.Warn(ctx, "Failed to record audit event", logger.Error(err))
	}
}

// RequireSecure rejects requests that did not arrive over TLS with 403.
func (a *RequestAuthenticator) RequireSecure() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Secure(c.Request) {
			a.logger.Warn(c.Request.Context(), "Rejected insecure request",
				logger.String("path", c.Request.URL.Path),
				logger.String("client_ip", c.ClientIP()),
			)
			dto.SendError(c, errors.ErrInsecureTransport)
			return
		}
		c.Next()
	}
}

// LoadAccount resolves the bearer token when an Authorization header is
// present. Requests without the header continue anonymously; a present but
// invalid header is rejected with 403.
func (a *RequestAuthenticator) LoadAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, present := c.Request.Header[constants.HeaderAuthorization]; !present {
			c.Next()
			return
		}
		account, err := a.AuthenticatedAccount(c.Request.Context(), c.Request)
		if err != nil {
			dto.SendError(c, err)
			return
		}
		c.Set(string(constants.ContextKeyAccount), account)
		c.Next()
	}
}

// RequireAccount rejects anonymous requests with 403. It must run after LoadAccount.
func RequireAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentAccount(c) == nil {
			dto.SendError(c, errors.ErrInvalidToken.WithMessage("authentication required"))
			return
		}
		c.Next()
	}
}

// CurrentAccount returns the account LoadAccount attached to c, or nil.
func CurrentAccount(c *gin.Context) *models.Account {
	v, ok := c.Get(string(constants.ContextKeyAccount))
	if !ok {
		return nil
	}
	account, _ := v.(*models.Account)
	return account
}

// clientIP is the remote host of r without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
