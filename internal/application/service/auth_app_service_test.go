package service

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/credence/internal/application/dto"
	"github.com/turtacn/credence/internal/domain/models"
	"github.com/turtacn/credence/internal/domain/service/mocks"
	"github.com/turtacn/credence/internal/infrastructure/crypto"
	"github.com/turtacn/credence/pkg/constants"
	"github.com/turtacn/credence/pkg/errors"
	"github.com/turtacn/credence/pkg/logger"
)

// testParams keeps argon2id cheap in tests.
var testParams = crypto.DigestParams{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

var testClient = dto.ClientInfo{IPAddress: "10.0.0.1", UserAgent: "go-test"}

func newTestTokenManager(t *testing.T) *crypto.TokenManager {
	t.Helper()
	secret, err := crypto.GenerateKeySecret()
	require.NoError(t, err)
	ks, err := crypto.NewKeyStore(crypto.WithTokenKey(secret))
	require.NoError(t, err)
	tm, err := crypto.NewTokenManager(ks)
	require.NoError(t, err)
	return tm
}

func newTestAccount(t *testing.T, username, password string) *models.Account {
	t.Helper()
	digest, err := crypto.NewDigestWithParams(password, testParams)
	require.NoError(t, err)
	return models.NewAccount(username, username+"@example.com", digest.String())
}

type authFixture struct {
	accounts *mocks.MockAccountRepository
	limiter  *mocks.MockRateLimitService
	audit    *mocks.MockAuditService
	metrics  *mocks.MockMetrics
	tokens   *crypto.TokenManager
	svc      AuthAppService
}

func newAuthFixture(t *testing.T) *authFixture {
	f := &authFixture{
		accounts: new(mocks.MockAccountRepository),
		limiter:  new(mocks.MockRateLimitService),
		audit:    new(mocks.MockAuditService),
		metrics:  new(mocks.MockMetrics),
		tokens:   newTestTokenManager(t),
	}
	f.svc = NewAuthAppService(f.accounts, f.tokens, f.limiter, f.audit, f.metrics, testParams, logger.NewNoopLogger())
	return f
}

func auditOf(eventType constants.AuditEventType, result constants.AuditEventResult) interface{} {
	return mock.MatchedBy(func(e *models.AuditEvent) bool {
		return e.EventType == eventType && e.Result == result
	})
}

func TestAuthAppService_Authenticate_Success(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	alice := newTestAccount(t, "alice", "correct horse")

	f.limiter.On("Allow", mock.Anything, constants.RateLimitScopeLogin, "10.0.0.1").Return(true, 9, time.Now().Add(time.Minute), nil)
	f.limiter.On("Reset", mock.Anything, constants.RateLimitScopeLogin, "10.0.0.1").Return(nil)
	f.accounts.On("FindByUsername", mock.Anything, "alice").Return(alice, nil)
	f.audit.On("LogEvent", mock.Anything, auditOf(constants.EventTypeAuthentication, constants.AuditResultSuccess)).Return(nil)
	f.metrics.On("RecordAuthentication", resultSuccess, mock.Anything).Return()

	got, err := f.svc.Authenticate(ctx, "alice", "correct horse", testClient)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Account.Username)
	assert.NotEmpty(t, got.AuthToken)

	claims, err := f.tokens.Validate(got.AuthToken)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, claims.AccountID)

	f.accounts.AssertExpectations(t)
	f.limiter.AssertExpectations(t)
	f.audit.AssertExpectations(t)
	f.metrics.AssertExpectations(t)
}

func TestAuthAppService_Authenticate_Rejections(t *testing.T) {
	alice := newTestAccount(t, "alice", "correct horse")

	tests := []struct {
		name     string
		username string
		password string
		lookup   func(f *authFixture)
	}{
		{
			name:     "wrong password",
			username: "alice",
			password: "wrong",
			lookup: func(f *authFixture) {
				f.accounts.On("FindByUsername", mock.Anything, "alice").Return(alice, nil)
			},
		},
		{
			name:     "unknown username",
			username: "mallory",
			password: "correct horse",
			lookup: func(f *authFixture) {
				f.accounts.On("FindByUsername", mock.Anything, "mallory").Return(nil, errors.ErrResourceNotFound("account"))
			},
		},
		{
			name:     "empty password",
			username: "alice",
			password: "",
			lookup: func(f *authFixture) {
				f.accounts.On("FindByUsername", mock.Anything, "alice").Return(alice, nil)
			},
		},
	}

	var bodies []interface{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			f.limiter.On("Allow", mock.Anything, constants.RateLimitScopeLogin, "10.0.0.1").Return(true, 5, time.Now(), nil)
			f.audit.On("LogEvent", mock.Anything, auditOf(constants.EventTypeAuthentication, constants.AuditResultFailure)).Return(nil)
			f.metrics.On("RecordAuthentication", resultFailure, mock.Anything).Return()
			tt.lookup(f)

			got, err := f.svc.Authenticate(context.Background(), tt.username, tt.password, testClient)
			assert.Nil(t, got)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrAuthenticationFailed))

			status, body := errors.ToErrorResponse(err)
			assert.Equal(t, 401, status)
			bodies = append(bodies, *body)

			f.limiter.AssertNotCalled(t, "Reset", mock.Anything, mock.Anything, mock.Anything)
			f.audit.AssertExpectations(t)
		})
	}

	// Unknown usernames and wrong passwords are indistinguishable to clients.
	for _, b := range bodies[1:] {
		assert.Equal(t, bodies[0], b)
	}
}

func TestAuthAppService_Authenticate_RateLimited(t *testing.T) {
	f := newAuthFixture(t)
	f.limiter.On("Allow", mock.Anything, constants.RateLimitScopeLogin, "10.0.0.1").Return(false, 0, time.Now().Add(30*time.Second), nil)
	f.audit.On("LogEvent", mock.Anything, auditOf(constants.EventTypeRateLimitExceeded, constants.AuditResultFailure)).Return(nil)
	f.metrics.On("RecordRateLimitHit", constants.RateLimitScopeLogin).Return()
	f.metrics.On("RecordAuthentication", resultRateLimited, mock.Anything).Return()

	_, err := f.svc.Authenticate(context.Background(), "alice", "correct horse", testClient)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRateLimitExceeded))
	f.accounts.AssertNotCalled(t, "FindByUsername", mock.Anything, mock.Anything)
}

func TestAuthAppService_Authenticate_LimiterFailureLetsAttemptThrough(t *testing.T) {
	f := newAuthFixture(t)
	alice := newTestAccount(t, "alice", "correct horse")
	f.limiter.On("Allow", mock.Anything, constants.RateLimitScopeLogin, "10.0.0.1").Return(false, 0, time.Time{}, stderrors.New("redis down"))
	f.limiter.On("Reset", mock.Anything, constants.RateLimitScopeLogin, "10.0.0.1").Return(stderrors.New("redis down"))
	f.accounts.On("FindByUsername", mock.Anything, "alice").Return(alice, nil)
	f.audit.On("LogEvent", mock.Anything, mock.Anything).Return(nil)
	f.metrics.On("RecordAuthentication", resultSuccess, mock.Anything).Return()

	got, err := f.svc.Authenticate(context.Background(), "alice", "correct horse", testClient)
	require.NoError(t, err)
	assert.NotEmpty(t, got.AuthToken)
}

func TestAuthAppService_Authenticate_Faults(t *testing.T) {
	t.Run("repository failure is internal", func(t *testing.T) {
		f := newAuthFixture(t)
		f.limiter.On("Allow", mock.Anything, mock.Anything, mock.Anything).Return(true, 5, time.Now(), nil)
		f.accounts.On("FindByUsername", mock.Anything, "alice").Return(nil, stderrors.New("connection reset"))
		f.metrics.On("RecordAuthentication", resultError, mock.Anything).Return()

		_, err := f.svc.Authenticate(context.Background(), "alice", "pw", testClient)
		status, _ := errors.ToErrorResponse(err)
		assert.Equal(t, 500, status)
	})

	t.Run("malformed stored digest is an integrity fault", func(t *testing.T) {
		f := newAuthFixture(t)
		broken := models.NewAccount("alice", "alice@example.com", "plaintext-password")
		f.limiter.On("Allow", mock.Anything, mock.Anything, mock.Anything).Return(true, 5, time.Now(), nil)
		f.accounts.On("FindByUsername", mock.Anything, "alice").Return(broken, nil)
		f.audit.On("LogEvent", mock.Anything, mock.Anything).Return(nil)
		f.metrics.On("RecordAuthentication", resultError, mock.Anything).Return()

		_, err := f.svc.Authenticate(context.Background(), "alice", "plaintext-password", testClient)
		assert.True(t, errors.Is(err, errors.ErrInvalidDigest))
	})

	t.Run("audit failure does not change the outcome", func(t *testing.T) {
		f := newAuthFixture(t)
		alice := newTestAccount(t, "alice", "correct horse")
		f.limiter.On("Allow", mock.Anything, mock.Anything, mock.Anything).Return(true, 5, time.Now(), nil)
		f.limiter.On("Reset", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.accounts.On("FindByUsername", mock.Anything, "alice").Return(alice, nil)
		f.audit.On("LogEvent", mock.Anything, mock.Anything).Return(stderrors.New("kafka down"))
		f.metrics.On("RecordAuthentication", resultSuccess, mock.Anything).Return()

		_, err := f.svc.Authenticate(context.Background(), "alice", "correct horse", testClient)
		assert.NoError(t, err)
	})
}

func TestAuthAppService_OptionalCollaborators(t *testing.T) {
	accounts := new(mocks.MockAccountRepository)
	alice := newTestAccount(t, "alice", "correct horse")
	accounts.On("FindByUsername", mock.Anything, "alice").Return(alice, nil)

	svc := NewAuthAppService(accounts, newTestTokenManager(t), nil, nil, nil, testParams, logger.NewNoopLogger())
	got, err := svc.Authenticate(context.Background(), "alice", "correct horse", dto.ClientInfo{})
	require.NoError(t, err)
	assert.NotEmpty(t, got.AuthToken)
}

func TestRateLimitIdentifier(t *testing.T) {
	assert.Equal(t, "10.0.0.1", rateLimitIdentifier("alice", dto.ClientInfo{IPAddress: "10.0.0.1"}))
	assert.Equal(t, "user:alice", rateLimitIdentifier("alice", dto.ClientInfo{}))
}

func TestAuthAppService_FailureLogsHideCause(t *testing.T) {
	alice := newTestAccount(t, "alice", "correct-horse")
	accounts := new(mocks.MockAccountRepository)
	accounts.On("FindByUsername", mock.Anything, "alice").Return(alice, nil)
	accounts.On("FindByUsername", mock.Anything, "bob").Return(nil, errors.ErrResourceNotFound("account"))

	log := mocks.NewRecordingLogger()
	svc := NewAuthAppService(accounts, newTestTokenManager(t), nil, nil, nil, testParams, log)

	attempt := func(username, password string) ([]string, error) {
		log.Reset()
		_, err := svc.Authenticate(context.Background(), username, password, testClient)
		require.Error(t, err)
		return log.Lines(constants.LogLevelInfo), err
	}

	wrongLines, wrongErr := attempt("alice", "wrong")
	unknownLines, unknownErr := attempt("bob", "anything")

	require.NotEmpty(t, wrongLines)
	assert.Equal(t, wrongLines, unknownLines)
	assert.Equal(t, wrongErr.Error(), unknownErr.Error())
	for _, line := range append(wrongLines, unknownLines...) {
		assert.NotContains(t, line, "wrong_password")
		assert.NotContains(t, line, "unknown_account")
	}

	// The reason stays available at debug level.
	assert.Contains(t, log.Lines(constants.LogLevelDebug), "DEBUG Authentication failure reason component=AuthAppService reason=unknown_account")
}

func TestNewAuthAppService_PreparesUnknownAccountDigest(t *testing.T) {
	svc := NewAuthAppService(new(mocks.MockAccountRepository), newTestTokenManager(t), nil, nil, nil, testParams, logger.NewNoopLogger())

	impl, ok := svc.(*authAppServiceImpl)
	require.True(t, ok)
	require.NotNil(t, impl.dummyDigest)
	assert.Equal(t, crypto.AlgorithmArgon2id, impl.dummyDigest.Algorithm())
	assert.Equal(t, testParams.Memory, impl.dummyDigest.Params().Memory)
	assert.Equal(t, testParams.Iterations, impl.dummyDigest.Params().Iterations)
}
