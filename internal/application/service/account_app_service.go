package service

import (
	"context"

	"github.com/turtacn/credence/internal/application/dto"
	"github.com/turtacn/credence/internal/domain/models"
	"github.com/turtacn/credence/internal/domain/repository"
	domainService "github.com/turtacn/credence/internal/domain/service"
	"github.com/turtacn/credence/internal/infrastructure/crypto"
	"github.com/turtacn/credence/pkg/constants"
	"github.com/turtacn/credence/pkg/errors"
	"github.com/turtacn/credence/pkg/logger"
)

// AccountAppService creates and reads accounts.
type AccountAppService interface {
	// Create digests the password and stores a new account.
	Create(ctx context.Context, req *dto.CreateAccountRequest, client dto.ClientInfo) (*dto.AccountResponse, error)

	// GetByUsername returns username's account. Accounts may only read themselves.
	GetByUsername(ctx context.Context, requester *models.Account, username string) (*dto.AccountResponse, error)
}

type accountAppServiceImpl struct {
	accounts     repository.AccountRepository
	auditService domainService.AuditService
	params       crypto.DigestParams
	logger       logger.Logger
}

// NewAccountAppService creates a new AccountAppService. auditService may be nil.
func NewAccountAppService(accounts repository.AccountRepository, auditService domainService.AuditService, params crypto.DigestParams, log logger.Logger) AccountAppService {
	return &accountAppServiceImpl{
		accounts:     accounts,
		auditService: auditService,
		params:       params,
		logger:       log.WithComponent("AccountAppService"),
	}
}

func (s *accountAppServiceImpl) Create(ctx context.Context, req *dto.CreateAccountRequest, client dto.ClientInfo) (*dto.AccountResponse, error) {
	if req == nil {
		return nil, errors.ErrInvalidRequest
	}

	digest, err := crypto.NewDigestWithParams(req.Password, s.params)
	if err != nil {
		s.logger.Error(ctx, "Failed to digest password", err)
		return nil, errors.ErrInternal("failed to digest password", err)
	}

	account := models.NewAccount(req.Username, req.Email, digest.String())
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, errors.ErrConflict) {
			s.logger.Info(ctx, "Account already exists")
		} else {
			s.logger.Error(ctx, "Failed to create account", err)
		}
		return nil, err
	}

	if s.auditService != nil {
		event := models.NewAuditEvent(constants.EventTypeAccountCreated, constants.AuditResultSuccess).
			WithAccount(account.ID, account.Username).
			WithContextInfo(client.IPAddress, client.UserAgent, client.TraceID)
		if err := s.auditService.LogEvent(ctx, event); err != nil {
			s.logger.Warn(ctx, "Failed to record audit event", logger.Error(err))
		}
	}

	s.logger.Info(ctx, "Account created", logger.String("account_id", account.ID.String()))
	return dto.NewAccountResponse(account), nil
}

func (s *accountAppServiceImpl) GetByUsername(ctx context.Context, requester *models.Account, username string) (*dto.AccountResponse, error) {
	if requester == nil {
		return nil, errors.ErrInvalidToken
	}
	if requester.Username != username {
		return nil, errors.ErrForbidden.WithMessage("accounts may only read themselves")
	}
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return dto.NewAccountResponse(account), nil
}
