package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/turtacn/credence/internal/domain/models"
	"github.com/turtacn/credence/internal/domain/repository"
	"github.com/turtacn/credence/pkg/logger"
)

// AccountRepoImpl implements AccountRepository interface using gorm.
type AccountRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewAccountRepository creates a new gorm-based account repository instance.
func NewAccountRepository(db *gorm.DB, log logger.Logger) repository.AccountRepository {
	return &AccountRepoImpl{
		db:     db,
		logger: log.WithComponent("AccountRepository"),
	}
}

// Create persists a new account.
func (r *AccountRepoImpl) Create(ctx context.Context, account *models.Account) error {
	startTime := time.Now()
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}

	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		mapped := mapDBError(err, "account")
		if isUniqueViolation(err) {
			r.logger.Info(ctx, "Account already exists", logger.String("username", account.Username))
		} else {
			r.logger.Error(ctx, "Failed to create account", err, logger.String("username", account.Username))
		}
		return mapped
	}

	r.logger.Info(ctx, "Account created successfully",
		logger.String("account_id", account.ID.String()),
		logger.String("username", account.Username),
		logger.Int64("latency_ms", time.Since(startTime).Milliseconds()),
	)
	return nil
}

// FindByID retrieves an account by its unique identifier.
func (r *AccountRepoImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			r.logger.Debug(ctx, "Account not found", logger.String("account_id", id.String()))
		} else {
			r.logger.Error(ctx, "Failed to retrieve account by ID", err, logger.String("account_id", id.String()))
		}
		return nil, mapDBError(err, "account")
	}
	return &account, nil
}

// FindByUsername retrieves an account by exact username.
func (r *AccountRepoImpl) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, mapDBError(gorm.ErrRecordNotFound, "account")
	}

	var account models.Account
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&account).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			r.logger.Error(ctx, "Failed to retrieve account by username", err)
		}
		return nil, mapDBError(err, "account")
	}
	return &account, nil
}
