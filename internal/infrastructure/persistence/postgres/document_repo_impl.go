package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/turtacn/credence/internal/domain/models"
	"github.com/turtacn/credence/internal/domain/repository"
	"github.com/turtacn/credence/internal/domain/service"
	"github.com/turtacn/credence/pkg/logger"
)

// FieldCipher encrypts single column values. *crypto.FieldCipher satisfies it.
type FieldCipher interface {
	EncryptOptional(plaintext string) (string, error)
	DecryptOptional(stored string) (string, error)
}

// documentRecord is the stored row of a Document. The *_secure columns hold
// FieldCipher output, never plaintext.
type documentRecord struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProjectID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_documents_project_path"`
	RelativePath      string    `gorm:"not null;default:'';uniqueIndex:idx_documents_project_path"`
	Filename          string    `gorm:"not null;uniqueIndex:idx_documents_project_path"`
	DescriptionSecure string    `gorm:"column:description_secure"`
	ContentSecure     string    `gorm:"column:content_secure"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (documentRecord) TableName() string {
	return "documents"
}

// DocumentRepoImpl implements DocumentRepository with field encryption.
type DocumentRepoImpl struct {
	db      *gorm.DB
	cipher  FieldCipher
	metrics service.Metrics
	logger  logger.Logger
}

func NewDocumentRepository(db *gorm.DB, cipher FieldCipher, metrics service.Metrics, log logger.Logger) repository.DocumentRepository {
	if metrics == nil {
		metrics = service.NewNoopMetrics()
	}
	return &DocumentRepoImpl{
		db:      db,
		cipher:  cipher,
		metrics: metrics,
		logger:  log.WithComponent("DocumentRepository"),
	}
}

func (r *DocumentRepoImpl) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	rec, err := r.toRecord(doc)
	if err != nil {
		r.metrics.RecordFieldCipherFailure("encrypt")
		r.logger.Error(ctx, "Failed to encrypt document fields", err, logger.String("document_id", doc.ID.String()))
		return err
	}

	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if !isUniqueViolation(err) {
			r.logger.Error(ctx, "Failed to create document", err, logger.String("project_id", doc.ProjectID.String()))
		}
		return mapDBError(err, "document")
	}
	doc.CreatedAt = rec.CreatedAt
	doc.UpdatedAt = rec.UpdatedAt

	r.logger.Info(ctx, "Document created successfully",
		logger.String("document_id", doc.ID.String()),
		logger.String("project_id", doc.ProjectID.String()),
	)
	return nil
}

func (r *DocumentRepoImpl) FindByID(ctx context.Context, projectID, docID uuid.UUID) (*models.Document, error) {
	var rec documentRecord
	err := r.db.WithContext(ctx).
		Where("id = ? AND project_id = ?", docID, projectID).
		First(&rec).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			r.logger.Error(ctx, "Failed to retrieve document", err, logger.String("document_id", docID.String()))
		}
		return nil, mapDBError(err, "document")
	}
	return r.fromRecord(ctx, &rec)
}

func (r *DocumentRepoImpl) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Document, error) {
	var recs []documentRecord
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&recs).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to list documents", err, logger.String("project_id", projectID.String()))
		return nil, mapDBError(err, "document")
	}

	docs := make([]*models.Document, 0, len(recs))
	for i := range recs {
		doc, err := r.fromRecord(ctx, &recs[i])
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r *DocumentRepoImpl) toRecord(doc *models.Document) (*documentRecord, error) {
	description, err := r.cipher.EncryptOptional(doc.Description)
	if err != nil {
		return nil, err
	}
	content, err := r.cipher.EncryptOptional(doc.Content)
	if err != nil {
		return nil, err
	}
	return &documentRecord{
		ID:                doc.ID,
		ProjectID:         doc.ProjectID,
		RelativePath:      doc.RelativePath,
		Filename:          doc.Filename,
		DescriptionSecure: description,
		ContentSecure:     content,
		CreatedAt:         doc.CreatedAt,
		UpdatedAt:         doc.UpdatedAt,
	}, nil
}

// fromRecord decrypts a row. A field that fails authentication fails the
// whole read.
func (r *DocumentRepoImpl) fromRecord(ctx context.Context, rec *documentRecord) (*models.Document, error) {
	description, err := r.cipher.DecryptOptional(rec.DescriptionSecure)
	if err != nil {
		return nil, r.decryptFailed(ctx, rec, "description", err)
	}
	content, err := r.cipher.DecryptOptional(rec.ContentSecure)
	if err != nil {
		return nil, r.decryptFailed(ctx, rec, "content", err)
	}
	return &models.Document{
		ID:           rec.ID,
		ProjectID:    rec.ProjectID,
		Filename:     rec.Filename,
		RelativePath: rec.RelativePath,
		Description:  description,
		Content:      content,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

func (r *DocumentRepoImpl) decryptFailed(ctx context.Context, rec *documentRecord, field string, err error) error {
	r.metrics.RecordFieldCipherFailure("decrypt")
	r.logger.Warn(ctx, "Encrypted document field failed integrity check",
		logger.String("document_id", rec.ID.String()),
		logger.String("field", field),
		logger.Error(err),
	)
	return err
}
