package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/class-treasury-api/internal/models"
	appErrors "github.com/noah-isme/class-treasury-api/pkg/errors"
)

type remittanceCollectionRepo interface {
	FindByID(ctx context.Context, id string) (*models.Collection, error)
	UpdateStatus(ctx context.Context, id string, status models.CollectionStatus) error
	CreateRemittance(ctx context.Context, remittance *models.Remittance) error
}

// RemitRequest records the hand-over of a collection's funds.
type RemitRequest struct {
	PaidBy     string `json:"paid_by" validate:"required"`
	ReceivedBy string `json:"received_by" validate:"required"`
}

// RemittanceService moves collections through the remit and archive
// lifecycle. A remitted collection freezes its payments.
type RemittanceService struct {
	collections remittanceCollectionRepo
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewRemittanceService constructs RemittanceService.
func NewRemittanceService(collections remittanceCollectionRepo, validate *validator.Validate, logger *zap.Logger) *RemittanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemittanceService{collections: collections, validator: validate, logger: logger}
}

// Remit marks an active collection as handed over. Only active collections
// can be remitted, and the act is not reversible through this service.
func (s *RemittanceService) Remit(ctx context.Context, collectionID string, req RemitRequest) (*models.Remittance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid remittance payload")
	}
	collection, err := s.load(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if collection.Status != models.CollectionStatusActive {
		return nil, appErrors.Clone(appErrors.ErrRemitted, "collection already remitted")
	}

	remittance := &models.Remittance{
		CollectionID: collectionID,
		PaidBy:       req.PaidBy,
		ReceivedBy:   req.ReceivedBy,
		RemittedAt:   time.Now().UTC(),
	}
	if err := s.collections.CreateRemittance(ctx, remittance); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record remittance")
	}
	if err := s.collections.UpdateStatus(ctx, collectionID, models.CollectionStatusRemitted); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update collection status")
	}

	s.logger.Info("collection remitted",
		zap.String("collection_id", collectionID),
		zap.String("paid_by", remittance.PaidBy),
		zap.String("received_by", remittance.ReceivedBy))
	return remittance, nil
}

// Archive moves a remitted collection into long-term storage.
func (s *RemittanceService) Archive(ctx context.Context, collectionID string) error {
	collection, err := s.load(ctx, collectionID)
	if err != nil {
		return err
	}
	if collection.Status != models.CollectionStatusRemitted {
		return appErrors.Clone(appErrors.ErrValidation, "only remitted collections can be archived")
	}
	if err := s.collections.UpdateStatus(ctx, collectionID, models.CollectionStatusArchived); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive collection")
	}
	return nil
}

// Unarchive returns an archived collection to the remitted list. Payments
// stay frozen either way.
func (s *RemittanceService) Unarchive(ctx context.Context, collectionID string) error {
	collection, err := s.load(ctx, collectionID)
	if err != nil {
		return err
	}
	if collection.Status != models.CollectionStatusArchived {
		return appErrors.Clone(appErrors.ErrValidation, "collection is not archived")
	}
	if err := s.collections.UpdateStatus(ctx, collectionID, models.CollectionStatusRemitted); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unarchive collection")
	}
	return nil
}

func (s *RemittanceService) load(ctx context.Context, collectionID string) (*models.Collection, error) {
	collection, err := s.collections.FindByID(ctx, collectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "collection not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load collection")
	}
	return collection, nil
}
