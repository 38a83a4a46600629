package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/class-treasury-api/internal/models"
	"github.com/noah-isme/class-treasury-api/internal/schema"
	appErrors "github.com/noah-isme/class-treasury-api/pkg/errors"
)

type collectionRepo interface {
	List(ctx context.Context, filter models.CollectionFilter) ([]models.Collection, int, error)
	FindByID(ctx context.Context, id string) (*models.Collection, error)
	Create(ctx context.Context, collection *models.Collection) error
	Update(ctx context.Context, collection *models.Collection) error
	Delete(ctx context.Context, id string) error
}

type paymentScrubber interface {
	ScrubAnswers(ctx context.Context, collectionID string, fieldIDs []string) error
}

type valueSetReader interface {
	FindByID(ctx context.Context, id string) (*models.ValueSet, error)
}

// CreateCollectionRequest is the payload for opening a new collection.
type CreateCollectionRequest struct {
	Name               string               `json:"name" validate:"required"`
	TargetAmount       *float64             `json:"target_amount" validate:"omitempty,gte=0"`
	Deadline           *time.Time           `json:"deadline"`
	Notes              string               `json:"notes"`
	CustomFields       []models.CustomField `json:"custom_fields"`
	IncludedStudentIDs []string             `json:"included_student_ids"`
}

// UpdateCollectionRequest edits an existing collection. Force acknowledges a
// destructive schema change that will scrub recorded answers.
type UpdateCollectionRequest struct {
	Name               string               `json:"name" validate:"required"`
	TargetAmount       *float64             `json:"target_amount" validate:"omitempty,gte=0"`
	Deadline           *time.Time           `json:"deadline"`
	Notes              string               `json:"notes"`
	CustomFields       []models.CustomField `json:"custom_fields"`
	IncludedStudentIDs []string             `json:"included_student_ids"`
	Force              bool                 `json:"force"`
}

// CollectionSaveResult carries a saved collection together with what the
// schema normalizer pruned from the submitted field tree.
type CollectionSaveResult struct {
	Collection *models.Collection `json:"collection"`
	Pruned     schema.Report      `json:"pruned,omitempty"`
}

// CollectionService owns the collection lifecycle and every edit of the
// custom-field tree. Field trees are normalized before each save.
type CollectionService struct {
	collections collectionRepo
	payments    paymentScrubber
	valueSets   valueSetReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCollectionService constructs CollectionService.
func NewCollectionService(collections collectionRepo, payments paymentScrubber, valueSets valueSetReader, validate *validator.Validate, logger *zap.Logger) *CollectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollectionService{
		collections: collections,
		payments:    payments,
		valueSets:   valueSets,
		validator:   validate,
		logger:      logger,
	}
}

// List returns collections matching the filter.
func (s *CollectionService) List(ctx context.Context, filter models.CollectionFilter) ([]models.Collection, int, error) {
	collections, total, err := s.collections.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list collections")
	}
	return collections, total, nil
}

// Get loads one collection with payments and remittance attached.
func (s *CollectionService) Get(ctx context.Context, id string) (*models.Collection, error) {
	collection, err := s.collections.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "collection not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load collection")
	}
	return collection, nil
}

// Create opens a new collection. The submitted field tree is normalized and
// anything pruned is reported back to the caller.
func (s *CollectionService) Create(ctx context.Context, req CreateCollectionRequest) (*CollectionSaveResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid collection payload")
	}

	fields, report := schema.Normalize(req.CustomFields)
	if !report.Empty() {
		s.logger.Info("normalizer pruned submitted schema",
			zap.Strings("dropped_fields", report.DroppedFieldIDs),
			zap.Strings("dropped_options", report.DroppedOptionIDs))
	}

	collection := &models.Collection{
		Name:               strings.TrimSpace(req.Name),
		TargetAmount:       req.TargetAmount,
		Deadline:           req.Deadline,
		Notes:              req.Notes,
		CustomFields:       fields,
		IncludedStudentIDs: req.IncludedStudentIDs,
	}
	if err := s.collections.Create(ctx, collection); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create collection")
	}
	return &CollectionSaveResult{Collection: collection, Pruned: report}, nil
}

// Update edits a collection. Removing a field that still has recorded answers
// is destructive: without Force the call fails with a confirmation error, with
// Force the orphaned answers are scrubbed from every payment.
func (s *CollectionService) Update(ctx context.Context, id string, req UpdateCollectionRequest) (*CollectionSaveResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid collection payload")
	}

	collection, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if collection.Status != models.CollectionStatusActive {
		return nil, appErrors.Clone(appErrors.ErrRemitted, "remitted collections cannot be edited")
	}

	fields, report := schema.Normalize(req.CustomFields)
	if !report.Empty() {
		s.logger.Info("normalizer pruned submitted schema",
			zap.String("collection_id", id),
			zap.Strings("dropped_fields", report.DroppedFieldIDs),
			zap.Strings("dropped_options", report.DroppedOptionIDs))
	}

	removed := answeredRemovedFields(collection, fields)
	if len(removed) > 0 {
		if !req.Force {
			return nil, appErrors.Clone(appErrors.ErrConfirmationRequired, "removing answered fields discards recorded answers; retry with force")
		}
		if err := s.payments.ScrubAnswers(ctx, id, removed); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scrub orphaned answers")
		}
		s.logger.Warn("scrubbed answers of removed fields",
			zap.String("collection_id", id),
			zap.Strings("field_ids", removed))
	}

	collection.Name = strings.TrimSpace(req.Name)
	collection.TargetAmount = req.TargetAmount
	collection.Deadline = req.Deadline
	collection.Notes = req.Notes
	collection.CustomFields = fields
	collection.IncludedStudentIDs = req.IncludedStudentIDs

	if err := s.collections.Update(ctx, collection); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "collection not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update collection")
	}
	return &CollectionSaveResult{Collection: collection, Pruned: report}, nil
}

// answeredRemovedFields returns the ids of fields present in the stored
// schema, absent from the incoming one, and answered on at least one payment.
func answeredRemovedFields(collection *models.Collection, incoming []models.CustomField) []string {
	kept := make(map[string]struct{})
	for _, id := range schema.FieldIDs(incoming) {
		kept[id] = struct{}{}
	}

	var removed []string
	for _, id := range schema.FieldIDs(collection.CustomFields) {
		if _, ok := kept[id]; ok {
			continue
		}
		for _, payment := range collection.Payments {
			if strings.TrimSpace(payment.Answers[id]) != "" {
				removed = append(removed, id)
				break
			}
		}
	}
	return removed
}

// Delete removes a collection. Deleting one with recorded payments requires
// the force flag.
func (s *CollectionService) Delete(ctx context.Context, id string, force bool) error {
	collection, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if len(collection.Payments) > 0 && !force {
		return appErrors.Clone(appErrors.ErrConfirmationRequired, "collection has recorded payments; retry with force")
	}
	if err := s.collections.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "collection not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete collection")
	}
	return nil
}

// DuplicateField deep-clones a top-level field of the collection schema,
// minting fresh ids throughout, and inserts the copy right after the original.
func (s *CollectionService) DuplicateField(ctx context.Context, collectionID, fieldID string) (*models.Collection, error) {
	return s.editSchema(ctx, collectionID, func(fields []models.CustomField) ([]models.CustomField, error) {
		for i, field := range fields {
			if field.ID != fieldID {
				continue
			}
			clone := schema.CloneField(field)
			out := make([]models.CustomField, 0, len(fields)+1)
			out = append(out, fields[:i+1]...)
			out = append(out, clone)
			out = append(out, fields[i+1:]...)
			return out, nil
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "field not found")
	})
}

// LinkValueSet snapshots a value set's options onto a field in the schema.
func (s *CollectionService) LinkValueSet(ctx context.Context, collectionID, fieldID, valueSetID string) (*models.Collection, error) {
	set, err := s.valueSets.FindByID(ctx, valueSetID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "value set not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load value set")
	}
	return s.editSchema(ctx, collectionID, func(fields []models.CustomField) ([]models.CustomField, error) {
		return mapField(fields, fieldID, func(field models.CustomField) (models.CustomField, error) {
			if !field.Type.Choice() {
				return field, appErrors.Clone(appErrors.ErrValidation, "text fields cannot link a value set")
			}
			return schema.LinkValueSet(field, *set), nil
		})
	})
}

// UnlinkValueSet detaches a field from its value set. The snapshotted options
// stay on the field and become editable again.
func (s *CollectionService) UnlinkValueSet(ctx context.Context, collectionID, fieldID string) (*models.Collection, error) {
	return s.editSchema(ctx, collectionID, func(fields []models.CustomField) ([]models.CustomField, error) {
		return mapField(fields, fieldID, func(field models.CustomField) (models.CustomField, error) {
			return schema.Unlink(field), nil
		})
	})
}

// AddSubFieldFromValueSet creates a new option field from a value set and
// hangs it under the given option of an existing field.
func (s *CollectionService) AddSubFieldFromValueSet(ctx context.Context, collectionID, fieldID, optionID, valueSetID string) (*models.Collection, error) {
	set, err := s.valueSets.FindByID(ctx, valueSetID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "value set not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load value set")
	}
	return s.editSchema(ctx, collectionID, func(fields []models.CustomField) ([]models.CustomField, error) {
		return mapField(fields, fieldID, func(field models.CustomField) (models.CustomField, error) {
			found := false
			for _, opt := range field.Options {
				if opt.ID == optionID {
					found = true
					break
				}
			}
			if !found {
				return field, appErrors.Clone(appErrors.ErrNotFound, "option not found")
			}
			if field.SubFields == nil {
				field.SubFields = make(map[string][]models.CustomField)
			}
			field.SubFields[optionID] = append(field.SubFields[optionID], schema.SubFieldFromValueSet(*set))
			return field, nil
		})
	})
}

// editSchema loads a collection, applies a transformation to its field tree,
// renormalizes and saves. All schema edits funnel through here so the stored
// tree is always normal-form.
func (s *CollectionService) editSchema(ctx context.Context, collectionID string, edit func([]models.CustomField) ([]models.CustomField, error)) (*models.Collection, error) {
	collection, err := s.Get(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if collection.Status != models.CollectionStatusActive {
		return nil, appErrors.Clone(appErrors.ErrRemitted, "remitted collections cannot be edited")
	}

	edited, err := edit(collection.CustomFields)
	if err != nil {
		return nil, err
	}
	fields, report := schema.Normalize(edited)
	if !report.Empty() {
		s.logger.Info("normalizer pruned schema after edit",
			zap.String("collection_id", collectionID),
			zap.Strings("dropped_fields", report.DroppedFieldIDs),
			zap.Strings("dropped_options", report.DroppedOptionIDs))
	}
	collection.CustomFields = fields

	if err := s.collections.Update(ctx, collection); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save schema")
	}
	return collection, nil
}

// mapField applies a transformation to the field with the given id anywhere
// in the tree. Fails with not-found when the id does not occur.
func mapField(fields []models.CustomField, fieldID string, apply func(models.CustomField) (models.CustomField, error)) ([]models.CustomField, error) {
	out := make([]models.CustomField, len(fields))
	found := false

	var visit func(field models.CustomField) (models.CustomField, error)
	visit = func(field models.CustomField) (models.CustomField, error) {
		if field.ID == fieldID {
			found = true
			return apply(field)
		}
		if len(field.SubFields) == 0 {
			return field, nil
		}
		subFields := make(map[string][]models.CustomField, len(field.SubFields))
		for optionID, branch := range field.SubFields {
			mapped := make([]models.CustomField, len(branch))
			for i, child := range branch {
				visited, err := visit(child)
				if err != nil {
					return field, err
				}
				mapped[i] = visited
			}
			subFields[optionID] = mapped
		}
		field.SubFields = subFields
		return field, nil
	}

	for i, field := range fields {
		visited, err := visit(field)
		if err != nil {
			return nil, err
		}
		out[i] = visited
	}
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "field not found")
	}
	return out, nil
}
