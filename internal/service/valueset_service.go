package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/class-treasury-api/internal/models"
	appErrors "github.com/noah-isme/class-treasury-api/pkg/errors"
)

type valueSetRepo interface {
	List(ctx context.Context) ([]models.ValueSet, error)
	FindByID(ctx context.Context, id string) (*models.ValueSet, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, set *models.ValueSet) error
	Update(ctx context.Context, set *models.ValueSet) error
	Delete(ctx context.Context, id string) error
}

// ValueSetOptionRequest is a single option of a value-set payload.
type ValueSetOptionRequest struct {
	ID     string   `json:"id"`
	Value  string   `json:"value" validate:"required"`
	Amount *float64 `json:"amount" validate:"omitempty,gte=0"`
}

// ValueSetRequest creates or replaces a value set.
type ValueSetRequest struct {
	Name    string                  `json:"name" validate:"required"`
	Options []ValueSetOptionRequest `json:"options" validate:"required,min=1,dive"`
}

// ValueSetService manages reusable option lists. Names are unique
// case-insensitively; edits never propagate to fields that snapshotted the
// set earlier.
type ValueSetService struct {
	valueSets valueSetRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewValueSetService constructs ValueSetService.
func NewValueSetService(valueSets valueSetRepo, validate *validator.Validate, logger *zap.Logger) *ValueSetService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ValueSetService{valueSets: valueSets, validator: validate, logger: logger}
}

// List returns all value sets, sorted by name.
func (s *ValueSetService) List(ctx context.Context) ([]models.ValueSet, error) {
	sets, err := s.valueSets.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list value sets")
	}
	return sets, nil
}

// Get returns one value set.
func (s *ValueSetService) Get(ctx context.Context, id string) (*models.ValueSet, error) {
	set, err := s.valueSets.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "value set not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load value set")
	}
	return set, nil
}

// Create adds a value set.
func (s *ValueSetService) Create(ctx context.Context, req ValueSetRequest) (*models.ValueSet, error) {
	set, err := s.buildSet(ctx, req, "")
	if err != nil {
		return nil, err
	}
	if err := s.valueSets.Create(ctx, set); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create value set")
	}
	return set, nil
}

// Update replaces a value set's name and options. Fields that already
// snapshotted this set keep their copies untouched.
func (s *ValueSetService) Update(ctx context.Context, id string, req ValueSetRequest) (*models.ValueSet, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	set, err := s.buildSet(ctx, req, id)
	if err != nil {
		return nil, err
	}
	set.ID = id
	if err := s.valueSets.Update(ctx, set); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "value set not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update value set")
	}
	return set, nil
}

// Delete removes a value set. Linked fields keep their snapshotted options
// with a dangling set reference.
func (s *ValueSetService) Delete(ctx context.Context, id string) error {
	if err := s.valueSets.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "value set not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete value set")
	}
	return nil
}

func (s *ValueSetService) buildSet(ctx context.Context, req ValueSetRequest, excludeID string) (*models.ValueSet, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid value set payload")
	}
	name := strings.TrimSpace(req.Name)
	taken, err := s.valueSets.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check value set name")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "value set name already in use")
	}

	seen := make(map[string]struct{}, len(req.Options))
	options := make([]models.FieldOption, 0, len(req.Options))
	for _, opt := range req.Options {
		value := strings.TrimSpace(opt.Value)
		if value == "" {
			continue
		}
		key := strings.ToLower(value)
		if _, dup := seen[key]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate option value: "+value)
		}
		seen[key] = struct{}{}

		id := opt.ID
		if id == "" {
			id = uuid.NewString()
		}
		options = append(options, models.FieldOption{ID: id, Value: value, Amount: opt.Amount})
	}
	if len(options) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "value set needs at least one option")
	}
	return &models.ValueSet{Name: name, Options: options}, nil
}
