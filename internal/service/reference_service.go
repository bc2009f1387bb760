package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/katalog-materi-api/internal/models"
	appErrors "github.com/noah-isme/katalog-materi-api/pkg/errors"
)

type referenceRepository interface {
	List(ctx context.Context, kind models.ReferenceKind, filter models.ReferenceFilter) ([]models.ReferenceEntity, error)
	FindByID(ctx context.Context, kind models.ReferenceKind, id string) (*models.ReferenceEntity, error)
	Create(ctx context.Context, kind models.ReferenceKind, name string) (*models.ReferenceEntity, error)
	Update(ctx context.Context, kind models.ReferenceKind, id, name string) (*models.ReferenceEntity, error)
	Delete(ctx context.Context, kind models.ReferenceKind, id string) error
}

// ReferenceRequest is the payload for creating or renaming a reference entity.
type ReferenceRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
}

// ReferenceService provides CRUD over brand, cluster, fitur, and jenis.
type ReferenceService struct {
	repo      referenceRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReferenceService constructs a ReferenceService.
func NewReferenceService(repo referenceRepository, validate *validator.Validate, logger *zap.Logger) *ReferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReferenceService{repo: repo, validator: validate, logger: logger}
}

// List returns reference entities of the given kind, name-ordered.
func (s *ReferenceService) List(ctx context.Context, kind models.ReferenceKind, filter models.ReferenceFilter) ([]models.ReferenceEntity, error) {
	items, err := s.repo.List(ctx, kind, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list "+string(kind))
	}
	return items, nil
}

// Get returns one reference entity.
func (s *ReferenceService) Get(ctx context.Context, kind models.ReferenceKind, id string) (*models.ReferenceEntity, error) {
	entity, err := s.repo.FindByID(ctx, kind, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, string(kind)+" not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+string(kind))
	}
	return entity, nil
}

// Create inserts a new reference entity. Duplicate names map to a conflict.
func (s *ReferenceService) Create(ctx context.Context, kind models.ReferenceKind, req ReferenceRequest) (*models.ReferenceEntity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid "+string(kind)+" payload")
	}

	entity, err := s.repo.Create(ctx, kind, strings.TrimSpace(req.Name))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, string(kind)+" name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create "+string(kind))
	}
	return entity, nil
}

// Update renames a reference entity.
func (s *ReferenceService) Update(ctx context.Context, kind models.ReferenceKind, id string, req ReferenceRequest) (*models.ReferenceEntity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid "+string(kind)+" payload")
	}

	entity, err := s.repo.Update(ctx, kind, id, strings.TrimSpace(req.Name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, string(kind)+" not found")
		}
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, string(kind)+" name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update "+string(kind))
	}
	return entity, nil
}

// Delete removes a reference entity. Deleting one still referenced by a
// materi is a conflict, not a cascade.
func (s *ReferenceService) Delete(ctx context.Context, kind models.ReferenceKind, id string) error {
	if err := s.repo.Delete(ctx, kind, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, string(kind)+" not found")
		}
		if isForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, string(kind)+" is still referenced by materi")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete "+string(kind))
	}
	return nil
}
