package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/katalog-materi-api/internal/models"
	appErrors "github.com/noah-isme/katalog-materi-api/pkg/errors"
)

type fakeReferenceRepo struct {
	items     []models.ReferenceEntity
	createErr error
	updateErr error
	deleteErr error
	lastName  string
}

func (f *fakeReferenceRepo) List(_ context.Context, _ models.ReferenceKind, _ models.ReferenceFilter) ([]models.ReferenceEntity, error) {
	return f.items, nil
}

func (f *fakeReferenceRepo) FindByID(_ context.Context, _ models.ReferenceKind, id string) (*models.ReferenceEntity, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			return &f.items[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeReferenceRepo) Create(_ context.Context, _ models.ReferenceKind, name string) (*models.ReferenceEntity, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.lastName = name
	return &models.ReferenceEntity{ID: "ref-1", Name: name}, nil
}

func (f *fakeReferenceRepo) Update(_ context.Context, _ models.ReferenceKind, id, name string) (*models.ReferenceEntity, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &models.ReferenceEntity{ID: id, Name: name}, nil
}

func (f *fakeReferenceRepo) Delete(_ context.Context, _ models.ReferenceKind, _ string) error {
	return f.deleteErr
}

func TestReferenceServiceCreateTrimsName(t *testing.T) {
	repo := &fakeReferenceRepo{}
	svc := NewReferenceService(repo, nil, nil)

	entity, err := svc.Create(context.Background(), models.ReferenceBrand, ReferenceRequest{Name: "  IndiHome  "})
	require.NoError(t, err)
	assert.Equal(t, "IndiHome", entity.Name)
	assert.Equal(t, "IndiHome", repo.lastName)
}

func TestReferenceServiceCreateDuplicateName(t *testing.T) {
	repo := &fakeReferenceRepo{createErr: &pq.Error{Code: "23505"}}
	svc := NewReferenceService(repo, nil, nil)

	_, err := svc.Create(context.Background(), models.ReferenceFitur, ReferenceRequest{Name: "Streaming"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestReferenceServiceCreateEmptyName(t *testing.T) {
	svc := NewReferenceService(&fakeReferenceRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), models.ReferenceJenis, ReferenceRequest{Name: ""})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestReferenceServiceUpdateNotFound(t *testing.T) {
	repo := &fakeReferenceRepo{updateErr: sql.ErrNoRows}
	svc := NewReferenceService(repo, nil, nil)

	_, err := svc.Update(context.Background(), models.ReferenceCluster, "missing", ReferenceRequest{Name: "Bali"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestReferenceServiceDeleteStillReferenced(t *testing.T) {
	repo := &fakeReferenceRepo{deleteErr: &pq.Error{Code: "23503"}}
	svc := NewReferenceService(repo, nil, nil)

	err := svc.Delete(context.Background(), models.ReferenceBrand, "brand-1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}
