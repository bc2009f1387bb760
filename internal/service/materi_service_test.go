package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/katalog-materi-api/internal/models"
	appErrors "github.com/noah-isme/katalog-materi-api/pkg/errors"
)

type fakeMateriRepo struct {
	details    []models.MateriDetail
	total      int
	created    *models.Materi
	createdDok []models.DokumenDetail
	updateErr  error
	deleteErr  error
	findErr    error
	lastFilter models.MateriFilter
}

func (f *fakeMateriRepo) List(_ context.Context, filter models.MateriFilter, _ bool) ([]models.MateriDetail, int, error) {
	f.lastFilter = filter
	return f.details, f.total, nil
}

func (f *fakeMateriRepo) ListAll(_ context.Context, _ models.MateriFilter, _ bool, _ int) ([]models.MateriDetail, error) {
	return f.details, nil
}

func (f *fakeMateriRepo) FindByID(_ context.Context, id string) (*models.MateriDetail, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if len(f.details) > 0 {
		return &f.details[0], nil
	}
	return &models.MateriDetail{Materi: models.Materi{ID: id}}, nil
}

func (f *fakeMateriRepo) Create(_ context.Context, materi *models.Materi, dokumen []models.DokumenDetail) error {
	materi.ID = "materi-new"
	f.created = materi
	f.createdDok = dokumen
	return nil
}

func (f *fakeMateriRepo) Update(_ context.Context, materi *models.Materi, _ []models.DokumenDetail) error {
	return f.updateErr
}

func (f *fakeMateriRepo) Delete(_ context.Context, _ string) error {
	return f.deleteErr
}

type fakeResolver struct {
	known map[string]string // "kind/name" -> id
}

func (f *fakeResolver) FindByName(_ context.Context, kind models.ReferenceKind, name string) (*models.ReferenceEntity, error) {
	id, ok := f.known[string(kind)+"/"+name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.ReferenceEntity{ID: id, Name: name}, nil
}

type fakeAudit struct {
	entries []models.AuditLog
}

func (f *fakeAudit) CreateAuditLog(_ context.Context, entry *models.AuditLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}

type fakeNotifier struct {
	signals int
}

func (f *fakeNotifier) MutationObserved() { f.signals++ }

func defaultResolver() *fakeResolver {
	return &fakeResolver{known: map[string]string{
		"brand/IndiHome":      "brand-1",
		"cluster/Jabodetabek": "cluster-1",
		"fitur/Streaming":     "fitur-1",
		"jenis/Digital":       "jenis-1",
	}}
}

func validRequest() MateriRequest {
	return MateriRequest{
		NamaMateri: "Promo September",
		Brand:      "IndiHome",
		Cluster:    "Jabodetabek",
		Fitur:      "Streaming",
		StartDate:  "2026-09-01",
		EndDate:    "2026-09-30",
		Periode:    "September 2026",
		Dokumen: []DokumenRequest{{
			LinkDokumen: "https://drive.example/doc",
			TipeMateri:  "Key Visual",
			Keywords:    []string{"promo", "internet"},
		}},
	}
}

func TestMateriServiceListRedactsExpiredForGuest(t *testing.T) {
	repo := &fakeMateriRepo{
		details: []models.MateriDetail{{
			Materi: models.Materi{ID: "materi-1", EndDate: time.Now().AddDate(0, -1, 0)},
			Dokumen: []models.DokumenDetail{{
				DokumenMateri: models.DokumenMateri{LinkDokumen: "https://drive.example/doc"},
			}},
		}},
		total: 25,
	}
	svc := NewMateriService(repo, defaultResolver(), &fakeAudit{}, nil, nil, 0, nil, nil)

	details, pagination, err := svc.List(context.Background(), models.MateriFilter{Page: 2, PageSize: 10}, models.RoleGuest)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Empty(t, details[0].Dokumen[0].LinkDokumen)
	assert.Equal(t, 25, pagination.TotalCount)
	assert.Equal(t, 3, pagination.TotalPages)
}

func TestMateriServiceListClampsOversizedLimit(t *testing.T) {
	repo := &fakeMateriRepo{total: 250}
	svc := NewMateriService(repo, defaultResolver(), &fakeAudit{}, nil, nil, 0, nil, nil)

	_, pagination, err := svc.List(context.Background(), models.MateriFilter{Page: 2, PageSize: 200}, models.RoleAdmin)
	require.NoError(t, err)

	// The repository and the pagination metadata must agree on the effective
	// page size, otherwise pages past the clamp become unreachable.
	assert.Equal(t, 100, repo.lastFilter.PageSize)
	assert.Equal(t, 100, pagination.PageSize)
	assert.Equal(t, 3, pagination.TotalPages)
	assert.Equal(t, 250, pagination.TotalCount)
}

func TestMateriServiceCreateResolvesReferences(t *testing.T) {
	repo := &fakeMateriRepo{}
	audit := &fakeAudit{}
	notifier := &fakeNotifier{}
	svc := NewMateriService(repo, defaultResolver(), audit, nil, notifier, 0, nil, nil)

	_, err := svc.Create(context.Background(), "user-1", models.RoleAdmin, validRequest())
	require.NoError(t, err)

	require.NotNil(t, repo.created)
	assert.Equal(t, "brand-1", repo.created.BrandID)
	assert.Equal(t, "cluster-1", repo.created.ClusterID)
	require.NotNil(t, repo.created.FiturID)
	assert.Equal(t, "fitur-1", *repo.created.FiturID)
	assert.Nil(t, repo.created.JenisID)
	assert.Equal(t, "user-1", repo.created.UserID)
	require.Len(t, repo.createdDok, 1)
	assert.Equal(t, []string{"promo", "internet"}, repo.createdDok[0].Keywords)

	assert.Equal(t, 1, notifier.signals)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionMateriCreate, audit.entries[0].Action)
}

func TestMateriServiceCreateUnknownBrand(t *testing.T) {
	svc := NewMateriService(&fakeMateriRepo{}, defaultResolver(), &fakeAudit{}, nil, nil, 0, nil, nil)

	req := validRequest()
	req.Brand = "Nonexistent"
	_, err := svc.Create(context.Background(), "user-1", models.RoleAdmin, req)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestMateriServiceCreateRejectsInvertedDates(t *testing.T) {
	svc := NewMateriService(&fakeMateriRepo{}, defaultResolver(), &fakeAudit{}, nil, nil, 0, nil, nil)

	req := validRequest()
	req.StartDate = "2026-09-30"
	req.EndDate = "2026-09-01"
	_, err := svc.Create(context.Background(), "user-1", models.RoleAdmin, req)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestMateriServiceUpdateNotFound(t *testing.T) {
	repo := &fakeMateriRepo{updateErr: sql.ErrNoRows}
	notifier := &fakeNotifier{}
	svc := NewMateriService(repo, defaultResolver(), &fakeAudit{}, nil, notifier, 0, nil, nil)

	_, err := svc.Update(context.Background(), "user-1", models.RoleAdmin, "missing", validRequest())

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Zero(t, notifier.signals, "failed mutation must not signal the bridge")
}

func expiredDetailRepo() *fakeMateriRepo {
	return &fakeMateriRepo{details: []models.MateriDetail{{
		Materi: models.Materi{ID: "materi-new", EndDate: time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)},
		Dokumen: []models.DokumenDetail{{
			DokumenMateri: models.DokumenMateri{LinkDokumen: "https://drive.example/doc"},
		}},
	}}}
}

func expiredRequest() MateriRequest {
	req := validRequest()
	req.StartDate = "2020-01-01"
	req.EndDate = "2020-02-01"
	return req
}

func TestMateriServiceCreateResponseRedactedLikeRead(t *testing.T) {
	repo := expiredDetailRepo()
	svc := NewMateriService(repo, defaultResolver(), &fakeAudit{}, nil, nil, 0, nil, nil)

	detail, err := svc.Create(context.Background(), "user-1", models.RoleAdmin, expiredRequest())
	require.NoError(t, err)
	require.Len(t, detail.Dokumen, 1)
	assert.Empty(t, detail.Dokumen[0].LinkDokumen,
		"mutation response must redact links the same way a subsequent read would")
}

func TestMateriServiceUpdateResponseKeepsLinksForSuperadmin(t *testing.T) {
	repo := expiredDetailRepo()
	svc := NewMateriService(repo, defaultResolver(), &fakeAudit{}, nil, nil, 0, nil, nil)

	detail, err := svc.Update(context.Background(), "user-1", models.RoleSuperAdmin, "materi-new", expiredRequest())
	require.NoError(t, err)
	require.Len(t, detail.Dokumen, 1)
	assert.Equal(t, "https://drive.example/doc", detail.Dokumen[0].LinkDokumen)
}

func TestMateriServiceDeleteSignalsNotifier(t *testing.T) {
	notifier := &fakeNotifier{}
	audit := &fakeAudit{}
	svc := NewMateriService(&fakeMateriRepo{}, defaultResolver(), audit, nil, notifier, 0, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "user-1", "materi-1"))
	assert.Equal(t, 1, notifier.signals)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionMateriDelete, audit.entries[0].Action)
}

func TestMateriServiceExportCSVRedactsLinks(t *testing.T) {
	fitur := "Streaming"
	repo := &fakeMateriRepo{
		details: []models.MateriDetail{{
			Materi: models.Materi{
				NamaMateri: "Promo Lama",
				StartDate:  time.Now().AddDate(0, -2, 0),
				EndDate:    time.Now().AddDate(0, -1, 0),
			},
			BrandName:   "IndiHome",
			ClusterName: "Jabodetabek",
			FiturName:   &fitur,
			Dokumen: []models.DokumenDetail{{
				DokumenMateri: models.DokumenMateri{LinkDokumen: "https://drive.example/secret"},
			}},
		}},
	}
	svc := NewMateriService(repo, defaultResolver(), &fakeAudit{}, nil, nil, 100, nil, nil)

	result, err := svc.Export(context.Background(), models.MateriFilter{}, models.RoleGuest, ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Contains(t, string(result.Payload), "Promo Lama")
	assert.NotContains(t, string(result.Payload), "https://drive.example/secret")
}

func TestMateriServiceExportUnknownFormat(t *testing.T) {
	svc := NewMateriService(&fakeMateriRepo{}, defaultResolver(), &fakeAudit{}, nil, nil, 100, nil, nil)

	_, err := svc.Export(context.Background(), models.MateriFilter{}, models.RoleAdmin, ExportFormat("xlsx"))

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
