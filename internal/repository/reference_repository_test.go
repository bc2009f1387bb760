package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/katalog-materi-api/internal/models"
)

func TestReferenceRepositoryListWithSearch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReferenceRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
		AddRow("brand-1", "IndiHome", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, created_at, updated_at FROM brand WHERE name ILIKE $1 ORDER BY name ASC")).
		WithArgs("%indi%").
		WillReturnRows(rows)

	items, err := repo.List(context.Background(), models.ReferenceBrand, models.ReferenceFilter{Search: "indi"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "IndiHome", items[0].Name)
}

func TestReferenceRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReferenceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO fitur (id, name, created_at, updated_at)")).
		WithArgs(sqlmock.AnyArg(), "Streaming", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entity, err := repo.Create(context.Background(), models.ReferenceFitur, "Streaming")
	require.NoError(t, err)
	assert.NotEmpty(t, entity.ID)
	assert.Equal(t, "Streaming", entity.Name)
}

func TestReferenceRepositoryUpdateNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReferenceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE jenis SET name = $1")).
		WithArgs("Digital", sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Update(context.Background(), models.ReferenceJenis, "missing", "Digital")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReferenceRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReferenceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cluster WHERE id = $1")).
		WithArgs("cluster-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), models.ReferenceCluster, "cluster-1"))
}

func TestReferenceKindTableWhitelist(t *testing.T) {
	assert.Equal(t, "brand", models.ReferenceBrand.Table())
	assert.Equal(t, "jenis", models.ReferenceJenis.Table())
	assert.Empty(t, models.ReferenceKind("users; DROP TABLE users").Table())
}
