package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/katalog-materi-api/internal/models"
)

func TestBuildMateriFilterEmpty(t *testing.T) {
	where, args := buildMateriFilter(models.MateriFilter{}, false)
	assert.Equal(t, "1=1", where)
	assert.Empty(t, args)
}

func TestBuildMateriFilterExcludesExpiredByDefault(t *testing.T) {
	where, args := buildMateriFilter(models.MateriFilter{}, true)
	assert.Contains(t, where, "m.end_date > CURRENT_DATE")
	assert.Empty(t, args)
}

func TestBuildMateriFilterStatusOverridesExclusion(t *testing.T) {
	where, _ := buildMateriFilter(models.MateriFilter{Status: "expired"}, true)
	assert.Contains(t, where, "m.end_date <= CURRENT_DATE")
	assert.NotContains(t, where, "m.end_date > CURRENT_DATE")
}

func TestBuildMateriFilterSemuaSentinel(t *testing.T) {
	filter := models.MateriFilter{
		Status:  "Semua Status",
		Brand:   "Semua Brand",
		Cluster: "semua",
		Fitur:   " SEMUA ",
		Jenis:   "",
	}
	where, args := buildMateriFilter(filter, false)
	assert.Equal(t, "1=1", where)
	assert.Empty(t, args)
}

func TestBuildMateriFilterSearchReusesPlaceholder(t *testing.T) {
	where, args := buildMateriFilter(models.MateriFilter{Search: "promo"}, false)
	assert.Contains(t, where, "m.nama_materi ILIKE $1")
	assert.Contains(t, where, "dmk2.keyword ILIKE $1")
	require.Len(t, args, 1)
	assert.Equal(t, "%promo%", args[0])
}

func TestBuildMateriFilterPlaceholderNumbering(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	filter := models.MateriFilter{
		Search:         "promo",
		Status:         "aktif",
		Brand:          "IndiHome",
		Cluster:        "Jabodetabek",
		Fitur:          "Streaming",
		Jenis:          "Digital",
		StartDate:      &start,
		EndDate:        &end,
		OnlyVisualDocs: true,
	}
	where, args := buildMateriFilter(filter, false)

	assert.Contains(t, where, "b.name = $2")
	assert.Contains(t, where, "c.name = $3")
	assert.Contains(t, where, "f.name = $4")
	assert.Contains(t, where, "j.name = $5")
	assert.Contains(t, where, "m.end_date >= $6")
	assert.Contains(t, where, "m.start_date <= $7")
	assert.Contains(t, where, "dv.tipe_materi = $8")

	require.Len(t, args, 8)
	assert.Equal(t, "%promo%", args[0])
	assert.Equal(t, "IndiHome", args[1])
	assert.Equal(t, models.TipeKeyVisual, args[7])
}

func TestBuildMateriFilterDateRangeOverlap(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	where, args := buildMateriFilter(models.MateriFilter{StartDate: &start}, false)

	// Open-ended range: only the lower bound constrains.
	assert.Contains(t, where, "m.end_date >= $1")
	assert.NotContains(t, where, "m.start_date <=")
	require.Len(t, args, 1)
	assert.Equal(t, start, args[0])
}

func TestIsAllSentinel(t *testing.T) {
	cases := map[string]bool{
		"":             true,
		"  ":           true,
		"Semua":        true,
		"semua brand":  true,
		"SEMUA STATUS": true,
		"aktif":        false,
		"IndiHome":     false,
	}
	for value, want := range cases {
		assert.Equal(t, want, isAllSentinel(value), "value %q", value)
	}
}
