package models

import "time"

// Materi status filter values. Anything containing "semua" (case-insensitive)
// is treated as "no filter".
const (
	StatusAktif   = "aktif"
	StatusExpired = "expired"
)

// TipeKeyVisual is the document type used by the only_visual_docs filter.
const TipeKeyVisual = "Key Visual"

// Materi is a marketing-material campaign record.
type Materi struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	BrandID    string    `db:"brand_id" json:"brand_id"`
	ClusterID  string    `db:"cluster_id" json:"cluster_id"`
	FiturID    *string   `db:"fitur_id" json:"fitur_id,omitempty"`
	JenisID    *string   `db:"jenis_id" json:"jenis_id,omitempty"`
	NamaMateri string    `db:"nama_materi" json:"nama_materi"`
	StartDate  time.Time `db:"start_date" json:"start_date"`
	EndDate    time.Time `db:"end_date" json:"end_date"`
	Periode    string    `db:"periode" json:"periode"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Active reports the derived temporal status: a materi is active while its
// end date lies strictly after the given day (dates compared at UTC midnight).
func (m Materi) Active(today time.Time) bool {
	day := today.UTC().Truncate(24 * time.Hour)
	return m.EndDate.UTC().Truncate(24 * time.Hour).After(day)
}

// DokumenMateri is a document attached to a Materi.
type DokumenMateri struct {
	ID          string `db:"id" json:"id"`
	MateriID    string `db:"materi_id" json:"materi_id"`
	LinkDokumen string `db:"link_dokumen" json:"link_dokumen"`
	TipeMateri  string `db:"tipe_materi" json:"tipe_materi"`
	Thumbnail   string `db:"thumbnail" json:"thumbnail"`
}

// DokumenDetail is a document with its keywords attached.
type DokumenDetail struct {
	DokumenMateri
	Keywords []string `json:"keywords"`
}

// MateriDetail is the hydrated projection returned by list and get:
// the materi row, joined reference names, and all nested documents.
type MateriDetail struct {
	Materi
	BrandName   string          `json:"brand_name"`
	ClusterName string          `json:"cluster_name"`
	FiturName   *string         `json:"fitur_name,omitempty"`
	JenisName   *string         `json:"jenis_name,omitempty"`
	Dokumen     []DokumenDetail `json:"dokumen_materi"`
}

// Pagination bounds for materi listings.
const (
	DefaultMateriPageSize = 10
	MaxMateriPageSize     = 100
)

// MateriFilter carries the optional list/stats filter fields. Zero values
// mean "no constraint".
type MateriFilter struct {
	Search         string
	Status         string
	Brand          string
	Cluster        string
	Fitur          string
	Jenis          string
	StartDate      *time.Time
	EndDate        *time.Time
	OnlyVisualDocs bool
	Page           int
	PageSize       int
}

// Normalize clamps Page and PageSize into their valid ranges. Every layer
// that paginates or reports pagination metadata must see the same values,
// so this is the only place the bounds are applied.
func (f *MateriFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultMateriPageSize
	}
	if f.PageSize > MaxMateriPageSize {
		f.PageSize = MaxMateriPageSize
	}
}
