package models

import "time"

// ReferenceKind identifies one of the four reference-data tables a Materi
// points at. The kind doubles as the table name; every query goes through
// Table() so an unknown kind can never reach SQL.
type ReferenceKind string

const (
	ReferenceBrand   ReferenceKind = "brand"
	ReferenceCluster ReferenceKind = "cluster"
	ReferenceFitur   ReferenceKind = "fitur"
	ReferenceJenis   ReferenceKind = "jenis"
)

// Table returns the backing table name, or empty string for unknown kinds.
func (k ReferenceKind) Table() string {
	switch k {
	case ReferenceBrand, ReferenceCluster, ReferenceFitur, ReferenceJenis:
		return string(k)
	}
	return ""
}

// ReferenceEntity is a simple named lookup record (brand, cluster, fitur, jenis).
type ReferenceEntity struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ReferenceFilter captures list criteria for reference entities.
type ReferenceFilter struct {
	Search   string
	Page     int
	PageSize int
}
