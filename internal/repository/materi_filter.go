package repository

import (
	"fmt"
	"strings"

	"github.com/noah-isme/katalog-materi-api/internal/models"
)

// materiJoins is the base join shared by the list, count, and stats queries.
// fitur/jenis/documents/keywords are optional relations, brand and cluster
// are mandatory.
const materiJoins = `FROM materi m
        JOIN brand b ON m.brand_id = b.id
        JOIN cluster c ON m.cluster_id = c.id
        LEFT JOIN fitur f ON m.fitur_id = f.id
        LEFT JOIN jenis j ON m.jenis_id = j.id
        LEFT JOIN dokumen_materi dm ON dm.materi_id = m.id
        LEFT JOIN dokumen_materi_keyword dmk ON dmk.dokumen_materi_id = dm.id`

// isAllSentinel reports whether a filter value means "no constraint".
// Clients send values like "Semua" or "Semua Status" for the catch-all option.
func isAllSentinel(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	return value == "" || strings.Contains(value, "semua")
}

// buildMateriFilter translates the optional filter fields into a WHERE body
// and its positional parameters. When excludeExpired is set and no explicit
// status filter is given, expired records are filtered out entirely (list
// views hide them by default, stats never do).
func buildMateriFilter(filter models.MateriFilter, excludeExpired bool) (string, []interface{}) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if excludeExpired && isAllSentinel(filter.Status) {
		conditions = append(conditions, "m.end_date > CURRENT_DATE")
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf(`(m.nama_materi ILIKE $%d OR EXISTS (
            SELECT 1 FROM dokumen_materi dm2
            JOIN dokumen_materi_keyword dmk2 ON dmk2.dokumen_materi_id = dm2.id
            WHERE dm2.materi_id = m.id AND dmk2.keyword ILIKE $%d))`, idx, idx))
		args = append(args, "%"+search+"%")
	}

	if !isAllSentinel(filter.Status) {
		switch strings.ToLower(strings.TrimSpace(filter.Status)) {
		case models.StatusAktif:
			conditions = append(conditions, "m.end_date > CURRENT_DATE")
		case models.StatusExpired:
			conditions = append(conditions, "m.end_date <= CURRENT_DATE")
		}
	}

	if !isAllSentinel(filter.Brand) {
		conditions = append(conditions, fmt.Sprintf("b.name = $%d", len(args)+1))
		args = append(args, filter.Brand)
	}
	if !isAllSentinel(filter.Cluster) {
		conditions = append(conditions, fmt.Sprintf("c.name = $%d", len(args)+1))
		args = append(args, filter.Cluster)
	}
	if !isAllSentinel(filter.Fitur) {
		conditions = append(conditions, fmt.Sprintf("f.name = $%d", len(args)+1))
		args = append(args, filter.Fitur)
	}
	if !isAllSentinel(filter.Jenis) {
		conditions = append(conditions, fmt.Sprintf("j.name = $%d", len(args)+1))
		args = append(args, filter.Jenis)
	}

	// Date range uses overlap semantics: the materi's active interval must
	// intersect the requested interval, not be contained by it.
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("m.end_date >= $%d", len(args)+1))
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("m.start_date <= $%d", len(args)+1))
		args = append(args, *filter.EndDate)
	}

	if filter.OnlyVisualDocs {
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
            SELECT 1 FROM dokumen_materi dv
            WHERE dv.materi_id = m.id AND dv.tipe_materi = $%d)`, len(args)+1))
		args = append(args, models.TipeKeyVisual)
	}

	return strings.Join(conditions, " AND "), args
}
