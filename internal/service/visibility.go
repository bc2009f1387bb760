package service

import (
	"time"

	"github.com/noah-isme/katalog-materi-api/internal/models"
)

// LinkPolicy decides whether a caller may see document links on a materi.
// It is computed once per request so every record in a response is judged
// against the same role and the same day.
type LinkPolicy struct {
	role  models.UserRole
	today time.Time
}

// NewLinkPolicy builds the policy for a request. The evaluation day is
// truncated to UTC midnight so a materi expiring today reads the same for
// the whole request.
func NewLinkPolicy(role models.UserRole, now time.Time) LinkPolicy {
	return LinkPolicy{role: role, today: now.UTC().Truncate(24 * time.Hour)}
}

// CanSeeLinks reports whether document links are visible for the given
// materi. Superadmin always sees links; admin and guest only while the
// materi is still active.
func (p LinkPolicy) CanSeeLinks(materi models.Materi) bool {
	if p.role == models.RoleSuperAdmin {
		return true
	}
	return materi.Active(p.today)
}

// Apply blanks link_dokumen on every document the caller may not see. Only
// the link is redacted; titles, types, thumbnails, and keywords stay intact.
// Applying the same policy twice is a no-op.
func (p LinkPolicy) Apply(detail *models.MateriDetail) {
	if detail == nil || p.CanSeeLinks(detail.Materi) {
		return
	}
	for i := range detail.Dokumen {
		detail.Dokumen[i].LinkDokumen = ""
	}
}

// ApplyAll redacts a whole result page in place.
func (p LinkPolicy) ApplyAll(details []models.MateriDetail) {
	for i := range details {
		p.Apply(&details[i])
	}
}
