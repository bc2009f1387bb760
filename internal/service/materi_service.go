package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/katalog-materi-api/internal/models"
	appErrors "github.com/noah-isme/katalog-materi-api/pkg/errors"
	"github.com/noah-isme/katalog-materi-api/pkg/export"
)

type materiRepository interface {
	List(ctx context.Context, filter models.MateriFilter, excludeExpired bool) ([]models.MateriDetail, int, error)
	ListAll(ctx context.Context, filter models.MateriFilter, excludeExpired bool, maxRows int) ([]models.MateriDetail, error)
	FindByID(ctx context.Context, id string) (*models.MateriDetail, error)
	Create(ctx context.Context, materi *models.Materi, dokumen []models.DokumenDetail) error
	Update(ctx context.Context, materi *models.Materi, dokumen []models.DokumenDetail) error
	Delete(ctx context.Context, id string) error
}

type referenceResolver interface {
	FindByName(ctx context.Context, kind models.ReferenceKind, name string) (*models.ReferenceEntity, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// MutationNotifier receives a signal after every committed materi mutation.
// It is exported so callers can wire it conditionally without producing a
// typed-nil interface value.
type MutationNotifier interface {
	MutationObserved()
}

// DokumenRequest is one document in a materi payload.
type DokumenRequest struct {
	LinkDokumen string   `json:"link_dokumen" validate:"required,url"`
	TipeMateri  string   `json:"tipe_materi" validate:"required"`
	Thumbnail   string   `json:"thumbnail"`
	Keywords    []string `json:"keywords"`
}

// MateriRequest is the payload for creating or replacing a materi. Reference
// relations are addressed by name; the service resolves them to ids.
type MateriRequest struct {
	NamaMateri string           `json:"nama_materi" validate:"required,min=1,max=255"`
	Brand      string           `json:"brand" validate:"required"`
	Cluster    string           `json:"cluster" validate:"required"`
	Fitur      string           `json:"fitur"`
	Jenis      string           `json:"jenis"`
	StartDate  string           `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string           `json:"end_date" validate:"required,datetime=2006-01-02"`
	Periode    string           `json:"periode"`
	Dokumen    []DokumenRequest `json:"dokumen_materi" validate:"dive"`
}

// ExportFormat selects the catalog export encoding.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportResult carries rendered export bytes plus response metadata.
type ExportResult struct {
	ContentType string
	Filename    string
	Payload     []byte
}

// MateriService provides the catalog use cases.
type MateriService struct {
	repo      materiRepository
	refs      referenceResolver
	audit     auditRecorder
	stats     *StatsService
	notifier  MutationNotifier
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	maxExport int
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMateriService constructs a MateriService.
func NewMateriService(
	repo materiRepository,
	refs referenceResolver,
	audit auditRecorder,
	stats *StatsService,
	notifier MutationNotifier,
	maxExport int,
	validate *validator.Validate,
	logger *zap.Logger,
) *MateriService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MateriService{
		repo:      repo,
		refs:      refs,
		audit:     audit,
		stats:     stats,
		notifier:  notifier,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		maxExport: maxExport,
		validator: validate,
		logger:    logger,
	}
}

// List returns one page of the catalog with document links redacted per the
// caller's role. Without an explicit status filter expired records are hidden.
func (s *MateriService) List(ctx context.Context, filter models.MateriFilter, role models.UserRole) ([]models.MateriDetail, *models.Pagination, error) {
	filter.Normalize()
	details, total, err := s.repo.List(ctx, filter, true)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list materi")
	}

	NewLinkPolicy(role, time.Now()).ApplyAll(details)
	return details, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one materi, redacted for the caller's role.
func (s *MateriService) Get(ctx context.Context, id string, role models.UserRole) (*models.MateriDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "materi not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load materi")
	}

	policy := NewLinkPolicy(role, time.Now())
	policy.Apply(detail)
	return detail, nil
}

// Create validates the payload, resolves reference names, and persists the
// aggregate in one transaction. The response is redacted for the actor's
// role like any read.
func (s *MateriService) Create(ctx context.Context, actorID string, role models.UserRole, req MateriRequest) (*models.MateriDetail, error) {
	materi, dokumen, err := s.buildAggregate(ctx, req)
	if err != nil {
		return nil, err
	}
	materi.UserID = actorID

	if err := s.repo.Create(ctx, materi, dokumen); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create materi")
	}

	s.afterMutation(ctx, actorID, models.AuditActionMateriCreate, materi.ID, req)
	return s.redactedDetail(ctx, materi.ID, role)
}

// Update replaces the materi row and its documents wholesale.
func (s *MateriService) Update(ctx context.Context, actorID string, role models.UserRole, id string, req MateriRequest) (*models.MateriDetail, error) {
	materi, dokumen, err := s.buildAggregate(ctx, req)
	if err != nil {
		return nil, err
	}
	materi.ID = id

	if err := s.repo.Update(ctx, materi, dokumen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "materi not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update materi")
	}

	s.afterMutation(ctx, actorID, models.AuditActionMateriUpdate, id, req)
	return s.redactedDetail(ctx, id, role)
}

// redactedDetail reloads the aggregate and applies the caller's link policy,
// so mutation responses match what a subsequent read would return.
func (s *MateriService) redactedDetail(ctx context.Context, id string, role models.UserRole) (*models.MateriDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load materi")
	}
	policy := NewLinkPolicy(role, time.Now())
	policy.Apply(detail)
	return detail, nil
}

// Delete removes a materi with its documents and keywords.
func (s *MateriService) Delete(ctx context.Context, actorID, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "materi not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete materi")
	}

	s.afterMutation(ctx, actorID, models.AuditActionMateriDelete, id, nil)
	return nil
}

// Export renders the full filtered catalog (no pagination) as CSV or PDF,
// links redacted the same way as the JSON responses.
func (s *MateriService) Export(ctx context.Context, filter models.MateriFilter, role models.UserRole, format ExportFormat) (*ExportResult, error) {
	details, err := s.repo.ListAll(ctx, filter, true, s.maxExport)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to collect export rows")
	}
	NewLinkPolicy(role, time.Now()).ApplyAll(details)

	dataset := buildExportDataset(details)
	stamp := time.Now().UTC().Format("20060102")

	switch format {
	case ExportCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{ContentType: "text/csv", Filename: "katalog-materi-" + stamp + ".csv", Payload: payload}, nil
	case ExportPDF:
		payload, err := s.pdf.Render(dataset, "Katalog Materi")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{ContentType: "application/pdf", Filename: "katalog-materi-" + stamp + ".pdf", Payload: payload}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

// buildAggregate validates the request and resolves reference names into a
// persistable materi plus its documents.
func (s *MateriService) buildAggregate(ctx context.Context, req MateriRequest) (*models.Materi, []models.DokumenDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid materi payload")
	}

	startDate, _ := time.Parse("2006-01-02", req.StartDate)
	endDate, _ := time.Parse("2006-01-02", req.EndDate)
	if endDate.Before(startDate) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
	}

	brand, err := s.resolveReference(ctx, models.ReferenceBrand, req.Brand)
	if err != nil {
		return nil, nil, err
	}
	cluster, err := s.resolveReference(ctx, models.ReferenceCluster, req.Cluster)
	if err != nil {
		return nil, nil, err
	}

	materi := &models.Materi{
		BrandID:    brand.ID,
		ClusterID:  cluster.ID,
		NamaMateri: strings.TrimSpace(req.NamaMateri),
		StartDate:  startDate,
		EndDate:    endDate,
		Periode:    req.Periode,
	}

	if strings.TrimSpace(req.Fitur) != "" {
		fitur, err := s.resolveReference(ctx, models.ReferenceFitur, req.Fitur)
		if err != nil {
			return nil, nil, err
		}
		materi.FiturID = &fitur.ID
	}
	if strings.TrimSpace(req.Jenis) != "" {
		jenis, err := s.resolveReference(ctx, models.ReferenceJenis, req.Jenis)
		if err != nil {
			return nil, nil, err
		}
		materi.JenisID = &jenis.ID
	}

	dokumen := make([]models.DokumenDetail, 0, len(req.Dokumen))
	for _, doc := range req.Dokumen {
		dokumen = append(dokumen, models.DokumenDetail{
			DokumenMateri: models.DokumenMateri{
				LinkDokumen: doc.LinkDokumen,
				TipeMateri:  doc.TipeMateri,
				Thumbnail:   doc.Thumbnail,
			},
			Keywords: doc.Keywords,
		})
	}

	return materi, dokumen, nil
}

func (s *MateriService) resolveReference(ctx context.Context, kind models.ReferenceKind, name string) (*models.ReferenceEntity, error) {
	entity, err := s.refs.FindByName(ctx, kind, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown "+string(kind)+": "+name)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve "+string(kind))
	}
	return entity, nil
}

// afterMutation runs the side effects shared by every committed write: audit
// trail, synchronous stats cache invalidation, and the push notification
// signal. None of them can fail the mutation.
func (s *MateriService) afterMutation(ctx context.Context, actorID, action, materiID string, payload interface{}) {
	if s.audit != nil {
		var values []byte
		if payload != nil {
			values, _ = json.Marshal(payload)
		}
		entry := &models.AuditLog{
			Action:     action,
			Resource:   "materi",
			ResourceID: &materiID,
			NewValues:  values,
		}
		if actorID != "" {
			entry.UserID = &actorID
		}
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to record materi audit log", zap.String("action", action), zap.Error(err))
		}
	}

	if s.stats != nil {
		s.stats.InvalidateAll(ctx)
	}
	if s.notifier != nil {
		s.notifier.MutationObserved()
	}
}

// buildExportDataset flattens hydrated materi into tabular rows. Documents
// collapse into one cell per materi; blanked links render as empty strings.
func buildExportDataset(details []models.MateriDetail) export.Dataset {
	headers := []string{"Nama Materi", "Brand", "Cluster", "Fitur", "Jenis", "Status", "Start Date", "End Date", "Periode", "Dokumen"}
	rows := make([]map[string]string, 0, len(details))
	today := time.Now()

	for _, detail := range details {
		status := models.StatusExpired
		if detail.Active(today) {
			status = models.StatusAktif
		}
		links := make([]string, 0, len(detail.Dokumen))
		for _, doc := range detail.Dokumen {
			if doc.LinkDokumen != "" {
				links = append(links, doc.LinkDokumen)
			}
		}
		row := map[string]string{
			"Nama Materi": detail.NamaMateri,
			"Brand":       detail.BrandName,
			"Cluster":     detail.ClusterName,
			"Status":      status,
			"Start Date":  detail.StartDate.Format("2006-01-02"),
			"End Date":    detail.EndDate.Format("2006-01-02"),
			"Periode":     detail.Periode,
			"Dokumen":     strings.Join(links, " "),
		}
		if detail.FiturName != nil {
			row["Fitur"] = *detail.FiturName
		}
		if detail.JenisName != nil {
			row["Jenis"] = *detail.JenisName
		}
		rows = append(rows, row)
	}

	return export.Dataset{Headers: headers, Rows: rows}
}
