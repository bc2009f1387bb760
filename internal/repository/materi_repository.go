package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/katalog-materi-api/internal/models"
)

// MateriRepository manages persistence for materi aggregates (materi +
// documents + keywords).
type MateriRepository struct {
	db *sqlx.DB
}

// NewMateriRepository constructs a MateriRepository.
func NewMateriRepository(db *sqlx.DB) *MateriRepository {
	return &MateriRepository{db: db}
}

// materiRow is the flat projection produced by the hydration join. Document
// and keyword columns are nullable because of the LEFT JOINs.
type materiRow struct {
	models.Materi
	BrandName   string         `db:"brand_name"`
	ClusterName string         `db:"cluster_name"`
	FiturName   sql.NullString `db:"fitur_name"`
	JenisName   sql.NullString `db:"jenis_name"`
	DokumenID   sql.NullString `db:"dokumen_id"`
	LinkDokumen sql.NullString `db:"link_dokumen"`
	TipeMateri  sql.NullString `db:"tipe_materi"`
	Thumbnail   sql.NullString `db:"thumbnail"`
	Keyword     sql.NullString `db:"keyword"`
}

// List returns one hydrated page of materi matching the filter plus the
// distinct total. Pagination runs in two phases: an id page over the
// deduplicated id set (the document/keyword joins fan out rows), then a bulk
// hydration of exactly those ids.
func (r *MateriRepository) List(ctx context.Context, filter models.MateriFilter, excludeExpired bool) ([]models.MateriDetail, int, error) {
	where, args := buildMateriFilter(filter, excludeExpired)

	countQuery := fmt.Sprintf("SELECT COUNT(DISTINCT m.id) %s WHERE %s", materiJoins, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count materi: %w", err)
	}
	if total == 0 {
		return []models.MateriDetail{}, 0, nil
	}

	filter.Normalize()
	size := filter.PageSize
	offset := (filter.Page - 1) * size

	// Ordering runs over the grouped id set so fan-out duplication cannot
	// shift a record across pages.
	idQuery := fmt.Sprintf(`SELECT m.id %s WHERE %s GROUP BY m.id
        ORDER BY m.updated_at DESC, m.created_at DESC LIMIT %d OFFSET %d`, materiJoins, where, size, offset)

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, idQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("page materi ids: %w", err)
	}
	if len(ids) == 0 {
		return []models.MateriDetail{}, total, nil
	}

	details, err := r.hydrate(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

// ListAll returns every materi matching the filter up to maxRows, hydrated,
// in the same order as List. Used by the catalog export.
func (r *MateriRepository) ListAll(ctx context.Context, filter models.MateriFilter, excludeExpired bool, maxRows int) ([]models.MateriDetail, error) {
	if maxRows <= 0 {
		maxRows = 5000
	}
	where, args := buildMateriFilter(filter, excludeExpired)
	idQuery := fmt.Sprintf(`SELECT m.id %s WHERE %s GROUP BY m.id
        ORDER BY m.updated_at DESC, m.created_at DESC LIMIT %d`, materiJoins, where, maxRows)

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, idQuery, args...); err != nil {
		return nil, fmt.Errorf("list materi ids: %w", err)
	}
	if len(ids) == 0 {
		return []models.MateriDetail{}, nil
	}
	return r.hydrate(ctx, ids)
}

// FindByID loads one hydrated materi. Returns sql.ErrNoRows when absent.
func (r *MateriRepository) FindByID(ctx context.Context, id string) (*models.MateriDetail, error) {
	details, err := r.hydrate(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, sql.ErrNoRows
	}
	return &details[0], nil
}

const hydrateQuery = `SELECT m.id, m.user_id, m.brand_id, m.cluster_id, m.fitur_id, m.jenis_id,
        m.nama_materi, m.start_date, m.end_date, m.periode, m.created_at, m.updated_at,
        b.name AS brand_name, c.name AS cluster_name, f.name AS fitur_name, j.name AS jenis_name,
        dm.id AS dokumen_id, dm.link_dokumen, dm.tipe_materi, dm.thumbnail, dmk.keyword
        ` + materiJoins + `
        WHERE m.id = ANY($1)
        ORDER BY m.id, dm.id, dmk.id`

// hydrate bulk-loads the nested projection for the given ids and regroups
// the fanned-out rows, preserving the order of ids.
func (r *MateriRepository) hydrate(ctx context.Context, ids []string) ([]models.MateriDetail, error) {
	var rows []materiRow
	if err := r.db.SelectContext(ctx, &rows, hydrateQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("hydrate materi: %w", err)
	}

	byID := make(map[string]*models.MateriDetail, len(ids))
	docs := make(map[string]*models.DokumenDetail)
	docOrder := make(map[string][]string, len(ids))

	for _, row := range rows {
		if _, ok := byID[row.ID]; !ok {
			detail := &models.MateriDetail{
				Materi:      row.Materi,
				BrandName:   row.BrandName,
				ClusterName: row.ClusterName,
				Dokumen:     []models.DokumenDetail{},
			}
			if row.FiturName.Valid {
				name := row.FiturName.String
				detail.FiturName = &name
			}
			if row.JenisName.Valid {
				name := row.JenisName.String
				detail.JenisName = &name
			}
			byID[row.ID] = detail
		}

		if !row.DokumenID.Valid {
			continue
		}
		doc, ok := docs[row.DokumenID.String]
		if !ok {
			doc = &models.DokumenDetail{
				DokumenMateri: models.DokumenMateri{
					ID:          row.DokumenID.String,
					MateriID:    row.ID,
					LinkDokumen: row.LinkDokumen.String,
					TipeMateri:  row.TipeMateri.String,
					Thumbnail:   row.Thumbnail.String,
				},
				Keywords: []string{},
			}
			docs[row.DokumenID.String] = doc
			docOrder[row.ID] = append(docOrder[row.ID], row.DokumenID.String)
		}
		if row.Keyword.Valid {
			doc.Keywords = append(doc.Keywords, row.Keyword.String)
		}
	}

	result := make([]models.MateriDetail, 0, len(ids))
	for _, id := range ids {
		detail, ok := byID[id]
		if !ok {
			continue
		}
		for _, docID := range docOrder[id] {
			detail.Dokumen = append(detail.Dokumen, *docs[docID])
		}
		result = append(result, *detail)
	}
	return result, nil
}

// Create persists a materi together with its documents and keywords in one
// transaction. Any failure rolls the whole aggregate back.
func (r *MateriRepository) Create(ctx context.Context, materi *models.Materi, dokumen []models.DokumenDetail) error {
	now := time.Now().UTC()
	if materi.ID == "" {
		materi.ID = uuid.NewString()
	}
	materi.CreatedAt = now
	materi.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create materi: %w", err)
	}

	const insertMateri = `INSERT INTO materi (id, user_id, brand_id, cluster_id, fitur_id, jenis_id, nama_materi, start_date, end_date, periode, created_at, updated_at)
        VALUES (:id, :user_id, :brand_id, :cluster_id, :fitur_id, :jenis_id, :nama_materi, :start_date, :end_date, :periode, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertMateri, materi); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert materi: %w", err)
	}

	if err = insertDokumen(ctx, tx, materi.ID, dokumen); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create materi: %w", err)
	}
	return nil
}

// Update rewrites the materi row and replaces its documents and keywords
// wholesale, all inside one transaction.
func (r *MateriRepository) Update(ctx context.Context, materi *models.Materi, dokumen []models.DokumenDetail) error {
	materi.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update materi: %w", err)
	}

	const updateMateri = `UPDATE materi SET brand_id = :brand_id, cluster_id = :cluster_id, fitur_id = :fitur_id, jenis_id = :jenis_id,
        nama_materi = :nama_materi, start_date = :start_date, end_date = :end_date, periode = :periode, updated_at = :updated_at
        WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, updateMateri, materi)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update materi: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		_ = tx.Rollback()
		return sql.ErrNoRows
	}

	if err = deleteDokumen(ctx, tx, materi.ID); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = insertDokumen(ctx, tx, materi.ID, dokumen); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update materi: %w", err)
	}
	return nil
}

// Delete removes the materi and cascades its documents and keywords
// explicitly inside one transaction. Returns sql.ErrNoRows when the materi
// does not exist.
func (r *MateriRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete materi: %w", err)
	}

	if err = deleteDokumen(ctx, tx, id); err != nil {
		_ = tx.Rollback()
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM materi WHERE id = $1`, id)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete materi: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		_ = tx.Rollback()
		return sql.ErrNoRows
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete materi: %w", err)
	}
	return nil
}

func insertDokumen(ctx context.Context, tx *sqlx.Tx, materiID string, dokumen []models.DokumenDetail) error {
	const insertDoc = `INSERT INTO dokumen_materi (id, materi_id, link_dokumen, tipe_materi, thumbnail)
        VALUES ($1, $2, $3, $4, $5)`
	const insertKeyword = `INSERT INTO dokumen_materi_keyword (id, dokumen_materi_id, keyword)
        VALUES ($1, $2, $3)`

	for i := range dokumen {
		doc := &dokumen[i]
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		doc.MateriID = materiID
		if _, err := tx.ExecContext(ctx, insertDoc, doc.ID, materiID, doc.LinkDokumen, doc.TipeMateri, doc.Thumbnail); err != nil {
			return fmt.Errorf("insert dokumen materi: %w", err)
		}
		for _, keyword := range doc.Keywords {
			if keyword == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, insertKeyword, uuid.NewString(), doc.ID, keyword); err != nil {
				return fmt.Errorf("insert dokumen keyword: %w", err)
			}
		}
	}
	return nil
}

func deleteDokumen(ctx context.Context, tx *sqlx.Tx, materiID string) error {
	const deleteKeywords = `DELETE FROM dokumen_materi_keyword
        WHERE dokumen_materi_id IN (SELECT id FROM dokumen_materi WHERE materi_id = $1)`
	if _, err := tx.ExecContext(ctx, deleteKeywords, materiID); err != nil {
		return fmt.Errorf("delete dokumen keywords: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dokumen_materi WHERE materi_id = $1`, materiID); err != nil {
		return fmt.Errorf("delete dokumen materi: %w", err)
	}
	return nil
}
