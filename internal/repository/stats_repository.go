package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/katalog-materi-api/internal/models"
)

// StatsRepository computes aggregate counters over the materi catalog. All
// queries run through the same filter predicate as listing so the numbers
// always match what a client would get by counting the list itself.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs a StatsRepository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

const statsColumns = `COUNT(DISTINCT m.id) AS total,
        COUNT(DISTINCT CASE WHEN m.end_date > CURRENT_DATE THEN m.id END) AS active,
        COUNT(DISTINCT CASE WHEN m.end_date <= CURRENT_DATE THEN m.id END) AS expired,
        COUNT(DISTINCT CASE WHEN m.fitur_id IS NOT NULL THEN m.id END) AS with_feature,
        COUNT(DISTINCT CASE WHEN m.nama_materi IS NOT NULL AND m.nama_materi <> '' THEN m.id END) AS with_title,
        COUNT(DISTINCT CASE WHEN dm.id IS NOT NULL THEN m.id END) AS with_document`

type statsRow struct {
	Total        int `db:"total"`
	Active       int `db:"active"`
	Expired      int `db:"expired"`
	WithFeature  int `db:"with_feature"`
	WithTitle    int `db:"with_title"`
	WithDocument int `db:"with_document"`
}

type monthlyRow struct {
	MonthNum int `db:"month_num"`
	statsRow
}

// Summary returns the six aggregate counters for the filtered subset.
// Expired records are never excluded implicitly here; the status filter
// alone decides.
func (r *StatsRepository) Summary(ctx context.Context, filter models.MateriFilter) (*models.StatsSummary, error) {
	where, args := buildMateriFilter(filter, false)
	query := fmt.Sprintf("SELECT %s %s WHERE %s", statsColumns, materiJoins, where)

	var row statsRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, fmt.Errorf("materi stats summary: %w", err)
	}

	return &models.StatsSummary{
		Total:        row.Total,
		Active:       row.Active,
		Expired:      row.Expired,
		WithFeature:  row.WithFeature,
		WithTitle:    row.WithTitle,
		WithDocument: row.WithDocument,
		LastUpdated:  time.Now().UTC(),
	}, nil
}

// Monthly buckets the same six counters by calendar month of start_date for
// the current year. Every series is densified to twelve entries; months
// without data carry zero.
func (r *StatsRepository) Monthly(ctx context.Context, filter models.MateriFilter) (*models.MonthlyStats, error) {
	where, args := buildMateriFilter(filter, false)
	query := fmt.Sprintf(`SELECT CAST(EXTRACT(MONTH FROM m.start_date) AS INTEGER) AS month_num, %s %s
        WHERE %s AND EXTRACT(YEAR FROM m.start_date) = EXTRACT(YEAR FROM CURRENT_DATE)
        GROUP BY EXTRACT(MONTH FROM m.start_date)
        ORDER BY month_num`, statsColumns, materiJoins, where)

	var rows []monthlyRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("materi stats monthly: %w", err)
	}

	byMonth := make(map[int]statsRow, len(rows))
	for _, row := range rows {
		byMonth[row.MonthNum] = row.statsRow
	}

	stats := &models.MonthlyStats{}
	for month := 1; month <= 12; month++ {
		label := time.Month(month).String()[:3]
		row := byMonth[month]
		stats.Total = append(stats.Total, models.MonthlyPoint{Month: label, Value: row.Total})
		stats.Active = append(stats.Active, models.MonthlyPoint{Month: label, Value: row.Active})
		stats.Expired = append(stats.Expired, models.MonthlyPoint{Month: label, Value: row.Expired})
		stats.WithFeature = append(stats.WithFeature, models.MonthlyPoint{Month: label, Value: row.WithFeature})
		stats.WithTitle = append(stats.WithTitle, models.MonthlyPoint{Month: label, Value: row.WithTitle})
		stats.WithDocument = append(stats.WithDocument, models.MonthlyPoint{Month: label, Value: row.WithDocument})
	}
	return stats, nil
}
