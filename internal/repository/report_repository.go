package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-report-service/internal/domain"
)

// ReportFilter captures admin listing parameters.
type ReportFilter struct {
	// SearchTerm matches track numbers and incident types, case-insensitive.
	SearchTerm *string
	Status     *domain.ReportStatus
	Limit      int
	Offset     int
}

// ReportRepository encapsulates report persistence.
type ReportRepository interface {
	Create(ctx context.Context, report *domain.Report) error
	GetByTrackNumber(ctx context.Context, trackNumber string) (*domain.Report, error)
	UpdateStatus(ctx context.Context, id string, status domain.ReportStatus) (*domain.Report, error)
	ListWithFilter(ctx context.Context, filter ReportFilter) ([]domain.Report, error)
}

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository instantiates repository.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

const reportColumns = `id, track_number, incident_type, title, description, location,
               image_url, status, owner_user_id, created_at, updated_at`

func (r *reportRepository) Create(ctx context.Context, report *domain.Report) error {
	const query = `
        INSERT INTO reports (track_number, incident_type, title, description, location, image_url, status, owner_user_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		report.TrackNumber,
		report.IncidentType,
		report.Title,
		report.Description,
		report.Location,
		report.ImageURL,
		report.Status,
		report.OwnerUserID,
	).Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt)
}

func (r *reportRepository) GetByTrackNumber(ctx context.Context, trackNumber string) (*domain.Report, error) {
	const query = `SELECT ` + reportColumns + ` FROM reports WHERE track_number=$1`
	var report domain.Report
	if err := r.pool.QueryRow(ctx, query, trackNumber).Scan(
		&report.ID,
		&report.TrackNumber,
		&report.IncidentType,
		&report.Title,
		&report.Description,
		&report.Location,
		&report.ImageURL,
		&report.Status,
		&report.OwnerUserID,
		&report.CreatedAt,
		&report.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) UpdateStatus(ctx context.Context, id string, status domain.ReportStatus) (*domain.Report, error) {
	const query = `
        UPDATE reports SET status=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING ` + reportColumns
	var report domain.Report
	if err := r.pool.QueryRow(ctx, query, status, id).Scan(
		&report.ID,
		&report.TrackNumber,
		&report.IncidentType,
		&report.Title,
		&report.Description,
		&report.Location,
		&report.ImageURL,
		&report.Status,
		&report.OwnerUserID,
		&report.CreatedAt,
		&report.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) ListWithFilter(ctx context.Context, filter ReportFilter) ([]domain.Report, error) {
	base := `SELECT ` + reportColumns + ` FROM reports`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(track_number) LIKE %s OR LOWER(incident_type) LIKE %s)", placeholder, placeholder))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	// Oldest first; the admin table paginates in insertion order.
	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at ASC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReports(rows)
}

func scanReports(rows pgx.Rows) ([]domain.Report, error) {
	var result []domain.Report
	for rows.Next() {
		var report domain.Report
		if err := rows.Scan(
			&report.ID,
			&report.TrackNumber,
			&report.IncidentType,
			&report.Title,
			&report.Description,
			&report.Location,
			&report.ImageURL,
			&report.Status,
			&report.OwnerUserID,
			&report.CreatedAt,
			&report.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, report)
	}
	return result, rows.Err()
}
