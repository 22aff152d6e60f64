package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-report-service/internal/domain"
)

// ReportAuditRepository persists status-change history for reports.
type ReportAuditRepository interface {
	Create(ctx context.Context, entry *domain.ReportStatusAudit) error
	ListByReport(ctx context.Context, reportID string, limit, offset int) ([]domain.ReportStatusAudit, error)
}

type reportAuditRepository struct {
	pool *pgxpool.Pool
}

// NewReportAuditRepository constructs repository.
func NewReportAuditRepository(pool *pgxpool.Pool) ReportAuditRepository {
	return &reportAuditRepository{pool: pool}
}

func (r *reportAuditRepository) Create(ctx context.Context, entry *domain.ReportStatusAudit) error {
	const query = `
        INSERT INTO report_status_audit (report_id, changed_by, old_status, new_status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.ReportID,
		entry.ChangedBy,
		entry.OldStatus,
		entry.NewStatus,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *reportAuditRepository) ListByReport(ctx context.Context, reportID string, limit, offset int) ([]domain.ReportStatusAudit, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, report_id, changed_by, old_status, new_status, created_at
        FROM report_status_audit WHERE report_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, reportID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ReportStatusAudit
	for rows.Next() {
		var entry domain.ReportStatusAudit
		if err := rows.Scan(
			&entry.ID,
			&entry.ReportID,
			&entry.ChangedBy,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
