package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/karthiknish/profici-comp-sub000/internal/core"
)

// ErrNotFound is returned when no report matches an id
var ErrNotFound = errors.New("report not found")

// DefaultListLimit caps ListByDomain when no limit is given
const DefaultListLimit = 20

// ReportSummary is a listing row; the full report is fetched with Get
type ReportSummary struct {
	ID             string    `json:"id"`
	JobID          string    `json:"jobId"`
	Domain         string    `json:"domain"`
	BusinessName   string    `json:"businessName"`
	Model          string    `json:"model"`
	FailedSections int       `json:"failedSections"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ReportRepository defines operations for assembled reports
type ReportRepository interface {
	// Save inserts the report, replacing any report with the same id
	Save(ctx context.Context, report *core.FinalReport) error

	// Get returns the report with id, or ErrNotFound
	Get(ctx context.Context, id string) (*core.FinalReport, error)

	// ListByDomain returns the newest reports first. An empty domain lists all domains.
	ListByDomain(ctx context.Context, domain string, limit int) ([]ReportSummary, error)
}

// postgresReportRepo implements ReportRepository for PostgreSQL
type postgresReportRepo struct {
	db *sql.DB
}

func (r *postgresReportRepo) Save(ctx context.Context, report *core.FinalReport) error {
	if report == nil {
		return fmt.Errorf("cannot save nil report")
	}
	if report.ID == "" {
		return fmt.Errorf("cannot save report without id")
	}

	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	createdAt := report.GeneratedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO reports (
			id, job_id, domain, business_name, model,
			failed_sections, body, duration_ms, estimated_cost_usd, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			job_id = EXCLUDED.job_id,
			domain = EXCLUDED.domain,
			business_name = EXCLUDED.business_name,
			model = EXCLUDED.model,
			failed_sections = EXCLUDED.failed_sections,
			body = EXCLUDED.body,
			duration_ms = EXCLUDED.duration_ms,
			estimated_cost_usd = EXCLUDED.estimated_cost_usd
	`
	_, err = r.db.ExecContext(ctx, query,
		report.ID,
		report.Meta.JobID,
		report.Domain,
		report.BusinessName,
		report.Meta.Model,
		report.Meta.FailedSections,
		body,
		report.Meta.DurationMillis,
		report.Meta.EstimatedCost,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

func (r *postgresReportRepo) Get(ctx context.Context, id string) (*core.FinalReport, error) {
	var body []byte
	err := r.db.QueryRowContext(ctx, `SELECT body FROM reports WHERE id = $1`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report core.FinalReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report %s: %w", id, err)
	}
	return &report, nil
}

func (r *postgresReportRepo) ListByDomain(ctx context.Context, domain string, limit int) ([]ReportSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, job_id, domain, business_name, model, failed_sections, created_at
		FROM reports
		WHERE ($1 = '' OR domain = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, domain, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	summaries := []ReportSummary{}
	for rows.Next() {
		var s ReportSummary
		if err := rows.Scan(&s.ID, &s.JobID, &s.Domain, &s.BusinessName, &s.Model, &s.FailedSections, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
