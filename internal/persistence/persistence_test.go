package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/karthiknish/profici-comp-sub000/internal/core"
)

func newMockDB(t *testing.T) (*PostgresDB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresDBWithConn(db), mock
}

func sampleReport() *core.FinalReport {
	return &core.FinalReport{
		ID:           "rep-1",
		Domain:       "acme.co.uk",
		BusinessName: "Acme",
		GeneratedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Sections: map[core.SectionKey]any{
			core.SectionTrends: map[string]any{"summary": "steady"},
		},
		Meta: core.ReportMeta{
			JobID:          "job-1",
			Model:          "gemini-2.0-flash",
			DurationMillis: 4200,
			FailedSections: 2,
			EstimatedCost:  0.0123,
		},
	}
}

func TestReportSave(t *testing.T) {
	pg, mock := newMockDB(t)
	report := sampleReport()

	mock.ExpectExec("INSERT INTO reports").
		WithArgs("rep-1", "job-1", "acme.co.uk", "Acme", "gemini-2.0-flash", 2, sqlmock.AnyArg(), int64(4200), 0.0123, report.GeneratedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := pg.Reports().Save(context.Background(), report); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestReportSave_Invalid(t *testing.T) {
	pg, mock := newMockDB(t)

	if err := pg.Reports().Save(context.Background(), nil); err == nil {
		t.Error("Expected error for nil report")
	}
	if err := pg.Reports().Save(context.Background(), &core.FinalReport{}); err == nil {
		t.Error("Expected error for report without id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("No statements expected: %v", err)
	}
}

func TestReportSave_ExecError(t *testing.T) {
	pg, mock := newMockDB(t)
	mock.ExpectExec("INSERT INTO reports").WillReturnError(errors.New("connection reset"))

	if err := pg.Reports().Save(context.Background(), sampleReport()); err == nil {
		t.Error("Expected error from failed insert")
	}
}

func TestReportGet(t *testing.T) {
	pg, mock := newMockDB(t)
	body, err := json.Marshal(sampleReport())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	mock.ExpectQuery("SELECT body FROM reports WHERE id").
		WithArgs("rep-1").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow(body))

	got, err := pg.Reports().Get(context.Background(), "rep-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Domain != "acme.co.uk" || got.Meta.JobID != "job-1" {
		t.Errorf("Unexpected report %+v", got)
	}
	trends, ok := got.Sections[core.SectionTrends].(map[string]any)
	if !ok || trends["summary"] != "steady" {
		t.Errorf("Sections not restored: %+v", got.Sections)
	}
}

func TestReportGet_NotFound(t *testing.T) {
	pg, mock := newMockDB(t)
	mock.ExpectQuery("SELECT body FROM reports WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"body"}))

	_, err := pg.Reports().Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestReportListByDomain(t *testing.T) {
	pg, mock := newMockDB(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, job_id, domain").
		WithArgs("acme.co.uk", DefaultListLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "job_id", "domain", "business_name", "model", "failed_sections", "created_at"}).
			AddRow("rep-2", "job-2", "acme.co.uk", "Acme", "gpt-4o-mini", 0, created.Add(time.Hour)).
			AddRow("rep-1", "job-1", "acme.co.uk", "Acme", "gemini-2.0-flash", 2, created))

	got, err := pg.Reports().ListByDomain(context.Background(), "acme.co.uk", 0)
	if err != nil {
		t.Fatalf("ListByDomain failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 summaries, got %d", len(got))
	}
	if got[0].ID != "rep-2" || got[1].FailedSections != 2 {
		t.Errorf("Unexpected summaries %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestReportListByDomain_Empty(t *testing.T) {
	pg, mock := newMockDB(t)
	mock.ExpectQuery("SELECT id, job_id, domain").
		WithArgs("", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "job_id", "domain", "business_name", "model", "failed_sections", "created_at"}))

	got, err := pg.Reports().ListByDomain(context.Background(), "", 5)
	if err != nil {
		t.Fatalf("ListByDomain failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", got)
	}
}

func TestLoadMigrations(t *testing.T) {
	m := &MigrationManager{}
	migrations, err := m.loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations failed: %v", err)
	}
	if len(migrations) < 2 {
		t.Fatalf("Expected at least 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Description != "create reports" {
		t.Errorf("Unexpected first migration %+v", migrations[0])
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version <= migrations[i-1].Version {
			t.Errorf("Migrations not sorted: %d after %d", migrations[i].Version, migrations[i-1].Version)
		}
	}
}

func TestPendingMigrations(t *testing.T) {
	available := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}
	applied := map[int]time.Time{1: time.Now(), 3: time.Now()}

	pending := pendingMigrations(available, applied)
	if len(pending) != 1 || pending[0].Version != 2 {
		t.Errorf("Expected only migration 2 pending, got %+v", pending)
	}
}

func TestParseMigrationName(t *testing.T) {
	tests := []struct {
		name        string
		version     int
		description string
		ok          bool
	}{
		{"001_create_reports.sql", 1, "create reports", true},
		{"012_add_index.sql", 12, "add index", true},
		{"create_reports.sql", 0, "", false},
		{"001.sql", 0, "", false},
		{"001_notes.txt", 0, "", false},
		{"000_zero.sql", 0, "", false},
	}
	for _, tt := range tests {
		version, description, ok := parseMigrationName(tt.name)
		if version != tt.version || description != tt.description || ok != tt.ok {
			t.Errorf("parseMigrationName(%q) = %d, %q, %v", tt.name, version, description, ok)
		}
	}
}

func TestMigrate_AppliesPending(t *testing.T) {
	pg, mock := newMockDB(t)
	m := NewMigrationManager(pg)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version, applied_at FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version", "applied_at"}).AddRow(1, time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec("ALTER TABLE reports").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs(2, "report duration").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := m.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestMigrate_FailedMigrationRollsBack(t *testing.T) {
	pg, mock := newMockDB(t)
	m := NewMigrationManager(pg)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version, applied_at FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version", "applied_at"}))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS reports").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	if err := m.Migrate(context.Background()); err == nil {
		t.Fatal("Expected migration error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestStatus(t *testing.T) {
	pg, mock := newMockDB(t)
	m := NewMigrationManager(pg)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version, applied_at FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version", "applied_at"}).AddRow(1, time.Now()))

	status, err := m.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(status) < 2 || !status[0].Applied || status[0].AppliedAt.IsZero() || status[1].Applied {
		t.Errorf("Unexpected status %+v", status)
	}
}
