package store

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/mohammad-safakhou/reportbot/internal/pipeline"
)

func TestReportPublishedInsertsRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	res := pipeline.ReportKindResult{
		JobID:                    "job-1",
		Query:                    "climate",
		ReportKind:               "research",
		Cost:                     0.3,
		ElapsedSeconds:           42,
		MarkdownURL:              "https://d/a.md",
		HTMLURL:                  "https://d/a.html",
		SupplementaryMarkdownURL: "https://d/a.supplementary.txt",
		SupplementaryHTMLURL:     "https://d/a.supplementary.html",
		Sources:                  []string{"https://src"},
		CreatedAt:                created,
	}

	mock.ExpectExec(`INSERT INTO reports`).
		WithArgs("job-1", "climate", "research", "alice", 0.3, 42.0,
			"https://d/a.md", "https://d/a.html", "https://d/a.supplementary.txt", "https://d/a.supplementary.html",
			sqlmock.AnyArg(), created).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := st.ReportPublished(context.Background(), pipeline.Job{Requester: "alice"}, res); err != nil {
		t.Fatalf("ReportPublished: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertReportReplacesEarlierRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`ON CONFLICT \(job_id, report_kind\) DO UPDATE SET(.|\n)*markdown_url = EXCLUDED\.markdown_url(.|\n)*html_url = EXCLUDED\.html_url`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	err = (&Store{DB: db}).InsertReport(context.Background(), ReportRecord{
		JobID:       "nightly",
		ReportKind:  "research",
		MarkdownURL: "https://d/nightly-research_20240502T000000000000.md",
	})
	if err != nil {
		t.Fatalf("InsertReport: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertReportWrapsError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectExec(`INSERT INTO reports`).WillReturnError(boom)
	err = (&Store{DB: db}).InsertReport(context.Background(), ReportRecord{JobID: "j", ReportKind: "outline"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestListReports(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "job_id", "query", "report_kind", "requester", "cost", "elapsed_seconds",
		"markdown_url", "html_url", "supplementary_markdown_url", "supplementary_html_url", "sources", "created_at"}).
		AddRow(2, "job-2", "q2", "outline", "bob", 0.1, 3.5, "m", "h", "sm", "sh", "{https://a,https://b}", created).
		AddRow(1, "job-1", "q1", "research", "", 0.2, 7.0, "m1", "h1", "sm1", "sh1", "{}", created)
	mock.ExpectQuery(`SELECT id, job_id, query, report_kind`).WithArgs(DefaultListLimit).WillReturnRows(rows)

	got, err := (&Store{DB: db}).ListReports(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(got) != 2 || got[0].JobID != "job-2" || got[1].ReportKind != "research" {
		t.Fatalf("got = %+v", got)
	}
	if len(got[0].Sources) != 2 || got[0].Sources[1] != "https://b" {
		t.Fatalf("sources = %v", got[0].Sources)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMigrateRequiresDSN(t *testing.T) {
	if err := Migrate("file://migrations", "", "up", 0); err == nil {
		t.Fatal("expected error without dsn")
	}
}
