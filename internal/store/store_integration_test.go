package store_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mohammad-safakhou/reportbot/internal/store"
)

func findMigrationsDir(t *testing.T) string {
	t.Helper()
	cwd, _ := os.Getwd()
	for i := 0; i < 6; i++ {
		candidate := filepath.Join(cwd, "migrations")
		if st, err := os.Stat(candidate); err == nil && st.IsDir() {
			return "file://" + candidate
		}
		cwd = filepath.Dir(cwd)
	}
	t.Fatalf("could not locate migrations directory from test cwd")
	return ""
}

func TestStoreAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcPostgres.WithDatabase("reportbot"),
		tcPostgres.WithUsername("reportbot"),
		tcPostgres.WithPassword("reportbot"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp")),
	)
	if err != nil {
		t.Fatalf("postgres container: %v", err)
	}
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	port, err := pgC.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://reportbot:reportbot@%s:%s/reportbot?sslmode=disable", host, port.Port())

	var migErr error
	for i := 0; i < 6; i++ {
		if migErr = store.Migrate(findMigrationsDir(t), dsn, "up", 0); migErr == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if migErr != nil {
		t.Fatalf("migrate: %v", migErr)
	}

	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		t.Fatalf("store init: %v", err)
	}
	defer st.Close()

	rec := store.ReportRecord{
		JobID:                    "job-1",
		Query:                    "climate change policy",
		ReportKind:               "research",
		Cost:                     0.12,
		MarkdownURL:              "https://files.example/job-1-research_1.md",
		HTMLURL:                  "https://files.example/job-1-research_1.html",
		SupplementaryMarkdownURL: "https://files.example/job-1-research_1.supplementary.txt",
		SupplementaryHTMLURL:     "https://files.example/job-1-research_1.supplementary.html",
		Sources:                  []string{"https://a.example"},
	}
	if err := st.InsertReport(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	rerun := rec
	rerun.MarkdownURL = "https://files.example/job-1-research_2.md"
	rerun.HTMLURL = "https://files.example/job-1-research_2.html"
	if err := st.InsertReport(ctx, rerun); err != nil {
		t.Fatalf("rerun insert: %v", err)
	}

	got, err := st.ListReports(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Query != rec.Query || len(got[0].Sources) != 1 {
		t.Fatalf("got = %+v", got)
	}
	if got[0].MarkdownURL != rerun.MarkdownURL || got[0].HTMLURL != rerun.HTMLURL {
		t.Fatalf("rerun URLs not kept: %+v", got[0])
	}
}
