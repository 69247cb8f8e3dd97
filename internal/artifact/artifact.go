// Package artifact names and persists report documents on local storage.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/mohammad-safakhou/reportbot/internal/report"
)

const (
	ExtMarkdown              = ".md"
	ExtHTML                  = ".html"
	ExtSupplementaryMarkdown = ".supplementary.txt"
	ExtSupplementaryHTML     = ".supplementary.html"
)

// timestampLayout is ISO 8601 with microseconds; Timestamp drops the "." so
// names contain only alphanumerics and sort by creation time.
const timestampLayout = "20060102T150405.000000"

// Paths are the local files written for one report kind.
type Paths struct {
	PrimaryMarkdown       string
	PrimaryHTML           string
	SupplementaryMarkdown string
	SupplementaryHTML     string
}

// All returns the paths in upload order.
func (p Paths) All() []string {
	return []string{p.PrimaryMarkdown, p.PrimaryHTML, p.SupplementaryMarkdown, p.SupplementaryHTML}
}

// Writer persists ArtifactSets.
type Writer struct {
	Fs  afero.Fs
	Now func() time.Time
}

func NewWriter(fs afero.Fs) *Writer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Writer{Fs: fs, Now: time.Now}
}

// Timestamp formats t for use in file names.
func Timestamp(t time.Time) string {
	return strings.ReplaceAll(t.Format(timestampLayout), ".", "")
}

// FileStem is {jobID}-{kind}_{ts}.
func FileStem(jobID, kind, ts string) string {
	return fmt.Sprintf("%s-%s_%s", jobID, kind, ts)
}

// Persist writes the four documents of set under outputDir. The timestamp is
// taken once per call.
func (w *Writer) Persist(outputDir, jobID, kind string, set report.ArtifactSet) (Paths, error) {
	if err := w.Fs.MkdirAll(outputDir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create output dir %s: %w", outputDir, err)
	}
	stem := filepath.Join(outputDir, FileStem(jobID, kind, Timestamp(w.Now())))
	paths := Paths{
		PrimaryMarkdown:       stem + ExtMarkdown,
		PrimaryHTML:           stem + ExtHTML,
		SupplementaryMarkdown: stem + ExtSupplementaryMarkdown,
		SupplementaryHTML:     stem + ExtSupplementaryHTML,
	}
	files := []struct {
		path, content string
	}{
		{paths.PrimaryMarkdown, set.PrimaryMarkdown},
		{paths.PrimaryHTML, set.PrimaryHTML},
		{paths.SupplementaryMarkdown, set.SupplementaryMarkdown},
		{paths.SupplementaryHTML, set.SupplementaryHTML},
	}
	for _, f := range files {
		if err := w.write(f.path, f.content); err != nil {
			return Paths{}, err
		}
	}
	return paths, nil
}

func (w *Writer) write(path, content string) (err error) {
	f, err := w.Fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}
	return nil
}
