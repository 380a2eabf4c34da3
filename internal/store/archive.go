package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"polywatch/internal/domain"
)

// Compile-time interface check.
var _ PostedStore = (*ParquetArchive)(nil)

// ParquetArchive implements PostedStore using one Parquet file per day:
//
//	<DataDir>/posted/<YYYY-MM-DD>.parquet
//
// History files are append-only; a day's file is rewritten with the merged
// record set on each append.
type ParquetArchive struct {
	DataDir string

	// now is overridable in tests.
	now func() time.Time
}

// NewParquetArchive creates a ParquetArchive rooted at the given data
// directory.
func NewParquetArchive(dataDir string) *ParquetArchive {
	return &ParquetArchive{DataDir: dataDir, now: time.Now}
}

// PostedRecord is the Parquet schema for one posted event.
type PostedRecord struct {
	Slug     string `parquet:"slug"`
	Title    string `parquet:"title"`
	PostedAt int64  `parquet:"posted_at,timestamp(millisecond)"` // Unix ms
	Snapshot string `parquet:"snapshot"`                         // full event JSON
}

// AppendPosted records events as posted now. Events already present in
// the day's file (same slug) are skipped.
func (a *ParquetArchive) AppendPosted(_ context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	now := a.now().UTC()
	path := a.dayPath(now)

	existing, _ := readParquetFile[PostedRecord](path)
	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[r.Slug] = true
	}

	merged := existing
	for i := range events {
		e := &events[i]
		if e.Slug == "" || seen[e.Slug] {
			continue
		}
		seen[e.Slug] = true

		snap, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding snapshot for %s: %w", e.Slug, err)
		}
		merged = append(merged, PostedRecord{
			Slug:     e.Slug,
			Title:    e.Title,
			PostedAt: now.UnixMilli(),
			Snapshot: string(snap),
		})
	}

	if len(merged) == len(existing) {
		return nil
	}
	if err := writeParquetFile(path, merged); err != nil {
		return fmt.Errorf("writing posted archive: %w", err)
	}
	return nil
}

// RecentPosted returns up to limit posted events, newest first, reading
// day files backwards from the most recent.
func (a *ParquetArchive) RecentPosted(_ context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		return nil, nil
	}

	dir := filepath.Join(a.DataDir, "posted")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dates []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".parquet") {
			continue
		}
		dates = append(dates, strings.TrimSuffix(e.Name(), ".parquet"))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	var records []PostedRecord
	for _, date := range dates {
		day, err := readParquetFile[PostedRecord](filepath.Join(dir, date+".parquet"))
		if err != nil {
			continue
		}
		records = append(records, day...)
		if len(records) >= limit {
			break
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].PostedAt > records[j].PostedAt
	})
	if len(records) > limit {
		records = records[:limit]
	}

	events := make([]domain.Event, 0, len(records))
	for _, r := range records {
		var e domain.Event
		if err := json.Unmarshal([]byte(r.Snapshot), &e); err != nil {
			// Fall back to the columnar fields rather than dropping the row.
			e = domain.Event{Slug: r.Slug, Title: r.Title}
		}
		events = append(events, e)
	}
	return events, nil
}

// dayPath returns the archive file path for the given day.
func (a *ParquetArchive) dayPath(t time.Time) string {
	return filepath.Join(a.DataDir, "posted", t.Format("2006-01-02")+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}
