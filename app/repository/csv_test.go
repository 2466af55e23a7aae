package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-desk-lookup/app/entity"
	"github.com/vibast-solutions/ms-go-desk-lookup/app/repository"
	"github.com/vibast-solutions/ms-go-desk-lookup/app/service"
	"github.com/vibast-solutions/ms-go-desk-lookup/config"
)

func newTestStore(t *testing.T) (*repository.CSVStore, string) {
	t.Helper()

	dir := t.TempDir()
	store := repository.NewCSVStore(config.DataConfig{
		Dir:              dir,
		PlanExportFile:   "grouped_by_email.csv",
		LettersFile:      "letters.csv",
		UserExportPrefix: "user_part",
	})
	return store, dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s failed: %v", name, err)
	}
	return path
}

func TestLoadRawPlanRows(t *testing.T) {
	store, dir := newTestStore(t)
	path := writeFile(t, dir, "raw.csv",
		"email,title,created_at\n"+
			"a@x.com,Plan B,2024-01-01\n"+
			"b@x.com,Plan C,2024-01-02\n")

	rows, hasEmail, err := store.LoadRawPlanRows(context.Background(), path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !hasEmail {
		t.Fatal("expected email column to be detected")
	}

	want := []entity.RawPlanRow{
		{Email: "a@x.com", Title: "Plan B"},
		{Email: "b@x.com", Title: "Plan C"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestLoadRawPlanRowsWithoutEmailColumn(t *testing.T) {
	store, dir := newTestStore(t)
	path := writeFile(t, dir, "titles.csv", "title_cleaned\nplan b\nplan c\n")

	rows, hasEmail, err := store.LoadRawPlanRows(context.Background(), path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if hasEmail {
		t.Fatal("expected no email column")
	}
	if len(rows) != 2 || rows[0].Title != "plan b" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestLoadRawPlanRowsMissingTitleColumn(t *testing.T) {
	store, dir := newTestStore(t)
	path := writeFile(t, dir, "bad.csv", "email,created_at\na@x.com,2024-01-01\n")

	_, _, err := store.LoadRawPlanRows(context.Background(), path)
	if !errors.Is(err, repository.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestLoadRawPlanRowsMissingFile(t *testing.T) {
	store, dir := newTestStore(t)

	_, _, err := store.LoadRawPlanRows(context.Background(), filepath.Join(dir, "nope.csv"))
	if !errors.Is(err, repository.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestLoadRawPlanRowsHonorsContext(t *testing.T) {
	store, dir := newTestStore(t)
	path := writeFile(t, dir, "raw.csv", "title\nplan b\n")

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, _, err := store.LoadRawPlanRows(ctx, path)
	if !errors.Is(err, repository.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable for expired context, got %v", err)
	}
}

func TestPlanIndexRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	original := service.BuildPlanIndex([]entity.RawPlanRow{
		{Email: "a@x.com", Title: "Plan C"},
		{Email: "a@x.com", Title: "Plan B"},
		{Email: "b@x.com", Title: "Plan B"},
	}, true)

	if err := store.WritePlanIndex(original); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	rows, err := store.ReadPlanIndexRows(context.Background())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	rebuilt := service.BuildPlanIndex(rows, true)

	if !reflect.DeepEqual(rebuilt.Entries, original.Entries) {
		t.Fatalf("round trip changed entries: %v vs %v", rebuilt.Entries, original.Entries)
	}
}

func TestLettersRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.WriteLetters([]string{"a", "g", "p"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	letters, err := store.ReadLetters(context.Background())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !reflect.DeepEqual(letters, []string{"a", "g", "p"}) {
		t.Fatalf("unexpected letters: %v", letters)
	}
}

func TestLoadUserRowsConcatenatesParts(t *testing.T) {
	store, dir := newTestStore(t)
	writeFile(t, dir, "user_part0.csv", "username,email\nalice,a@x.com\n")
	writeFile(t, dir, "user_part1.csv", "username,email\nbob,b@x.com\n")
	// Part 3 is unreachable: part 2 is missing and ends the sequence.
	writeFile(t, dir, "user_part3.csv", "username,email\neve,e@x.com\n")

	records, err := store.LoadUserRows(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	want := []entity.UserRecord{
		{Username: "alice", Email: "a@x.com"},
		{Username: "bob", Email: "b@x.com"},
	}
	if !reflect.DeepEqual(records, want) {
		t.Fatalf("unexpected records: %v", records)
	}
}

func TestLoadUserRowsSingleFileFallback(t *testing.T) {
	store, dir := newTestStore(t)
	writeFile(t, dir, "user_part.csv", "username,email\nalice,a@x.com\n")

	records, err := store.LoadUserRows(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(records) != 1 || records[0].Username != "alice" {
		t.Fatalf("unexpected records: %v", records)
	}
}

func TestLoadUserRowsMissingColumns(t *testing.T) {
	store, dir := newTestStore(t)
	writeFile(t, dir, "user_part0.csv", "username\nalice\n")

	if _, err := store.LoadUserRows(context.Background()); !errors.Is(err, repository.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestLoadUserRowsNoExport(t *testing.T) {
	store, _ := newTestStore(t)

	if _, err := store.LoadUserRows(context.Background()); !errors.Is(err, repository.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}
