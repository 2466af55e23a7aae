package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vibast-solutions/ms-go-desk-lookup/app/entity"
	"github.com/vibast-solutions/ms-go-desk-lookup/config"
)

// ctxCheckInterval is how many rows a read loop scans between context
// checks.
const ctxCheckInterval = 1000

// CSVStore reads and writes the flat-file exports: a raw plan export, the
// grouped plan-index export, the letters export, and the chunked user
// export parts.
type CSVStore struct {
	dir              string
	planExportFile   string
	lettersFile      string
	userExportPrefix string
}

func NewCSVStore(cfg config.DataConfig) *CSVStore {
	return &CSVStore{
		dir:              cfg.Dir,
		planExportFile:   cfg.PlanExportFile,
		lettersFile:      cfg.LettersFile,
		userExportPrefix: cfg.UserExportPrefix,
	}
}

// LoadRawPlanRows reads a raw plan export. The title column ("title" or
// "title_cleaned") is mandatory; the email column is optional (letters-only
// builds); every other column is ignored. hasEmail reports whether an email
// column was present.
func (s *CSVStore) LoadRawPlanRows(ctx context.Context, path string) (rows []entity.RawPlanRow, hasEmail bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	titleCol := findColumn(header, "title_cleaned", "title")
	if titleCol < 0 {
		return nil, false, fmt.Errorf("%w: title", ErrMissingColumn)
	}
	emailCol := findColumn(header, "email")

	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err = ctx.Err(); err != nil {
				return nil, false, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
			}
		}

		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		if titleCol >= len(record) {
			continue
		}

		row := entity.RawPlanRow{Title: record[titleCol]}
		if emailCol >= 0 && emailCol < len(record) {
			row.Email = record[emailCol]
		}
		rows = append(rows, row)
	}

	return rows, emailCol >= 0, nil
}

// LoadUserRows concatenates the chunked user export parts
// (<prefix>0.csv, <prefix>1.csv, ...) in part order; a missing part number
// ends the sequence. A single <prefix>.csv file is accepted when no
// numbered part exists. Both username and email columns are mandatory.
func (s *CSVStore) LoadUserRows(ctx context.Context) ([]entity.UserRecord, error) {
	paths := s.userExportParts()
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no user export found under %s", ErrSourceUnavailable, s.dir)
	}

	var records []entity.UserRecord
	for _, path := range paths {
		chunk, err := s.readUserFile(ctx, path)
		if err != nil {
			return nil, err
		}
		records = append(records, chunk...)
	}
	return records, nil
}

func (s *CSVStore) userExportParts() []string {
	var paths []string
	for i := 0; ; i++ {
		path := filepath.Join(s.dir, fmt.Sprintf("%s%d.csv", s.userExportPrefix, i))
		if _, err := os.Stat(path); err != nil {
			break
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		single := filepath.Join(s.dir, s.userExportPrefix+".csv")
		if _, err := os.Stat(single); err == nil {
			paths = append(paths, single)
		}
	}
	return paths
}

func (s *CSVStore) readUserFile(ctx context.Context, path string) ([]entity.UserRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	usernameCol := findColumn(header, "username")
	if usernameCol < 0 {
		return nil, fmt.Errorf("%w: username", ErrMissingColumn)
	}
	emailCol := findColumn(header, "email")
	if emailCol < 0 {
		return nil, fmt.Errorf("%w: email", ErrMissingColumn)
	}

	var records []entity.UserRecord
	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err = ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
			}
		}

		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		if usernameCol >= len(record) || emailCol >= len(record) {
			continue
		}

		records = append(records, entity.UserRecord{
			Username: record[usernameCol],
			Email:    record[emailCol],
		})
	}

	return records, nil
}

// PlanRows is the serving-path row source: it re-parses the grouped
// plan-index export. The grouped export always carries emails.
func (s *CSVStore) PlanRows(ctx context.Context) ([]entity.RawPlanRow, bool, error) {
	rows, err := s.ReadPlanIndexRows(ctx)
	if err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

// WritePlanIndex writes the grouped plan-index export: one row per account
// email with the comma-joined sorted plan set.
func (s *CSVStore) WritePlanIndex(index *entity.PlanIndex) error {
	path := filepath.Join(s.dir, s.planExportFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err = w.Write([]string{"email", "title_cleaned"}); err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	for _, e := range index.Entries {
		if err = w.Write([]string{e.Email, strings.Join(e.Plans, ",")}); err != nil {
			return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return f.Close()
}

// ReadPlanIndexRows re-parses the grouped plan-index export back into raw
// rows: one row per (email, plan) pair. Feeding these through the index
// builder reconstructs an equivalent index.
func (s *CSVStore) ReadPlanIndexRows(ctx context.Context) ([]entity.RawPlanRow, error) {
	path := filepath.Join(s.dir, s.planExportFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	emailCol := findColumn(header, "email")
	if emailCol < 0 {
		return nil, fmt.Errorf("%w: email", ErrMissingColumn)
	}
	titleCol := findColumn(header, "title_cleaned", "title")
	if titleCol < 0 {
		return nil, fmt.Errorf("%w: title_cleaned", ErrMissingColumn)
	}

	var rows []entity.RawPlanRow
	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err = ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
			}
		}

		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		if emailCol >= len(record) || titleCol >= len(record) {
			continue
		}

		for _, title := range strings.Split(record[titleCol], ",") {
			rows = append(rows, entity.RawPlanRow{
				Email: record[emailCol],
				Title: title,
			})
		}
	}

	return rows, nil
}

// WriteLetters writes the letters export: one row per distinct leading
// character across all valid plan titles.
func (s *CSVStore) WriteLetters(letters []string) error {
	path := filepath.Join(s.dir, s.lettersFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err = w.Write([]string{"first_letter"}); err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	for _, letter := range letters {
		if err = w.Write([]string{letter}); err != nil {
			return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return f.Close()
}

// ReadLetters reads the letters export back, sorted and deduplicated.
func (s *CSVStore) ReadLetters(ctx context.Context) ([]string, error) {
	path := filepath.Join(s.dir, s.lettersFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	col := findColumn(header, "first_letter")
	if col < 0 {
		return nil, fmt.Errorf("%w: first_letter", ErrMissingColumn)
	}

	seen := make(map[string]struct{})
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		if col >= len(record) {
			continue
		}
		letter := strings.ToLower(strings.TrimSpace(record[col]))
		if letter == "" {
			continue
		}
		seen[letter] = struct{}{}
	}

	letters := make([]string, 0, len(seen))
	for letter := range seen {
		letters = append(letters, letter)
	}
	sort.Strings(letters)
	return letters, nil
}

func findColumn(header []string, names ...string) int {
	for _, name := range names {
		for i, col := range header {
			if strings.EqualFold(strings.TrimSpace(col), name) {
				return i
			}
		}
	}
	return -1
}
