package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// minChunkRows is the floor below which a split attempt gives up instead of
// shrinking further.
const minChunkRows = 1000

// DeleteUserExportParts removes previously written user export parts and
// returns how many were deleted.
func (s *CSVStore) DeleteUserExportParts() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	deleted := 0
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, s.userExportPrefix) || !strings.HasSuffix(name, ".csv") {
			continue
		}
		if name == s.userExportPrefix+".csv" {
			continue
		}
		if err = os.Remove(filepath.Join(s.dir, name)); err != nil {
			return deleted, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		deleted++
	}
	return deleted, nil
}

// SplitUserExport re-chunks a user export into numbered parts no larger
// than maxBytes each. When a part overshoots the cap, the chunk size is
// halved and the whole split restarts; below minChunkRows it gives up.
// Returns the number of parts written.
func (s *CSVStore) SplitUserExport(path string, maxBytes int64, chunkRows int) (int, error) {
	if _, err := s.DeleteUserExportParts(); err != nil {
		return 0, err
	}

	for chunkRows >= minChunkRows {
		parts, err := s.splitOnce(path, maxBytes, chunkRows)
		if err == nil {
			return parts, nil
		}
		if !errors.Is(err, errPartTooLarge) {
			return 0, err
		}
		chunkRows /= 2
	}

	return 0, fmt.Errorf("chunk size below %d rows, cannot split %s under %d bytes", minChunkRows, path, maxBytes)
}

var errPartTooLarge = errors.New("part exceeds size cap")

func (s *CSVStore) splitOnce(path string, maxBytes int64, chunkRows int) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	part := 0
	for {
		records, readErr := readChunk(r, chunkRows)
		if readErr != nil && readErr != io.EOF {
			return 0, fmt.Errorf("%w: %v", ErrSourceUnavailable, readErr)
		}
		if len(records) == 0 {
			break
		}

		partPath := filepath.Join(s.dir, fmt.Sprintf("%s%d.csv", s.userExportPrefix, part))
		if err = writePart(partPath, header, records); err != nil {
			return 0, err
		}

		info, err := os.Stat(partPath)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		if info.Size() > maxBytes {
			os.Remove(partPath)
			if _, err = s.DeleteUserExportParts(); err != nil {
				return 0, err
			}
			return 0, errPartTooLarge
		}

		part++
		if readErr == io.EOF {
			break
		}
	}

	return part, nil
}

// readChunk reads up to n records; a nil error means more records remain.
func readChunk(r *csv.Reader, n int) ([][]string, error) {
	var records [][]string
	for len(records) < n {
		record, err := r.Read()
		if err == io.EOF {
			return records, io.EOF
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func writePart(path string, header []string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err = w.Write(header); err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if err = w.WriteAll(records); err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return f.Close()
}
