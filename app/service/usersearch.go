package service

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/vibast-solutions/ms-go-desk-lookup/app/entity"
	"github.com/vibast-solutions/ms-go-desk-lookup/app/normalize"

	"github.com/sirupsen/logrus"
)

type userSource interface {
	LoadUserRows(ctx context.Context) ([]entity.UserRecord, error)
}

// UserSearchService answers username lookups against a snapshot of the
// user export. Accounts with purely numeric email local parts are dropped
// at build time and never appear in results.
type UserSearchService struct {
	source   userSource
	snapshot atomic.Pointer[[]entity.UserRecord]
}

func NewUserSearchService(source userSource) *UserSearchService {
	return &UserSearchService{source: source}
}

// Rebuild loads the user rows, normalizes them and publishes a fresh
// snapshot sorted by username then email. Returns the published record
// count.
func (s *UserSearchService) Rebuild(ctx context.Context) (int, error) {
	rows, err := s.source.LoadUserRows(ctx)
	if err != nil {
		return 0, err
	}

	rejected := 0
	records := make([]entity.UserRecord, 0, len(rows))
	for _, row := range rows {
		username := strings.TrimSpace(row.Username)
		if username == "" {
			rejected++
			continue
		}
		email, ok := normalize.Email(row.Email)
		if !ok {
			rejected++
			continue
		}
		records = append(records, entity.UserRecord{
			Username: username,
			Email:    email,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Username != records[j].Username {
			return records[i].Username < records[j].Username
		}
		return records[i].Email < records[j].Email
	})

	s.snapshot.Store(&records)

	logrus.WithFields(logrus.Fields{
		"records":  len(records),
		"rejected": rejected,
	}).Info("User records rebuilt")

	return len(records), nil
}

// SearchByUsername returns every record whose username contains needle,
// case-insensitively. An empty needle matches every record; callers are
// expected to treat empty input as "no query yet" and not get here.
func (s *UserSearchService) SearchByUsername(_ context.Context, needle string) ([]entity.UserRecord, error) {
	records := s.snapshot.Load()
	if records == nil {
		return nil, ErrIndexNotReady
	}

	needle = strings.ToLower(strings.TrimSpace(needle))

	var matches []entity.UserRecord
	for _, record := range *records {
		if strings.Contains(strings.ToLower(record.Username), needle) {
			matches = append(matches, record)
		}
	}
	return matches, nil
}
