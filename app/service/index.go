package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vibast-solutions/ms-go-desk-lookup/app/entity"
	"github.com/vibast-solutions/ms-go-desk-lookup/app/normalize"

	"github.com/sirupsen/logrus"
)

var (
	ErrIndexNotReady = errors.New("index not built yet")
	ErrUnknownLetter = errors.New("no plans for that letter")
)

type planSource interface {
	PlanRows(ctx context.Context) (rows []entity.RawPlanRow, hasEmail bool, err error)
}

// IndexService builds the plan index from its source and publishes each
// build as an immutable snapshot. Concurrent readers always see a complete
// snapshot; a rebuild swaps the pointer, never mutates in place.
type IndexService struct {
	source   planSource
	snapshot atomic.Pointer[entity.PlanIndex]
}

func NewIndexService(source planSource) *IndexService {
	return &IndexService{source: source}
}

// Rebuild loads the source rows, builds a fresh index and publishes it.
func (s *IndexService) Rebuild(ctx context.Context) (*entity.PlanIndex, error) {
	rows, hasEmail, err := s.source.PlanRows(ctx)
	if err != nil {
		return nil, err
	}

	index := BuildPlanIndex(rows, hasEmail)
	s.snapshot.Store(index)

	logrus.WithFields(logrus.Fields{
		"entries":         len(index.Entries),
		"titles":          len(index.Titles),
		"letters":         len(index.Letters),
		"rejected_titles": index.RejectedTitles,
		"rejected_emails": index.RejectedEmails,
	}).Info("Plan index rebuilt")

	return index, nil
}

// Snapshot returns the current index, or ErrIndexNotReady before the first
// successful build.
func (s *IndexService) Snapshot() (*entity.PlanIndex, error) {
	index := s.snapshot.Load()
	if index == nil {
		return nil, ErrIndexNotReady
	}
	return index, nil
}

// Letters returns the letter index of the current snapshot.
func (s *IndexService) Letters() ([]string, error) {
	index, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return index.Letters, nil
}

// PlansStartingWith returns the distinct plan titles beginning with the
// given letter, in sorted order.
func (s *IndexService) PlansStartingWith(letter string) ([]string, error) {
	index, err := s.Snapshot()
	if err != nil {
		return nil, err
	}

	prefix := normalize.Clean(letter)
	if prefix == "" {
		return nil, ErrUnknownLetter
	}

	var titles []string
	for _, title := range index.Titles {
		if strings.HasPrefix(title, prefix) {
			titles = append(titles, title)
		}
	}
	return titles, nil
}

// BuildPlanIndex turns raw export rows into a plan index: titles are
// normalized and invalid ones dropped, rows grouped by normalized email
// into sorted deduplicated plan sets. When the source has no email column
// only the title and letter indices are produced. Output is deterministic
// regardless of row order.
func BuildPlanIndex(rows []entity.RawPlanRow, hasEmail bool) *entity.PlanIndex {
	index := &entity.PlanIndex{BuiltAt: time.Now()}

	titleSet := make(map[string]struct{})
	byEmail := make(map[string]map[string]struct{})

	for _, row := range rows {
		title, ok := normalize.Title(row.Title)
		if !ok {
			index.RejectedTitles++
			continue
		}
		titleSet[title] = struct{}{}

		if !hasEmail {
			continue
		}
		email, ok := normalize.Email(row.Email)
		if !ok {
			index.RejectedEmails++
			continue
		}
		plans, ok := byEmail[email]
		if !ok {
			plans = make(map[string]struct{})
			byEmail[email] = plans
		}
		plans[title] = struct{}{}
	}

	index.Titles = sortedKeys(titleSet)

	letterSet := make(map[string]struct{})
	for _, title := range index.Titles {
		letterSet[string([]rune(title)[0])] = struct{}{}
	}
	index.Letters = sortedKeys(letterSet)

	if hasEmail {
		index.Entries = make([]entity.PlanIndexEntry, 0, len(byEmail))
		for email, plans := range byEmail {
			index.Entries = append(index.Entries, entity.PlanIndexEntry{
				Email: email,
				Plans: sortedKeys(plans),
			})
		}
		sort.Slice(index.Entries, func(i, j int) bool {
			return index.Entries[i].Email < index.Entries[j].Email
		})
	}

	return index
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
