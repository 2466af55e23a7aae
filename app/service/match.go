package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/vibast-solutions/ms-go-desk-lookup/app/entity"
	"github.com/vibast-solutions/ms-go-desk-lookup/app/normalize"
)

// PlanMatcher answers the core query: which accounts hold at least every
// required plan. Two implementations exist, one over the in-memory
// snapshot and one pushing the filter down to the warehouse; both return
// the same result shape. Callers must reject an empty requirement before
// calling: the implementations disagree on it (MatchService keeps the
// literal superset-of-empty semantics and matches every entry, the
// push-down variant cannot express it and returns nothing), so behavior
// on an empty requirement is outside the contract.
type PlanMatcher interface {
	FindAccountsWithPlans(ctx context.Context, required []string) ([]entity.MatchResult, error)
}

// MatchService runs the superset query against the published plan index.
type MatchService struct {
	index *IndexService
}

func NewMatchService(index *IndexService) *MatchService {
	return &MatchService{index: index}
}

// FindAccountsWithPlans returns every entry whose plan set is a superset
// of required, annotated with the matching plans, the full plan list, and
// a completion descriptor, ordered by descending match count. An empty
// required set matches every entry; callers are expected to guard that
// upstream. No match is an empty result, not an error.
func (s *MatchService) FindAccountsWithPlans(_ context.Context, required []string) ([]entity.MatchResult, error) {
	index, err := s.index.Snapshot()
	if err != nil {
		return nil, err
	}

	requiredSet := cleanRequired(required)

	var results []entity.MatchResult
	for _, entry := range index.Entries {
		result, ok := annotateEntry(entry, requiredSet)
		if !ok {
			continue
		}
		results = append(results, result)
	}

	sortByMatchingCount(results)
	return results, nil
}

// RemoteMatchService is the push-down variant: the superset filter runs in
// the warehouse and only qualifying accounts come back.
type RemoteMatchService struct {
	repo remoteEntrySource
}

type remoteEntrySource interface {
	FindEntriesWithPlans(ctx context.Context, required []string) ([]entity.PlanIndexEntry, error)
}

func NewRemoteMatchService(repo remoteEntrySource) *RemoteMatchService {
	return &RemoteMatchService{repo: repo}
}

// FindAccountsWithPlans matches the MatchService contract except for the
// empty required set, which the push-down filter cannot express and which
// yields an empty result here.
func (s *RemoteMatchService) FindAccountsWithPlans(ctx context.Context, required []string) ([]entity.MatchResult, error) {
	requiredSet := cleanRequired(required)
	if len(requiredSet) == 0 {
		return nil, nil
	}

	entries, err := s.repo.FindEntriesWithPlans(ctx, requiredSet)
	if err != nil {
		return nil, err
	}

	results := make([]entity.MatchResult, 0, len(entries))
	for _, entry := range entries {
		// Warehouse rows never went through the index build, so its
		// exclusions are re-applied here: anonymized accounts dropped,
		// invalid titles stripped. annotateEntry then recomputes the
		// intersection rather than trusting the push-down filter.
		cleaned, ok := cleanRemoteEntry(entry)
		if !ok {
			continue
		}
		result, ok := annotateEntry(cleaned, requiredSet)
		if !ok {
			continue
		}
		results = append(results, result)
	}

	sortByMatchingCount(results)
	return results, nil
}

// cleanRemoteEntry applies the index build's row exclusions to a warehouse
// entry. The second return is false when the account's email is rejected.
func cleanRemoteEntry(entry entity.PlanIndexEntry) (entity.PlanIndexEntry, bool) {
	email, ok := normalize.Email(entry.Email)
	if !ok {
		return entity.PlanIndexEntry{}, false
	}

	plans := make(map[string]struct{}, len(entry.Plans))
	for _, raw := range entry.Plans {
		title, ok := normalize.Title(raw)
		if !ok {
			continue
		}
		plans[title] = struct{}{}
	}

	return entity.PlanIndexEntry{Email: email, Plans: sortedKeys(plans)}, true
}

// cleanRequired normalizes and deduplicates the requirement, returning it
// sorted.
func cleanRequired(required []string) []string {
	set := make(map[string]struct{}, len(required))
	for _, title := range required {
		cleaned := normalize.Clean(title)
		if cleaned == "" {
			continue
		}
		set[cleaned] = struct{}{}
	}
	return sortedKeys(set)
}

// annotateEntry tests whether entry.Plans contains every required plan
// and builds the result row.
// matching plans are computed by intersection even though the superset
// condition makes them equal to the requirement.
func annotateEntry(entry entity.PlanIndexEntry, required []string) (entity.MatchResult, bool) {
	owned := make(map[string]struct{}, len(entry.Plans))
	for _, plan := range entry.Plans {
		owned[plan] = struct{}{}
	}

	matching := make([]string, 0, len(required))
	for _, title := range required {
		if _, ok := owned[title]; ok {
			matching = append(matching, title)
		}
	}
	if len(matching) != len(required) {
		return entity.MatchResult{}, false
	}

	return entity.MatchResult{
		Email:         entry.Email,
		MatchingPlans: matching,
		AllPlans:      entry.Plans,
		MatchingCount: len(matching),
		Completion:    fmt.Sprintf("%d / %d plans", len(matching), len(required)),
		HasExtraPlans: len(entry.Plans) > len(matching),
	}, true
}

func sortByMatchingCount(results []entity.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchingCount > results[j].MatchingCount
	})
}
