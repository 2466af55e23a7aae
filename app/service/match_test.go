package service_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/vibast-solutions/ms-go-desk-lookup/app/entity"
	"github.com/vibast-solutions/ms-go-desk-lookup/app/repository"
	"github.com/vibast-solutions/ms-go-desk-lookup/app/service"
)

func newMatchFixture(t *testing.T) *service.MatchService {
	t.Helper()

	source := &stubPlanSource{
		rows: []entity.RawPlanRow{
			{Email: "a@x.com", Title: "plan x"},
			{Email: "a@x.com", Title: "plan y"},
			{Email: "a@x.com", Title: "plan z"},
			{Email: "b@x.com", Title: "plan x"},
			{Email: "c@x.com", Title: "plan x"},
			{Email: "c@x.com", Title: "plan y"},
		},
		hasEmail: true,
	}
	index := service.NewIndexService(source)
	if _, err := index.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	return service.NewMatchService(index)
}

func TestFindAccountsWithPlansSupersetFilter(t *testing.T) {
	matcher := newMatchFixture(t)

	results, err := matcher.FindAccountsWithPlans(context.Background(), []string{"plan x", "plan y"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, result := range results {
		if result.Email == "b@x.com" {
			t.Fatal("b@x.com does not hold plan y and must not match")
		}
		if result.MatchingCount != 2 {
			t.Fatalf("matching count must equal requirement size, got %d", result.MatchingCount)
		}
		if result.Completion != "2 / 2 plans" {
			t.Fatalf("unexpected completion: %q", result.Completion)
		}
		if !reflect.DeepEqual(result.MatchingPlans, []string{"plan x", "plan y"}) {
			t.Fatalf("intersection must equal the requirement, got %v", result.MatchingPlans)
		}
	}

	// a holds an extra plan, c holds exactly the requirement. Ties on
	// count keep index order (sorted by email).
	if results[0].Email != "a@x.com" || !results[0].HasExtraPlans {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[1].Email != "c@x.com" || results[1].HasExtraPlans {
		t.Fatalf("unexpected second result: %+v", results[1])
	}
	if !reflect.DeepEqual(results[0].AllPlans, []string{"plan x", "plan y", "plan z"}) {
		t.Fatalf("unexpected all plans: %v", results[0].AllPlans)
	}
}

func TestFindAccountsWithPlansNormalizesRequirement(t *testing.T) {
	matcher := newMatchFixture(t)

	results, err := matcher.FindAccountsWithPlans(context.Background(), []string{" Plan X ", "plan x", "PLAN Y"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results after dedup, got %d", len(results))
	}
	if results[0].Completion != "2 / 2 plans" {
		t.Fatalf("duplicates must not inflate the requirement: %q", results[0].Completion)
	}
}

func TestFindAccountsWithPlansNoMatch(t *testing.T) {
	matcher := newMatchFixture(t)

	results, err := matcher.FindAccountsWithPlans(context.Background(), []string{"plan q"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result, got %d", len(results))
	}
}

func TestFindAccountsWithPlansEmptyRequirementMatchesAll(t *testing.T) {
	matcher := newMatchFixture(t)

	results, err := matcher.FindAccountsWithPlans(context.Background(), nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	// Superset of the empty set is always true; guarding this is the
	// caller's job.
	if len(results) != 3 {
		t.Fatalf("expected every entry, got %d", len(results))
	}
	for _, result := range results {
		if result.MatchingCount != 0 || result.Completion != "0 / 0 plans" {
			t.Fatalf("unexpected annotation for empty requirement: %+v", result)
		}
	}
}

func TestFindAccountsWithPlansBeforeBuild(t *testing.T) {
	matcher := service.NewMatchService(service.NewIndexService(&stubPlanSource{}))

	if _, err := matcher.FindAccountsWithPlans(context.Background(), []string{"plan x"}); !errors.Is(err, service.ErrIndexNotReady) {
		t.Fatalf("expected ErrIndexNotReady, got %v", err)
	}
}

type stubRemoteSource struct {
	entries  []entity.PlanIndexEntry
	err      error
	required []string
}

func (s *stubRemoteSource) FindEntriesWithPlans(_ context.Context, required []string) ([]entity.PlanIndexEntry, error) {
	s.required = required
	return s.entries, s.err
}

func TestRemoteMatchServiceAnnotates(t *testing.T) {
	source := &stubRemoteSource{
		entries: []entity.PlanIndexEntry{
			{Email: "a@x.com", Plans: []string{"plan z", "plan x", "plan y"}},
			{Email: "c@x.com", Plans: []string{"plan y", "plan x"}},
		},
	}
	matcher := service.NewRemoteMatchService(source)

	results, err := matcher.FindAccountsWithPlans(context.Background(), []string{"Plan Y", "plan x"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if !reflect.DeepEqual(source.required, []string{"plan x", "plan y"}) {
		t.Fatalf("requirement not normalized before push-down: %v", source.required)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].HasExtraPlans || results[1].HasExtraPlans {
		t.Fatalf("unexpected extra-plan flags: %+v", results)
	}
	if !reflect.DeepEqual(results[0].AllPlans, []string{"plan x", "plan y", "plan z"}) {
		t.Fatalf("remote plan sets must come back sorted: %v", results[0].AllPlans)
	}
	if results[0].Completion != "2 / 2 plans" {
		t.Fatalf("unexpected completion: %q", results[0].Completion)
	}
}

func TestRemoteMatchServiceAppliesRowExclusions(t *testing.T) {
	source := &stubRemoteSource{
		entries: []entity.PlanIndexEntry{
			// Anonymized account: numeric local part, dropped outright.
			{Email: "12345@x.com", Plans: []string{"plan x", "plan y"}},
			// Valid account carrying a poison-marked title.
			{Email: "A@x.com", Plans: []string{"plan x", "plan y", "anonymized plan"}},
		},
	}
	matcher := service.NewRemoteMatchService(source)

	results, err := matcher.FindAccountsWithPlans(context.Background(), []string{"plan x", "plan y"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("numeric-local-part account must be excluded, got %d results", len(results))
	}
	result := results[0]
	if result.Email != "a@x.com" {
		t.Fatalf("unexpected email: %s", result.Email)
	}
	if !reflect.DeepEqual(result.AllPlans, []string{"plan x", "plan y"}) {
		t.Fatalf("poison-marked title must be stripped, got %v", result.AllPlans)
	}
	if result.HasExtraPlans {
		t.Fatal("stripped title must not count as an extra plan")
	}
}

func TestRemoteMatchServiceEmptyRequirement(t *testing.T) {
	matcher := service.NewRemoteMatchService(&stubRemoteSource{})

	results, err := matcher.FindAccountsWithPlans(context.Background(), nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result for empty requirement, got %d", len(results))
	}
}

func TestRemoteMatchServiceSurfacesQueryFailure(t *testing.T) {
	matcher := service.NewRemoteMatchService(&stubRemoteSource{err: repository.ErrSourceUnavailable})

	if _, err := matcher.FindAccountsWithPlans(context.Background(), []string{"plan x"}); !errors.Is(err, repository.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}
