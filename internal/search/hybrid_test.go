package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/bull/site-search/internal/storage"
)

func makeHits(n int, tag, prefix string) []Hit {
	hits := make([]Hit, n)
	for i := range hits {
		hits[i] = Hit{Payload: storage.PageLine{
			Text: fmt.Sprintf("%s %d", prefix, i),
			Tag:  tag,
			URL:  "/docs",
		}}
	}
	return hits
}

// fakeExact serves heading hits for heading tag scopes and body hits
// otherwise, counting calls per scope.
type fakeExact struct {
	headingHits  []Hit
	bodyHits     []Hit
	headingCalls int
	bodyCalls    int
}

func (f *fakeExact) Search(ctx context.Context, query, section string, tags []string) ([]Hit, error) {
	if len(tags) > 0 && tags[0] == "h1" {
		f.headingCalls++
		return f.headingHits, nil
	}
	f.bodyCalls++
	return f.bodyHits, nil
}

type fakeSemantic struct {
	hits  []Hit
	calls int
}

func (f *fakeSemantic) Search(ctx context.Context, query, section string) ([]Hit, error) {
	f.calls++
	return f.hits, nil
}

func TestHybridSearch_HeadingHitsFillBudget(t *testing.T) {
	exact := &fakeExact{headingHits: makeHits(5, "h2", "heading")}
	semantic := &fakeSemantic{hits: makeHits(5, "p", "semantic")}
	searcher := NewHybridSearcher(exact, semantic, 5)

	hits, err := searcher.Search(context.Background(), "collections", "")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 5 {
		t.Errorf("expected budget-sized result, got %d", len(hits))
	}
	for i, hit := range hits {
		if want := fmt.Sprintf("heading %d", i); hit.Payload.Text != want {
			t.Errorf("hit %d = %q, want verbatim heading hit %q", i, hit.Payload.Text, want)
		}
	}
	if semantic.calls != 0 {
		t.Errorf("semantic matcher called %d times, want short-circuit", semantic.calls)
	}
	if exact.bodyCalls != 0 {
		t.Errorf("body-exact called %d times, want short-circuit", exact.bodyCalls)
	}
}

func TestHybridSearch_ShortQueryUsesBodyExact(t *testing.T) {
	exact := &fakeExact{
		headingHits: makeHits(2, "h2", "heading"),
		bodyHits:    makeHits(5, "p", "body"),
	}
	semantic := &fakeSemantic{hits: makeHits(5, "p", "semantic")}
	searcher := NewHybridSearcher(exact, semantic, 5)

	hits, err := searcher.Search(context.Background(), "SDK", "")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 5 {
		t.Errorf("expected 5 hits (2 heading + 3 body), got %d", len(hits))
	}
	if hits[0].Payload.Text != "heading 0" || hits[2].Payload.Text != "body 0" {
		t.Errorf("unexpected fusion order: %q, %q", hits[0].Payload.Text, hits[2].Payload.Text)
	}
	if semantic.calls != 0 {
		t.Errorf("semantic matcher called %d times for short query, want 0", semantic.calls)
	}
	if exact.bodyCalls != 1 {
		t.Errorf("body-exact called %d times, want 1", exact.bodyCalls)
	}
}

func TestHybridSearch_LongQueryUsesSemantic(t *testing.T) {
	exact := &fakeExact{
		headingHits: makeHits(1, "h3", "heading"),
		bodyHits:    makeHits(5, "p", "body"),
	}
	semantic := &fakeSemantic{hits: makeHits(5, "p", "semantic")}
	searcher := NewHybridSearcher(exact, semantic, 5)

	hits, err := searcher.Search(context.Background(), "authentication flow", "")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 5 {
		t.Errorf("expected 5 hits (1 heading + 4 semantic), got %d", len(hits))
	}
	if hits[1].Payload.Text != "semantic 0" || hits[4].Payload.Text != "semantic 3" {
		t.Errorf("unexpected supplement: %q, %q", hits[1].Payload.Text, hits[4].Payload.Text)
	}
	if semantic.calls != 1 {
		t.Errorf("semantic matcher called %d times, want 1", semantic.calls)
	}
	if exact.bodyCalls != 0 {
		t.Errorf("body-exact called %d times, want 0", exact.bodyCalls)
	}
}

func TestHybridSearch_NoMatches(t *testing.T) {
	exact := &fakeExact{}
	semantic := &fakeSemantic{}
	searcher := NewHybridSearcher(exact, semantic, 5)

	hits, err := searcher.Search(context.Background(), "zzz-nomatch-zzz", "")
	if err != nil {
		t.Fatalf("no matches must not be an error: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected empty result, got %d hits", len(hits))
	}
}

func TestHybridSearch_BudgetNeverExceeded(t *testing.T) {
	exact := &fakeExact{
		headingHits: makeHits(4, "h2", "heading"),
		bodyHits:    makeHits(5, "p", "body"),
	}
	semantic := &fakeSemantic{hits: makeHits(5, "p", "semantic")}

	for budget := 1; budget <= 6; budget++ {
		searcher := NewHybridSearcher(exact, semantic, budget)
		for _, query := range []string{"api", "error handling"} {
			hits, err := searcher.Search(context.Background(), query, "")
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			if len(hits) > budget {
				t.Errorf("budget %d query %q: got %d hits", budget, query, len(hits))
			}
		}
	}
}
