package usecases_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/placemark/internal/core/domain"
	"github.com/samirrijal/placemark/internal/core/usecases"
)

func gwanghwamun() []domain.Place {
	return []domain.Place{
		{Title: "스타벅스 광화문점", Category: "카페", Location: domain.GeoPoint{Lat: 37.5714, Lng: 126.9768}},
		{Title: "교보문고 광화문점", Category: "서점", Location: domain.GeoPoint{Lat: 37.5710, Lng: 126.9780}},
	}
}

func TestSearchService_Search(t *testing.T) {
	geo := &mockGeocoder{
		searchFn: func(ctx context.Context, query string, display int) ([]domain.Place, error) {
			if display != usecases.DefaultPageSize {
				t.Errorf("expected display %d, got %d", usecases.DefaultPageSize, display)
			}
			return gwanghwamun(), nil
		},
	}
	viewport := usecases.NewViewportService(&mockViewportRepo{}, nil, nil)
	svc := usecases.NewSearchService(geo, nil, nil, viewport, usecases.SearchOptions{})

	res, err := svc.Search(context.Background(), "  광화문  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Query != "광화문" {
		t.Errorf("expected trimmed query, got %q", res.Query)
	}
	if res.Stale {
		t.Error("expected fresh result")
	}
	if len(res.Places) != 2 {
		t.Fatalf("expected 2 places, got %d", len(res.Places))
	}
	for _, p := range res.Places {
		if p.Distance == nil {
			t.Fatalf("expected distance on %s", p.Title)
		}
		if *p.Distance <= 0 || *p.Distance > 2000 {
			t.Errorf("%s: implausible distance %.0f m", p.Title, *p.Distance)
		}
	}
	if svc.Displayed().Generation != res.Generation {
		t.Errorf("expected result to be displayed")
	}
}

func TestSearchService_Validation(t *testing.T) {
	geo := &mockGeocoder{}
	svc := usecases.NewSearchService(geo, nil, nil, nil, usecases.SearchOptions{})

	for _, q := range []string{"", "   ", strings.Repeat("a", 201)} {
		if _, err := svc.Search(context.Background(), q); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("query %q: expected ErrValidation, got %v", q, err)
		}
	}
	if geo.callCount() != 0 {
		t.Errorf("expected no upstream calls, got %d", geo.callCount())
	}
}

func TestSearchService_CachesWithinFreshWindow(t *testing.T) {
	geo := &mockGeocoder{
		searchFn: func(ctx context.Context, query string, display int) ([]domain.Place, error) {
			return gwanghwamun(), nil
		},
	}
	svc := usecases.NewSearchService(geo, newMockCache(), nil, nil, usecases.SearchOptions{})
	ctx := context.Background()

	first, err := svc.Search(ctx, "광화문")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Search(ctx, "광화문")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if geo.callCount() != 1 {
		t.Errorf("expected 1 upstream call, got %d", geo.callCount())
	}
	if len(second.Places) != len(first.Places) {
		t.Errorf("cached answer differs: %d vs %d", len(second.Places), len(first.Places))
	}
	if second.Generation <= first.Generation {
		t.Errorf("expected a new generation, got %d after %d", second.Generation, first.Generation)
	}
}

func TestSearchService_UpstreamFailureReleasesLoading(t *testing.T) {
	geo := &mockGeocoder{
		searchFn: func(ctx context.Context, query string, display int) ([]domain.Place, error) {
			return nil, domain.ErrSearchUpstream
		},
	}
	loading := usecases.NewLoadingTracker(nil)
	svc := usecases.NewSearchService(geo, nil, loading, nil, usecases.SearchOptions{})

	if _, err := svc.Search(context.Background(), "광화문"); !errors.Is(err, domain.ErrSearchUpstream) {
		t.Fatalf("expected ErrSearchUpstream, got %v", err)
	}
	if loading.State().IsBusy {
		t.Error("expected loading to be released")
	}
}

func TestSearchService_OutOfOrderResponses(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	geo := &mockGeocoder{
		searchFn: func(ctx context.Context, query string, display int) ([]domain.Place, error) {
			if query == "강남" {
				close(started)
				<-release
				return []domain.Place{{Title: "강남역"}}, nil
			}
			return []domain.Place{{Title: "홍대입구역"}}, nil
		},
	}
	svc := usecases.NewSearchService(geo, nil, nil, nil, usecases.SearchOptions{})
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		slow domain.SearchResult
		err  error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		slow, err = svc.Search(ctx, "강남")
	}()
	<-started

	fast, ferr := svc.Search(ctx, "홍대")
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}
	close(release)
	wg.Wait()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fast.Stale {
		t.Error("latest search must not be stale")
	}
	if !slow.Stale {
		t.Error("earlier search answering late must be stale")
	}
	if got := svc.Displayed(); got.Query != "홍대" {
		t.Errorf("expected displayed query 홍대, got %q", got.Query)
	}
}

func TestSearchService_SharedLookupOutlivesCaller(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	geo := &mockGeocoder{
		searchFn: func(ctx context.Context, query string, display int) ([]domain.Place, error) {
			once.Do(func() { close(started) })
			<-release
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return gwanghwamun(), nil
		},
	}
	svc := usecases.NewSearchService(geo, nil, nil, nil, usecases.SearchOptions{})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.Search(ctxA, "광화문")
		errA <- err
	}()
	<-started

	type outcome struct {
		res domain.SearchResult
		err error
	}
	doneB := make(chan outcome, 1)
	go func() {
		res, err := svc.Search(context.Background(), "광화문")
		doneB <- outcome{res, err}
	}()
	// Let the second caller join the lookup in flight.
	time.Sleep(20 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Errorf("expected the cancelled caller to get context.Canceled, got %v", err)
	}
	close(release)

	b := <-doneB
	if b.err != nil {
		t.Fatalf("expected the live caller to succeed, got %v", b.err)
	}
	if len(b.res.Places) != 2 {
		t.Errorf("expected 2 places, got %d", len(b.res.Places))
	}
	if n := geo.callCount(); n != 1 {
		t.Errorf("expected one upstream call, got %d", n)
	}
}
