package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/samirrijal/placemark/internal/core/usecases"
)

func TestLoadingTracker_BusyWhileAnyPending(t *testing.T) {
	tr := usecases.NewLoadingTracker(nil)
	ctx := context.Background()

	tr.Begin(ctx)
	tr.Begin(ctx)
	if s := tr.End(ctx); !s.IsBusy || s.PendingRequestCount != 1 {
		t.Errorf("expected busy with 1 pending, got %+v", s)
	}
	if s := tr.End(ctx); s.IsBusy || s.PendingRequestCount != 0 {
		t.Errorf("expected idle, got %+v", s)
	}
	if s := tr.End(ctx); s.PendingRequestCount != 0 {
		t.Errorf("extra end went negative: %+v", s)
	}
}

func TestLoadingTracker_PublishesOnlyOnFlip(t *testing.T) {
	pub := &mockPublisher{}
	tr := usecases.NewLoadingTracker(pub)
	ctx := context.Background()

	tr.Begin(ctx)
	tr.Begin(ctx)
	tr.End(ctx)
	tr.End(ctx)
	tr.End(ctx)

	if len(pub.loading) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(pub.loading), pub.loading)
	}
	if !pub.loading[0].IsBusy || pub.loading[1].IsBusy {
		t.Errorf("unexpected event sequence %+v", pub.loading)
	}
}

func TestLoadingTracker_TrackReleasesOnFailure(t *testing.T) {
	tr := usecases.NewLoadingTracker(nil)
	boom := errors.New("boom")

	err := tr.Track(context.Background(), func(ctx context.Context) error {
		if !tr.State().IsBusy {
			t.Error("expected busy inside Track")
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if tr.State().IsBusy {
		t.Error("expected idle after failed Track")
	}
}

func TestLoadingTracker_Concurrent(t *testing.T) {
	tr := usecases.NewLoadingTracker(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tr.Track(ctx, func(ctx context.Context) error { return nil })
		}()
	}
	wg.Wait()

	if s := tr.State(); s.PendingRequestCount != 0 || s.IsBusy {
		t.Errorf("expected idle, got %+v", s)
	}
}

func TestLoadingTracker_Reset(t *testing.T) {
	tr := usecases.NewLoadingTracker(nil)
	ctx := context.Background()
	tr.Begin(ctx)
	tr.Begin(ctx)

	if s := tr.Reset(ctx); s.PendingRequestCount != 0 || s.IsBusy {
		t.Errorf("expected idle, got %+v", s)
	}
}
