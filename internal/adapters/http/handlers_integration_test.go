//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/placemark/internal/adapters/http"
	"github.com/samirrijal/placemark/internal/adapters/kvstore"
	"github.com/samirrijal/placemark/internal/adapters/postgres"
	"github.com/samirrijal/placemark/internal/core/domain"
	"github.com/samirrijal/placemark/internal/core/usecases"
	"github.com/samirrijal/placemark/internal/pkg/config"
)

// setupTestDB connects to the test database and makes sure kv_store exists.
// The pool is closed when the test ends.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("placemark-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}

	db := &postgres.DB{Pool: pool}
	t.Cleanup(db.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS kv_store (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		t.Fatalf("create kv_store: %v", err)
	}

	return db
}

// setupTestDeps wires real services over the postgres key-value store. Each
// test gets its own keys so runs do not see each other's data.
func setupTestDeps(t *testing.T, db *postgres.DB) (*http.Dependencies, string) {
	suffix := ":" + t.Name() + ":" + time.Now().Format("20060102150405.000000")
	kv := postgres.NewKVRepo(db)

	t.Cleanup(func() {
		ctx := context.Background()
		_ = kv.Delete(ctx, kvstore.DefaultLocationsKey+suffix)
		_ = kv.Delete(ctx, kvstore.DefaultViewportKey+suffix)
	})

	loading := usecases.NewLoadingTracker(nil)
	viewport := usecases.NewViewportService(kvstore.NewViewportRepo(kv, kvstore.DefaultViewportKey+suffix), nil, nil)
	deps := &http.Dependencies{
		Viewport:  viewport,
		Guard:     usecases.NewGuard(viewport),
		Loading:   loading,
		Search:    usecases.NewSearchService(&mockGeocoder{}, nil, loading, viewport, usecases.SearchOptions{}),
		Locations: usecases.NewLocationService(kvstore.NewLocationRepo(kv, kvstore.DefaultLocationsKey+suffix), nil, nil),
		DB:        db,
	}
	return deps, suffix
}

// TestSaveAndList_Integration_WithRealDB saves through the API and reads the
// collection back from postgres.
func TestSaveAndList_Integration_WithRealDB(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)

	deps, _ := setupTestDeps(t, db)
	app := setupApp(deps)

	saveLocation(t, app, domain.Candidate{Name: "경복궁", Category: "관광지", Rating: 5})
	saveLocation(t, app, domain.Candidate{Name: "카페", Category: domain.CategoryOther, CustomCategory: "작업"})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/locations", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.SavedLocation `json:"data"`
		Pagination struct{ Total int }    `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Pagination.Total != 2 {
		t.Errorf("expected 2 locations, got %d", result.Pagination.Total)
	}
}

// TestViewport_Integration_Persisted checks a viewport change lands in
// postgres.
func TestViewport_Integration_Persisted(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)

	deps, suffix := setupTestDeps(t, db)
	app := setupApp(deps)

	resp, err := app.Test(jsonRequest("POST", "/v1/viewport/current-location", map[string]float64{"lat": 35.1796, "lng": 129.0756}), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var stored domain.ViewportState
	data, err := postgres.NewKVRepo(db).Get(context.Background(), kvstore.DefaultViewportKey+suffix)
	if err != nil {
		t.Fatalf("read stored viewport: %v", err)
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("decode stored viewport: %v", err)
	}
	if !stored.LocationPermissionGranted || stored.Center.Lat != 35.1796 {
		t.Errorf("unexpected stored viewport %+v", stored)
	}
}

// TestDeleteLocation_Integration removes an entry and checks it is gone from
// storage.
func TestDeleteLocation_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)

	deps, _ := setupTestDeps(t, db)
	app := setupApp(deps)
	saved := saveLocation(t, app, domain.Candidate{Name: "남산", Category: "관광지"})

	resp, err := app.Test(httptest.NewRequest("DELETE", "/v1/locations/"+saved.Location.ID+"?confirm=true", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/locations/"+saved.Location.ID, nil), -1)
	if resp.StatusCode != 404 {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
}
