package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/samirrijal/placemark/internal/adapters/kvstore"
	natsadapter "github.com/samirrijal/placemark/internal/adapters/nats"
	"github.com/samirrijal/placemark/internal/adapters/postgres"
	"github.com/samirrijal/placemark/internal/adapters/valkey"
	"github.com/samirrijal/placemark/internal/core/domain"
	"github.com/samirrijal/placemark/internal/core/ports"
	"github.com/samirrijal/placemark/internal/core/usecases"
	"github.com/samirrijal/placemark/internal/pkg/config"
	"github.com/samirrijal/placemark/internal/pkg/logging"
)

// Imports a saved location collection exported from the browser client into
// the configured storage. Entries whose id is already stored are skipped. The
// shared list cache is dropped and running servers are told to refetch.
//
//	importer [export.json]
func main() {
	cfg, err := config.Load("placemark-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, "service", cfg.Telemetry.ServiceName)

	ctx := context.Background()

	path := "saved-locations.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read export: %v", err)
	}
	incoming, err := parseExport(data)
	if err != nil {
		log.Fatalf("parse export: %v", err)
	}

	kv, closeKV, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer closeKV()

	// The API caches the list and follows location events; both must see the
	// import.
	cache, closeCache := openCache(cfg, kv)
	defer closeCache()

	var publisher ports.EventPublisher
	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL, "importer-"+uuid.NewString())
		if err != nil {
			slog.Warn("nats unavailable, running servers will not be notified", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
		}
	}

	svc := usecases.NewLocationService(kvstore.NewLocationRepo(kv, cfg.Storage.Key), cache, publisher)
	stats, err := svc.Import(ctx, incoming)
	if err != nil {
		log.Fatalf("import: %v", err)
	}
	if stats.Added == 0 {
		slog.Info("nothing to import", "skipped", stats.Skipped, "invalid", stats.Invalid)
		return
	}

	slog.Info("import complete",
		"file", path,
		"added", stats.Added,
		"skipped", stats.Skipped,
		"invalid", stats.Invalid,
	)
}

// parseExport accepts either the bare collection or an object holding it
// under "savedLocations".
func parseExport(data []byte) ([]domain.SavedLocation, error) {
	var locs []domain.SavedLocation
	if err := json.Unmarshal(data, &locs); err == nil {
		return locs, nil
	}

	var wrapped struct {
		SavedLocations []domain.SavedLocation `json:"savedLocations"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.SavedLocations == nil {
		return nil, fmt.Errorf("no savedLocations array found")
	}
	return wrapped.SavedLocations, nil
}

// openStore opens the key-value store the API server is configured with.
func openStore(ctx context.Context, cfg *config.Config) (ports.KeyValueStore, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewKVRepo(db), db.Close, nil
	case config.DriverValkey:
		c, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default:
		return nil, nil, fmt.Errorf("storage driver %q keeps nothing across runs, nothing to import into", cfg.Storage.Driver)
	}
}

// openCache returns the cache the API server shares. A valkey store doubles
// as its own cache; otherwise valkey is used when configured.
func openCache(cfg *config.Config, kv ports.KeyValueStore) (ports.CacheService, func()) {
	if c, ok := kv.(*valkey.Cache); ok {
		return c, func() {}
	}
	if cfg.Valkey.Addr == "" {
		return nil, func() {}
	}
	c, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix)
	if err != nil {
		slog.Warn("valkey unavailable, cached lists expire on their own", "error", err)
		return nil, func() {}
	}
	return c, c.Close
}
