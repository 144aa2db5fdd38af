package ourstory

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ourstory/ourstory/remote"
	"github.com/ourstory/ourstory/remote/pgstore"
	"github.com/ourstory/ourstory/remote/sqlitestore"
	"github.com/ourstory/ourstory/remote/supabase"
)

// publicPrefix is the URL path StaticDir is served under.
const publicPrefix = "/public"

// OpenRemote connects to the store cfg.StoreDriver names. Local drivers
// keep uploaded images under cfg.StaticDir so they are served from /public.
func OpenRemote(ctx context.Context, cfg Config) (remote.Client, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	switch cfg.StoreDriver {
	case DriverPostgres:
		s, err := pgstore.Open(ctx, pgstore.Config{
			DSN:           cfg.PostgresDSN,
			Tables:        remote.Tables,
			BlobRoot:      cfg.StaticDir,
			BlobURLPrefix: publicPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	case DriverSupabase:
		return supabase.New(supabase.Config{URL: cfg.SupabaseURL, Key: cfg.SupabaseKey}), nil
	default:
		s, err := sqlitestore.Open(sqlitestore.Config{
			Path:          filepath.Clean(cfg.DatabasePath),
			Tables:        remote.Tables,
			BlobRoot:      cfg.StaticDir,
			BlobURLPrefix: publicPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	}
}
