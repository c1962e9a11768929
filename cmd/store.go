package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/relief-analytics/vulnassess-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "vulnassess.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// loadStoredConfig reads a config blob from the store, falling back to def
// when no blob exists under the id. def may be nil to make the blob required.
func loadStoredConfig(ctx context.Context, st store.Store, kind store.ConfigKind, id string, out any, def func() any) error {
	found, err := st.GetConfig(ctx, kind, id, out)
	if err != nil {
		return err
	}
	if found {
		return nil
	}
	if def == nil {
		return eris.Errorf("no %s config stored under %q", kind, id)
	}
	blob, err := json.Marshal(def())
	if err != nil {
		return eris.Wrap(err, "marshal default config")
	}
	return json.Unmarshal(blob, out)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
