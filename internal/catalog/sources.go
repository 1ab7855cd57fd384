package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
)

// FileSource reads a JSON array of records from disk.
type FileSource struct {
	Path string
}

func (f FileSource) Name() string { return "file" }

func (f FileSource) Load(_ context.Context) ([]Record, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return decodeRecords(b)
}

// StaticSource serves a fixed record list.
type StaticSource []Record

func (s StaticSource) Name() string { return "static" }

func (s StaticSource) Load(context.Context) ([]Record, error) {
	out := make([]Record, len(s))
	copy(out, s)
	return out, nil
}

type valueGetter interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

// RedisSource reads a JSON array of records stored under a single key.
type RedisSource struct {
	Client valueGetter
	Key    string
}

func (r RedisSource) Name() string { return "redis" }

func (r RedisSource) Load(ctx context.Context) ([]Record, error) {
	b, ok, err := r.Client.Get(ctx, r.Key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("catalog key %q not found", r.Key)
	}
	return decodeRecords(b)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const storesQuery = `SELECT name, brand, latitude, longitude FROM stores ORDER BY id`

// PostgresSource reads the stores table. Pool is usually a *pgxpool.Pool.
type PostgresSource struct {
	Pool querier
}

func (p PostgresSource) Name() string { return "postgres" }

func (p PostgresSource) Load(ctx context.Context) ([]Record, error) {
	rows, err := p.Pool.Query(ctx, storesQuery)
	if err != nil {
		return nil, fmt.Errorf("query stores: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Name, &r.Brand, &r.Latitude, &r.Longitude); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stores: %w", err)
	}
	return out, nil
}

func decodeRecords(b []byte) ([]Record, error) {
	var recs []Record
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return recs, nil
}
