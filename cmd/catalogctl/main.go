// catalogctl seeds the store catalog into Redis, announces new catalog
// versions to running API instances and reports H3 index coverage.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/supermarkt-search/internal/brand"
	"github.com/mohammed-shakir/supermarkt-search/internal/catalog"
	"github.com/mohammed-shakir/supermarkt-search/internal/catalog/refresh"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/config"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
	"github.com/mohammed-shakir/supermarkt-search/internal/geo/h3index"
	"github.com/mohammed-shakir/supermarkt-search/internal/redisstore"
)

const usage = `usage: catalogctl <seed|announce|cells> [flags]`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	cfg := config.FromEnv()
	var err error
	switch os.Args[1] {
	case "seed":
		err = runSeed(ctx, cfg, os.Args[2:])
	case "announce":
		err = runAnnounce(cfg, os.Args[2:])
	case "cells":
		err = runCells(cfg, os.Args[2:], os.Stdout)
	default:
		err = fmt.Errorf("unknown command %q\n%s", os.Args[1], usage)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "catalogctl:", err)
		os.Exit(1)
	}
}

func runSeed(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	file := fs.String("file", cfg.Catalog.File, "catalog JSON file")
	key := fs.String("key", cfg.Catalog.RedisKey, "redis key")
	_ = fs.Parse(args)

	recs, err := catalog.FileSource{Path: *file}.Load(ctx)
	if err != nil {
		return err
	}
	rc, err := redisstore.New(ctx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer func() { _ = rc.Close() }()

	n, skipped, err := seed(ctx, rc, *key, recs)
	if err != nil {
		return err
	}
	fmt.Printf("seeded %d stores into %s (%d invalid)\n", n, *key, skipped)
	return nil
}

type valueSetter interface {
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// seed writes recs under key without expiry. Records the catalog would skip
// are counted but still written so the source stays a faithful copy.
func seed(ctx context.Context, s valueSetter, key string, recs []catalog.Record) (int, int, error) {
	_, skipped := catalog.Normalize(recs, brand.Default())
	b, err := json.Marshal(recs)
	if err != nil {
		return 0, 0, fmt.Errorf("encode catalog: %w", err)
	}
	if err := s.Set(ctx, key, b, 0); err != nil {
		return 0, 0, fmt.Errorf("write catalog: %w", err)
	}
	return len(recs), skipped, nil
}

func runAnnounce(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("announce", flag.ExitOnError)
	version := fs.Uint64("version", uint64(time.Now().Unix()), "catalog version")
	source := fs.String("source", cfg.Catalog.Driver, "catalog source name")
	topic := fs.String("topic", cfg.Refresh.Topic, "refresh topic")
	_ = fs.Parse(args)

	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Version = sarama.V2_1_0_0
	prod, err := sarama.NewSyncProducer(config.Brokers(cfg.Refresh.Brokers), sc)
	if err != nil {
		return fmt.Errorf("producer create: %w", err)
	}
	defer func() { _ = prod.Close() }()

	ev := refresh.Event{Version: *version, Source: strings.TrimSpace(*source), TS: time.Now().UTC()}
	part, off, err := announce(prod, *topic, ev)
	if err != nil {
		return err
	}
	fmt.Printf("announced %s@%d on %s[%d]@%d\n", ev.Source, ev.Version, *topic, part, off)
	return nil
}

func announce(prod sarama.SyncProducer, topic string, ev refresh.Event) (int32, int64, error) {
	if ev.Version == 0 {
		return 0, 0, fmt.Errorf("version must be positive")
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return 0, 0, err
	}
	part, off, err := prod.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(ev.Source),
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		return 0, 0, fmt.Errorf("send refresh event: %w", err)
	}
	return part, off, nil
}

func runCells(cfg config.Config, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("cells", flag.ExitOnError)
	file := fs.String("file", cfg.Catalog.File, "catalog JSON file")
	res := fs.Int("res", cfg.H3Res, "h3 resolution")
	radius := fs.Float64("radius", cfg.DefaultRadiusKm, "probe radius in km")
	_ = fs.Parse(args)

	recs, err := catalog.FileSource{Path: *file}.Load(context.Background())
	if err != nil {
		return err
	}
	stores, skipped := catalog.Normalize(recs, brand.Default())
	return cellReport(w, stores, skipped, *res, *radius)
}

// cellReport prints how many stores the index would hand the locator for a
// probe centred on each store.
func cellReport(w io.Writer, stores []model.Store, skipped, res int, radiusKm float64) error {
	coords := make([]model.Coordinate, len(stores))
	for i, s := range stores {
		coords[i] = s.Coordinate
	}
	ix, err := h3index.Build(coords, res)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "stores=%d skipped=%d res=%d radius_km=%.2f\n", ix.Len(), skipped, ix.Resolution(), radiusKm)
	for _, s := range stores {
		c, err := ix.Candidates(s.Coordinate, radiusKm)
		if err != nil {
			fmt.Fprintf(w, "%-32s %s\n", s.Name, err)
			continue
		}
		fmt.Fprintf(w, "%-32s candidates=%d\n", s.Name, len(c))
	}
	return nil
}
