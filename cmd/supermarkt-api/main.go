package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/supermarkt-search/internal/brand"
	"github.com/mohammed-shakir/supermarkt-search/internal/catalog"
	"github.com/mohammed-shakir/supermarkt-search/internal/catalog/refresh"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/config"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/httpclient"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/router"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/server"
	"github.com/mohammed-shakir/supermarkt-search/internal/events"
	"github.com/mohammed-shakir/supermarkt-search/internal/geocoder"
	"github.com/mohammed-shakir/supermarkt-search/internal/locator"
	"github.com/mohammed-shakir/supermarkt-search/internal/logger"
	"github.com/mohammed-shakir/supermarkt-search/internal/metrics"
	"github.com/mohammed-shakir/supermarkt-search/internal/products"
	"github.com/mohammed-shakir/supermarkt-search/internal/redisstore"
	"github.com/mohammed-shakir/supermarkt-search/internal/search"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// .env is optional; real environment wins
	_ = godotenv.Load()

	addrFlag := flag.String("addr", "", "listen address (overrides ADDR)")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = strings.TrimSpace(*addrFlag)
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   cfg.ServiceName,
		Component: "api",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	p := metrics.Init(metrics.Config{
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			Branch:    os.Getenv("BUILD_BRANCH"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})

	appLog.Info("starting supermarkt-search",
		"addr", cfg.Addr,
		"version", Version,
		"catalog_driver", cfg.Catalog.Driver,
		"geocoder", cfg.Geocoder.Provider)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	brands := brand.Default()

	src, closeSrc, err := catalogSource(ctx, cfg)
	if err != nil {
		appLog.Error("catalog source setup failed", "err", err)
		return 1
	}
	defer closeSrc()

	cat := catalog.New(src, brands,
		catalog.WithLogger(appLog),
		catalog.WithResolution(cfg.H3Res))
	if err := cat.Reload(ctx, "initial"); err != nil {
		// stays not ready until a refresh lands
		appLog.Error("initial catalog load failed", "err", err)
	}

	loc := locator.New(cat, cfg.MaxRadiusKm, appLog)

	prov, err := geocoder.NewProvider(cfg.Geocoder, httpclient.NewOutbound(cfg.Geocoder.Timeout))
	if err != nil {
		appLog.Error("geocoder setup failed", "err", err)
		return 1
	}
	geo := geocoder.New(prov, cfg.Geocoder.RPS, cfg.Geocoder.Burst, appLog)

	var sources []products.Source
	if cfg.SourcesFile != "" {
		sources, err = products.LoadSources(cfg.SourcesFile, brands, httpclient.NewOutbound(cfg.SourceTimeout))
		if err != nil {
			appLog.Error("product sources setup failed", "err", err)
			return 1
		}
	}
	appLog.Info("product sources loaded", "count", len(sources))

	opts := []search.Option{search.WithLogger(appLog), search.WithBrands(brands)}
	if cfg.Events.Enabled {
		pub, err := events.NewPublisher(config.Brokers(cfg.Events.Brokers), cfg.Events.Topic, 0, appLog)
		if err != nil {
			appLog.Error("search events publisher failed", "err", err)
			return 1
		}
		defer func() { _ = pub.Close() }()
		opts = append(opts, search.WithPublisher(pub))
	}
	agg := search.New(sources, loc, search.Config{
		SourceTimeout: cfg.SourceTimeout,
		SearchTimeout: cfg.SearchTimeout,
		MaxWorkers:    cfg.SourceMaxWorkers,
	}, opts...)

	if cfg.Refresh.Enabled {
		c := refresh.New(refresh.ConfigFrom(cfg.Refresh), appLog, cat)
		go func() {
			if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				appLog.Error("catalog refresh stopped", "err", err)
			}
		}()
	}

	h := router.New(router.Deps{
		Geocoder:        geo,
		Locator:         loc,
		Search:          agg,
		Brands:          brands,
		DefaultRadiusKm: cfg.DefaultRadiusKm,
		Logger:          appLog,
	})

	if err := server.Run(ctx, cfg.Addr, server.NewRouter(appLog, h, cat, p.Handler()), appLog); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

func catalogSource(ctx context.Context, cfg config.Config) (catalog.Source, func(), error) {
	noop := func() {}
	switch cfg.Catalog.Driver {
	case "", "file":
		return catalog.FileSource{Path: cfg.Catalog.File}, noop, nil
	case "redis":
		rc, err := redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, noop, fmt.Errorf("redis: %w", err)
		}
		return catalog.RedisSource{Client: rc, Key: cfg.Catalog.RedisKey}, closer(rc), nil
	case "postgres":
		if cfg.Catalog.DatabaseURL == "" {
			return nil, noop, errors.New("postgres: DATABASE_URL is required")
		}
		pool, err := pgxpool.New(ctx, cfg.Catalog.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("postgres: %w", err)
		}
		return catalog.PostgresSource{Pool: pool}, pool.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown catalog driver %q", cfg.Catalog.Driver)
	}
}

func closer(c io.Closer) func() {
	return func() { _ = c.Close() }
}
