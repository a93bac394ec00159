// Command sample serves a small book API whose handlers are cached in Redis
// with every key strategy cacheaside supports.
//
// Configuration comes from the environment (see -usage) or the file named by
// CACHEASIDE_CONFIG. Metrics are exposed on GET /metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/cacheaside"
	"github.com/unkn0wn-root/cacheaside/codec"
	"github.com/unkn0wn-root/cacheaside/config"
	asynchook "github.com/unkn0wn-root/cacheaside/hooks/async"
	promhooks "github.com/unkn0wn-root/cacheaside/hooks/prometheus"
	sloghooks "github.com/unkn0wn-root/cacheaside/hooks/slog"
	zaplog "github.com/unkn0wn-root/cacheaside/log/zap"
	redisprovider "github.com/unkn0wn-root/cacheaside/provider/redis"
)

func main() {
	usage := flag.Bool("usage", false, "print supported environment variables and exit")
	flag.Parse()
	if *usage {
		fmt.Println(config.Usage())
		return
	}
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zl, err := newZap(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()
	logger := zaplog.New(zl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		_ = rdb.Close()
		return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	zl.Info("connected to redis", zap.String("addr", cfg.Redis.Addr), zap.String("instance", cfg.Redis.InstanceName))

	store, err := redisprovider.New(redisprovider.Config{
		Client:       rdb,
		InstanceName: cfg.Redis.InstanceName,
		CloseClient:  true,
	})
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(context.Background()) }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	hooks := newHooks(reg, cfg.Log)
	defer hooks.Close()

	bookCodec, err := codecFor[Book](cfg.Cache.Codec)
	if err != nil {
		return err
	}
	books, err := cacheaside.New[Book](cacheaside.Options[Book]{
		Store:               store,
		Codec:               bookCodec,
		DefaultEntryOptions: cfg.Cache.EntryOptions(),
		Logger:              logger,
		Hooks:               hooks,
	})
	if err != nil {
		return err
	}

	mux, err := newRouter(books, logger)
	if err != nil {
		return err
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("addr", cfg.HTTP.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newZap(cfg config.Log) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Format, "console") {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = lvl
	return zc.Build()
}

// newHooks always exports metrics; debug logging adds sampled per-key events.
// Delivery is async so a slow sink never stalls a request.
func newHooks(reg prometheus.Registerer, cfg config.Log) *asynchook.Hooks {
	var hs teeHooks
	hs = append(hs, promhooks.New(reg))
	if strings.EqualFold(cfg.Level, "debug") {
		l := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		hs = append(hs, sloghooks.New(l, sloghooks.Options{HitEvery: 100, MissEvery: 10}))
	}
	return asynchook.New(hs, 1, 4096)
}

func codecFor[V any](name string) (codec.Codec[V], error) {
	switch strings.ToLower(name) {
	case "", "json":
		return codec.Default[V](), nil
	case "cbor":
		c, err := codec.NewCBOR[V](codec.CBOROptions{Deterministic: true})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "msgpack":
		return codec.Msgpack[V]{UseJSONTag: true}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

type teeHooks []cacheaside.Hooks

func (t teeHooks) Hit(k string) {
	for _, h := range t {
		h.Hit(k)
	}
}

func (t teeHooks) Miss(k string) {
	for _, h := range t {
		h.Miss(k)
	}
}

func (t teeHooks) DecodeFailed(k string, err error) {
	for _, h := range t {
		h.DecodeFailed(k, err)
	}
}

func (t teeHooks) Stored(k string, n int) {
	for _, h := range t {
		h.Stored(k, n)
	}
}

func (t teeHooks) StoreError(op, k string, err error) {
	for _, h := range t {
		h.StoreError(op, k, err)
	}
}
