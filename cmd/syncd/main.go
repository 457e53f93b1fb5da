package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/cache"
	"main/internal/feed"
	"main/internal/journal"
	"main/internal/ops"
	"main/pkg/conn"
)

func main() {
	if err := run(); err != nil {
		log.Printf("syncd: %v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.json", "Path to JSON config")
	statsInterval := flag.Duration("stats-interval", 30*time.Second, "Sync stats log interval (0=disable)")
	queueSize := flag.Int("queue-size", 4096, "Remote update queue capacity")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disable)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		return err
	}

	if *pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "syncd",
			ServerAddress:   *pyroscopeAddr,
			Tags: map[string]string{
				"env": "local",
			},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return err
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	opts := []cache.Option{cache.WithDefaultTTL(loaded.DefaultTTL)}
	if loaded.Journal.Postgres != nil {
		client, err := conn.New(*loaded.Journal.Postgres)
		if err != nil {
			return err
		}
		defer func() {
			_ = client.Close()
		}()

		recorder, err := journal.NewPG(client)
		if err != nil {
			return err
		}
		opts = append(opts, cache.WithRecorder(recorder))
	}

	store := cache.New(opts...)
	defer store.Close()

	queue := bus.NewQueue[feed.Update](*queueSize)
	defer queue.Close()

	marketFeed := feed.New(ctx, loaded.Feed.URL)
	if err := marketFeed.Start(ctx); err != nil {
		return err
	}
	defer marketFeed.Close()

	for _, symbol := range loaded.Feed.Symbols {
		if err := marketFeed.SubscribeTicker(ctx, symbol); err != nil {
			return err
		}
		logs.Infof("subscribed ticker %s", symbol)
	}

	unsubscribe := marketFeed.Observe(ctx, func(u feed.Update) {
		if err := queue.TryPublish(u); err != nil {
			logs.Warnf("drop remote update for %s, err: %+v", u.Key, err)
		}
	})
	defer unsubscribe()

	go queue.Run(ctx, func(u feed.Update) {
		store.ApplyRemote(u.Key, u.Data, u.Version)
	})

	if *statsInterval > 0 {
		go logStats(ctx, store, *statsInterval)
	}

	<-ctx.Done()
	logs.Info("shutting down")
	return nil
}

func logStats(ctx context.Context, store *cache.Cache, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := store.Stats()
			logs.Infof("entries=%d dirty=%d subscribers=%d approxBytes=%d lastSync=%s",
				stats.TotalEntries, stats.DirtyEntries, stats.TotalSubscribers,
				stats.ApproxCacheSizeBytes, stats.LastSyncAt.Format(time.RFC3339))
		}
	}
}
