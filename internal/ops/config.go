package ops

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/yanun0323/errors"

	"main/pkg/conn"
)

const defaultOptimisticTTL = 5 * time.Second

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Cache   CacheConfig   `json:"cache"`
	Feed    FeedConfig    `json:"feed"`
	Journal JournalConfig `json:"journal"`
}

// CacheConfig tunes the sync cache.
type CacheConfig struct {
	DefaultTTLMs int64 `json:"defaultTtlMs"`
}

// FeedConfig describes the remote update feed.
type FeedConfig struct {
	URL     string   `json:"url"`
	Symbols []string `json:"symbols"`
}

// JournalConfig selects the sync event journal sink.
type JournalConfig struct {
	Postgres *conn.Config `json:"postgres"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	DefaultTTL time.Duration
	Feed       FeedConfig
	Journal    JournalConfig
}

// Load reads a JSON config file and resolves defaults.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "read config")
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, errors.Wrap(err, "unmarshal config")
	}
	return resolve(cfg)
}

func resolve(cfg FileConfig) (Loaded, error) {
	if cfg.Cache.DefaultTTLMs < 0 {
		return Loaded{}, errors.Errorf("defaultTtlMs must be >= 0, got %d", cfg.Cache.DefaultTTLMs)
	}
	ttl := defaultOptimisticTTL
	if cfg.Cache.DefaultTTLMs > 0 {
		ttl = time.Duration(cfg.Cache.DefaultTTLMs) * time.Millisecond
	}

	feed, err := resolveFeed(cfg.Feed)
	if err != nil {
		return Loaded{}, err
	}

	return Loaded{
		DefaultTTL: ttl,
		Feed:       feed,
		Journal:    cfg.Journal,
	}, nil
}

func resolveFeed(cfg FeedConfig) (FeedConfig, error) {
	symbols := make([]string, 0, len(cfg.Symbols))
	for _, symbol := range cfg.Symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			return FeedConfig{}, errors.New("empty feed symbol")
		}
		symbols = append(symbols, symbol)
	}
	return FeedConfig{
		URL:     strings.TrimSpace(cfg.URL),
		Symbols: symbols,
	}, nil
}
