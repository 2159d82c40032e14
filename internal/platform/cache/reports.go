package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
)

const (
	reportVersionKey = "ledger:reports:version"
	bumpChannel      = "ledger.bump"
)

// ReportCache stores report results under keys carrying a global version.
// Any change to posted ledger state or to the chart bumps the version, orphaning every
// cached report. A nil client disables caching.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewReportCache instantiates the cache helper.
func NewReportCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ReportCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportCache{client: client, ttl: ttl, logger: logger}
}

func (c *ReportCache) enabled() bool {
	return c != nil && c.client != nil
}

// Version returns the current version, initialising it when missing.
func (c *ReportCache) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, reportVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, reportVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, reportVersionKey).Int64()
	}
	return ver, err
}

// Key composes a cache key from parts and the current version.
func (c *ReportCache) Key(ctx context.Context, parts ...string) (string, error) {
	joined := "ledger:reports:" + strings.Join(parts, ":")
	if !c.enabled() {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", joined, ver), nil
}

// Fetch loads a cached value into dest or builds it with loader. Concurrent
// builds of one key are coalesced.
func (c *ReportCache) Fetch(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c.enabled() {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			return json.Unmarshal(payload, dest)
		}
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("report cache read", slog.String("key", key), slog.Any("error", err))
		}
	}
	var group *singleflight.Group
	if c != nil {
		group = &c.group
	} else {
		group = new(singleflight.Group)
	}
	ch := group.DoChan(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(value)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return res.Err
	}
	raw := res.Val.([]byte)
	if c.enabled() {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("report cache write", slog.String("key", key), slog.Any("error", err))
		}
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates every cached report and announces the new version.
func (c *ReportCache) Bump(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	ver, err := c.client.Incr(ctx, reportVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// Changed implements journals.ChangeNotifier.
func (c *ReportCache) Changed(ctx context.Context, event journals.ChangeEvent) {
	if err := c.Bump(ctx); err != nil {
		c.logger.Warn("report cache bump", slog.String("action", event.Action), slog.Int64("entry_id", event.EntryID), slog.Any("error", err))
	}
}

// ChartChanged implements accounts.ChartNotifier.
func (c *ReportCache) ChartChanged(ctx context.Context, event accounts.ChartEvent) {
	if err := c.Bump(ctx); err != nil {
		c.logger.Warn("report cache bump", slog.String("action", event.Action), slog.String("account", event.Code), slog.Any("error", err))
	}
}
