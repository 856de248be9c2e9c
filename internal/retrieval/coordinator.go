package retrieval

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/any-hub/statuscat/internal/cache"
	"github.com/any-hub/statuscat/internal/origin"
)

// Recorder 接收协调结果的计数，nil 表示不记录。
type Recorder interface {
	RecordResult(operation, status string)
	ObserveFetch(d time.Duration, ok bool)
	RecordFillFailure()
	RecordLookupFailure()
}

// Options 控制 Coordinator 的可选行为。
type Options struct {
	Recorder Recorder
	// SingleFlight 为 true 时，同一 key 的并发冷读共享一次回源。
	SingleFlight bool
}

// Coordinator 组合 Store 与 Fetcher，实现读穿透、显式写入与删除。
// 不在 Store/Fetcher 调用之间持有任何锁。
type Coordinator struct {
	store    cache.Store
	fetcher  origin.Fetcher
	logger   *logrus.Logger
	recorder Recorder
	group    *singleflight.Group
}

// NewCoordinator 构造协调器；logger 为空时使用 logrus 标准 logger。
func NewCoordinator(store cache.Store, fetcher origin.Fetcher, logger *logrus.Logger, opts Options) *Coordinator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c := &Coordinator{
		store:    store,
		fetcher:  fetcher,
		logger:   logger,
		recorder: opts.Recorder,
	}
	if opts.SingleFlight {
		c.group = &singleflight.Group{}
	}
	return c
}

// Read 优先返回缓存正文，未命中时回源并尽力回填。
func (c *Coordinator) Read(ctx context.Context, key cache.Key) ([]byte, Status) {
	result, err := c.store.Get(ctx, key)
	if err == nil {
		return c.finish("read", result.Blob, FromCache)
	}
	if !errors.Is(err, cache.ErrNotFound) {
		c.logger.WithFields(logrus.Fields{
			"action": "cache_get_failed",
			"code":   key.String(),
		}).WithError(err).Warn("cache_get_failed")
		if c.recorder != nil {
			c.recorder.RecordLookupFailure()
		}
	}

	var blob []byte
	if c.group != nil {
		v, _, _ := c.group.Do(key.String(), func() (interface{}, error) {
			// 共享回源不随首个请求的取消而中断，超时仍由 Fetcher 保证。
			return c.fetchAndFill(context.WithoutCancel(ctx), key), nil
		})
		blob, _ = v.([]byte)
	} else {
		blob = c.fetchAndFill(ctx, key)
	}

	if len(blob) == 0 {
		return c.finish("read", nil, UpstreamMiss)
	}
	return c.finish("read", blob, FromOrigin)
}

// Write 将客户端提供的正文写入缓存。
func (c *Coordinator) Write(ctx context.Context, key cache.Key, blob []byte) Status {
	if _, err := c.store.Put(ctx, key, bytes.NewReader(blob)); err != nil {
		c.logger.WithFields(logrus.Fields{
			"action": "cache_write_failed",
			"code":   key.String(),
		}).WithError(err).Error("cache_write_failed")
		_, status := c.finish("write", nil, WriteFailure)
		return status
	}
	_, status := c.finish("write", nil, Created)
	return status
}

// Remove 删除缓存条目。
func (c *Coordinator) Remove(ctx context.Context, key cache.Key) Status {
	err := c.store.Delete(ctx, key)
	switch {
	case err == nil:
		_, status := c.finish("remove", nil, Deleted)
		return status
	case errors.Is(err, cache.ErrNotFound):
		_, status := c.finish("remove", nil, NotFound)
		return status
	default:
		c.logger.WithFields(logrus.Fields{
			"action": "cache_remove_failed",
			"code":   key.String(),
		}).WithError(err).Error("cache_remove_failed")
		_, status := c.finish("remove", nil, RemoveFailure)
		return status
	}
}

// fetchAndFill 回源并回填缓存；回源失败返回 nil。
func (c *Coordinator) fetchAndFill(ctx context.Context, key cache.Key) []byte {
	started := time.Now()
	blob, err := c.fetcher.Fetch(ctx, key)
	ok := err == nil && len(blob) > 0
	if c.recorder != nil {
		c.recorder.ObserveFetch(time.Since(started), ok)
	}
	if !ok {
		entry := c.logger.WithFields(logrus.Fields{
			"action": "origin_fetch_failed",
			"code":   key.String(),
		})
		if err != nil {
			entry = entry.WithError(err)
		}
		entry.Info("origin_fetch_failed")
		return nil
	}

	c.fill(ctx, key, blob)
	return blob
}

// fill 尽力写入缓存：失败只记录日志与计数，不影响本次读取结果。
func (c *Coordinator) fill(ctx context.Context, key cache.Key, blob []byte) {
	if _, err := c.store.Put(ctx, key, bytes.NewReader(blob)); err != nil {
		c.logger.WithFields(logrus.Fields{
			"action": "cache_fill_failed",
			"code":   key.String(),
		}).WithError(err).Warn("cache_fill_failed")
		if c.recorder != nil {
			c.recorder.RecordFillFailure()
		}
	}
}

func (c *Coordinator) finish(operation string, blob []byte, status Status) ([]byte, Status) {
	if c.recorder != nil {
		c.recorder.RecordResult(operation, status.String())
	}
	return blob, status
}
