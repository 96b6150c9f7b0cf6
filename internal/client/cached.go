package client

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/jcolombo/paymo/internal/cache"
)

// CachedTransport serves successful GET responses from a cache and forwards
// everything else to the wrapped transport.
type CachedTransport struct {
	next   Transport
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
	// ClearOnWrite drops the whole cache after any successful write.
	ClearOnWrite bool
}

// NewCachedTransport wraps next. A zero ttl uses the cache's default.
func NewCachedTransport(next Transport, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedTransport{next: next, cache: c, ttl: ttl, logger: logger}
}

// cachedResponse is the stored form of a response.
type cachedResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
}

func (t *CachedTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	if !req.IsRead() {
		resp, err := t.next.Do(ctx, req)
		if err == nil && resp.Success && t.ClearOnWrite {
			if cerr := t.cache.Clear(ctx); cerr != nil {
				t.logger.Warn("clearing cache after write", zap.Error(cerr))
			}
		}
		return resp, err
	}

	key := cache.Key(req.Method, req.Path, req.Include, req.Where)
	if data, err := t.cache.Get(ctx, key); err == nil {
		var cr cachedResponse
		if json.Unmarshal(data, &cr) == nil {
			t.logger.Debug("cache hit", zap.String("path", req.Path))
			return &Response{Success: true, StatusCode: cr.StatusCode, StatusReason: "OK", Body: cr.Body, Cached: true}, nil
		}
	} else if !cache.IsCacheMiss(err) {
		t.logger.Warn("reading cache", zap.String("path", req.Path), zap.Error(err))
	}

	resp, err := t.next.Do(ctx, req)
	if err != nil || !resp.Success || len(resp.Body) == 0 {
		return resp, err
	}
	data, err := json.Marshal(cachedResponse{StatusCode: resp.StatusCode, Body: resp.Body})
	if err == nil {
		err = t.cache.Set(ctx, key, data, t.ttl)
	}
	if err != nil {
		t.logger.Warn("writing cache", zap.String("path", req.Path), zap.Error(err))
	}
	return resp, nil
}
