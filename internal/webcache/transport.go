package webcache

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gregjones/httpcache"
	"go.uber.org/zap"
)

type Options struct {
	// TTL is how long a fetched catalog is served from cache, whatever the
	// origin says. Zero disables caching.
	TTL time.Duration

	// Bucket selects an S3 bucket as the cache store. Empty keeps the cache
	// in memory.
	Bucket string

	Logger *zap.Logger
}

// NewClient returns an http.Client that caches successful responses for
// opts.TTL. If the S3 store cannot be reached it falls back to memory.
func NewClient(ctx context.Context, opts Options) *http.Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TTL <= 0 {
		return &http.Client{}
	}

	var cache httpcache.Cache = httpcache.NewMemoryCache()
	if opts.Bucket != "" {
		s3c := NewS3Cache(ctx, opts.Bucket, true, logger)
		if err := s3c.Init(); err != nil {
			logger.Warn("s3 cache unavailable, caching in memory",
				zap.String("bucket", opts.Bucket),
				zap.Error(err))
		} else {
			cache = s3c
		}
	}
	return &http.Client{Transport: NewTransport(cache, opts.TTL, http.DefaultTransport)}
}

// NewTransport caches through cache and rewrites origin caching headers so
// every response is fresh for ttl.
func NewTransport(cache httpcache.Cache, ttl time.Duration, next http.RoundTripper) *httpcache.Transport {
	hc := httpcache.NewTransport(cache)
	// mirrors often send no-cache; override before httpcache sees it
	hc.Transport = &HeaderOverrideTransport{
		wrappedRT: next,
		Response: func(resp *http.Response) error {
			if resp.StatusCode != http.StatusOK {
				return nil
			}
			resp.Header.Del("Pragma")
			resp.Header.Del("Expires")
			resp.Header.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(ttl/time.Second)))
			return nil
		},
	}
	return hc
}

type HeaderOverrideTransport struct {
	Request  func(req *http.Request)
	Response func(resp *http.Response) error

	wrappedRT http.RoundTripper
}

func NewHeaderOverrideTransport(next http.RoundTripper) *HeaderOverrideTransport {
	return &HeaderOverrideTransport{wrappedRT: next}
}

// RoundTrip applies Request and Response hooks around the underlying transport.
func (t *HeaderOverrideTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// the hook gets a clone; the caller's request is left alone
	req2 := req.Clone(req.Context())
	if t.Request != nil {
		t.Request(req2)
	}

	next := t.wrappedRT
	if next == nil {
		next = http.DefaultTransport
	}
	resp, err := next.RoundTrip(req2)
	if err != nil {
		return nil, err
	}

	if t.Response != nil {
		if err := t.Response(resp); err != nil {
			resp.Body.Close()
			return nil, err
		}
	}
	return resp, nil
}
