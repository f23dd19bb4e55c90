package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/DoyleJ11/fleet-bracket/internal/engine"
)

const (
	DefaultTimeout  = 8 * time.Second
	DefaultMinItems = 10

	UserAgent = "fleet-bracket/1.0"

	// maxBody caps a single source response.
	maxBody = 64 << 20
)

var (
	ErrTooFewShips = errors.New("too few ships")
	ErrNoSources   = errors.New("no catalog sources configured")
)

// SourceError is a failed attempt against one source.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string { return e.Source + ": " + e.Err.Error() }
func (e *SourceError) Unwrap() error { return e.Err }

// ExhaustedError is returned once every source has failed. It wraps one
// *SourceError per source in the order they were tried.
type ExhaustedError struct {
	errs error
}

func (e *ExhaustedError) Error() string {
	return "all catalog sources failed: " + e.errs.Error()
}

func (e *ExhaustedError) Unwrap() []error { return multierr.Errors(e.errs) }

// Reasons lists the failures as "<source>: <cause>" lines.
func (e *ExhaustedError) Reasons() []string {
	errs := multierr.Errors(e.errs)
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}

// Reasons turns any load error into the lines shown on the error screen.
func Reasons(err error) []string {
	var ex *ExhaustedError
	if errors.As(err, &ex) {
		return ex.Reasons()
	}
	return []string{err.Error()}
}

// Loader fetches the catalog from the first source that answers with a
// usable ship list. Concurrent Load calls share one fetch.
type Loader struct {
	Sources  []Source
	Client   *http.Client
	Timeout  time.Duration
	MinItems int
	Logger   *zap.Logger

	// Cache is the response cache behind Client, if any. A response that
	// fails validation is evicted so the next load asks the origin again.
	Cache httpcache.Cache

	group singleflight.Group
}

func NewLoader(sources []Source, client *http.Client, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client = http.DefaultClient
	}
	l := &Loader{
		Sources:  sources,
		Client:   client,
		Timeout:  DefaultTimeout,
		MinItems: DefaultMinItems,
		Logger:   logger,
	}
	if t, ok := client.Transport.(*httpcache.Transport); ok {
		l.Cache = t.Cache
	}
	return l
}

// Load returns the catalog sorted by id. The shared fetch outlives a caller
// whose ctx ends; that caller gets ctx.Err() right away.
func (l *Loader) Load(ctx context.Context) ([]engine.Item, error) {
	ch := l.group.DoChan("catalog", func() (any, error) {
		return l.load(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]engine.Item)), nil
	}
}

func (l *Loader) load(ctx context.Context) ([]engine.Item, error) {
	if len(l.Sources) == 0 {
		return nil, ErrNoSources
	}

	log := l.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var errs error
	for _, src := range l.Sources {
		start := time.Now()
		items, err := l.fetch(ctx, src)
		if err == nil {
			log.Info("catalog loaded",
				zap.String("source", src.Label),
				zap.Int("ships", len(items)),
				zap.Duration("took", time.Since(start)))
			return items, nil
		}
		log.Warn("catalog source failed",
			zap.String("source", src.Label),
			zap.Error(err))
		errs = multierr.Append(errs, &SourceError{Source: src.Label, Err: err})
	}
	return nil, &ExhaustedError{errs: errs}
}

func (l *Loader) fetch(ctx context.Context, src Source) ([]engine.Item, error) {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return nil, uerr.Err
		}
		return nil, err
	}
	defer resp.Body.Close()

	items, err := l.validate(resp)
	if err != nil {
		l.evict(req)
		return nil, err
	}
	return items, nil
}

func (l *Loader) validate(resp *http.Response) ([]engine.Item, error) {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}
	items, err := Parse(body)
	if err != nil {
		return nil, fmt.Errorf("bad catalog: %s", strings.TrimPrefix(err.Error(), "json: "))
	}

	minItems := l.MinItems
	if minItems <= 0 {
		minItems = DefaultMinItems
	}
	if len(items) < minItems {
		return nil, ErrTooFewShips
	}
	return items, nil
}

// evict drops a cached response for req.
func (l *Loader) evict(req *http.Request) {
	if l.Cache != nil {
		// Mirrors httpcache's (unexported) cache key for GET requests.
		l.Cache.Delete(req.URL.String())
	}
}
