package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/contactpic/internal/logger"
	"github.com/marmos91/contactpic/internal/telemetry"
	"github.com/marmos91/contactpic/pkg/avatar"
)

// Lookup outcomes reported to Metrics.
const (
	OutcomeFound   = "found"
	OutcomeMissing = "missing"
	OutcomeError   = "error"
)

// DefaultCacheReportInterval is how often backend cache ratios are sampled.
const DefaultCacheReportInterval = 15 * time.Second

// Metrics receives directory events. A nil Metrics records nothing.
type Metrics interface {
	ObserveLookup(typ Type, outcome string, d time.Duration)
	RecordCacheHitRatio(cacheType string, ratio float64)
}

// cacheRatioReporter is implemented by backends with an internal cache.
type cacheRatioReporter interface {
	CacheHitRatios() map[string]float64
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithCacheReportInterval sets how often backend cache ratios are sampled.
func WithCacheReportInterval(d time.Duration) Option {
	return func(s *Store) { s.reportInterval = d }
}

// Store wraps a Provider with tracing, metrics and logging, and exposes
// the optional capabilities through a single type.
type Store struct {
	provider       Provider
	metrics        Metrics
	reportInterval time.Duration

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Open builds the backend described by cfg.
func Open(cfg Config, opts ...Option) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid directory configuration: %w", err)
	}

	var (
		p   Provider
		err error
	)
	switch cfg.Type {
	case TypeStatic:
		p, err = NewStaticProvider(cfg.Static.Path)
	case TypeSQLite, TypePostgres:
		p, err = NewSQLProvider(&cfg)
	case TypeBadger:
		p, err = NewBadgerProvider(cfg.Badger)
	}
	if err != nil {
		return nil, err
	}

	return NewStore(p, opts...), nil
}

// NewStore wraps p.
func NewStore(p Provider, opts ...Option) *Store {
	s := &Store{
		provider:       p,
		reportInterval: DefaultCacheReportInterval,
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	reporter, ok := p.(cacheRatioReporter)
	if !ok || s.metrics == nil || s.reportInterval <= 0 {
		close(s.done)
		return s
	}

	go s.reportCacheRatios(reporter)
	return s
}

// Type returns the backend type.
func (s *Store) Type() Type { return s.provider.Type() }

// Provider returns the wrapped backend.
func (s *Store) Provider() Provider { return s.provider }

// LocatePhoto implements loader.Directory.
func (s *Store) LocatePhoto(ctx context.Context, address string) (avatar.Locator, bool, error) {
	typ := s.provider.Type()
	ctx, span := telemetry.StartDirectorySpan(ctx, string(typ), telemetry.Address(address))
	defer span.End()

	start := time.Now()
	loc, found, err := s.provider.LocatePhoto(ctx, address)
	elapsed := time.Since(start)

	outcome := OutcomeMissing
	switch {
	case err != nil:
		outcome = OutcomeError
		telemetry.RecordError(ctx, err)
		logger.WarnCtx(ctx, "Directory lookup failed",
			logger.KeyDirectory, typ, logger.Address(address), logger.Err(err))
	case found:
		outcome = OutcomeFound
	}

	if s.metrics != nil {
		s.metrics.ObserveLookup(typ, outcome, elapsed)
	}
	logger.DebugCtx(ctx, "Directory lookup",
		logger.KeyDirectory, typ, logger.Address(address),
		"outcome", outcome, logger.DurationMs(float64(elapsed.Microseconds())/1000))

	return loc, found, err
}

// List returns every contact, or ErrNotListable.
func (s *Store) List(ctx context.Context) ([]Contact, error) {
	l, ok := s.provider.(Lister)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotListable, s.provider.Type())
	}
	return l.List(ctx)
}

// Writable reports whether Put and Delete are supported.
func (s *Store) Writable() bool {
	_, ok := s.provider.(Writer)
	return ok
}

// Put stores a contact, or fails with ErrReadOnly.
func (s *Store) Put(ctx context.Context, c Contact) error {
	w, ok := s.provider.(Writer)
	if !ok {
		return fmt.Errorf("%w: %s", ErrReadOnly, s.provider.Type())
	}
	if err := w.Put(ctx, c); err != nil {
		return err
	}
	logger.InfoCtx(ctx, "Contact stored", logger.Address(c.Address), logger.KeyDirectory, s.provider.Type())
	return nil
}

// Delete removes a contact, or fails with ErrReadOnly.
func (s *Store) Delete(ctx context.Context, address string) error {
	w, ok := s.provider.(Writer)
	if !ok {
		return fmt.Errorf("%w: %s", ErrReadOnly, s.provider.Type())
	}
	if err := w.Delete(ctx, address); err != nil {
		return err
	}
	logger.InfoCtx(ctx, "Contact deleted", logger.Address(address), logger.KeyDirectory, s.provider.Type())
	return nil
}

// Healthcheck pings backends that support it. Others are always healthy.
func (s *Store) Healthcheck(ctx context.Context) error {
	h, ok := s.provider.(interface{ Healthcheck(context.Context) error })
	if !ok {
		return nil
	}
	return h.Healthcheck(ctx)
}

// Watch blocks until ctx is done, reporting changed addresses. Backends
// that cannot change underneath the process return errors.ErrUnsupported.
func (s *Store) Watch(ctx context.Context, onChange func(addresses []string)) error {
	w, ok := s.provider.(Watcher)
	if !ok {
		return errors.ErrUnsupported
	}
	return w.Watch(ctx, onChange)
}

// Close stops background reporting and closes the backend.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
		err = s.provider.Close()
	})
	return err
}

func (s *Store) reportCacheRatios(r cacheRatioReporter) {
	defer close(s.done)

	ticker := time.NewTicker(s.reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			for cacheType, ratio := range r.CacheHitRatios() {
				s.metrics.RecordCacheHitRatio(cacheType, ratio)
			}
		}
	}
}
