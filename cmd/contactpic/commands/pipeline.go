package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/contactpic/internal/bytesize"
	"github.com/marmos91/contactpic/internal/logger"
	"github.com/marmos91/contactpic/pkg/avatar/cache"
	"github.com/marmos91/contactpic/pkg/avatar/fallback"
	"github.com/marmos91/contactpic/pkg/avatar/loader"
	"github.com/marmos91/contactpic/pkg/avatar/loop"
	"github.com/marmos91/contactpic/pkg/avatar/workqueue"
	"github.com/marmos91/contactpic/pkg/config"
	"github.com/marmos91/contactpic/pkg/directory"
	"github.com/marmos91/contactpic/pkg/metrics/prometheus"
	"github.com/marmos91/contactpic/pkg/photo"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// loadConfig loads the --config file when given, or the default file when
// it exists, or defaults plus environment otherwise.
func loadConfig() (*config.Config, error) {
	if path := GetConfigFile(); path != "" {
		return config.MustLoad(path)
	}
	if config.DefaultConfigExists() {
		return config.Load(config.GetDefaultConfigPath())
	}
	return config.Load("")
}

// getConfigSource describes where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

// pipeline is the wired avatar loader with everything it owns.
type pipeline struct {
	directory *directory.Store
	queue     *workqueue.Queue
	loop      *loop.Loop
	loader    *loader.Loader

	shutdownTimeout time.Duration
}

// newPipeline opens the directory and builds the loader described by cfg.
// Metrics sinks are nil unless the registry was initialized first.
func newPipeline(ctx context.Context, cfg *config.Config) (*pipeline, error) {
	dir, err := directory.Open(cfg.Directory, directory.WithMetrics(prometheus.NewDirectoryMetrics()))
	if err != nil {
		return nil, fmt.Errorf("failed to open contact directory: %w", err)
	}

	capacity, err := config.ResolveCacheCapacity(cfg.Cache)
	if err != nil {
		_ = dir.Close()
		return nil, err
	}

	cacheOpts := []cache.Option{cache.WithMetrics(prometheus.NewCacheMetrics())}
	if cfg.Cache.RejectOversized {
		cacheOpts = append(cacheOpts, cache.WithRejectOversized())
	}
	imageCache := cache.New(capacity, cacheOpts...)

	gen, err := fallback.New(cfg.Avatar.PictureSize)
	if err != nil {
		_ = dir.Close()
		return nil, err
	}

	queue := workqueue.New(workqueue.Config{
		Workers:    cfg.Avatar.Workers,
		QueueSize:  cfg.Avatar.QueueSize,
		JobTimeout: cfg.Avatar.FetchTimeout,
	})
	queue.Start(ctx)

	deliveries := loop.New(cfg.Avatar.QueueSize)

	codec := &photo.Codec{
		MaxSourceBytes:  cfg.Photos.MaxSourceBytes.Int64(),
		MaxSourcePixels: cfg.Photos.MaxSourcePixels,
	}

	l, err := loader.New(loader.Options{
		PictureSize:  cfg.Avatar.PictureSize,
		Directory:    dir,
		Opener:       photo.NewOSOpener(cfg.Photos.Root),
		Codec:        codec,
		Cache:        imageCache,
		Generator:    gen,
		Queue:        queue,
		Loop:         deliveries,
		Metrics:      prometheus.NewLoaderMetrics(),
		FetchTimeout: cfg.Avatar.FetchTimeout,
		StopTimeout:  cfg.ShutdownTimeout,
	})
	if err != nil {
		queue.Stop(cfg.ShutdownTimeout)
		deliveries.Stop()
		_ = dir.Close()
		return nil, err
	}

	logger.Info("Avatar loader ready",
		logger.KeyDirectory, dir.Type(),
		logger.KeyCacheCapacity, bytesize.ByteSize(capacity).String(),
		"picture_size", cfg.Avatar.PictureSize,
		"workers", cfg.Avatar.Workers)

	return &pipeline{
		directory:       dir,
		queue:           queue,
		loop:            deliveries,
		loader:          l,
		shutdownTimeout: cfg.ShutdownTimeout,
	}, nil
}

// watchDirectory drops cached avatars for contacts that change in the
// directory. It returns once ctx is done or the backend cannot be watched.
func (p *pipeline) watchDirectory(ctx context.Context) {
	err := p.directory.Watch(ctx, func(addresses []string) {
		for _, addr := range addresses {
			p.loader.Invalidate(addr)
		}
		logger.Info("Contact directory changed", logger.KeyEntries, len(addresses))
	})
	switch {
	case errors.Is(err, errors.ErrUnsupported):
		logger.Debug("Contact directory does not support watching", logger.KeyDirectory, p.directory.Type())
	case err != nil && !errors.Is(err, context.Canceled):
		logger.Warn("Contact directory watch stopped", logger.Err(err))
	}
}

// Close stops the loader, drains the worker pool and closes the directory.
func (p *pipeline) Close() error {
	err := p.loader.Close()
	p.queue.Stop(p.shutdownTimeout)
	p.loop.Stop()
	return errors.Join(err, p.directory.Close())
}
