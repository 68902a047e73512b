package directory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/contactpic/internal/logger"
	"github.com/marmos91/contactpic/pkg/avatar"
)

// staticReloadDelay coalesces the burst of events editors emit on save.
const staticReloadDelay = 100 * time.Millisecond

// staticFile is the on-disk layout of a static directory:
//
//	contacts:
//	  - address: alice@example.com
//	    name: Alice Example
//	    photo: photos/alice.png
type staticFile struct {
	Contacts []Contact `yaml:"contacts"`
}

// StaticProvider serves contacts from a YAML file. It is read-only; edit
// the file and let Watch pick up the change.
type StaticProvider struct {
	path string

	mu       sync.RWMutex
	contacts map[string]Contact
}

// NewStaticProvider loads the contacts file at path.
func NewStaticProvider(path string) (*StaticProvider, error) {
	p := &StaticProvider{path: filepath.Clean(path)}
	if _, err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Type implements Provider.
func (p *StaticProvider) Type() Type { return TypeStatic }

// Path returns the contacts file.
func (p *StaticProvider) Path() string { return p.path }

// LocatePhoto implements Provider.
func (p *StaticProvider) LocatePhoto(ctx context.Context, address string) (avatar.Locator, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	p.mu.RLock()
	c, ok := p.contacts[NormalizeAddress(address)]
	p.mu.RUnlock()

	if !ok || !c.HasPhoto() {
		return "", false, nil
	}
	return avatar.Locator(c.Photo), true, nil
}

// List implements Lister. Contacts are sorted by address.
func (p *StaticProvider) List(ctx context.Context) ([]Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	out := make([]Contact, 0, len(p.contacts))
	for _, c := range p.contacts {
		out = append(out, c)
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// Reload re-reads the file and returns the addresses that were added,
// removed or changed, sorted. On error the previous contents stay.
func (p *StaticProvider) Reload() ([]string, error) {
	next, err := loadStaticFile(p.path)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	prev := p.contacts
	p.contacts = next
	p.mu.Unlock()

	var changed []string
	for addr, c := range next {
		if old, ok := prev[addr]; !ok || old != c {
			changed = append(changed, addr)
		}
	}
	for addr := range prev {
		if _, ok := next[addr]; !ok {
			changed = append(changed, addr)
		}
	}
	sort.Strings(changed)
	return changed, nil
}

// Watch implements Watcher. The parent directory is watched so that
// editors replacing the file by rename are noticed.
func (p *StaticProvider) Watch(ctx context.Context, onChange func(addresses []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", p.path, err)
	}

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != p.path || event.Op&relevant == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(staticReloadDelay)
			} else {
				timer.Reset(staticReloadDelay)
			}
			reload = timer.C

		case <-reload:
			reload = nil
			changed, err := p.Reload()
			if err != nil {
				logger.Warn("Contacts file reload failed, keeping previous contents",
					logger.KeyDirectory, p.path, logger.Err(err))
				continue
			}
			logger.Info("Contacts file reloaded",
				logger.KeyDirectory, p.path, "changed", len(changed))
			if len(changed) > 0 && onChange != nil {
				onChange(changed)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Contacts file watcher error", logger.KeyDirectory, p.path, logger.Err(err))
		}
	}
}

// Close implements Provider.
func (p *StaticProvider) Close() error { return nil }

func loadStaticFile(path string) (map[string]Contact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contacts file: %w", err)
	}

	var file staticFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse contacts file %s: %w", path, err)
	}

	contacts := make(map[string]Contact, len(file.Contacts))
	for i, raw := range file.Contacts {
		c, err := raw.normalize()
		if err != nil {
			return nil, fmt.Errorf("%s: contact #%d: %w", path, i+1, err)
		}
		if _, dup := contacts[c.Address]; dup {
			return nil, fmt.Errorf("%s: duplicate contact %q", path, c.Address)
		}
		contacts[c.Address] = c
	}
	return contacts, nil
}
