// Package directory maps contact addresses to photo locators.
//
// Three backends are available:
//   - static: a YAML file, optionally reloaded when it changes on disk
//   - sqlite / postgres: a contacts table managed through GORM
//   - badger: an embedded key-value store
//
// Open builds a backend from Config and wraps it in a Store, which adds
// tracing, metrics and logging around every lookup. Store satisfies
// loader.Directory.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/marmos91/contactpic/pkg/avatar"
)

var (
	// ErrReadOnly is returned by write operations on a backend that
	// cannot be modified at runtime.
	ErrReadOnly = errors.New("directory is read-only")

	// ErrNotListable is returned by List on a backend that cannot
	// enumerate its contacts.
	ErrNotListable = errors.New("directory cannot list contacts")

	// ErrInvalidContact is returned when a contact has no address.
	ErrInvalidContact = errors.New("invalid contact")

	// ErrContactNotFound is returned by Delete for an unknown address.
	ErrContactNotFound = errors.New("contact not found")
)

// Contact is one directory entry.
type Contact struct {
	Address     string `json:"address" yaml:"address"`
	DisplayName string `json:"name,omitempty" yaml:"name,omitempty"`
	Photo       string `json:"photo,omitempty" yaml:"photo,omitempty"`
}

// Identity returns the avatar identity for the contact.
func (c Contact) Identity() avatar.Identity {
	return avatar.NewIdentity(c.Address, c.DisplayName)
}

// HasPhoto reports whether the contact has a photo locator.
func (c Contact) HasPhoto() bool {
	return strings.TrimSpace(c.Photo) != ""
}

// normalize returns c with its address normalized, or ErrInvalidContact.
func (c Contact) normalize() (Contact, error) {
	addr := NormalizeAddress(c.Address)
	if addr == "" {
		return Contact{}, fmt.Errorf("%w: empty address", ErrInvalidContact)
	}
	c.Address = addr
	c.DisplayName = strings.TrimSpace(c.DisplayName)
	c.Photo = strings.TrimSpace(c.Photo)
	return c, nil
}

// NormalizeAddress trims and lower-cases an address. Backends store and
// look up addresses in this form, matching avatar.KeyFor.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Provider is a directory backend.
type Provider interface {
	// Type names the backend.
	Type() Type

	// LocatePhoto returns the photo locator for address. found is false
	// when the contact is unknown or has no photo.
	LocatePhoto(ctx context.Context, address string) (loc avatar.Locator, found bool, err error)

	// Close releases the backend's resources.
	Close() error
}

// Lister is implemented by backends that can enumerate contacts.
type Lister interface {
	List(ctx context.Context) ([]Contact, error)
}

// Writer is implemented by backends that accept changes at runtime.
type Writer interface {
	// Put inserts or replaces the contact with c's address.
	Put(ctx context.Context, c Contact) error

	// Delete removes the contact, or fails with ErrContactNotFound.
	Delete(ctx context.Context, address string) error
}

// Watcher is implemented by backends whose contents change outside the
// process. Watch blocks until ctx is done, calling onChange with the
// addresses whose entries changed.
type Watcher interface {
	Watch(ctx context.Context, onChange func(addresses []string)) error
}
