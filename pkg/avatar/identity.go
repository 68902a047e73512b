package avatar

import (
	"fmt"
	"net/mail"
	"strings"
)

// Identity identifies a contact. The zero value is not a valid identity.
type Identity struct {
	// Address is the contact's email address. It is the identity key.
	Address string

	// DisplayName is the human-readable name, used for the placeholder
	// letter when present.
	DisplayName string
}

// NewIdentity returns an identity for address and display name.
func NewIdentity(address, displayName string) Identity {
	return Identity{Address: address, DisplayName: displayName}
}

// ParseIdentity parses an RFC 5322 address such as
// "Alice Example <alice@example.com>" or a bare "alice@example.com".
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Identity{}, ErrInvalidInput
	}

	addr, err := mail.ParseAddress(s)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %q: %v", ErrInvalidInput, s, err)
	}

	return Identity{Address: addr.Address, DisplayName: addr.Name}, nil
}

// Key returns the normalized cache key for the identity.
func (id Identity) Key() (Key, error) {
	return KeyFor(id.Address)
}

// String returns the identity in "Name <address>" form.
func (id Identity) String() string {
	if id.DisplayName == "" {
		return id.Address
	}
	return fmt.Sprintf("%s <%s>", id.DisplayName, id.Address)
}

// Key is the normalized form of a contact address. It identifies entries
// in the image cache and in-flight requests in the coordinator.
type Key string

// KeyFor normalizes address into a Key. Addresses are trimmed and
// lower-cased once here so every other component can compare keys directly.
func KeyFor(address string) (Key, error) {
	normalized := strings.ToLower(strings.TrimSpace(address))
	if normalized == "" {
		return "", ErrInvalidInput
	}
	return Key(normalized), nil
}

// String returns the key as a plain string.
func (k Key) String() string {
	return string(k)
}

// Locator points at a contact photo, as returned by a directory. It is
// either a filesystem path or a file:// URI.
type Locator string

// String returns the locator as a plain string.
func (l Locator) String() string {
	return string(l)
}
