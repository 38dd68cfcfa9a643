// Package identity keeps the per-installation device id and the player's
// display name in a t2048.Store.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/vovakirdan/tui-2048/internal/t2048"
)

// Storage keys.
const (
	DeviceIDKey = "deviceId"
	NameKey     = "userName"
)

// MaxNameLength is the longest accepted display name, in runes.
const MaxNameLength = 24

// ErrInvalidName is returned by SetDisplayName for unusable names.
var ErrInvalidName = errors.New("identity: invalid name")

// Provider reads and writes identity records.
type Provider struct {
	store t2048.Store
}

// New creates a provider over store.
func New(store t2048.Store) *Provider {
	return &Provider{store: store}
}

// DeviceID returns the stored device id, generating and saving one on first use.
func (p *Provider) DeviceID() (string, error) {
	data, err := p.store.Get(DeviceIDKey)
	if err == nil && len(data) > 0 {
		return string(data), nil
	}
	if err != nil && !errors.Is(err, t2048.ErrNotFound) {
		return "", fmt.Errorf("identity: cannot read device id: %w", err)
	}

	id := uuid.NewString()
	if err := p.store.Put(DeviceIDKey, []byte(id)); err != nil {
		return "", fmt.Errorf("identity: cannot save device id: %w", err)
	}
	return id, nil
}

// DisplayName returns the stored name, or t2048.DefaultPlayerName.
func (p *Provider) DisplayName() string {
	data, err := p.store.Get(NameKey)
	if err != nil || len(data) == 0 {
		return t2048.DefaultPlayerName
	}
	return string(data)
}

// HasName reports whether a name has been chosen.
func (p *Provider) HasName() bool {
	data, err := p.store.Get(NameKey)
	return err == nil && len(data) > 0
}

// SetDisplayName validates and stores name, returning the trimmed value.
func (p *Provider) SetDisplayName(name string) (string, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return "", err
	}
	if err := p.store.Put(NameKey, []byte(name)); err != nil {
		return "", fmt.Errorf("identity: cannot save name: %w", err)
	}
	return name, nil
}

// NormalizeName trims name and checks it is 1 to MaxNameLength runes.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("%w: name is not valid UTF-8", ErrInvalidName)
	}
	if n := utf8.RuneCountInString(name); n > MaxNameLength {
		return "", fmt.Errorf("%w: %d characters, at most %d allowed", ErrInvalidName, n, MaxNameLength)
	}
	return name, nil
}
