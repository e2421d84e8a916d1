// Package credential handles connection URI secrets: OS keyring lookup and redaction.
package credential

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// ErrNotFound is returned when the keyring holds no URI for the reference.
var ErrNotFound = errors.New("credential: no uri stored in keyring")

// Ref names a keyring entry as "<service>/<account>".
type Ref struct {
	Service string
	Account string
}

func (r Ref) String() string {
	return r.Service + "/" + r.Account
}

// ParseRef parses a "<service>/<account>" keyring reference.
func ParseRef(s string) (Ref, error) {
	service, account, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || service == "" || account == "" {
		return Ref{}, fmt.Errorf("credential: invalid keyring reference %q, want <service>/<account>", s)
	}
	return Ref{Service: service, Account: account}, nil
}

// Store keeps connection URIs in the OS keyring.
type Store struct{}

// NewStore creates a new keyring-backed store.
func NewStore() *Store {
	return &Store{}
}

// SetURI stores a URI in the OS keyring. An empty URI deletes the entry.
func (s *Store) SetURI(ref Ref, uri string) error {
	if uri == "" {
		return s.DeleteURI(ref)
	}
	return keyring.Set(ref.Service, ref.Account, uri)
}

// GetURI retrieves a URI from the OS keyring.
func (s *Store) GetURI(ref Ref) (string, error) {
	uri, err := keyring.Get(ref.Service, ref.Account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("credential: read %s: %w", ref, err)
	}
	return uri, nil
}

// DeleteURI removes a URI from the OS keyring. Missing entries are not an error.
func (s *Store) DeleteURI(ref Ref) error {
	err := keyring.Delete(ref.Service, ref.Account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// LookupURI resolves a "<service>/<account>" reference to the stored URI.
func LookupURI(reference string) (string, error) {
	ref, err := ParseRef(reference)
	if err != nil {
		return "", err
	}
	return NewStore().GetURI(ref)
}
