// Package auth resolves the bearer credential attached to backend requests.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/roasbeef/lexdesk/internal/summary"
	"github.com/zalando/go-keyring"
)

// ServiceName is the keyring service the access token is stored under.
const ServiceName = "lexdesk"

// ErrTokenTooLarge is returned when the platform keyring refuses the token.
type ErrTokenTooLarge struct {
	Key string
	Err error
}

func (e *ErrTokenTooLarge) Error() string {
	return fmt.Sprintf("token for %q is too large: %s", e.Key, e.Err)
}

func (e *ErrTokenTooLarge) Unwrap() error {
	return e.Err
}

// Ensure KeyringProvider implements the credential interface.
var _ summary.CredentialProvider = (*KeyringProvider)(nil)

// KeyringProvider keeps the access token in the OS keyring, keyed by the
// backend URL so tokens for different servers never mix.
type KeyringProvider struct {
	service string
	key     string
}

// NewKeyringProvider creates a provider for the backend at serverURL.
func NewKeyringProvider(serverURL string) *KeyringProvider {
	return &KeyringProvider{
		service: ServiceName,
		key:     serverURL,
	}
}

// BearerToken returns the stored token. It returns an error wrapping
// summary.ErrNotAuthenticated when none is stored.
func (k *KeyringProvider) BearerToken(_ context.Context) (string, error) {
	token, err := keyring.Get(k.service, k.key)
	if err != nil {
		return "", k.toError(err)
	}
	if token == "" {
		return "", summary.ErrNotAuthenticated
	}

	return token, nil
}

// SaveToken stores token, replacing any previous one.
func (k *KeyringProvider) SaveToken(token string) error {
	if err := keyring.Set(k.service, k.key, token); err != nil {
		return k.toError(err)
	}

	return nil
}

// Delete removes the stored token. Deleting a missing token is not an
// error.
func (k *KeyringProvider) Delete() error {
	err := keyring.Delete(k.service, k.key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return k.toError(err)
	}

	return nil
}

func (k *KeyringProvider) toError(err error) error {
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return fmt.Errorf("%w: no token for %s",
			summary.ErrNotAuthenticated, k.key)

	case errors.Is(err, keyring.ErrSetDataTooBig):
		return &ErrTokenTooLarge{Key: k.key, Err: err}

	default:
		return fmt.Errorf("keyring: %w", err)
	}
}
