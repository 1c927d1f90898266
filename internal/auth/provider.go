package auth

import (
	"context"
	"fmt"
	"os"

	"github.com/roasbeef/lexdesk/internal/summary"
	"golang.org/x/oauth2"
)

// TokenEnvVar overrides the stored token when set.
const TokenEnvVar = "LEXDESK_TOKEN"

// StaticProvider returns a fixed token.
type StaticProvider string

// BearerToken returns the token, or summary.ErrNotAuthenticated if empty.
func (s StaticProvider) BearerToken(context.Context) (string, error) {
	if s == "" {
		return "", summary.ErrNotAuthenticated
	}

	return string(s), nil
}

// Chain tries each provider in order and returns the first token found.
type Chain []summary.CredentialProvider

// BearerToken implements summary.CredentialProvider.
func (c Chain) BearerToken(ctx context.Context) (string, error) {
	var lastErr error = summary.ErrNotAuthenticated
	for _, p := range c {
		token, err := p.BearerToken(ctx)
		if err == nil {
			return token, nil
		}
		lastErr = err
	}

	return "", lastErr
}

// DefaultProvider reads LEXDESK_TOKEN first and falls back to the keyring
// entry for serverURL.
func DefaultProvider(serverURL string) Chain {
	return Chain{
		StaticProvider(os.Getenv(TokenEnvVar)),
		NewKeyringProvider(serverURL),
	}
}

// tokenSource adapts a CredentialProvider to oauth2.TokenSource.
type tokenSource struct {
	ctx   context.Context
	creds summary.CredentialProvider
}

// TokenSource returns an oauth2.TokenSource that asks creds for a bearer
// token on every call.
func TokenSource(ctx context.Context,
	creds summary.CredentialProvider) oauth2.TokenSource {

	return &tokenSource{ctx: ctx, creds: creds}
}

// Token implements oauth2.TokenSource.
func (t *tokenSource) Token() (*oauth2.Token, error) {
	bearer, err := t.creds.BearerToken(t.ctx)
	if err != nil {
		return nil, fmt.Errorf("bearer token: %w", err)
	}

	return &oauth2.Token{AccessToken: bearer, TokenType: "Bearer"}, nil
}
