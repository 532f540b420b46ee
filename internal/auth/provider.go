// Package auth supplies the bearer credential presented to the wholesale API.
package auth

import (
	"context"
	"strings"

	"github.com/utafrali/wholesale-storefront/pkg/middleware"
)

// Provider returns the current bearer credential, if any.
type Provider interface {
	Token(ctx context.Context) (string, bool)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (string, bool)

// Token calls f(ctx).
func (f ProviderFunc) Token(ctx context.Context) (string, bool) { return f(ctx) }

// ContextProvider reads the credential forwarded by the BearerToken middleware.
type ContextProvider struct{}

// Token returns the request's bearer credential.
func (ContextProvider) Token(ctx context.Context) (string, bool) {
	tok := middleware.TokenFromContext(ctx)
	return tok, tok != ""
}

// Static always returns the same credential. An empty value means none.
type Static string

// Token returns the configured credential.
func (s Static) Token(context.Context) (string, bool) {
	tok := strings.TrimSpace(string(s))
	return tok, tok != ""
}

// Chain returns the first credential found among providers.
func Chain(providers ...Provider) Provider {
	return ProviderFunc(func(ctx context.Context) (string, bool) {
		for _, p := range providers {
			if p == nil {
				continue
			}
			if tok, ok := p.Token(ctx); ok {
				return tok, true
			}
		}
		return "", false
	})
}
