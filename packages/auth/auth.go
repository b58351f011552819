// Package auth supplies the credentials used to reach the remote workbook
// store. a missing credential is always an error, never an empty token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ErrNoCredential is returned when a provider has nothing to offer
var ErrNoCredential = errors.New("no credential available")

// Credential is an access token and its expiry. a zero Expiry never expires.
type Credential struct {
	Token  string
	Expiry time.Time
}

// Expired reports whether the credential is no longer usable at now
func (c Credential) Expired(now time.Time) bool {
	return !c.Expiry.IsZero() && !now.Before(c.Expiry)
}

// CredentialProvider resolves the credential for the current user
type CredentialProvider interface {
	Credential(ctx context.Context) (Credential, error)
}

// StaticProvider always returns the same credential
type StaticProvider struct {
	cred Credential
}

// NewStaticProvider wraps a fixed token
func NewStaticProvider(token string, expiry time.Time) *StaticProvider {
	return &StaticProvider{cred: Credential{Token: token, Expiry: expiry}}
}

func (p *StaticProvider) Credential(ctx context.Context) (Credential, error) {
	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}
	if p.cred.Token == "" {
		return Credential{}, ErrNoCredential
	}
	if p.cred.Expired(time.Now()) {
		return Credential{}, fmt.Errorf("token expired at %s: %w", p.cred.Expiry.Format(time.RFC3339), ErrNoCredential)
	}
	return p.cred, nil
}

// EnvProvider reads a token from an environment variable on every call
type EnvProvider struct {
	Variable string
	lookup   func(string) (string, bool)
}

// NewEnvProvider reads the token from variable
func NewEnvProvider(variable string) *EnvProvider {
	return &EnvProvider{Variable: variable, lookup: os.LookupEnv}
}

func (p *EnvProvider) Credential(ctx context.Context) (Credential, error) {
	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}
	if p.Variable == "" {
		return Credential{}, fmt.Errorf("no token variable configured: %w", ErrNoCredential)
	}
	token, ok := p.lookup(p.Variable)
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return Credential{}, fmt.Errorf("%s is not set: %w", p.Variable, ErrNoCredential)
	}
	return Credential{Token: token}, nil
}
