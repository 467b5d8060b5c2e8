package trust

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDomainStore struct {
	domains map[string]bool
	err     error
	calls   int
}

func (f *fakeDomainStore) IsTrustedDomain(_ context.Context, _ int64, domain string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.domains[domain], nil
}

func TestWhitelistMatchExact(t *testing.T) {
	wl := NewWhitelist([]string{"google.com", "github.com"}, zap.NewNop())

	entry, ok := wl.Match("noreply@google.com")
	assert.True(t, ok)
	assert.Equal(t, "google.com", entry)

	_, ok = wl.Match("someone@evil.tk")
	assert.False(t, ok)
}

func TestWhitelistMatchSubdomain(t *testing.T) {
	wl := NewWhitelist([]string{"google.com"}, zap.NewNop())

	entry, ok := wl.Match("security@accounts.google.com")
	assert.True(t, ok)
	assert.Equal(t, "google.com", entry)
}

func TestWhitelistNoFalseSuffixMatch(t *testing.T) {
	wl := NewWhitelist([]string{"google.com"}, zap.NewNop())

	// notgoogle.com must not match a google.com entry
	_, ok := wl.Match("admin@notgoogle.com")
	assert.False(t, ok)
}

func TestWhitelistNormalizesEntries(t *testing.T) {
	wl := NewWhitelist([]string{"  GitHub.COM ", ""}, zap.NewNop())

	_, ok := wl.Match("bot@github.com")
	assert.True(t, ok)
}

func TestWhitelistMatchDisplayNameAddress(t *testing.T) {
	wl := NewWhitelist([]string{"google.com"}, zap.NewNop())

	// From headers commonly arrive as "Name <addr@dom>"
	entry, ok := wl.Match("Google Accounts <no-reply@accounts.google.com>")
	assert.True(t, ok)
	assert.Equal(t, "google.com", entry)

	_, ok = wl.Match("Evil Twin <admin@evil.tk>")
	assert.False(t, ok)
}

func TestWhitelistMalformedAddress(t *testing.T) {
	wl := NewWhitelist([]string{"google.com"}, zap.NewNop())

	_, ok := wl.Match("no-at-sign")
	assert.False(t, ok)
	_, ok = wl.Match("two@signs@google.com")
	assert.False(t, ok)
}

func TestResolveGlobalWhitelistWinsOverPerUser(t *testing.T) {
	wl := NewWhitelist([]string{"google.com"}, zap.NewNop())
	store := &fakeDomainStore{domains: map[string]bool{"google.com": true}}
	r := NewResolver(wl, store, zap.NewNop())

	d, err := r.Resolve(context.Background(), "alerts@google.com", 1)
	require.NoError(t, err)
	assert.True(t, d.Trusted)
	assert.Equal(t, SourceGlobalWhitelist, d.Source)
	assert.Equal(t, "google.com", d.MatchedDomain)
	assert.Equal(t, 0, store.calls, "per-user store must not be consulted on a whitelist hit")
}

func TestResolvePerUserDomain(t *testing.T) {
	wl := NewWhitelist(nil, zap.NewNop())
	store := &fakeDomainStore{domains: map[string]bool{"partner.example": true}}
	r := NewResolver(wl, store, zap.NewNop())

	d, err := r.Resolve(context.Background(), "billing@partner.example", 7)
	require.NoError(t, err)
	assert.True(t, d.Trusted)
	assert.Equal(t, SourcePerUser, d.Source)
	assert.Equal(t, "partner.example", d.MatchedDomain)
	assert.Equal(t, 1, store.calls)
}

func TestResolveNoMatch(t *testing.T) {
	wl := NewWhitelist([]string{"google.com"}, zap.NewNop())
	store := &fakeDomainStore{domains: map[string]bool{}}
	r := NewResolver(wl, store, zap.NewNop())

	d, err := r.Resolve(context.Background(), "stranger@unknown.example", 1)
	require.NoError(t, err)
	assert.False(t, d.Trusted)
	assert.Equal(t, SourceNone, d.Source)
	assert.Equal(t, "", d.MatchedDomain)
}

func TestResolveStoreErrorPropagates(t *testing.T) {
	wl := NewWhitelist(nil, zap.NewNop())
	store := &fakeDomainStore{err: errors.New("connection refused")}
	r := NewResolver(wl, store, zap.NewNop())

	_, err := r.Resolve(context.Background(), "someone@somewhere.example", 1)
	assert.Error(t, err)
}

func TestResolveReadsStoreEveryCall(t *testing.T) {
	// Trust revocation must take effect immediately, so the resolver
	// may not cache store answers
	wl := NewWhitelist(nil, zap.NewNop())
	store := &fakeDomainStore{domains: map[string]bool{"partner.example": true}}
	r := NewResolver(wl, store, zap.NewNop())

	ctx := context.Background()
	d, err := r.Resolve(ctx, "a@partner.example", 1)
	require.NoError(t, err)
	assert.True(t, d.Trusted)

	store.domains["partner.example"] = false
	d, err = r.Resolve(ctx, "a@partner.example", 1)
	require.NoError(t, err)
	assert.False(t, d.Trusted)
	assert.Equal(t, 2, store.calls)
}
