// Package trust decides whether a resolved true sender is pre-trusted for a
// given recipient. Precedence is fixed: global whitelist first, then the
// recipient's own trusted domains, then none.
package trust

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Source identifies which layer of the trust policy matched
type Source string

const (
	SourceGlobalWhitelist Source = "global-whitelist"
	SourcePerUser         Source = "per-user"
	SourceNone            Source = "none"
)

// Decision is the result of trust resolution
type Decision struct {
	Trusted       bool
	MatchedDomain string
	Source        Source
}

// DomainStore reads the per-recipient trusted-domain set. Reads go to the
// repository on every call; caching here would let revoked trust linger.
type DomainStore interface {
	IsTrustedDomain(ctx context.Context, recipientID int64, domain string) (bool, error)
}

// Resolver evaluates the layered trust policy
type Resolver struct {
	whitelist *Whitelist
	store     DomainStore
	logger    *zap.Logger
}

// NewResolver creates a trust resolver
func NewResolver(whitelist *Whitelist, store DomainStore, logger *zap.Logger) *Resolver {
	return &Resolver{
		whitelist: whitelist,
		store:     store,
		logger:    logger,
	}
}

// Resolve checks the true sender address against the global whitelist, then
// the recipient's trusted domains. First match wins.
func (r *Resolver) Resolve(ctx context.Context, senderAddress string, recipientID int64) (Decision, error) {
	if entry, ok := r.whitelist.Match(senderAddress); ok {
		return Decision{
			Trusted:       true,
			MatchedDomain: entry,
			Source:        SourceGlobalWhitelist,
		}, nil
	}

	domain := domainOf(senderAddress)
	if domain != "" {
		trusted, err := r.store.IsTrustedDomain(ctx, recipientID, domain)
		if err != nil {
			return Decision{}, fmt.Errorf("trusted domain lookup failed: %w", err)
		}
		if trusted {
			r.logger.Debug("Sender trusted by recipient",
				zap.Int64("recipient_id", recipientID),
				zap.String("domain", domain))
			return Decision{
				Trusted:       true,
				MatchedDomain: domain,
				Source:        SourcePerUser,
			}, nil
		}
	}

	return Decision{Source: SourceNone}, nil
}

func domainOf(address string) string {
	if at := strings.LastIndex(address, "@"); at >= 0 && at < len(address)-1 {
		return strings.ToLower(address[at+1:])
	}
	return ""
}
