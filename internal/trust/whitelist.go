package trust

import (
	"net/mail"
	"strings"

	"go.uber.org/zap"
)

// Whitelist is the process-wide trusted-domain list. It is immutable after
// construction and safe for unsynchronized concurrent reads; changing it
// requires a restart.
type Whitelist struct {
	domains []string
	logger  *zap.Logger
}

// NewWhitelist creates a whitelist from configured domains
func NewWhitelist(domains []string, logger *zap.Logger) *Whitelist {
	normalized := make([]string, 0, len(domains))
	for _, domain := range domains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain != "" {
			normalized = append(normalized, domain)
		}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized global whitelist", zap.Strings("domains", normalized))
	}

	return &Whitelist{
		domains: normalized,
		logger:  logger,
	}
}

// Match returns the whitelist entry the sender's domain falls under, if any.
// Subdomains match their parent entry: accounts.google.com matches a
// google.com entry. The address may carry an RFC 5322 display name
// ("Name <addr@dom>"); only the address part is matched.
func (w *Whitelist) Match(address string) (string, bool) {
	if len(w.domains) == 0 {
		return "", false
	}

	if parsed, err := mail.ParseAddress(address); err == nil {
		address = parsed.Address
	}

	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return "", false
	}
	domain := strings.ToLower(parts[1])

	for _, entry := range w.domains {
		if domain == entry || strings.HasSuffix(domain, "."+entry) {
			if w.logger != nil {
				w.logger.Debug("Domain is whitelisted",
					zap.String("domain", domain),
					zap.String("entry", entry))
			}
			return entry, true
		}
	}

	return "", false
}
