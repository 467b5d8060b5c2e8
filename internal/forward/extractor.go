// Package forward recovers the true originating sender and the original
// subject/body of a message wrapped in forwarding boilerplate. Extraction
// never fails: when nothing matches, the message is treated as not forwarded.
package forward

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/mikey/phishing-scanner/internal/textnorm"
	"go.uber.org/zap"
)

// Result is the outcome of forward-origin extraction. OriginalSender is
// non-empty exactly when IsForwarded is true; otherwise the true sender is
// the envelope sender.
type Result struct {
	CleanedSubject  string
	CleanedBody     string
	OriginalSubject string
	OriginalBody    string
	OriginalSender  string
	IsForwarded     bool
}

// HeaderFunc looks up a single header value by name
type HeaderFunc func(name string) string

// SenderRule is one pattern in the ordered first-match rule list. Extract
// returns a candidate address or "".
type SenderRule struct {
	Name    string
	Extract func(body string, header HeaderFunc) string
}

const addressPattern = `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`

var (
	addressRe           = regexp.MustCompile(addressPattern)
	fromLineRe          = regexp.MustCompile(`(?i)from[:\s]+<?(` + addressPattern + `)>?`)
	forwardedFromRe     = regexp.MustCompile(`(?i)forwarded\s+(?:message\s+)?from[:\s]+<?(` + addressPattern + `)>?`)
	originallySentByRe  = regexp.MustCompile(`(?i)originally\s+sent\s+by[:\s]+<?(` + addressPattern + `)>?`)
	forwardedSubjectRe  = regexp.MustCompile(`(?i)\n\s*subject:\s*(.+)`)
	forwardedHeadersRe  = regexp.MustCompile(`(?is)from:\s*.+?\r?\n(?:.*?\n)*?subject:\s*(.+?)\r?\n(.+)`)
	headerArtifactRe    = regexp.MustCompile(`(?im)^\s*(?:to|from|date|sent|cc|bcc|subject|reply-to|delivered-to|return-path):\s*.+$`)
	wroteIntroRe        = regexp.MustCompile(`(?im)^on\s+.+?wrote:\s*$`)
	quotedLineRe        = regexp.MustCompile(`(?m)^[>|]\s*.+$`)
	imageURLRe          = regexp.MustCompile(`(?i)https?://[^\s]+\.(?:png|jpg|gif|jpeg|svg)\?[^\s]*`)
	trackingURLRe       = regexp.MustCompile(`(?i)https?://[^\s]*(?:track|click|pixel|beacon|analytics|utm_)[^\s]*`)
	dataImageRe         = regexp.MustCompile(`data:image/[^;]+;base64,[^\s]+`)
	equalsRunRe         = regexp.MustCompile(`={3,}`)
	dashRunRe           = regexp.MustCompile(`[-_]{5,}`)
	sentFromLineRe      = regexp.MustCompile(`(?im)^\s*Sent from my .+$`)
	getOutlookLineRe    = regexp.MustCompile(`(?im)^\s*Get Outlook for .+$`)
	blankRunRe          = regexp.MustCompile(`\n{3,}`)
	dashSignatureRe     = regexp.MustCompile(`(?s)\n--[ \t]*\n.*$`)
	underscoreFooterRe  = regexp.MustCompile(`(?s)\n_{10,}.*$`)
	equalsFooterRe      = regexp.MustCompile(`(?s)\n={10,}.*$`)
	regardsSignatureRe  = regexp.MustCompile(`(?is)\nbest regards.*$`)
	thanksSignatureRe   = regexp.MustCompile(`(?is)\nthanks.*$`)
	sentFromSignatureRe = regexp.MustCompile(`(?is)\nsent from.*$`)
)

// forwardingMarkers are the banner lines mail clients insert above forwarded
// content. Checked in order, first hit wins.
var forwardingMarkers = []string{
	"---------- Forwarded message ---------",
	"---------- Forwarded message ----------",
	"------- Forwarded message -------",
	"Begin forwarded message:",
	"Forwarded by Gmail",
	"----Original Message----",
	"-----Original Message-----",
	"--- Forwarded message ---",
}

// DefaultSenderRules returns the ordered rule list used to recover the
// original sender. New patterns are added here, not in the pipeline.
func DefaultSenderRules() []SenderRule {
	bodyRule := func(name string, re *regexp.Regexp) SenderRule {
		return SenderRule{
			Name: name,
			Extract: func(body string, _ HeaderFunc) string {
				if m := re.FindStringSubmatch(body); m != nil {
					return m[1]
				}
				return ""
			},
		}
	}
	headerRule := func(name, headerName string) SenderRule {
		return SenderRule{
			Name: name,
			Extract: func(_ string, header HeaderFunc) string {
				return addressRe.FindString(header(headerName))
			},
		}
	}

	return []SenderRule{
		bodyRule("body-from-line", fromLineRe),
		bodyRule("body-forwarded-from", forwardedFromRe),
		bodyRule("body-originally-sent-by", originallySentByRe),
		headerRule("header-x-original-from", "X-Original-From"),
		headerRule("header-in-reply-to", "In-Reply-To"),
	}
}

// Extractor detects forwarding wrappers and recovers original content
type Extractor struct {
	rules  []SenderRule
	logger *zap.Logger
}

// NewExtractor creates an extractor with the default rule list
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{
		rules:  DefaultSenderRules(),
		logger: logger,
	}
}

// NewExtractorWithRules creates an extractor with a custom rule list
func NewExtractorWithRules(rules []SenderRule, logger *zap.Logger) *Extractor {
	return &Extractor{rules: rules, logger: logger}
}

// Extract scans the subject and body for forwarding wrappers. The body must
// already be reduced to text (HTML stripped); invisible characters are
// scrubbed here before pattern matching.
func (e *Extractor) Extract(subject, body string, header HeaderFunc) *Result {
	body = textnorm.ScrubInvisible(body)

	originalSender := e.findOriginalSender(body, header)
	originalSubject, originalBody := extractForwardedContent(subject, body)

	return &Result{
		CleanedSubject:  textnorm.Normalize(originalSubject),
		CleanedBody:     textnorm.Normalize(originalBody),
		OriginalSubject: originalSubject,
		OriginalBody:    originalBody,
		OriginalSender:  originalSender,
		IsForwarded:     originalSender != "",
	}
}

// findOriginalSender evaluates the rule list in order and returns the first
// candidate that is a syntactically valid address, lower-cased
func (e *Extractor) findOriginalSender(body string, header HeaderFunc) string {
	for _, rule := range e.rules {
		candidate := rule.Extract(body, header)
		if candidate == "" {
			continue
		}
		if _, err := mail.ParseAddress(candidate); err != nil {
			continue
		}
		if e.logger != nil {
			e.logger.Debug("Original sender recovered",
				zap.String("rule", rule.Name),
				zap.String("sender_domain", domainOf(candidate)))
		}
		return strings.ToLower(candidate)
	}
	return ""
}

func domainOf(addr string) string {
	if at := strings.LastIndex(addr, "@"); at >= 0 {
		return strings.ToLower(addr[at+1:])
	}
	return ""
}

// extractForwardedContent recovers the original subject and body from
// forwarding boilerplate. When no wrapper is recognized the message's own
// subject and cleaned body are returned.
func extractForwardedContent(subject, body string) (string, string) {
	originalSubject := stripForwardPrefix(subject)

	if m := forwardedHeadersRe.FindStringSubmatch(body); m != nil {
		forwardedSubject := strings.TrimSpace(m[1])
		if originalSubject == "" || strings.Contains(strings.ToLower(body), strings.ToLower(originalSubject)) {
			originalSubject = forwardedSubject
		}
		return originalSubject, cleanForwardedBody(m[2])
	}

	for _, marker := range forwardingMarkers {
		_, after, found := strings.Cut(body, marker)
		if !found {
			continue
		}
		if m := forwardedSubjectRe.FindStringSubmatchIndex(after); m != nil {
			// Content starts after the forwarded Subject: line
			return originalSubject, cleanForwardedBody(after[m[3]:])
		}
	}

	return originalSubject, cleanForwardedBody(body)
}

// stripForwardPrefix removes Fwd:/Fw: prefixes, iterating so stacked
// prefixes from multiple forwards all come off
func stripForwardPrefix(subject string) string {
	for {
		trimmed := strings.TrimSpace(subject)
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "fwd:"):
			subject = trimmed[4:]
		case strings.HasPrefix(lower, "fw:"):
			subject = trimmed[3:]
		default:
			return trimmed
		}
	}
}

// cleanForwardedBody strips header artifacts, quoted lines, signatures and
// tracking noise from body text
func cleanForwardedBody(text string) string {
	if text == "" {
		return ""
	}

	text = headerArtifactRe.ReplaceAllString(text, "")
	text = wroteIntroRe.ReplaceAllString(text, "")

	text = stripSignature(text)

	text = imageURLRe.ReplaceAllString(text, "")
	text = trackingURLRe.ReplaceAllString(text, "")
	text = dataImageRe.ReplaceAllString(text, "")

	text = equalsRunRe.ReplaceAllString(text, "")
	text = dashRunRe.ReplaceAllString(text, " ")

	text = sentFromLineRe.ReplaceAllString(text, "")
	text = getOutlookLineRe.ReplaceAllString(text, "")
	text = quotedLineRe.ReplaceAllString(text, "")
	text = blankRunRe.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// stripSignature drops trailing signature and footer blocks: a standalone
// separator line, or a closing formula such as "Best regards"
func stripSignature(text string) string {
	text = dashSignatureRe.ReplaceAllString(text, "")
	text = underscoreFooterRe.ReplaceAllString(text, "")
	text = equalsFooterRe.ReplaceAllString(text, "")
	text = regardsSignatureRe.ReplaceAllString(text, "")
	text = thanksSignatureRe.ReplaceAllString(text, "")
	text = sentFromSignatureRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
