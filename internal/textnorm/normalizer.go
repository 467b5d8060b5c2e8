// Package textnorm cleans email text into the exact form the classifier's
// vectorizer was trained against. Every function is deterministic and total,
// and Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
package textnorm

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	namedEntityRe   = regexp.MustCompile(`(?i)&[a-z]+;`)
	decimalEntityRe = regexp.MustCompile(`&#\d+;`)
	hexEntityRe     = regexp.MustCompile(`(?i)&#x[0-9a-f]+;`)

	softHyphenJoinRe = regexp.MustCompile(`(\S)\x{00AD}(\S)`)
	bidiControlRe    = regexp.MustCompile(`[\x{200e}\x{200f}\x{202a}-\x{202e}\x{2060}\x{180e}\x{061c}]`)
	combiningMarkRe  = regexp.MustCompile(`[\x{0300}-\x{036f}\x{0483}-\x{0489}\x{034f}\x{115f}\x{1160}]`)

	cssBlockRe       = regexp.MustCompile(`\w+\s*\{[^}]+\}`)
	cssImportantRe   = regexp.MustCompile(`(?i)[a-z-]+\s*:\s*[^;{}\n]+\s*!important\s*;?`)
	cssDeclarationRe = regexp.MustCompile(`(?i)[a-z-]+\s*:\s*[^;{}\n]+;`)
	cssPunctRe       = regexp.MustCompile(`[{}!;%@#~^*]`)

	subredditRe = regexp.MustCompile(`(?i)\br/[a-z0-9_]+\b\s*:?\s*`)

	viewInBrowserRe = regexp.MustCompile(`(?i)(?:view|read|open)\s+(?:this\s+)?(?:email|message|newsletter)\s+(?:in|on)\s+(?:your\s+)?(?:browser|web)`)
	unsubscribeRe   = regexp.MustCompile(`(?i)(?:unsubscribe|manage\s+preferences|update\s+email|update\s+settings)`)

	queryURLRe    = regexp.MustCompile(`https?://[^\s]+\?[^\s]+`)
	trackingURLRe = regexp.MustCompile(`(?i)https?://[^\s]*(?:track|pixel|beacon|analytics|click)[^\s]*`)

	emailAddressRe = regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`)
	longHexRe      = regexp.MustCompile(`(?i)\b[a-f0-9]{32,}\b`)
	base64BlobRe   = regexp.MustCompile(`\b[A-Za-z0-9+/]{40,}={0,2}\b`)
	longDigitsRe   = regexp.MustCompile(`\b\d{10,}\b`)

	separatorRunRe = regexp.MustCompile(`[_=\-|\\/]{3,}`)
	ellipsisRunRe  = regexp.MustCompile(`\.{3,}`)

	sentFromRe  = regexp.MustCompile(`(?i)sent\s+from\s+my\s+\w+`)
	wroteLineRe = regexp.MustCompile(`(?i)on\s+.+?wrote:`)

	whitespaceRe = regexp.MustCompile(`\s+`)

	invisibleReplacer = strings.NewReplacer(
		"­", " ",
		"​", " ",
		"‌", " ",
		"‍", " ",
		"\uFEFF", " ",
		" ", " ",
		" ", " ",
		" ", " ",
		" ", " ",
		" ", " ",
		" ", " ",
	)
)

// ScrubInvisible removes invisible and zero-width Unicode that attackers use
// to split keywords past naive matchers. It keeps visible text intact.
func ScrubInvisible(text string) string {
	if text == "" {
		return ""
	}

	text = html.UnescapeString(text)

	// A soft hyphen joining two words hides a word boundary
	text = softHyphenJoinRe.ReplaceAllString(text, "${1} ${2}")
	text = invisibleReplacer.Replace(text)
	text = bidiControlRe.ReplaceAllString(text, " ")
	text = combiningMarkRe.ReplaceAllString(text, "")

	return text
}

// StripHTML reduces an HTML document to its visible text
func StripHTML(htmlContent string) string {
	if htmlContent == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return stripHTMLFallback(htmlContent)
	}

	doc.Find("script, style, head, meta, link").Remove()
	return html.UnescapeString(doc.Text())
}

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleBlockRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	headBlockRe   = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockCloseRe  = regexp.MustCompile(`(?i)</(div|p|br|tr|h[1-6]|li)[^>]*>`)
	anyTagRe      = regexp.MustCompile(`<[^>]+>`)
)

// stripHTMLFallback is the regex path for documents goquery cannot read
func stripHTMLFallback(htmlContent string) string {
	htmlContent = scriptBlockRe.ReplaceAllString(htmlContent, " ")
	htmlContent = styleBlockRe.ReplaceAllString(htmlContent, " ")
	htmlContent = headBlockRe.ReplaceAllString(htmlContent, " ")
	htmlContent = htmlCommentRe.ReplaceAllString(htmlContent, " ")
	htmlContent = blockCloseRe.ReplaceAllString(htmlContent, "\n")
	htmlContent = anyTagRe.ReplaceAllString(htmlContent, " ")
	return html.UnescapeString(htmlContent)
}

// Normalize is the transformation fed to the classifier: entity and
// invisible-character scrubbing, CSS and boilerplate removal, tracking URL
// and opaque-blob removal, lower-casing and whitespace collapsing. Text that
// cleans down to fewer than two meaningful words becomes "".
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = html.UnescapeString(text)
	text = namedEntityRe.ReplaceAllString(text, " ")
	text = decimalEntityRe.ReplaceAllString(text, " ")
	text = hexEntityRe.ReplaceAllString(text, " ")

	text = softHyphenJoinRe.ReplaceAllString(text, "${1} ${2}")
	text = invisibleReplacer.Replace(text)
	text = bidiControlRe.ReplaceAllString(text, " ")
	text = combiningMarkRe.ReplaceAllString(text, "")

	text = cssBlockRe.ReplaceAllString(text, " ")
	text = cssImportantRe.ReplaceAllString(text, " ")
	text = cssDeclarationRe.ReplaceAllString(text, " ")
	text = cssPunctRe.ReplaceAllString(text, " ")

	text = subredditRe.ReplaceAllString(text, " ")
	text = viewInBrowserRe.ReplaceAllString(text, " ")
	text = unsubscribeRe.ReplaceAllString(text, " ")

	text = queryURLRe.ReplaceAllString(text, " ")
	text = trackingURLRe.ReplaceAllString(text, " ")

	text = emailAddressRe.ReplaceAllString(text, " ")
	text = longHexRe.ReplaceAllString(text, " ")
	text = base64BlobRe.ReplaceAllString(text, " ")

	text = separatorRunRe.ReplaceAllString(text, " ")
	text = ellipsisRunRe.ReplaceAllString(text, " ")

	text = sentFromRe.ReplaceAllString(text, " ")
	text = wroteLineRe.ReplaceAllString(text, " ")

	text = longDigitsRe.ReplaceAllString(text, " ")

	text = strings.ToLower(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if len(w) > 1 || w == "i" || w == "a" {
			kept = append(kept, w)
		}
	}
	text = strings.Join(kept, " ")

	// Too little signal left to classify
	if len(text) < 5 || len(kept) < 2 {
		return ""
	}

	return text
}
