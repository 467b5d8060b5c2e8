package textnorm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLowercasesAndCollapsesWhitespace(t *testing.T) {
	got := Normalize("Hello   WORLD\n\nthis  is\ta Test")
	assert.Equal(t, "hello world this is a test", got)
}

func TestNormalizeRemovesEmailAddresses(t *testing.T) {
	got := Normalize("contact Support@Example.COM for details today")
	assert.NotContains(t, got, "@")
	assert.Contains(t, got, "contact")
	assert.Contains(t, got, "details")
}

func TestNormalizeRemovesTrackingURLs(t *testing.T) {
	got := Normalize("open https://mailer.example.com/track/abc123 before it expires")
	assert.NotContains(t, got, "http")
	assert.Contains(t, got, "expires")
}

func TestNormalizeRemovesQueryStringURLs(t *testing.T) {
	got := Normalize("visit https://example.com/login?user=bob&session=1 right away please")
	assert.NotContains(t, got, "example.com")
	assert.Contains(t, got, "right away please")
}

func TestNormalizeRemovesLongDigitRuns(t *testing.T) {
	got := Normalize("your order 123456789012345 has shipped today")
	assert.NotContains(t, got, "123456789012345")
	assert.Contains(t, got, "shipped")
}

func TestNormalizeDropsSingleCharWordsExceptIandA(t *testing.T) {
	got := Normalize("i saw a x y z bird fly past")
	assert.Equal(t, "i saw a bird fly past", got)
}

func TestNormalizeRemovesCSSDeclarations(t *testing.T) {
	got := Normalize("body { color: red; font-size: 12px } claim your prize now")
	assert.NotContains(t, got, "color")
	assert.NotContains(t, got, "12px")
	assert.Contains(t, got, "claim your prize now")
}

func TestNormalizeRemovesSignatureBoilerplate(t *testing.T) {
	got := Normalize("meet me at noon tomorrow Sent from my iPhone")
	assert.Equal(t, "meet me at noon tomorrow", got)
}

func TestNormalizeTooShortBecomesEmpty(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "", Normalize("hi"))
	assert.Equal(t, "", Normalize("x y z"))
	assert.Equal(t, "", Normalize("   \n\t  "))
}

func TestNormalizeUnescapesEntities(t *testing.T) {
	got := Normalize("free &amp; easy money &#33; claim it")
	assert.NotContains(t, got, "&")
	assert.NotContains(t, got, ";")
	assert.Contains(t, got, "free")
	assert.Contains(t, got, "easy money")
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"Hello   WORLD this is a Test",
		"free &amp; easy money &#33; claim it",
		"ver­ify your acc​ount now please",
		"body { color: red; } claim your prize now",
		"open https://t.example.com/track/x?y=1 before it expires",
		"i saw a x y z bird fly past",
		"contact Support@Example.COM for details today",
		"URGENT ...... wire ___ transfer ====== required immediately",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestScrubInvisibleRemovesZeroWidth(t *testing.T) {
	got := ScrubInvisible("ver​ify your acc‌ount")
	assert.NotContains(t, got, "​")
	assert.NotContains(t, got, "‌")
	assert.Contains(t, got, "ver")
	assert.Contains(t, got, "ify")
}

func TestScrubInvisibleSoftHyphenBetweenWords(t *testing.T) {
	got := ScrubInvisible("pass­word")
	assert.Equal(t, "pass word", got)
}

func TestScrubInvisibleBidiControls(t *testing.T) {
	got := ScrubInvisible("invoice‮.pdf")
	assert.NotContains(t, got, "‮")
}

func TestScrubInvisibleKeepsVisibleText(t *testing.T) {
	assert.Equal(t, "plain text stays", ScrubInvisible("plain text stays"))
	assert.Equal(t, "", ScrubInvisible(""))
}

func TestStripHTMLExtractsVisibleText(t *testing.T) {
	html := `<html><head><title>x</title><style>p{color:red}</style></head>` +
		`<body><p>Verify your <b>account</b> now</p><script>alert(1)</script></body></html>`
	got := StripHTML(html)
	assert.Contains(t, got, "Verify your")
	assert.Contains(t, got, "account")
	assert.NotContains(t, got, "alert")
	assert.NotContains(t, got, "color:red")
}

func TestStripHTMLEmptyInput(t *testing.T) {
	assert.Equal(t, "", StripHTML(""))
}

func TestStripHTMLFallbackPath(t *testing.T) {
	got := stripHTMLFallback(`<div>Hello</div><!-- hidden --><p>World</p>`)
	assert.Contains(t, got, "Hello")
	assert.Contains(t, got, "World")
	assert.NotContains(t, got, "hidden")
	assert.NotContains(t, strings.TrimSpace(got), "<")
}
