package forward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func noHeaders(string) string { return "" }

func TestExtractGmailForwardedMessage(t *testing.T) {
	body := "---------- Forwarded message ---------\n" +
		"From: attacker@evil.tk\n" +
		"Date: Mon, 3 Mar 2025 at 09:12\n" +
		"Subject: Urgent account verification\n" +
		"To: victim@example.com\n" +
		"\n" +
		"Your account will be suspended unless you verify immediately.\n"

	e := NewExtractor(zap.NewNop())
	res := e.Extract("Fwd: Urgent account verification", body, noHeaders)

	assert.True(t, res.IsForwarded)
	assert.Equal(t, "attacker@evil.tk", res.OriginalSender)
	assert.Equal(t, "Urgent account verification", res.OriginalSubject)
	assert.Contains(t, res.OriginalBody, "suspended unless you verify")
	assert.NotContains(t, res.OriginalBody, "attacker@evil.tk")
	assert.NotContains(t, res.OriginalBody, "Date:")
}

func TestExtractNotForwarded(t *testing.T) {
	e := NewExtractor(zap.NewNop())
	res := e.Extract("Lunch tomorrow", "Shall we meet at noon for lunch tomorrow?", noHeaders)

	assert.False(t, res.IsForwarded)
	assert.Equal(t, "", res.OriginalSender)
	assert.Equal(t, "Lunch tomorrow", res.OriginalSubject)
	assert.Contains(t, res.OriginalBody, "meet at noon")
}

func TestExtractSenderFromXOriginalFromHeader(t *testing.T) {
	headers := func(name string) string {
		if name == "X-Original-From" {
			return "Original Sender <phisher@scam.example>"
		}
		return ""
	}

	e := NewExtractor(zap.NewNop())
	res := e.Extract("Hello", "nothing that looks like a forward here", headers)

	assert.True(t, res.IsForwarded)
	assert.Equal(t, "phisher@scam.example", res.OriginalSender)
}

func TestExtractSenderLowercased(t *testing.T) {
	e := NewExtractor(zap.NewNop())
	res := e.Extract("Fwd: hi", "From: Attacker@Evil.TK\n\nclick the link below now", noHeaders)

	assert.Equal(t, "attacker@evil.tk", res.OriginalSender)
}

func TestExtractInvalidCandidateSkipped(t *testing.T) {
	// The from-line pattern matches but the candidate fails address
	// validation, so extraction keeps going and finds nothing
	rules := []SenderRule{{
		Name:    "always-bad",
		Extract: func(string, HeaderFunc) string { return "not-an-address" },
	}}

	e := NewExtractorWithRules(rules, zap.NewNop())
	res := e.Extract("hi", "plain message body here", noHeaders)

	assert.False(t, res.IsForwarded)
	assert.Equal(t, "", res.OriginalSender)
}

func TestExtractOriginallySentBy(t *testing.T) {
	e := NewExtractor(zap.NewNop())
	res := e.Extract("FYI", "Originally sent by: spoofed@phish.cc\n\nWire the funds to the new account today.", noHeaders)

	assert.True(t, res.IsForwarded)
	assert.Equal(t, "spoofed@phish.cc", res.OriginalSender)
}

func TestStripForwardPrefixStacked(t *testing.T) {
	assert.Equal(t, "Invoice due", stripForwardPrefix("Fwd: Fw: FWD: Invoice due"))
	assert.Equal(t, "Invoice due", stripForwardPrefix("Invoice due"))
	assert.Equal(t, "", stripForwardPrefix("Fwd:"))
}

func TestCleanForwardedBodyStripsQuotedLines(t *testing.T) {
	got := cleanForwardedBody("real content line\n> quoted reply line\n| another quoted line\nmore content")
	assert.Contains(t, got, "real content line")
	assert.Contains(t, got, "more content")
	assert.NotContains(t, got, "quoted reply")
}

func TestCleanForwardedBodyStripsSignature(t *testing.T) {
	got := cleanForwardedBody("please review the attached invoice\n-- \nJohn Smith\nAcme Corp")
	assert.Contains(t, got, "review the attached invoice")
	assert.NotContains(t, got, "John Smith")
}

func TestCleanForwardedBodyStripsClientFooters(t *testing.T) {
	got := cleanForwardedBody("see you at the meeting\nSent from my iPhone\nGet Outlook for Android")
	assert.Equal(t, "see you at the meeting", got)
}

func TestCleanForwardedBodyStripsHeaderArtifacts(t *testing.T) {
	got := cleanForwardedBody("To: someone@example.com\nCc: other@example.com\nactual message text")
	assert.Equal(t, "actual message text", got)
}

func TestExtractBeginForwardedMessageMarker(t *testing.T) {
	body := "Begin forwarded message:\n" +
		"From: sender@legit.example\n" +
		"Subject: Q3 report\n" +
		"\n" +
		"The report numbers are attached for your review.\n"

	e := NewExtractor(zap.NewNop())
	res := e.Extract("Fwd: Q3 report", body, noHeaders)

	assert.True(t, res.IsForwarded)
	assert.Equal(t, "sender@legit.example", res.OriginalSender)
	assert.Equal(t, "Q3 report", res.OriginalSubject)
	assert.Contains(t, res.OriginalBody, "report numbers are attached")
}

func TestExtractCleanedFieldsNormalized(t *testing.T) {
	e := NewExtractor(zap.NewNop())
	res := e.Extract("Fwd: URGENT Wire Transfer", "From: fraud@bad.example\n\nSend the WIRE transfer before Friday closes.", noHeaders)

	assert.Equal(t, "urgent wire transfer", res.CleanedSubject)
	assert.Contains(t, res.CleanedBody, "send the wire transfer")
	assert.NotContains(t, res.CleanedBody, "URGENT")
}
