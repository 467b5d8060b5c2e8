// Package mailparse decodes raw RFC-2822/5322 messages into the header and
// body fields the scanning pipeline works with. Parsing is best-effort: a
// message only fails outright when no coherent header block can be located.
package mailparse

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/net/html/charset"
)

// ErrNoHeaders is returned when the message has no parseable header block
var ErrNoHeaders = errors.New("no coherent header block found")

// maxPartDepth bounds recursion into nested multipart bodies
const maxPartDepth = 8

// Message is a parsed email message. Header keys are lower-cased.
type Message struct {
	Headers    map[string][]string
	Subject    string
	Body       string
	BodyIsHTML bool
	MessageID  string
}

// Header returns the first value of the named header, case-insensitively
func (m *Message) Header(name string) string {
	values := m.Headers[strings.ToLower(name)]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Parse parses a raw email. Missing optional headers, malformed encodings
// and unreadable MIME parts degrade to empty fields rather than errors.
func Parse(raw []byte) (*Message, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoHeaders, err)
	}

	parsed := &Message{
		Headers: make(map[string][]string),
	}
	for key, values := range msg.Header {
		parsed.Headers[strings.ToLower(key)] = values
	}

	parsed.Subject = DecodeHeader(msg.Header.Get("Subject"))
	parsed.MessageID = strings.TrimSpace(msg.Header.Get("Message-Id"))

	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
		params = make(map[string]string)
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		if boundary := params["boundary"]; boundary != "" {
			parts := flattenParts(msg.Body, boundary, 0)
			parsed.Body, parsed.BodyIsHTML = selectBody(parts)
		}
		// No boundary: nothing recoverable, leave the body empty
		return parsed, nil
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return parsed, nil
	}
	parsed.Body = decodeBody(body, msg.Header.Get("Content-Transfer-Encoding"), params["charset"])
	parsed.BodyIsHTML = mediaType == "text/html"

	return parsed, nil
}

// textPart is one decoded text-bearing MIME part
type textPart struct {
	mediaType string
	body      string
}

// flattenParts walks a multipart body depth-first, collecting decoded text
// parts and skipping attachments
func flattenParts(body io.Reader, boundary string, depth int) []textPart {
	var parts []textPart
	if depth >= maxPartDepth {
		return parts
	}

	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextPart()
		if err != nil {
			// io.EOF or a malformed part boundary; keep what we have
			return parts
		}

		if strings.Contains(strings.ToLower(part.Header.Get("Content-Disposition")), "attachment") {
			continue
		}

		contentType := part.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "text/plain"
		}
		mediaType, params, err := mime.ParseMediaType(contentType)
		if err != nil {
			mediaType = "text/plain"
			params = make(map[string]string)
		}

		partBody, err := io.ReadAll(part)
		if err != nil {
			continue
		}

		if strings.HasPrefix(mediaType, "multipart/") {
			if nested := params["boundary"]; nested != "" {
				parts = append(parts, flattenParts(bytes.NewReader(partBody), nested, depth+1)...)
			}
			continue
		}

		parts = append(parts, textPart{
			mediaType: mediaType,
			body:      decodeBody(partBody, part.Header.Get("Content-Transfer-Encoding"), params["charset"]),
		})
	}
}

// selectBody picks the first non-empty text/plain part, falling back to the
// first text/html part, then to an empty body
func selectBody(parts []textPart) (body string, isHTML bool) {
	for _, p := range parts {
		if p.mediaType == "text/plain" && strings.TrimSpace(p.body) != "" {
			return p.body, false
		}
	}
	for _, p := range parts {
		if p.mediaType == "text/html" && strings.TrimSpace(p.body) != "" {
			return p.body, true
		}
	}
	return "", false
}

// decodeBody undoes the content transfer encoding and converts the payload
// to UTF-8. Decoding failures fall back to the raw bytes.
func decodeBody(body []byte, encoding string, charsetLabel string) string {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		cleaned := strings.Map(func(r rune) rune {
			if r == '\r' || r == '\n' || r == ' ' || r == '\t' {
				return -1
			}
			return r
		}, string(body))
		if decoded, err := base64.StdEncoding.DecodeString(cleaned); err == nil {
			body = decoded
		}
	case "quoted-printable":
		reader := quotedprintable.NewReader(bytes.NewReader(body))
		if decoded, err := io.ReadAll(reader); err == nil {
			body = decoded
		}
	}

	if charsetLabel != "" && !strings.EqualFold(charsetLabel, "utf-8") && !strings.EqualFold(charsetLabel, "us-ascii") {
		if reader, err := charset.NewReaderLabel(charsetLabel, bytes.NewReader(body)); err == nil {
			if converted, err := io.ReadAll(reader); err == nil {
				body = converted
			}
		}
	}

	return string(body)
}

// DecodeHeader decodes an RFC 2047 encoded-word header value, best effort
func DecodeHeader(value string) string {
	decoder := mime.WordDecoder{
		CharsetReader: func(label string, input io.Reader) (io.Reader, error) {
			return charset.NewReaderLabel(label, input)
		},
	}
	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}
