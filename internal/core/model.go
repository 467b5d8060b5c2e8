package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Predicted labels as reported by the classifier
const (
	LabelPhishing   = "phishing"
	LabelLegitimate = "legitimate"
)

// Prediction sources recorded for auditing
const (
	SourceModel   = "model_prediction"
	SourceTrusted = "trusted_domain"
)

// RiskLevel is the discrete bucketing of phishing probability
type RiskLevel string

const (
	RiskHigh   RiskLevel = "HIGH"
	RiskMedium RiskLevel = "MEDIUM"
	RiskLow    RiskLevel = "LOW"
)

// InboundMessage is a raw message as delivered by the SMTP transport
type InboundMessage struct {
	EnvelopeFrom string
	Recipients   []string
	Raw          []byte
}

// Recipient is a registered forwarding user, identified only by the hash
// of their email address
type Recipient struct {
	ID        int64
	EmailHash string
	CreatedAt time.Time
}

// EmailEvent is the audit record for one accepted message
type EmailEvent struct {
	ID            int64
	RecipientID   int64
	SenderDomain  string
	IsForwarded   bool
	ReceivedAt    time.Time
	MessageIDHash string // empty when the message carried no Message-Id
}

// Prediction is the verdict persisted for an EmailEvent, 1:1
type Prediction struct {
	ID                  int64
	EmailEventID        int64
	ModelVersion        string
	PhishingProbability float64
	PredictedLabel      string
	RiskLevel           RiskLevel
	Source              string
	CreatedAt           time.Time
}

// TrustedDomain is a per-recipient trust entry with an audit reason
type TrustedDomain struct {
	ID          int64
	RecipientID int64
	Domain      string
	Reason      string
	CreatedAt   time.Time
}

// ScannedEvent pairs an event with its prediction for history queries.
// Prediction is nil only for gap rows written by older deployments.
type ScannedEvent struct {
	Event      EmailEvent
	Prediction *Prediction
}

// Verdict is the in-flight scan result before persistence
type Verdict struct {
	Label               string
	PhishingProbability float64
	RiskLevel           RiskLevel
	Source              string
}

// ScanReport carries everything the reply mail needs to render
type ScanReport struct {
	ScannedSubject      string
	Label               string
	PhishingProbability float64
	RiskLevel           RiskLevel
	Source              string
}

// Outcome is the protocol-level result of processing one message
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeRejectedUnregistered
	OutcomeRejectedUnparseable
	OutcomeTempFail
)

// String returns the protocol reply line for the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "250 OK - processed successfully"
	case OutcomeRejectedUnregistered:
		return "550 Rejected - sender not registered"
	case OutcomeRejectedUnparseable:
		return "550 Rejected - message could not be parsed"
	default:
		return "421 Temp fail - try again later"
	}
}

// HashEmailAddress returns the hex SHA-256 of the trimmed, lower-cased
// address. Registrations and lookups never touch the plaintext address.
func HashEmailAddress(addr string) string {
	normalized := strings.ToLower(strings.TrimSpace(addr))
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// HashMessageID returns the hex SHA-256 of a Message-Id header value,
// or "" when the message carried none
func HashMessageID(messageID string) string {
	if messageID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(messageID))
	return hex.EncodeToString(sum[:])
}

// DomainOf extracts the lower-cased domain part of an email address
func DomainOf(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(addr[at+1:])
}
