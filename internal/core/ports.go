package core

import (
	"context"
	"errors"
)

// ErrRecipientNotFound is returned when no registration matches an address hash
var ErrRecipientNotFound = errors.New("recipient not found")

// Classifier is the opaque trained model. It reports the winning label and
// the confidence for that label; probability normalization happens in the
// ClassifierAdapter, never here.
type Classifier interface {
	Classify(ctx context.Context, text string) (label string, confidence float64, err error)
}

// ScanRepository is the durable storage collaborator. Implementations must
// provide their own transaction isolation; RecordScan persists the event and
// its prediction atomically, or neither.
type ScanRepository interface {
	// FindRecipientByEmailHash looks up a registration by address hash.
	// Returns ErrRecipientNotFound when no registration exists.
	FindRecipientByEmailHash(ctx context.Context, emailHash string) (*Recipient, error)

	// CreateRecipient registers a new recipient identity
	CreateRecipient(ctx context.Context, emailHash string) (*Recipient, error)

	// RecordScan writes the event and its prediction as one logical unit
	// and fills in the generated IDs on success
	RecordScan(ctx context.Context, event *EmailEvent, prediction *Prediction) error

	// IsTrustedDomain reads the per-recipient trust set live, every call
	IsTrustedDomain(ctx context.Context, recipientID int64, domain string) (bool, error)

	// AddTrustedDomain adds a trust entry; adding an existing pair is a no-op
	AddTrustedDomain(ctx context.Context, recipientID int64, domain string, reason string) error

	// ListEvents returns the recipient's scan history, newest first.
	// A limit of zero or less returns the full history.
	ListEvents(ctx context.Context, recipientID int64, limit int) ([]ScannedEvent, error)

	// Close releases the underlying storage handle
	Close() error
}

// ReplySender delivers the best-effort scan report back to the forwarding
// user. Failures are the caller's to log and swallow.
type ReplySender interface {
	SendScanReport(ctx context.Context, to string, report *ScanReport) error
}
