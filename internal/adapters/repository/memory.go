package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mikey/phishing-scanner/internal/core"
	"go.uber.org/zap"
)

// MemoryRepository is an in-memory implementation of the ScanRepository
// interface, used for tests and throwaway deployments. A single mutex
// stands in for transaction isolation: RecordScan writes both rows under
// one critical section, so no event is ever visible without its prediction.
type MemoryRepository struct {
	mu          sync.Mutex
	recipients  map[string]*core.Recipient
	events      []core.EmailEvent
	predictions map[int64]*core.Prediction
	trusted     map[int64]map[string]core.TrustedDomain
	nextID      map[string]int64
	logger      *zap.Logger
}

// NewMemoryRepository creates a new in-memory repository
func NewMemoryRepository(logger *zap.Logger) *MemoryRepository {
	return &MemoryRepository{
		recipients:  make(map[string]*core.Recipient),
		predictions: make(map[int64]*core.Prediction),
		trusted:     make(map[int64]map[string]core.TrustedDomain),
		nextID:      make(map[string]int64),
		logger:      logger,
	}
}

func (r *MemoryRepository) next(table string) int64 {
	r.nextID[table]++
	return r.nextID[table]
}

// FindRecipientByEmailHash looks up a registration by address hash
func (r *MemoryRepository) FindRecipientByEmailHash(_ context.Context, emailHash string) (*core.Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recipient, ok := r.recipients[emailHash]
	if !ok {
		return nil, core.ErrRecipientNotFound
	}
	copied := *recipient
	return &copied, nil
}

// CreateRecipient registers a new recipient identity
func (r *MemoryRepository) CreateRecipient(_ context.Context, emailHash string) (*core.Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.recipients[emailHash]; ok {
		return nil, fmt.Errorf("recipient with this email hash already exists")
	}

	recipient := &core.Recipient{
		ID:        r.next("recipients"),
		EmailHash: emailHash,
		CreatedAt: time.Now(),
	}
	r.recipients[emailHash] = recipient
	copied := *recipient
	return &copied, nil
}

// RecordScan writes the event and its prediction under one lock
func (r *MemoryRepository) RecordScan(_ context.Context, event *core.EmailEvent, prediction *core.Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.MessageIDHash != "" {
		for _, existing := range r.events {
			if existing.MessageIDHash == event.MessageIDHash {
				return fmt.Errorf("email event with this message id already recorded")
			}
		}
	}

	event.ID = r.next("email_events")
	prediction.ID = r.next("predictions")
	prediction.EmailEventID = event.ID

	r.events = append(r.events, *event)
	stored := *prediction
	r.predictions[event.ID] = &stored
	return nil
}

// IsTrustedDomain reads the per-recipient trust set
func (r *MemoryRepository) IsTrustedDomain(_ context.Context, recipientID int64, domain string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.trusted[recipientID][domain]
	return ok, nil
}

// AddTrustedDomain adds a trust entry; existing pairs are left untouched
func (r *MemoryRepository) AddTrustedDomain(_ context.Context, recipientID int64, domain string, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.trusted[recipientID] == nil {
		r.trusted[recipientID] = make(map[string]core.TrustedDomain)
	}
	if _, ok := r.trusted[recipientID][domain]; ok {
		return nil
	}

	r.trusted[recipientID][domain] = core.TrustedDomain{
		ID:          r.next("trusted_domains"),
		RecipientID: recipientID,
		Domain:      domain,
		Reason:      reason,
		CreatedAt:   time.Now(),
	}
	return nil
}

// ListEvents returns the recipient's scan history, newest first
func (r *MemoryRepository) ListEvents(_ context.Context, recipientID int64, limit int) ([]core.ScannedEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []core.ScannedEvent
	for _, event := range r.events {
		if event.RecipientID != recipientID {
			continue
		}
		scanned := core.ScannedEvent{Event: event}
		if prediction, ok := r.predictions[event.ID]; ok {
			copied := *prediction
			scanned.Prediction = &copied
		}
		result = append(result, scanned)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Event.ReceivedAt.Equal(result[j].Event.ReceivedAt) {
			return result[i].Event.ID > result[j].Event.ID
		}
		return result[i].Event.ReceivedAt.After(result[j].Event.ReceivedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Close is a no-op for the in-memory repository
func (r *MemoryRepository) Close() error {
	return nil
}
