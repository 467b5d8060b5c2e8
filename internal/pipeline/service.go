// Package pipeline sequences the scanning state machine for one inbound
// message: parse, extract the forward origin, resolve trust, classify or
// bypass, persist, and optionally reply. This is the only place a
// protocol-level outcome is chosen.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/phishing-scanner/internal/core"
	"github.com/mikey/phishing-scanner/internal/forward"
	"github.com/mikey/phishing-scanner/internal/mailparse"
	"github.com/mikey/phishing-scanner/internal/textnorm"
	"github.com/mikey/phishing-scanner/internal/trust"
	"go.uber.org/zap"
)

// Service orchestrates the scanning pipeline
type Service struct {
	repo         core.ScanRepository
	resolver     *trust.Resolver
	adapter      *core.ClassifierAdapter
	extractor    *forward.Extractor
	reply        core.ReplySender
	logger       *zap.Logger
	modelVersion string
	replyTimeout time.Duration
}

// NewService creates a pipeline service
func NewService(
	repo core.ScanRepository,
	resolver *trust.Resolver,
	adapter *core.ClassifierAdapter,
	extractor *forward.Extractor,
	reply core.ReplySender,
	logger *zap.Logger,
	modelVersion string,
	replyTimeout time.Duration,
) *Service {
	return &Service{
		repo:         repo,
		resolver:     resolver,
		adapter:      adapter,
		extractor:    extractor,
		reply:        reply,
		logger:       logger,
		modelVersion: modelVersion,
		replyTimeout: replyTimeout,
	}
}

// Handle processes one inbound message end to end and returns the protocol
// outcome. It never returns an error: every failure mode maps to an outcome.
func (s *Service) Handle(ctx context.Context, msg *core.InboundMessage) core.Outcome {
	log := s.logger.With(zap.String("processing_id", uuid.NewString()))

	// Only registered recipients may submit messages for scanning
	recipient, err := s.repo.FindRecipientByEmailHash(ctx, core.HashEmailAddress(msg.EnvelopeFrom))
	if errors.Is(err, core.ErrRecipientNotFound) {
		log.Info("Discarding message from unregistered sender")
		return core.OutcomeRejectedUnregistered
	}
	if err != nil {
		log.Error("Recipient lookup failed", zap.Error(err))
		return core.OutcomeTempFail
	}

	parsed, err := mailparse.Parse(msg.Raw)
	if err != nil {
		log.Info("Rejecting unparseable message", zap.Error(err))
		return core.OutcomeRejectedUnparseable
	}

	body := parsed.Body
	if parsed.BodyIsHTML {
		body = textnorm.StripHTML(body)
	}

	extraction := s.extractor.Extract(parsed.Subject, body, parsed.Header)

	// Trust is evaluated against the resolved true sender, never the
	// envelope or forwarding address
	trueSender := msg.EnvelopeFrom
	if extraction.IsForwarded {
		trueSender = extraction.OriginalSender
	}
	senderDomain := core.DomainOf(trueSender)

	decision, err := s.resolver.Resolve(ctx, trueSender, recipient.ID)
	if err != nil {
		log.Error("Trust resolution failed", zap.Error(err))
		return core.OutcomeTempFail
	}

	var verdict *core.Verdict
	if decision.Trusted {
		verdict = core.TrustedVerdict()
		log.Info("Trusted sender, skipping classifier",
			zap.Int64("recipient_id", recipient.ID),
			zap.String("matched_domain", decision.MatchedDomain),
			zap.String("trust_source", string(decision.Source)))
	} else {
		verdict, err = s.adapter.Score(ctx, extraction.CleanedSubject, extraction.CleanedBody)
		if err != nil {
			// Never default a failed classification to "legitimate"
			log.Error("Classification failed", zap.Error(err),
				zap.String("sender_domain", senderDomain))
			return core.OutcomeTempFail
		}
	}

	// A dropped connection aborts before anything is written
	if err := ctx.Err(); err != nil {
		log.Warn("Aborted before persistence", zap.Error(err))
		return core.OutcomeTempFail
	}

	event := &core.EmailEvent{
		RecipientID:   recipient.ID,
		SenderDomain:  senderDomain,
		IsForwarded:   extraction.IsForwarded,
		ReceivedAt:    time.Now(),
		MessageIDHash: core.HashMessageID(parsed.MessageID),
	}
	prediction := &core.Prediction{
		ModelVersion:        s.modelVersion,
		PhishingProbability: verdict.PhishingProbability,
		PredictedLabel:      verdict.Label,
		RiskLevel:           verdict.RiskLevel,
		Source:              verdict.Source,
		CreatedAt:           event.ReceivedAt,
	}
	if err := s.repo.RecordScan(ctx, event, prediction); err != nil {
		log.Error("Failed to persist scan", zap.Error(err))
		return core.OutcomeTempFail
	}

	log.Info("Processed email",
		zap.Int64("recipient_id", recipient.ID),
		zap.String("sender_domain", senderDomain),
		zap.Bool("is_forwarded", extraction.IsForwarded),
		zap.String("label", verdict.Label),
		zap.Float64("phishing_probability", verdict.PhishingProbability),
		zap.String("risk_level", string(verdict.RiskLevel)),
		zap.String("source", verdict.Source))

	s.dispatchReply(msg.EnvelopeFrom, &core.ScanReport{
		ScannedSubject:      extraction.OriginalSubject,
		Label:               verdict.Label,
		PhishingProbability: verdict.PhishingProbability,
		RiskLevel:           verdict.RiskLevel,
		Source:              verdict.Source,
	}, log)

	return core.OutcomeAccepted
}

// dispatchReply sends the scan report on a detached goroutine. The reply is
// a separate failure domain: its errors only reach the log, and the context
// deadline keeps a stalled relay from pinning the worker.
func (s *Service) dispatchReply(to string, report *core.ScanReport, log *zap.Logger) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.replyTimeout)
		defer cancel()

		if err := s.reply.SendScanReport(ctx, to, report); err != nil {
			log.Warn("Scan reply failed", zap.Error(err), zap.String("to_domain", core.DomainOf(to)))
			return
		}
		log.Debug("Scan reply sent", zap.String("to_domain", core.DomainOf(to)))
	}()
}
