package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClassifier struct {
	label      string
	confidence float64
	err        error
	gotText    string
}

func (s *stubClassifier) Classify(_ context.Context, text string) (string, float64, error) {
	s.gotText = text
	return s.label, s.confidence, s.err
}

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		probability float64
		want        RiskLevel
	}{
		{0.0, RiskLow},
		{0.54, RiskLow},
		{0.55, RiskMedium},
		{0.84, RiskMedium},
		{0.85, RiskHigh},
		{1.0, RiskHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskLevelFor(tt.probability), "probability %v", tt.probability)
	}
}

func TestScoreInvertsLegitimateConfidence(t *testing.T) {
	c := &stubClassifier{label: LabelLegitimate, confidence: 0.93}
	v, err := NewClassifierAdapter(c).Score(context.Background(), "hello", "world")
	require.NoError(t, err)

	assert.Equal(t, LabelLegitimate, v.Label)
	assert.InDelta(t, 0.07, v.PhishingProbability, 1e-9)
	assert.Equal(t, RiskLow, v.RiskLevel)
	assert.Equal(t, SourceModel, v.Source)
}

func TestScorePhishingConfidencePassesThrough(t *testing.T) {
	c := &stubClassifier{label: LabelPhishing, confidence: 0.91}
	v, err := NewClassifierAdapter(c).Score(context.Background(), "urgent", "verify account")
	require.NoError(t, err)

	assert.Equal(t, LabelPhishing, v.Label)
	assert.InDelta(t, 0.91, v.PhishingProbability, 1e-9)
	assert.Equal(t, RiskHigh, v.RiskLevel)
}

func TestScoreMediumRisk(t *testing.T) {
	c := &stubClassifier{label: LabelPhishing, confidence: 0.6}
	v, err := NewClassifierAdapter(c).Score(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, RiskMedium, v.RiskLevel)
}

func TestScoreUnknownLabel(t *testing.T) {
	c := &stubClassifier{label: "suspicious", confidence: 0.5}
	_, err := NewClassifierAdapter(c).Score(context.Background(), "a", "b")
	assert.Error(t, err)
}

func TestScoreClassifierError(t *testing.T) {
	wantErr := errors.New("model unavailable")
	c := &stubClassifier{err: wantErr}
	_, err := NewClassifierAdapter(c).Score(context.Background(), "a", "b")
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
}

func TestScoreClampsProbability(t *testing.T) {
	c := &stubClassifier{label: LabelLegitimate, confidence: 1.2}
	v, err := NewClassifierAdapter(c).Score(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.PhishingProbability)
}

func TestScoreJoinsSubjectAndBody(t *testing.T) {
	c := &stubClassifier{label: LabelLegitimate, confidence: 1.0}
	_, err := NewClassifierAdapter(c).Score(context.Background(), "subject text", "body text")
	require.NoError(t, err)
	assert.Equal(t, "subject text body text", c.gotText)

	_, err = NewClassifierAdapter(c).Score(context.Background(), "", "body only")
	require.NoError(t, err)
	assert.Equal(t, "body only", c.gotText)
}

func TestTrustedVerdict(t *testing.T) {
	v := TrustedVerdict()
	assert.Equal(t, LabelLegitimate, v.Label)
	assert.Equal(t, 0.0, v.PhishingProbability)
	assert.Equal(t, RiskLow, v.RiskLevel)
	assert.Equal(t, SourceTrusted, v.Source)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "250 OK - processed successfully", OutcomeAccepted.String())
	assert.Equal(t, "550 Rejected - sender not registered", OutcomeRejectedUnregistered.String())
	assert.Equal(t, "550 Rejected - message could not be parsed", OutcomeRejectedUnparseable.String())
	assert.Equal(t, "421 Temp fail - try again later", OutcomeTempFail.String())
}

func TestHashEmailAddressNormalizes(t *testing.T) {
	a := HashEmailAddress("User@Example.com")
	b := HashEmailAddress("  user@example.com  ")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.Equal(t, "", HashEmailAddress("   "))
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "example.com", DomainOf("user@Example.COM"))
	assert.Equal(t, "", DomainOf("no-at-sign"))
	assert.Equal(t, "", DomainOf("trailing@"))
}
