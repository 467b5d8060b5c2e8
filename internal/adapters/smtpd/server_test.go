package smtpd

import (
	"errors"
	"net"
	"testing"

	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/phishing-scanner/internal/core"
	"go.uber.org/zap"
)

func TestOutcomeErrorAccepted(t *testing.T) {
	assert.NoError(t, OutcomeError(core.OutcomeAccepted))
}

func TestOutcomeErrorUnregistered(t *testing.T) {
	err := OutcomeError(core.OutcomeRejectedUnregistered)
	require.Error(t, err)

	var smtpErr *smtp.SMTPError
	require.True(t, errors.As(err, &smtpErr))
	assert.Equal(t, 550, smtpErr.Code)
	assert.Equal(t, smtp.EnhancedCode{5, 7, 1}, smtpErr.EnhancedCode)
	assert.Equal(t, "Rejected - sender not registered", smtpErr.Message)
}

func TestOutcomeErrorUnparseable(t *testing.T) {
	err := OutcomeError(core.OutcomeRejectedUnparseable)

	var smtpErr *smtp.SMTPError
	require.True(t, errors.As(err, &smtpErr))
	assert.Equal(t, 550, smtpErr.Code)
	assert.Equal(t, smtp.EnhancedCode{5, 6, 0}, smtpErr.EnhancedCode)
	assert.Equal(t, "Rejected - message could not be parsed", smtpErr.Message)
}

func TestOutcomeErrorTempFail(t *testing.T) {
	err := OutcomeError(core.OutcomeTempFail)

	var smtpErr *smtp.SMTPError
	require.True(t, errors.As(err, &smtpErr))
	assert.Equal(t, 421, smtpErr.Code)
	assert.Equal(t, smtp.EnhancedCode{4, 4, 2}, smtpErr.EnhancedCode)
	assert.Equal(t, "Temp fail - try again later", smtpErr.Message)
	assert.True(t, smtpErr.Temporary())
}

func TestStartFailsWhenPortTaken(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	srv := NewServer(nil, Config{ListenAddr: listener.Addr().String(), Domain: "localhost"}, zap.NewNop())
	assert.Error(t, srv.Start(), "a bind conflict must fail startup synchronously")
}

func TestStartAndStop(t *testing.T) {
	srv := NewServer(nil, Config{ListenAddr: "127.0.0.1:0", Domain: "localhost"}, zap.NewNop())
	require.NoError(t, srv.Start())
	assert.NoError(t, srv.Stop())
}

func TestSessionResetClearsState(t *testing.T) {
	s := &session{sender: "a@b.example", recipients: []string{"c@d.example"}}
	s.Reset()
	assert.Equal(t, "", s.sender)
	assert.Empty(t, s.recipients)
}
