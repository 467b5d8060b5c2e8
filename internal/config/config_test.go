package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	assert.Equal(t, "0.0.0.0:1025", cfg.GetString("server.listen_address"))
	assert.Equal(t, "http", cfg.GetString("classifier.type"))
	assert.Equal(t, "model-b", cfg.GetString("classifier.model_version"))
	assert.Equal(t, "sqlite", cfg.GetString("storage.type"))
	assert.False(t, cfg.GetBool("reply.enabled"))
	assert.Equal(t, 25, cfg.GetInt("reply.port"))
}

func TestDefaultWhitelistIncludesMajorProviders(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	domains := cfg.GetStringSlice("trust.whitelisted_domains")
	assert.Contains(t, domains, "google.com")
	assert.Contains(t, domains, "github.com")
}

func TestGetDuration(t *testing.T) {
	v := NewEmptyViper()
	v.Set("server.process_timeout", "45s")
	cfg := NewFromViper(v)

	d, err := cfg.GetDuration("server.process_timeout")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, d)
}

func TestGetDurationInvalid(t *testing.T) {
	v := NewEmptyViper()
	v.Set("reply.timeout", "not-a-duration")
	cfg := NewFromViper(v)

	_, err := cfg.GetDuration("reply.timeout")
	assert.Error(t, err)
}

func TestOverridesBeatDefaults(t *testing.T) {
	v := NewEmptyViper()
	v.Set("classifier.type", "static")
	cfg := NewFromViper(v)

	assert.Equal(t, "static", cfg.GetString("classifier.type"))
}
