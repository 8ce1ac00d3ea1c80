package config

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.RunAddr)
	assert.Equal(t, "http://localhost:8080", cfg.ShortURLBase)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "tinylinks_session", cfg.AuthCookieName)
	assert.Equal(t, 24*time.Hour, cfg.SessionMaxAge)
	assert.Equal(t, 6, cfg.TokenLength)
	assert.Empty(t, cfg.TrustedSubnet)
}

func TestDefaultSigningSecretKeyDecodes(t *testing.T) {
	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	key, err := base64.URLEncoding.DecodeString(cfg.AuthCookieSigningSecretKey)
	require.NoError(t, err)
	assert.NotEmpty(t, key)
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", "localhost:7000")
	t.Setenv("BASE_URL", "http://envonly.com")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("AUTH_COOKIE_NAME", "other_session")
	t.Setenv("SESSION_MAX_AGE", "1h")
	t.Setenv("TOKEN_LENGTH", "8")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, "localhost:7000", cfg.RunAddr)
	assert.Equal(t, "http://envonly.com", cfg.ShortURLBase)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "other_session", cfg.AuthCookieName)
	assert.Equal(t, time.Hour, cfg.SessionMaxAge)
	assert.Equal(t, 8, cfg.TokenLength)
}

func TestValidationRejectsBadValues(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad log level", key: "LOG_LEVEL", value: "loud"},
		{name: "bad run address", key: "SERVER_ADDRESS", value: "not a hostport"},
		{name: "bad base url", key: "BASE_URL", value: "::nope::"},
		{name: "bad signing key encoding", key: "AUTH_COOKIE_SIGNING_SECRET_KEY", value: "%%%"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Setenv(testCase.key, testCase.value)

			_, err := New(WithDisableFlagsParsing(true))
			assert.Error(t, err)
		})
	}
}
