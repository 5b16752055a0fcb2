package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("QLOO_MAX_ATTEMPTS", "")
	t.Setenv("QLOO_BACKOFF_UNIT", "")
	t.Setenv("SUMMARY_SAMPLE_CAP", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Insights.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Insights.BackoffUnit)
	assert.Equal(t, 20, cfg.Analysis.SampleCap)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("QLOO_MAX_ATTEMPTS", "5")
	t.Setenv("QLOO_BACKOFF_UNIT", "250ms")
	t.Setenv("SERVER_CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("USE_MOCK_LLM", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Insights.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Insights.BackoffUnit)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CorsOrigins)
	assert.True(t, cfg.LLM.UseMock)
}

func TestLoad_InvalidAttempts(t *testing.T) {
	t.Setenv("QLOO_MAX_ATTEMPTS", "0")

	_, err := Load()
	assert.Error(t, err)
}
