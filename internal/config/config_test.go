package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.Equal(t, "8082", cfg.WorkerPort)
	assert.Equal(t, 240, cfg.ScanRatePerMin)
	assert.Equal(t, "Asia/Manila", cfg.Timezone)
	assert.Equal(t, 8, cfg.Schedule.MorningLateHour)
	assert.Equal(t, 10, cfg.Schedule.MorningAbsentHour)
	assert.Equal(t, 14, cfg.Schedule.AfternoonLateHour)
	assert.Equal(t, 15, cfg.Schedule.AfternoonAbsentHour)
	assert.Equal(t, "console", cfg.Mail.Backend)
	assert.False(t, cfg.Summary.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CLASSTRACK_HTTP_PORT", "9090")
	t.Setenv("CLASSTRACK_QUEUE_BACKEND", "memory")
	t.Setenv("CLASSTRACK_SCHEDULE_MORNING_LATE_HOUR", "9")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "memory", cfg.QueueBackend)
	assert.Equal(t, 9, cfg.Schedule.MorningLateHour)
}

func TestLoadRejectsBadSchedule(t *testing.T) {
	t.Setenv("CLASSTRACK_SCHEDULE_MORNING_LATE_HOUR", "11")

	_, err := Load("")
	assert.ErrorContains(t, err, "morning cut-off")
}

func TestLoadRejectsSendgridWithoutKey(t *testing.T) {
	t.Setenv("CLASSTRACK_MAIL_BACKEND", "sendgrid")

	_, err := Load("")
	assert.ErrorContains(t, err, "sendgrid_key")
}

func TestLoadRejectsBlankSigningKey(t *testing.T) {
	t.Setenv("CLASSTRACK_JWT_SIGNING_KEY", " ")

	_, err := Load("")
	assert.ErrorContains(t, err, "jwt_signing_key")
}
