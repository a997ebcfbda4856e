package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "SESSION_STORE", "LLM_PROVIDER", "ORACLE_TIMEOUT", "SYNTH_TIMEOUT", "QUESTION_TIMEOUT", "LOCK_TTL", "ARCHIVE_WORKERS", "POSTGRES_URI", "REDIS_URI", "REDIS_URL", "WS_ALLOWED_ORIGINS", "EMBEDDING_MODEL"} {
		t.Setenv(k, "")
	}
	t.Setenv("REDIS_ADDR", "localhost:6379")

	a, err := LoadApp()
	require.NoError(t, err)
	assert.Equal(t, "8080", a.Port)
	assert.Equal(t, "mongo", a.SessionStore)
	assert.Empty(t, a.LLMProvider)
	assert.Equal(t, 8*time.Second, a.OracleTimeout)
	assert.Equal(t, 20*time.Second, a.SynthTimeout)
	assert.Equal(t, 8*time.Second, a.QuestionTimeout)
	assert.Equal(t, 60*time.Second, a.LockTTL)
	assert.Equal(t, 2, a.ArchiveWorkers)
	assert.False(t, a.ArchiveEnabled)
	assert.True(t, a.RedisEnabled)
	assert.Empty(t, a.WSAllowedOrigins)
	assert.Empty(t, a.EmbeddingModel)
}

func TestLoadAppOverrides(t *testing.T) {
	t.Setenv("SESSION_STORE", "Memory")
	t.Setenv("POSTGRES_URI", "")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("ORACLE_TIMEOUT", "1500ms")
	t.Setenv("SYNTH_TIMEOUT", "45")
	t.Setenv("ARCHIVE_WORKERS", "4")
	t.Setenv("WS_ALLOWED_ORIGINS", " https://app.example.com, ,http://localhost:3000")
	t.Setenv("EMBEDDING_MODEL", "text-embedding-004")

	a, err := LoadApp()
	require.NoError(t, err)
	assert.Equal(t, "memory", a.SessionStore)
	assert.Equal(t, "gemini", a.LLMProvider)
	assert.Equal(t, 1500*time.Millisecond, a.OracleTimeout)
	assert.Equal(t, 45*time.Second, a.SynthTimeout)
	assert.Equal(t, 4, a.ArchiveWorkers)
	assert.Equal(t, []string{"https://app.example.com", "http://localhost:3000"}, a.WSAllowedOrigins)
	assert.Equal(t, "text-embedding-004", a.EmbeddingModel)
}

func TestLoadAppRejectsBadValues(t *testing.T) {
	t.Setenv("SESSION_STORE", "memory")

	t.Setenv("LOCK_WAIT", "soon")
	_, err := LoadApp()
	assert.Error(t, err)

	t.Setenv("LOCK_WAIT", "")
	t.Setenv("ARCHIVE_WORKERS", "0")
	_, err = LoadApp()
	assert.Error(t, err)

	t.Setenv("ARCHIVE_WORKERS", "")
	t.Setenv("SESSION_STORE", "sqlite")
	_, err = LoadApp()
	assert.Error(t, err)

	for _, k := range []string{"REDIS_ADDR", "REDIS_URI", "REDIS_URL"} {
		t.Setenv(k, "")
	}
	t.Setenv("SESSION_STORE", "mongo")
	_, err = LoadApp()
	assert.Error(t, err)

	t.Setenv("SESSION_STORE", "memory")
	t.Setenv("POSTGRES_URI", "postgres://localhost/archive")
	_, err = LoadApp()
	assert.Error(t, err)
}
