package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yoockh/mockinterview/internal/ai"
)

// App holds the engine tunables read from the environment.
type App struct {
	Port string

	SessionStore string // mongo|memory
	LLMProvider  string // vertex|gemini|"" (question bank + fallbacks only)

	QuestionBankPath string
	GCSBucket        string
	SpeechEnabled    bool
	EmbeddingModel   string // Vertex text embedding model for archived answers; "" disables

	OracleTimeout   time.Duration
	SynthTimeout    time.Duration
	QuestionTimeout time.Duration

	LockTTL         time.Duration
	LockWait        time.Duration
	SessionCacheTTL time.Duration

	// WSAllowedOrigins are browser origins, besides the server's own host,
	// allowed to open the live session socket.
	WSAllowedOrigins []string

	ArchiveWorkers int
	ArchiveEnabled bool
	RedisEnabled   bool
}

func LoadApp() (App, error) {
	a := App{
		Port:             getEnvOrDefault("PORT", "8080"),
		SessionStore:     strings.ToLower(getEnvOrDefault("SESSION_STORE", "mongo")),
		LLMProvider:      strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER"))),
		QuestionBankPath: strings.TrimSpace(os.Getenv("QUESTION_BANK_PATH")),
		GCSBucket:        strings.TrimSpace(os.Getenv("GCS_BUCKET")),
		SpeechEnabled:    os.Getenv("STT_ENABLED") == "true",
		EmbeddingModel:   strings.TrimSpace(os.Getenv("EMBEDDING_MODEL")),
		ArchiveEnabled:   os.Getenv("POSTGRES_URI") != "",
		RedisEnabled:     os.Getenv("REDIS_ADDR") != "" || os.Getenv("REDIS_URI") != "" || os.Getenv("REDIS_URL") != "",
	}

	if a.SessionStore != "mongo" && a.SessionStore != "memory" {
		return a, fmt.Errorf("SESSION_STORE must be mongo or memory, got %q", a.SessionStore)
	}
	// the lock, cache and event bus are shared only through Redis
	if a.SessionStore == "mongo" && !a.RedisEnabled {
		return a, fmt.Errorf("SESSION_STORE=mongo needs REDIS_ADDR for cross-instance session locks")
	}
	if a.ArchiveEnabled && !a.RedisEnabled {
		return a, fmt.Errorf("POSTGRES_URI archive needs REDIS_ADDR for the completion stream")
	}

	var err error
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"ORACLE_TIMEOUT", ai.DefaultOracleTimeout, &a.OracleTimeout},
		{"SYNTH_TIMEOUT", ai.DefaultSynthTimeout, &a.SynthTimeout},
		{"QUESTION_TIMEOUT", ai.DefaultQuestionTimeout, &a.QuestionTimeout},
		{"LOCK_TTL", 60 * time.Second, &a.LockTTL},
		{"LOCK_WAIT", 30 * time.Second, &a.LockWait},
		{"SESSION_CACHE_TTL", 10 * time.Minute, &a.SessionCacheTTL},
	}
	for _, d := range durations {
		if *d.dst, err = durationEnv(d.key, d.def); err != nil {
			return a, err
		}
	}

	for _, o := range strings.Split(os.Getenv("WS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			a.WSAllowedOrigins = append(a.WSAllowedOrigins, o)
		}
	}

	a.ArchiveWorkers = 2
	if v := os.Getenv("ARCHIVE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return a, fmt.Errorf("ARCHIVE_WORKERS must be a positive integer, got %q", v)
		}
		a.ArchiveWorkers = n
	}

	return a, nil
}

func getEnvOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// durationEnv accepts Go durations ("750ms", "5s") or bare seconds.
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}
