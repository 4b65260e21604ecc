package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	AllowedOrigin string
	// Webhook
	WebhookURL           string
	WebhookEnv           string
	WebhookEndpointsFile string
	WebhookTimeout       time.Duration
	WebhookBearerToken   string
	WebhookTokenURL      string
	WebhookClientID      string
	WebhookClientSecret  string
	WebhookScopes        []string
	// OpenAI speech
	OpenAIAPIKey   string
	TTSModel       string
	STTModel       string
	TTSVoice       string
	PreferredVoice string
	// Chat
	RateLimitPerMinute int
	ChatHistoryLimit   int
	// Terminal client
	ItineraryAPIURL string
	AudioPlayer     string
	AutoRead        bool
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:                 getEnvDefault("PORT", "8080"),
		AllowedOrigin:        getEnvDefault("ALLOWED_ORIGIN", "*"),
		WebhookURL:           os.Getenv("WEBHOOK_URL"),
		WebhookEnv:           getEnvDefault("WEBHOOK_ENV", "production"),
		WebhookEndpointsFile: getEnvDefault("WEBHOOK_ENDPOINTS_FILE", "config/webhooks.yaml"),
		WebhookTimeout:       getEnvDurationDefault("WEBHOOK_TIMEOUT", 120*time.Second),
		WebhookBearerToken:   os.Getenv("WEBHOOK_BEARER_TOKEN"),
		WebhookTokenURL:      os.Getenv("WEBHOOK_TOKEN_URL"),
		WebhookClientID:      os.Getenv("WEBHOOK_CLIENT_ID"),
		WebhookClientSecret:  os.Getenv("WEBHOOK_CLIENT_SECRET"),
		WebhookScopes:        getEnvListDefault("WEBHOOK_SCOPES", nil),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		TTSModel:             getEnvDefault("OPENAI_TTS_MODEL", "tts-1"),
		STTModel:             getEnvDefault("OPENAI_STT_MODEL", "whisper-1"),
		TTSVoice:             getEnvDefault("TTS_VOICE", "alloy"),
		PreferredVoice:       getEnvDefault("TTS_PREFERRED_VOICE", "Google"),
		RateLimitPerMinute:   getEnvIntDefault("RATE_LIMIT_PER_MINUTE", 30),
		ChatHistoryLimit:     getEnvIntDefault("CHAT_HISTORY_LIMIT", 200),
		ItineraryAPIURL:      getEnvDefault("ITINERARY_API_URL", "http://localhost:8080/api/itinerary"),
		AudioPlayer:          getEnvDefault("AUDIO_PLAYER", "mpg123 -q -"),
		AutoRead:             getEnvBoolDefault("AUTO_READ", false),
	}
	if cfg.OpenAIAPIKey == "" {
		log.Println("warning: OPENAI_API_KEY is not set; speech endpoints are disabled")
	}
	return cfg
}

// ResolveWebhookURL returns WEBHOOK_URL when set, otherwise the entry for
// WebhookEnv in the endpoints file.
func (c Config) ResolveWebhookURL() (string, error) {
	if strings.TrimSpace(c.WebhookURL) != "" {
		return strings.TrimSpace(c.WebhookURL), nil
	}
	eps, err := LoadEndpoints(c.WebhookEndpointsFile)
	if err != nil {
		return "", err
	}
	return eps.URL(c.WebhookEnv)
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvListDefault(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			s := strings.TrimSpace(p)
			if s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
		log.Printf("warning: %s=%q is not a number, using %d", key, v, def)
	}
	return def
}

// getEnvDurationDefault accepts Go durations ("90s") or plain seconds ("90").
func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	log.Printf("warning: %s=%q is not a duration, using %s", key, v, def)
	return def
}
