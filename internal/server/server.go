package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	openai "github.com/sashabaranov/go-openai"

	"itinerary-voice-chat/internal/chat"
	"itinerary-voice-chat/internal/config"
	"itinerary-voice-chat/internal/speech"
	"itinerary-voice-chat/internal/store"
	"itinerary-voice-chat/internal/types"
	"itinerary-voice-chat/internal/webhook"
)

const (
	maxRequestBody = 1 << 20
	maxAudioUpload = 25 << 20
	sessionTTL     = 30 * time.Minute
)

// Synthesizer renders text as MP3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
	Voices() []speech.Voice
}

// Transcriber turns an uploaded recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

type Server struct {
	router      *chi.Mux
	cfg         config.Config
	webhook     chat.Forwarder
	synth       Synthesizer
	transcriber Transcriber
	sessions    *store.MemoryStore
	limiter     *RateLimiter
	// speechCfg configures the Bridge of each new session.
	speechCfg speech.Config
}

// NewServer resolves the webhook and builds the speech clients from cfg.
func NewServer(ctx context.Context, cfg config.Config) (*Server, error) {
	url, err := cfg.ResolveWebhookURL()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve webhook url: %w", err)
	}
	hook, err := webhook.New(ctx, webhook.Options{
		URL:          url,
		Timeout:      cfg.WebhookTimeout,
		BearerToken:  cfg.WebhookBearerToken,
		TokenURL:     cfg.WebhookTokenURL,
		ClientID:     cfg.WebhookClientID,
		ClientSecret: cfg.WebhookClientSecret,
		Scopes:       cfg.WebhookScopes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook client: %w", err)
	}
	log.Printf("[proxy] forwarding to %s (env %s)", url, cfg.WebhookEnv)

	var synth Synthesizer
	var transcriber Transcriber
	if cfg.OpenAIAPIKey != "" {
		client := openai.NewClient(cfg.OpenAIAPIKey)
		synth = speech.NewCloudSynthesizer(client, cfg.TTSModel, nil)
		transcriber = speech.NewTranscriber(client, cfg.STTModel)
	}
	return New(cfg, hook, synth, transcriber), nil
}

// New wires a Server from already built dependencies. synth and transcriber may be
// nil, in which case the speech endpoints answer 503.
func New(cfg config.Config, hook chat.Forwarder, synth Synthesizer, transcriber Transcriber) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Session-Id"},
		ExposedHeaders:   []string{"X-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:      r,
		cfg:         cfg,
		webhook:     hook,
		synth:       synth,
		transcriber: transcriber,
		limiter:     NewRateLimiter(cfg.RateLimitPerMinute),
		speechCfg:   speech.DefaultConfig(),
	}
	s.sessions = store.NewMemoryStore(sessionTTL, s.newSession)
	s.routes()
	return s
}

// newSession gives every conversation a Bridge over the client's own speech
// engines, reached through the session's WebSocket.
func (s *Server) newSession(sessionID string) *store.Session {
	remote := speech.NewRemoteEngine()
	bridge := speech.NewBridge(remote, remote, nil, s.speechCfg)
	return &store.Session{
		Chat: chat.NewController(chat.Options{
			Backend:     chat.NewWebhookBackend(s.webhook, sessionID),
			Speaker:     bridge,
			MaxMessages: s.cfg.ChatHistoryLimit,
		}),
		Speech: bridge,
		Remote: remote,
	}
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Group(func(r chi.Router) {
		r.Use(s.limiter.Limit)
		r.Post("/api/itinerary", s.handleItinerary)
		r.Post("/api/tts", s.handleTTS)
		r.Get("/api/tts/voices", s.handleTTSVoices)
		r.Post("/api/voice", s.handleVoice)
		r.Delete("/api/session", s.handleEndSession)
	})
	s.router.Get("/ws", s.handleWS)
}

func (s *Server) Router() http.Handler { return s.router }

// Janitor sweeps idle sessions and rate-limit entries until ctx is done.
func (s *Server) Janitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.sessions.Sweep(); n > 0 {
				log.Printf("[session] expired %d idle sessions", n)
			}
			s.limiter.Sweep(10 * time.Minute)
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleItinerary forwards the chat input to the workflow webhook and relays its
// answer unchanged.
func (s *Server) handleItinerary(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil || !json.Valid(body) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sid := getOrCreateSessionID(r, w)

	ctx, cancel := context.WithTimeout(r.Context(), s.webhookTimeout())
	defer cancel()

	start := time.Now()
	status, resp, err := s.webhook.Forward(ctx, body)
	if err != nil {
		log.Printf("[proxy] session=%s webhook failed after %s: %v", sid, time.Since(start).Round(time.Millisecond), err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(types.WebhookFailure{Message: "Webhook trigger failed"})
		return
	}
	log.Printf("[proxy] session=%s webhook answered %d in %s", sid, status, time.Since(start).Round(time.Millisecond))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Session-Id", sid)
	w.WriteHeader(status)
	_, _ = w.Write(resp)
}

// OpenAI TTS proxy: JSON { text, voice? } -> audio/mpeg
func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var body types.TTSRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&body); err != nil || strings.TrimSpace(body.Text) == "" {
		s.writeError(w, http.StatusBadRequest, "invalid text body")
		return
	}
	if s.synth == nil {
		s.writeError(w, http.StatusServiceUnavailable, "speech synthesis not configured")
		return
	}
	voice := s.cfg.TTSVoice
	if strings.TrimSpace(body.Voice) != "" {
		voice = body.Voice
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	audio, err := s.synth.Synthesize(ctx, body.Text, voice)
	if err != nil {
		log.Println("[tts] error:", err)
		s.writeError(w, http.StatusBadGateway, "tts request failed")
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

func (s *Server) handleTTSVoices(w http.ResponseWriter, r *http.Request) {
	if s.synth == nil {
		s.writeError(w, http.StatusServiceUnavailable, "speech synthesis not configured")
		return
	}
	voices := s.synth.Voices()
	resp := types.VoicesResponse{Voices: make([]types.Voice, 0, len(voices))}
	for _, v := range voices {
		resp.Voices = append(resp.Voices, types.Voice{Name: v.Name, Lang: v.Lang})
	}
	if v, ok := speech.SelectVoice(voices, s.cfg.TTSVoice); ok {
		resp.Selected = v.Name
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// handleVoice transcribes a recorded clip for clients without local recognition.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		s.writeError(w, http.StatusServiceUnavailable, "speech recognition not configured")
		return
	}
	if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "audio file is required (field 'file')")
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), 180*time.Second)
	defer cancel()

	text, err := s.transcriber.Transcribe(ctx, file, header.Filename)
	if err != nil {
		log.Println("[voice] transcription error:", err)
		s.writeError(w, http.StatusBadGateway, "transcription failed")
		return
	}
	if text == "" {
		s.writeError(w, http.StatusBadGateway, "empty transcription")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(types.TranscriptResponse{Transcript: text})
}

// handleEndSession forgets the caller's conversation and clears its cookie.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if sid := getSessionID(r); sid != "" {
		s.sessions.Delete(sid)
		log.Printf("[session] ended %s", sid)
	}
	http.SetCookie(w, expiredSessionCookie(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg})
}

func (s *Server) webhookTimeout() time.Duration {
	if s.cfg.WebhookTimeout > 0 {
		return s.cfg.WebhookTimeout
	}
	return 120 * time.Second
}
