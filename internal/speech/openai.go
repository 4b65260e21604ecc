package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// cloudVoices are the voices of the OpenAI speech endpoint. They all read English.
var cloudVoices = []Voice{
	{Name: "alloy", Lang: "en-US", Default: true},
	{Name: "echo", Lang: "en-US"},
	{Name: "fable", Lang: "en-US"},
	{Name: "onyx", Lang: "en-US"},
	{Name: "nova", Lang: "en-US"},
	{Name: "shimmer", Lang: "en-US"},
}

// CloudVoices returns the voices CloudSynthesizer offers.
func CloudVoices() []Voice { return append([]Voice(nil), cloudVoices...) }

// CloudSynthesizer speaks through the OpenAI speech endpoint and an audio Player.
type CloudSynthesizer struct {
	client  *openai.Client
	model   string
	player  Player
	timeout time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewCloudSynthesizer(client *openai.Client, model string, player Player) *CloudSynthesizer {
	if model == "" {
		model = string(openai.TTSModel1)
	}
	return &CloudSynthesizer{client: client, model: model, player: player, timeout: 60 * time.Second}
}

func (s *CloudSynthesizer) Voices() []Voice { return CloudVoices() }

// Synthesize returns MP3 audio for text.
func (s *CloudSynthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(voice) == "" {
		voice = string(openai.VoiceAlloy)
	}
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Close()
	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech audio: %w", err)
	}
	return audio, nil
}

// Speak synthesizes and plays in the background. A later Speak or Cancel stops it.
func (s *CloudSynthesizer) Speak(u Utterance, h SpeakHandlers) error {
	if s.player == nil {
		return ErrUnsupported
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		defer cancel()
		audio, err := s.Synthesize(ctx, u.Text, u.Voice)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Printf("[speech] %v", err)
			}
			if h.OnEnd != nil {
				h.OnEnd()
			}
			return
		}
		if h.OnStart != nil {
			h.OnStart()
		}
		if err := s.player.Play(ctx, audio); err != nil && ctx.Err() == nil {
			log.Printf("[speech] playback failed: %v", err)
		}
		if h.OnEnd != nil {
			h.OnEnd()
		}
	}()
	return nil
}

func (s *CloudSynthesizer) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *CloudSynthesizer) Pause() {
	if s.player == nil {
		return
	}
	if err := s.player.Pause(); err != nil && !errors.Is(err, ErrUnsupported) {
		log.Printf("[speech] pause failed: %v", err)
	}
}

func (s *CloudSynthesizer) Resume() {
	if s.player == nil {
		return
	}
	if err := s.player.Resume(); err != nil && !errors.Is(err, ErrUnsupported) {
		log.Printf("[speech] resume failed: %v", err)
	}
}

// Transcriber turns recorded audio into text through the OpenAI transcription
// endpoint.
type Transcriber struct {
	client *openai.Client
	model  string
}

func NewTranscriber(client *openai.Client, model string) *Transcriber {
	if model == "" {
		model = openai.Whisper1
	}
	return &Transcriber{client: client, model: model}
}

func (t *Transcriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	tr, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		Reader:   audio,
		FilePath: filename,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return strings.TrimSpace(tr.Text), nil
}
