package speech

import "strings"

// SelectVoice picks the voice auto-read uses: an en-US voice whose name contains
// the preferred engine keyword, else any en-US voice, else the first voice.
func SelectVoice(voices []Voice, preferred string) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}
	preferred = strings.ToLower(strings.TrimSpace(preferred))
	if preferred != "" {
		for _, v := range voices {
			if isEnglishUS(v.Lang) && strings.Contains(strings.ToLower(v.Name), preferred) {
				return v, true
			}
		}
	}
	for _, v := range voices {
		if isEnglishUS(v.Lang) {
			return v, true
		}
	}
	return voices[0], true
}

func isEnglishUS(lang string) bool {
	l := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))
	return l == "en-us"
}

// DiscoverVoices polls the synthesizer's voice list until it is non-empty or the
// configured number of polls is used up, then selects a voice. Voice lists may
// load asynchronously, so the first poll can legitimately come back empty. done is
// called once with the selection.
func (b *Bridge) DiscoverVoices(done func(Voice, bool)) {
	if b.synth == nil {
		if done != nil {
			done(Voice{}, false)
		}
		return
	}
	b.pollVoices(0, done)
}

func (b *Bridge) pollVoices(attempt int, done func(Voice, bool)) {
	voices := b.synth.Voices()
	if len(voices) == 0 && attempt < b.cfg.VoicePolls {
		b.mu.Lock()
		closed := b.closed
		b.mu.Unlock()
		if closed {
			return
		}
		b.clock.AfterFunc(b.cfg.VoicePollInterval, func() { b.pollVoices(attempt+1, done) })
		return
	}
	v, ok := SelectVoice(voices, b.cfg.PreferredVoice)
	b.mu.Lock()
	b.voices = voices
	b.voice, b.haveVoice = v, ok
	b.mu.Unlock()
	if done != nil {
		done(v, ok)
	}
}

// Voices returns the voices found by DiscoverVoices.
func (b *Bridge) Voices() []Voice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Voice(nil), b.voices...)
}

// Voice returns the selected voice.
func (b *Bridge) Voice() (Voice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.voice, b.haveVoice
}

// SetVoice overrides the automatic selection.
func (b *Bridge) SetVoice(v Voice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.voice, b.haveVoice = v, true
}
