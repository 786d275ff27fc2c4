package tts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/lingocast/internal/audio"
	"github.com/dgnsrekt/lingocast/internal/cache"
	"github.com/dgnsrekt/lingocast/internal/language"
	"github.com/dgnsrekt/lingocast/internal/proc"
)

// gttsMaxText is the longest sentence accepted by Google Translate TTS.
const gttsMaxText = 5000

// GTTSEngine speaks through gtts-cli (Google Translate TTS) and converts the
// returned MP3 to PCM with ffmpeg. No API key is needed but requests are rate
// limited so Google does not block the server.
type GTTSEngine struct {
	slow    bool
	timeout time.Duration
	format  audio.Format

	runner  proc.Runner
	limiter *rate.Limiter
	cache   *cache.Manager

	mu     sync.RWMutex
	closed bool
}

// GTTSConfig holds configuration for the gTTS engine.
type GTTSConfig struct {
	// Slow speech (--slow flag)
	Slow bool

	// RequestsPerMinute caps calls to Google, defaults to 50
	RequestsPerMinute int

	// Timeout per gtts-cli call, defaults to 30s
	Timeout time.Duration

	// Format of the produced PCM, defaults to audio.DefaultFormat
	Format audio.Format

	// Runner executes gtts-cli and ffmpeg, defaults to proc.NewExec
	Runner proc.Runner

	// Cache is optional
	Cache *cache.Manager
}

// NewGTTSEngine creates a new gTTS engine.
func NewGTTSEngine(cfg GTTSConfig) (*GTTSEngine, error) {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 50
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Format == (audio.Format{}) {
		cfg.Format = audio.DefaultFormat()
	}
	if err := cfg.Format.Validate(); err != nil {
		return nil, NewError(ErrorCodeAudioFormat, "invalid output format", err)
	}
	if cfg.Runner == nil {
		cfg.Runner = proc.NewExec(cfg.Timeout)
	}

	return &GTTSEngine{
		slow:    cfg.Slow,
		timeout: cfg.Timeout,
		format:  cfg.Format,
		runner:  cfg.Runner,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		cache:   cfg.Cache,
	}, nil
}

// Synthesize converts text to PCM: text -> gtts-cli -> MP3 -> ffmpeg -> PCM.
func (e *GTTSEngine) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, closedError(lang)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, NewError(ErrorCodeInvalidInput, "nothing to speak", ErrEmptyText).WithLang(lang)
	}
	if n := utf8.RuneCountInString(text); n > gttsMaxText {
		return nil, NewError(ErrorCodeTextTooLong,
			fmt.Sprintf("text too long: %d characters (max %d)", n, gttsMaxText), nil).WithLang(lang)
	}
	l, err := language.Lookup(lang)
	if err != nil {
		return nil, NewError(ErrorCodeUnsupportedLanguage, "cannot speak language", err).WithLang(lang)
	}

	key := cache.Key("gtts", text, l.Code, e.format.SampleRate, e.slow)
	if e.cache != nil {
		if pcm, ok := e.cache.Get(key); ok {
			log.Debug("Segment cache hit", "lang", l.Code, "bytes", len(pcm))
			return pcm, nil
		}
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, classify(fmt.Errorf("rate limit wait cancelled: %w", err), l.Code)
	}

	mp3, err := e.fetchMP3(ctx, text, l.Code)
	if err != nil {
		return nil, classify(fmt.Errorf("MP3 generation failed: %w", err), l.Code)
	}

	pcm, err := audio.DecodeMP3(ctx, e.runner, mp3, e.format)
	if err != nil {
		return nil, classify(err, l.Code)
	}

	if e.cache != nil {
		if err := e.cache.Put(key, pcm); err != nil {
			log.Debug("Could not cache segment", "err", err)
		}
	}
	return pcm, nil
}

// fetchMP3 runs gtts-cli with the text as argument and MP3 on stdout.
func (e *GTTSEngine) fetchMP3(ctx context.Context, text, lang string) ([]byte, error) {
	args := []string{text, "-l", lang}
	if e.slow {
		args = append(args, "--slow")
	}
	args = append(args, "-o", "-")

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	mp3, err := proc.Output(ctx, e.runner, nil, "gtts-cli", args...)
	if err != nil {
		return nil, err
	}
	if len(mp3) == 0 {
		return nil, fmt.Errorf("gtts-cli produced no MP3 output")
	}

	const maxMP3Size = 50 << 20
	if len(mp3) > maxMP3Size {
		return nil, fmt.Errorf("gtts-cli MP3 output too large: %d bytes (max %d)", len(mp3), maxMP3Size)
	}
	return mp3, nil
}

// Info implements Engine.
func (e *GTTSEngine) Info() Info {
	return Info{
		Name:        "gtts",
		Format:      e.format,
		MaxTextSize: gttsMaxText,
		Online:      true,
		Tools:       []string{"gtts-cli", "ffmpeg"},
	}
}

// Close releases the segment cache.
func (e *GTTSEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			return fmt.Errorf("failed to close cache: %w", err)
		}
	}
	return nil
}

var _ Engine = (*GTTSEngine)(nil)
