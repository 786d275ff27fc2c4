package tts

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/lingocast/internal/audio"
	"github.com/dgnsrekt/lingocast/internal/language"
)

// MockEngine produces deterministic fake speech without any external tool.
// It backs `tts.engine: mock` and the tests.
type MockEngine struct {
	format         audio.Format
	delay          time.Duration
	wordsPerMinute int

	mu     sync.Mutex
	fail   map[string]error
	calls  []MockCall
	closed bool
}

// MockCall records one Synthesize invocation.
type MockCall struct {
	Text string
	Lang string
}

// MockConfig configures a MockEngine.
type MockConfig struct {
	Format         audio.Format
	Delay          time.Duration
	WordsPerMinute int // defaults to 600 so tests stay small
}

// NewMockEngine creates a mock engine.
func NewMockEngine(cfg MockConfig) *MockEngine {
	if cfg.Format == (audio.Format{}) {
		cfg.Format = audio.DefaultFormat()
	}
	if cfg.WordsPerMinute <= 0 {
		cfg.WordsPerMinute = 600
	}
	return &MockEngine{
		format:         cfg.Format,
		delay:          cfg.Delay,
		wordsPerMinute: cfg.WordsPerMinute,
		fail:           make(map[string]error),
	}
}

// FailOn makes every synthesis of text return err.
func (e *MockEngine) FailOn(text string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail[text] = err
}

// Synthesize returns a tone whose length grows with the word count.
func (e *MockEngine) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, closedError(lang)
	}
	e.calls = append(e.calls, MockCall{Text: text, Lang: lang})
	failErr := e.fail[text]
	e.mu.Unlock()

	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return nil, classify(ctx.Err(), lang)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, classify(err, lang)
	}

	if failErr != nil {
		return nil, classify(failErr, lang)
	}
	if strings.TrimSpace(text) == "" {
		return nil, NewError(ErrorCodeInvalidInput, "nothing to speak", ErrEmptyText).WithLang(lang)
	}
	if !language.IsSupported(lang) {
		return nil, NewError(ErrorCodeUnsupportedLanguage, "cannot speak language", nil).WithLang(lang)
	}

	return e.tone(text), nil
}

// SegmentDuration returns how long the mock speaks text.
func (e *MockEngine) SegmentDuration(text string) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	return time.Duration(words) * time.Minute / time.Duration(e.wordsPerMinute)
}

// tone fills the segment with a non zero pattern seeded by the text, so
// speech is distinguishable from silence.
func (e *MockEngine) tone(text string) []byte {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := byte(h.Sum32()) | 1

	pcm := make([]byte, audio.Frames(e.SegmentDuration(text), e.format)*e.format.BytesPerFrame())
	for i := range pcm {
		pcm[i] = seed
	}
	return pcm
}

// Calls returns every Synthesize call so far.
func (e *MockEngine) Calls() []MockCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]MockCall(nil), e.calls...)
}

// Info implements Engine.
func (e *MockEngine) Info() Info {
	return Info{Name: "mock", Format: e.format, MaxTextSize: gttsMaxText}
}

// Close implements Engine.
func (e *MockEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

var _ Engine = (*MockEngine)(nil)
