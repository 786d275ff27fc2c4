// Package tts turns sentences into PCM speech segments.
package tts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgnsrekt/lingocast/internal/audio"
	"github.com/dgnsrekt/lingocast/internal/cache"
	"github.com/dgnsrekt/lingocast/internal/proc"
)

// Engine synthesizes one sentence in one language. Implementations must be
// safe for concurrent use and return PCM in the format reported by Info.
type Engine interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
	Info() Info
	Close() error
}

// Info describes an engine.
type Info struct {
	Name        string
	Format      audio.Format
	MaxTextSize int
	Online      bool
	Tools       []string // external binaries the engine shells out to
}

// Config selects and configures an engine.
type Config struct {
	Engine            string // "gtts" (alias "google") or "mock"
	Slow              bool
	RequestsPerMinute int
	Timeout           time.Duration
	Format            audio.Format
}

// New builds the configured engine. runner executes external tools and
// segments may be nil to disable caching.
func New(cfg Config, runner proc.Runner, segments *cache.Manager) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", "gtts", "google":
		return NewGTTSEngine(GTTSConfig{
			Slow:              cfg.Slow,
			RequestsPerMinute: cfg.RequestsPerMinute,
			Timeout:           cfg.Timeout,
			Format:            cfg.Format,
			Runner:            runner,
			Cache:             segments,
		})
	case "mock":
		return NewMockEngine(MockConfig{Format: cfg.Format}), nil
	default:
		return nil, fmt.Errorf("%w: %q (use gtts or mock)", ErrInvalidEngine, cfg.Engine)
	}
}
