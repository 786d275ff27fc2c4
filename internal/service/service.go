// Package service implements the audio generation backend: it turns phrase
// lists and single texts into MP3 tracks and manages the generated files.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/lingocast/internal/audio"
	"github.com/dgnsrekt/lingocast/internal/deps"
	"github.com/dgnsrekt/lingocast/internal/history"
	"github.com/dgnsrekt/lingocast/internal/language"
	"github.com/dgnsrekt/lingocast/internal/proc"
	"github.com/dgnsrekt/lingocast/internal/queue"
	"github.com/dgnsrekt/lingocast/internal/storage"
	"github.com/dgnsrekt/lingocast/internal/tts"
)

var (
	// ErrToolsMissing is matched by errors reporting absent audio tools.
	ErrToolsMissing = errors.New("audio tools missing")

	// ErrNoSentences is returned when a CSV yields nothing to speak.
	ErrNoSentences = errors.New("no valid sentences found in CSV")

	// ErrBusy is returned when the job backlog is full.
	ErrBusy = errors.New("server is busy, try again later")
)

// ToolsError lists the tools that could not be found.
type ToolsError struct {
	Missing []string
}

func (e *ToolsError) Error() string { return deps.MissingMessage(e.Missing) }

// Is makes errors.Is(err, ErrToolsMissing) true.
func (e *ToolsError) Is(target error) bool { return target == ErrToolsMissing }

// Config holds service settings.
type Config struct {
	UploadDir string
	LeadIn    time.Duration // silence at the start of every CSV track
	Workers   int           // concurrent synthesis calls per job
	Format    audio.Format
	Tools     []string      // binaries checked before each job
	Retention time.Duration // Cleanup removes files older than this, 0 keeps all
}

// DefaultConfig returns the service defaults.
func DefaultConfig() Config {
	return Config{
		UploadDir: "uploads",
		LeadIn:    time.Second,
		Workers:   2,
		Format:    audio.DefaultFormat(),
		Tools:     deps.AudioTools,
	}
}

// Deps are the collaborators of the service. Engine and Store are required.
type Deps struct {
	Engine  tts.Engine
	Store   storage.Store
	Encoder audio.Encoder   // defaults to ffmpeg through Runner
	Runner  proc.Runner     // defaults to proc.NewExec
	History history.Store   // defaults to history.Nop
	Queue   *queue.JobQueue // defaults to 2 running, 16 waiting
}

// AudioService is the backend.
type AudioService struct {
	cfg     Config
	engine  tts.Engine
	store   storage.Store
	encoder audio.Encoder
	runner  proc.Runner
	history history.Store
	jobs    *queue.JobQueue
}

// New creates the service and its upload directory.
func New(cfg Config, d Deps) (*AudioService, error) {
	if d.Engine == nil || d.Store == nil {
		return nil, fmt.Errorf("service needs an engine and a store")
	}

	def := DefaultConfig()
	if cfg.UploadDir == "" {
		cfg.UploadDir = def.UploadDir
	}
	if cfg.Workers < 1 {
		cfg.Workers = def.Workers
	}
	if cfg.Format == (audio.Format{}) {
		cfg.Format = d.Engine.Info().Format
	}
	if err := cfg.Format.Validate(); err != nil {
		return nil, err
	}
	if cfg.LeadIn < 0 {
		cfg.LeadIn = 0
	}
	if cfg.Tools == nil {
		cfg.Tools = def.Tools
	}

	if d.Runner == nil {
		d.Runner = proc.NewExec(0)
	}
	if d.Encoder == nil {
		d.Encoder = audio.NewFFmpegEncoder(d.Runner, "")
	}
	if d.History == nil {
		d.History = history.Nop{}
	}
	if d.Queue == nil {
		d.Queue = queue.New(2, 16)
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &AudioService{
		cfg:     cfg,
		engine:  d.Engine,
		store:   d.Store,
		encoder: d.Encoder,
		runner:  d.Runner,
		history: d.History,
		jobs:    d.Queue,
	}, nil
}

// Health is the service health report.
type Health struct {
	Status             string            `json:"status"`
	FFmpegAvailable    bool              `json:"ffmpeg_available"`
	MissingTools       []string          `json:"missing_tools"`
	SupportedLanguages map[string]string `json:"supported_languages"`
}

// CheckTools reports whether the configured tools are usable.
func (s *AudioService) CheckTools(ctx context.Context) (bool, []string) {
	ok, missing := deps.CheckTools(ctx, s.runner, s.cfg.Tools...)
	if !ok {
		log.Error("Audio tools missing", "missing", strings.Join(missing, ", "))
	}
	return ok, missing
}

// Health checks the audio tools.
func (s *AudioService) Health(ctx context.Context) Health {
	ok, missing := s.CheckTools(ctx)
	h := Health{
		Status:             "healthy",
		FFmpegAvailable:    ok,
		MissingTools:       missing,
		SupportedLanguages: s.SupportedLanguages(),
	}
	if h.MissingTools == nil {
		h.MissingTools = []string{}
	}
	if !ok {
		h.Status = "unhealthy"
	}
	return h
}

// SupportedLanguages returns the code to name map.
func (s *AudioService) SupportedLanguages() map[string]string {
	return language.Names()
}

// QueueStats reports job admission statistics.
func (s *AudioService) QueueStats() queue.Stats {
	return s.jobs.Stats()
}

// Close stops admitting jobs and releases the engine.
func (s *AudioService) Close() error {
	_ = s.jobs.Close()
	return s.engine.Close()
}

func (s *AudioService) requireTools(ctx context.Context) error {
	if ok, missing := s.CheckTools(ctx); !ok {
		return &ToolsError{Missing: missing}
	}
	return nil
}

func (s *AudioService) admit(ctx context.Context, p queue.Priority) (func(), error) {
	release, err := s.jobs.Acquire(ctx, p)
	if errors.Is(err, queue.ErrQueueFull) || errors.Is(err, queue.ErrQueueClosed) {
		return nil, fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return release, err
}
