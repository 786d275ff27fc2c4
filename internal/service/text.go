package service

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/lingocast/internal/audio"
	"github.com/dgnsrekt/lingocast/internal/history"
	"github.com/dgnsrekt/lingocast/internal/job"
	"github.com/dgnsrekt/lingocast/internal/queue"
)

// TextToAudio speaks a single text and stores it. Text jobs skip ahead of
// waiting CSV jobs.
func (s *AudioService) TextToAudio(ctx context.Context, req job.TextRequest) (res Result, err error) {
	start := time.Now()
	defer func() {
		s.record(ctx, history.KindText, req.OutputFilename, req.Language, res, err, start)
	}()

	if err := req.Normalize(); err != nil {
		return res, err
	}
	if err := s.requireTools(ctx); err != nil {
		return res, err
	}

	release, err := s.admit(ctx, queue.PriorityHigh)
	if err != nil {
		return res, err
	}
	defer release()

	pcm, err := s.engine.Synthesize(ctx, req.Text, req.Language)
	if err != nil {
		return res, fmt.Errorf("failed to convert text to audio: %w", err)
	}

	track := audio.NewTrack(s.cfg.Format)
	if err := track.AppendSegment(pcm); err != nil {
		return res, err
	}
	if err := s.save(ctx, track, req.OutputFilename); err != nil {
		return res, err
	}

	res = Result{
		OutputFile: req.OutputFilename,
		Rows:       1,
		Duration:   track.Duration(),
		Elapsed:    time.Since(start),
	}
	log.Info("Audio saved", "file", res.OutputFile, "lang", req.Language)
	return res, nil
}
