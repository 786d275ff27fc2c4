package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dgnsrekt/lingocast/internal/audio"
	"github.com/dgnsrekt/lingocast/internal/csvsource"
	"github.com/dgnsrekt/lingocast/internal/history"
	"github.com/dgnsrekt/lingocast/internal/job"
	"github.com/dgnsrekt/lingocast/internal/queue"
	"github.com/dgnsrekt/lingocast/internal/tts"
)

// Result describes a generated track.
type Result struct {
	OutputFile string        // bare file name in the store
	Rows       int           // rows spoken
	Skipped    int           // rows dropped by cleaning or failed synthesis
	Duration   time.Duration // track length
	Elapsed    time.Duration
}

// ProcessCSV speaks every usable row of the CSV read from r and stores the
// resulting MP3 under req.OutputFilename.
func (s *AudioService) ProcessCSV(ctx context.Context, r io.Reader, req job.Request) (res Result, err error) {
	start := time.Now()
	defer func() {
		s.record(ctx, history.KindCSV, req.OutputFilename, strings.Join(req.Codes(), ","), res, err, start)
	}()

	if err := req.Normalize(); err != nil {
		return res, err
	}
	if err := req.Validate(); err != nil {
		return res, err
	}
	if err := s.requireTools(ctx); err != nil {
		return res, err
	}

	release, err := s.admit(ctx, queue.PriorityNormal)
	if err != nil {
		return res, err
	}
	defer release()

	sheet, err := s.stageAndParse(r, req.Languages)
	if err != nil {
		return res, err
	}
	log.Info("Found valid sentences, generating audio", "rows", len(sheet.Rows), "dropped", sheet.Dropped)
	if len(sheet.Rows) == 0 {
		return res, ErrNoSentences
	}

	segments, failed, err := s.synthesizeRows(ctx, sheet.Rows, req.Languages)
	if err != nil {
		return res, err
	}

	track := audio.NewTrack(s.cfg.Format)
	track.AppendSilence(s.cfg.LeadIn)
	pause := time.Duration(req.PauseDuration) * time.Millisecond
	silence := time.Duration(req.SilenceDuration) * time.Millisecond

	for i, row := range segments {
		if failed[i] {
			continue
		}
		for j, seg := range row {
			if err := track.AppendSegment(seg); err != nil {
				return res, fmt.Errorf("row %d: %w", sheet.Rows[i].Line, err)
			}
			if j < len(row)-1 {
				track.AppendSilence(pause)
			} else {
				track.AppendSilence(silence)
			}
		}
		res.Rows++
	}
	res.Skipped = sheet.Dropped + len(sheet.Rows) - res.Rows
	if res.Rows == 0 {
		return res, ErrNoSentences
	}

	if err := s.save(ctx, track, req.OutputFilename); err != nil {
		return res, err
	}

	res.OutputFile = req.OutputFilename
	res.Duration = track.Duration()
	res.Elapsed = time.Since(start)
	log.Info("Audio saved", "file", res.OutputFile, "rows", res.Rows, "skipped", res.Skipped,
		"duration", res.Duration.Round(time.Second))
	return res, nil
}

// stageAndParse writes the upload to the staging directory under a random
// name, parses it and removes it again.
func (s *AudioService) stageAndParse(r io.Reader, langs []job.LanguageConfig) (csvsource.Sheet, error) {
	path := filepath.Join(s.cfg.UploadDir, uuid.NewString()+".csv")
	f, err := os.Create(path)
	if err != nil {
		return csvsource.Sheet{}, fmt.Errorf("failed to stage upload: %w", err)
	}
	defer func() {
		_ = f.Close()
		if err := os.Remove(path); err != nil {
			log.Warn("Could not remove staged upload", "path", path, "err", err)
		}
	}()

	if _, err := io.Copy(f, r); err != nil {
		return csvsource.Sheet{}, fmt.Errorf("failed to stage upload: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return csvsource.Sheet{}, err
	}
	warnColumnMismatches(f, langs)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return csvsource.Sheet{}, err
	}
	return csvsource.Parse(f, langs)
}

// warnColumnMismatches logs columns whose text reads like a language other
// than the one configured for them. It never fails the job.
func warnColumnMismatches(r io.Reader, langs []job.LanguageConfig) {
	cols, err := csvsource.Inspect(r, 0)
	if err != nil {
		log.Debug("Skipping column inspection", "err", err)
		return
	}
	for _, m := range csvsource.CheckColumns(cols, langs) {
		log.Warn("Column language mismatch", "column", m.ColumnIndex,
			"configured", m.Configured, "detected", m.Detected,
			"confidence", fmt.Sprintf("%.0f%%", m.Confidence*100))
	}
}

// synthesizeRows speaks every sentence on a bounded worker pool. A failed
// sentence marks its row as failed; only fatal engine errors abort the job.
func (s *AudioService) synthesizeRows(ctx context.Context, rows []csvsource.Row, langs []job.LanguageConfig) ([][][]byte, []bool, error) {
	segments := make([][][]byte, len(rows))
	failed := make([]bool, len(rows))
	rowFailed := make([]atomic.Bool, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for i, row := range rows {
		segments[i] = make([][]byte, len(langs))
		log.Debug(describeRow(row, langs))

		for j, lc := range langs {
			i, j, text, lang := i, j, row.Sentences[j], lc.LanguageCode
			g.Go(func() error {
				if rowFailed[i].Load() {
					return nil
				}
				pcm, err := s.engine.Synthesize(gctx, text, lang)
				if err != nil {
					if tts.IsFatal(err) {
						return err
					}
					if !rowFailed[i].Swap(true) {
						log.Warn("Error in sentence, skipping row", "line", rows[i].Line, "lang", lang, "err", err)
					}
					return nil
				}
				segments[i][j] = pcm
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, fmt.Errorf("synthesis aborted: %w", err)
	}

	for i := range rows {
		failed[i] = rowFailed[i].Load()
	}
	return segments, failed, nil
}

func describeRow(row csvsource.Row, langs []job.LanguageConfig) string {
	parts := make([]string, len(langs))
	for i, lc := range langs {
		parts[i] = lc.Flag + " " + row.Sentences[i]
	}
	return strings.Join(parts, " | ")
}

// save encodes the track and writes it to the store.
func (s *AudioService) save(ctx context.Context, track *audio.Track, name string) error {
	var mp3 bytes.Buffer
	if err := s.encoder.Encode(ctx, track.Reader(), track.Format(), &mp3); err != nil {
		return err
	}
	if err := s.store.Save(ctx, name, bytes.NewReader(mp3.Bytes()), int64(mp3.Len())); err != nil {
		return fmt.Errorf("failed to save audio: %w", err)
	}
	return nil
}

func (s *AudioService) record(ctx context.Context, kind, output, langs string, res Result, err error, start time.Time) {
	j := &history.Job{
		Kind:       kind,
		OutputFile: output,
		Languages:  langs,
		Status:     history.StatusSucceeded,
		Rows:       res.Rows,
		Skipped:    res.Skipped,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		j.Status = history.StatusFailed
		j.Error = err.Error()
	}
	// the request context may already be done; history is best effort
	if rerr := s.history.Record(context.WithoutCancel(ctx), j); rerr != nil && !errors.Is(rerr, context.Canceled) {
		log.Warn("Could not record job", "err", rerr)
	}
}
