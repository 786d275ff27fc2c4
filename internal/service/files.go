package service

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/lingocast/internal/history"
	"github.com/dgnsrekt/lingocast/internal/storage"
)

// ListFiles returns the generated tracks, newest first.
func (s *AudioService) ListFiles(ctx context.Context) ([]storage.FileInfo, error) {
	return s.store.List(ctx)
}

// OpenFile opens a generated track for download.
func (s *AudioService) OpenFile(ctx context.Context, name string) (io.ReadCloser, storage.FileInfo, error) {
	return s.store.Open(ctx, name)
}

// DeleteFile removes a generated track.
func (s *AudioService) DeleteFile(ctx context.Context, name string) error {
	if err := s.store.Delete(ctx, name); err != nil {
		return err
	}
	log.Info("Deleted audio file", "file", name)
	return nil
}

// CleanupReport summarises a retention pass.
type CleanupReport struct {
	Files int
	Jobs  int64
}

// Cleanup removes tracks and history older than the retention period.
func (s *AudioService) Cleanup(ctx context.Context, now time.Time) (CleanupReport, error) {
	var rep CleanupReport
	if s.cfg.Retention <= 0 {
		return rep, nil
	}
	cutoff := now.Add(-s.cfg.Retention)

	files, err := s.store.List(ctx)
	if err != nil {
		return rep, err
	}
	for _, f := range files {
		if time.Unix(f.Created, 0).After(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, f.Filename); err != nil {
			log.Warn("Could not delete expired file", "file", f.Filename, "err", err)
			continue
		}
		rep.Files++
	}

	n, err := s.history.Prune(ctx, cutoff)
	if err != nil {
		return rep, err
	}
	rep.Jobs = n

	if rep.Files > 0 || rep.Jobs > 0 {
		log.Info("Retention cleanup", "files", rep.Files, "jobs", rep.Jobs)
	}
	return rep, nil
}

// RecentJobs returns the latest job records.
func (s *AudioService) RecentJobs(ctx context.Context, limit int) ([]history.Job, error) {
	return s.history.Recent(ctx, limit)
}
