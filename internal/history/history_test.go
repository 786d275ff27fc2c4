package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) Store {
	t.Helper()
	s, err := Open(Config{Enabled: true, Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "history.db")})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		nop     bool
		wantErr bool
	}{
		{"disabled", Config{}, true, false},
		{"unknown driver", Config{Enabled: true, Driver: "mysql", DSN: "x"}, false, true},
		{"missing dsn", Config{Enabled: true, Driver: "sqlite"}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if _, ok := s.(Nop); ok != tt.nop {
				t.Errorf("Nop = %v, want %v", ok, tt.nop)
			}
		})
	}
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"a.mp3", "b.mp3", "c.mp3"} {
		j := &Job{
			Kind:       KindCSV,
			OutputFile: name,
			Languages:  "it,ru",
			Status:     StatusSucceeded,
			Rows:       i + 1,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.Record(ctx, j); err != nil {
			t.Fatal(err)
		}
		if j.ID == "" {
			t.Error("Record should assign an ID")
		}
	}

	jobs, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].OutputFile != "c.mp3" || jobs[1].OutputFile != "b.mp3" {
		t.Errorf("expected newest first, got %s, %s", jobs[0].OutputFile, jobs[1].OutputFile)
	}

	n, err := s.Prune(ctx, base.Add(90*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Prune removed %d, want 2", n)
	}
	jobs, _ = s.Recent(ctx, 0)
	if len(jobs) != 1 || jobs[0].OutputFile != "c.mp3" {
		t.Errorf("unexpected jobs after prune: %+v", jobs)
	}
}

func TestNop(t *testing.T) {
	var s Store = Nop{}
	if err := s.Record(context.Background(), &Job{}); err != nil {
		t.Error(err)
	}
	jobs, err := s.Recent(context.Background(), 5)
	if err != nil || len(jobs) != 0 {
		t.Errorf("Nop.Recent = %v, %v", jobs, err)
	}
}
