package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/dgnsrekt/lingocast/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	v := viper.New()
	config.SetDefaults(v)
	v.Set("tts.engine", "mock")
	v.Set("history.enabled", false)
	v.Set("server.upload_dir", filepath.Join(dir, "uploads"))
	v.Set("storage.output_dir", filepath.Join(dir, "outputs"))

	c, err := config.Load(v)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestBuildService(t *testing.T) {
	c := testConfig(t)
	svc, closeAll, err := buildService(context.Background(), c)
	if err != nil {
		t.Fatal(err)
	}
	defer closeAll()

	if _, err := os.Stat(c.Server.UploadDir); err != nil {
		t.Errorf("upload dir not created: %v", err)
	}
	files, err := svc.ListFiles(context.Background())
	if err != nil || len(files) != 0 {
		t.Errorf("expected an empty store, got %v, %v", files, err)
	}
}

func TestStartCleanup(t *testing.T) {
	c := testConfig(t)
	svc, closeAll, err := buildService(context.Background(), c)
	if err != nil {
		t.Fatal(err)
	}
	defer closeAll()

	s, err := startCleanup(context.Background(), svc, config.CleanupConfig{})
	if err != nil {
		t.Fatalf("disabled retention should not fail: %v", err)
	}
	s.Stop()

	_, err = startCleanup(context.Background(), svc, config.CleanupConfig{Schedule: "every tuesday", Retention: time.Hour})
	if err == nil {
		t.Error("expected an invalid schedule error")
	}

	s, err = startCleanup(context.Background(), svc, config.CleanupConfig{Schedule: "@every 1h", Retention: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(s.Entries()); n != 1 {
		t.Errorf("expected one scheduled entry, got %d", n)
	}
	s.Stop()
}

func TestWatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrases.csv")
	if err := os.WriteFile(path, []byte("a,b\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	calls := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, func() {
			calls <- struct{}{}
			cancel()
		})
	}()

	// give the watcher time to register before writing
	time.Sleep(200 * time.Millisecond)
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("c,d\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if n := len(calls); n != 1 {
		t.Errorf("expected one debounced call, got %d", n)
	}
}
