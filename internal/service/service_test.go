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
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/lingocast/internal/audio"
	"github.com/dgnsrekt/lingocast/internal/history"
	"github.com/dgnsrekt/lingocast/internal/job"
	"github.com/dgnsrekt/lingocast/internal/proc"
	"github.com/dgnsrekt/lingocast/internal/storage"
	"github.com/dgnsrekt/lingocast/internal/tts"
)

// pcmEncoder "encodes" by writing a header and the PCM size, so tests can
// check how much audio was assembled.
type pcmEncoder struct {
	mu    sync.Mutex
	sizes []int
}

func (e *pcmEncoder) Encode(_ context.Context, pcm io.Reader, _ audio.Format, w io.Writer) error {
	data, err := io.ReadAll(pcm)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.sizes = append(e.sizes, len(data))
	e.mu.Unlock()
	_, err = fmt.Fprintf(w, "MP3:%d", len(data))
	return err
}

type memHistory struct {
	mu   sync.Mutex
	jobs []history.Job
}

func (h *memHistory) Record(_ context.Context, j *history.Job) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.jobs = append(h.jobs, *j)
	return nil
}

func (h *memHistory) Recent(context.Context, int) ([]history.Job, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]history.Job(nil), h.jobs...), nil
}

func (h *memHistory) Prune(context.Context, time.Time) (int64, error) { return 0, nil }
func (h *memHistory) Close() error                                    { return nil }

type fixture struct {
	svc     *AudioService
	engine  *tts.MockEngine
	store   *storage.LocalStore
	encoder *pcmEncoder
	history *memHistory
	uploads string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.NewLocalStore(filepath.Join(dir, "outputs"))
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		engine:  tts.NewMockEngine(tts.MockConfig{}),
		store:   store,
		encoder: &pcmEncoder{},
		history: &memHistory{},
		uploads: filepath.Join(dir, "uploads"),
	}
	f.svc, err = New(Config{
		UploadDir: f.uploads,
		LeadIn:    time.Second,
		Workers:   3,
		Tools:     []string{},
		Retention: 24 * time.Hour,
	}, Deps{
		Engine:  f.engine,
		Store:   store,
		Encoder: f.encoder,
		Runner:  proc.NewFake(),
		History: f.history,
	})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

const phrases = "Ciao,Привет\n1,2\nCome stai,Как дела\n,пусто\n"

func TestProcessCSV_TrackLayout(t *testing.T) {
	f := newFixture(t)
	req := job.NewPairRequest("it", "ru", "lesson", 500, 200)

	res, err := f.svc.ProcessCSV(context.Background(), strings.NewReader(phrases), req)
	if err != nil {
		t.Fatalf("ProcessCSV failed: %v", err)
	}

	if res.OutputFile != "lesson.mp3" {
		t.Errorf("OutputFile = %q, want lesson.mp3", res.OutputFile)
	}
	if res.Rows != 2 || res.Skipped != 2 {
		t.Errorf("Rows/Skipped = %d/%d, want 2/2", res.Rows, res.Skipped)
	}

	d := f.engine.SegmentDuration
	want := time.Second +
		d("Ciao") + 500*time.Millisecond + d("Привет") + 200*time.Millisecond +
		d("Come stai") + 500*time.Millisecond + d("Как дела") + 200*time.Millisecond
	if res.Duration != want {
		t.Errorf("Duration = %v, want %v", res.Duration, want)
	}

	rc, _, err := f.store.Open(context.Background(), "lesson.mp3")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	wantBytes := int(want.Seconds() * 24000 * 2)
	if string(data) != fmt.Sprintf("MP3:%d", wantBytes) {
		t.Errorf("stored %q, want %d PCM bytes", data, wantBytes)
	}

	entries, _ := os.ReadDir(f.uploads)
	if len(entries) != 0 {
		t.Errorf("staged upload not removed: %d files left", len(entries))
	}

	if len(f.history.jobs) != 1 || f.history.jobs[0].Status != history.StatusSucceeded {
		t.Errorf("unexpected history %+v", f.history.jobs)
	}
	if f.history.jobs[0].Languages != "it,ru" {
		t.Errorf("history languages = %q", f.history.jobs[0].Languages)
	}
}

func TestProcessCSV_SpeaksInRowOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ProcessCSV(context.Background(), strings.NewReader(phrases), job.DefaultRequest())
	if err != nil {
		t.Fatal(err)
	}

	seen := map[string]string{}
	for _, c := range f.engine.Calls() {
		seen[c.Text] = c.Lang
	}
	want := map[string]string{"Ciao": "it", "Привет": "ru", "Come stai": "it", "Как дела": "ru"}
	for text, lang := range want {
		if seen[text] != lang {
			t.Errorf("%q spoken in %q, want %q", text, seen[text], lang)
		}
	}
	if _, ok := seen["1"]; ok {
		t.Error("numeric row should have been dropped")
	}
}

func TestProcessCSV_SkipsFailedRows(t *testing.T) {
	f := newFixture(t)
	f.engine.FailOn("Как дела", errors.New("network down"))

	res, err := f.svc.ProcessCSV(context.Background(), strings.NewReader(phrases), job.DefaultRequest())
	if err != nil {
		t.Fatal(err)
	}
	if res.Rows != 1 || res.Skipped != 3 {
		t.Errorf("Rows/Skipped = %d/%d, want 1/3", res.Rows, res.Skipped)
	}

	d := f.engine.SegmentDuration
	want := time.Second + d("Ciao") + 5*time.Second + d("Привет") + time.Second
	if res.Duration != want {
		t.Errorf("a failed row must leave no trace: Duration = %v, want %v", res.Duration, want)
	}
}

func TestProcessCSV_WarnsOnColumnMismatch(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	f := newFixture(t)
	csv := "Ciao,안녕하세요\nGrazie,감사합니다\n"
	res, err := f.svc.ProcessCSV(context.Background(), strings.NewReader(csv), job.DefaultRequest())
	if err != nil {
		t.Fatalf("a mismatch must not fail the job: %v", err)
	}
	if res.Rows != 2 {
		t.Errorf("Rows = %d, want 2", res.Rows)
	}

	out := buf.String()
	if !strings.Contains(out, "Column language mismatch") {
		t.Fatalf("expected a mismatch warning, log was:\n%s", out)
	}
	if !strings.Contains(out, "configured=ru") || !strings.Contains(out, "detected=ko") {
		t.Errorf("warning should name both languages, log was:\n%s", out)
	}
}

func TestProcessCSV_NoSentences(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		fail string
	}{
		{"empty file", "", ""},
		{"only numbers", "1,2\n3.5,4\n", ""},
		{"every row fails", "Ciao,Привет\n", "Ciao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.fail != "" {
				f.engine.FailOn(tt.fail, errors.New("boom"))
			}
			_, err := f.svc.ProcessCSV(context.Background(), strings.NewReader(tt.csv), job.DefaultRequest())
			if !errors.Is(err, ErrNoSentences) {
				t.Fatalf("expected ErrNoSentences, got %v", err)
			}
			if len(f.history.jobs) != 1 || f.history.jobs[0].Status != history.StatusFailed {
				t.Errorf("failure not recorded: %+v", f.history.jobs)
			}
		})
	}
}

func TestProcessCSV_InvalidRequest(t *testing.T) {
	f := newFixture(t)
	tests := []job.Request{
		job.NewPairRequest("it", "it", "out.mp3", 0, 0),
		job.NewPairRequest("it", "xx", "out.mp3", 0, 0),
		job.NewPairRequest("it", "ru", "../out.mp3", 0, 0),
		job.NewPairRequest("it", "ru", "out.wav", 0, 0),
		job.NewPairRequest("it", "ru", "out.mp3", -1, 0),
	}
	for _, req := range tests {
		_, err := f.svc.ProcessCSV(context.Background(), strings.NewReader(phrases), req)
		if !errors.Is(err, job.ErrInvalidRequest) {
			t.Errorf("%+v: expected ErrInvalidRequest, got %v", req, err)
		}
	}
	if n := len(f.engine.Calls()); n != 0 {
		t.Errorf("invalid requests reached the engine %d times", n)
	}
}

func TestProcessCSV_ToolsMissing(t *testing.T) {
	orig := proc.LookPath
	t.Cleanup(func() { proc.LookPath = orig })
	proc.LookPath = func(name string) (string, error) {
		if name == "ffmpeg" {
			return "/usr/bin/ffmpeg", nil
		}
		return "", errors.New("not found")
	}

	f := newFixture(t)
	f.svc.cfg.Tools = []string{"ffmpeg", "ffprobe"}
	f.svc.runner = proc.NewFake().Handle("ffmpeg", func([]byte, []string, io.Writer) error { return nil })

	_, err := f.svc.ProcessCSV(context.Background(), strings.NewReader(phrases), job.DefaultRequest())
	if !errors.Is(err, ErrToolsMissing) {
		t.Fatalf("expected ErrToolsMissing, got %v", err)
	}
	want := "FFmpeg tools are not available. Missing: ffprobe. Please install ffmpeg and ffprobe."
	if err.Error() != want {
		t.Errorf("message = %q", err.Error())
	}

	h := f.svc.Health(context.Background())
	if h.Status != "unhealthy" || h.FFmpegAvailable || len(h.MissingTools) != 1 {
		t.Errorf("unexpected health %+v", h)
	}
	if len(h.SupportedLanguages) != 10 {
		t.Errorf("supported languages = %d, want 10", len(h.SupportedLanguages))
	}
}

func TestProcessCSV_Canceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.ProcessCSV(ctx, strings.NewReader(phrases), job.DefaultRequest())
	if err == nil {
		t.Fatal("expected cancelled job to fail")
	}
	if _, _, err := f.store.Open(context.Background(), job.DefaultOutputFilename); !errors.Is(err, storage.ErrNotFound) {
		t.Error("cancelled job must not store a file")
	}
}

func TestProcessCSV_EngineClosed(t *testing.T) {
	f := newFixture(t)
	_ = f.engine.Close()

	_, err := f.svc.ProcessCSV(context.Background(), strings.NewReader(phrases), job.DefaultRequest())
	if !errors.Is(err, tts.ErrClosed) {
		t.Fatalf("expected the engine error, got %v", err)
	}
	if errors.Is(err, ErrNoSentences) {
		t.Error("a closed engine must not be reported as an empty CSV")
	}
}

func TestTextToAudio(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.TextToAudio(context.Background(), job.TextRequest{Text: "Buongiorno a tutti"})
	if err != nil {
		t.Fatal(err)
	}
	if res.OutputFile != "text_audio_it.mp3" {
		t.Errorf("OutputFile = %q", res.OutputFile)
	}
	if res.Duration != f.engine.SegmentDuration("Buongiorno a tutti") {
		t.Errorf("text track should hold only the speech, got %v", res.Duration)
	}

	_, err = f.svc.TextToAudio(context.Background(), job.TextRequest{Text: "  "})
	if !errors.Is(err, job.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for blank text, got %v", err)
	}

	f.engine.FailOn("rotto", errors.New("engine exploded"))
	_, err = f.svc.TextToAudio(context.Background(), job.TextRequest{Text: "rotto", Language: "it"})
	if err == nil || !strings.Contains(err.Error(), "engine exploded") {
		t.Errorf("expected engine error, got %v", err)
	}

	if len(f.history.jobs) != 3 {
		t.Errorf("expected 3 history records, got %d", len(f.history.jobs))
	}
}

func TestFilesAndCleanup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, name := range []string{"old.mp3", "new.mp3"} {
		if err := f.store.Save(ctx, name, strings.NewReader("x"), 1); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(filepath.Join(f.store.Dir(), "old.mp3"), old, old); err != nil {
		t.Fatal(err)
	}

	files, err := f.svc.ListFiles(ctx)
	if err != nil || len(files) != 2 || files[0].Filename != "new.mp3" {
		t.Fatalf("ListFiles = %+v, %v", files, err)
	}

	rep, err := f.svc.Cleanup(ctx, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Files != 1 {
		t.Errorf("Cleanup removed %d files, want 1", rep.Files)
	}

	if err := f.svc.DeleteFile(ctx, "new.mp3"); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeleteFile(ctx, "new.mp3"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
