package form

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/lingocast/internal/client"
	"github.com/dgnsrekt/lingocast/internal/job"
	"github.com/dgnsrekt/lingocast/internal/storage"
)

// Backend is the part of the audio service the form talks to.
type Backend interface {
	GenerateFromCSV(ctx context.Context, path string, req job.Request, onProgress client.Progress) (job.Response, error)
	ListFiles(ctx context.Context) ([]storage.FileInfo, error)
	Delete(ctx context.Context, name string) error
}

var _ Backend = (*client.Client)(nil)

// Observer receives every state change in order.
type Observer func(State)

// Outcome is what a successful submission produced.
type Outcome struct {
	Response job.Response
	Files    []storage.FileInfo

	// FilesErr is set when the job succeeded but the list refresh did not.
	FilesErr error
}

// Submitter runs submissions one at a time.
type Submitter struct {
	backend Backend

	mu    sync.Mutex
	state State

	// notify keeps observer calls ordered across the upload goroutine.
	notify sync.Mutex
}

// NewSubmitter returns a submitter in the idle state.
func NewSubmitter(b Backend) *Submitter {
	return &Submitter{backend: b, state: Idle()}
}

// State returns the latest state.
func (s *Submitter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Submitter) set(st State, observe Observer) {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	if observe != nil {
		observe(st)
	}
}

// Submit validates the selection, uploads it and waits for the generated
// track. Upload progress maps onto 0-25%, the response moves to 75% and
// success to 100%, after which the file list is fetched exactly once.
// Validation failures never reach the network.
func (s *Submitter) Submit(ctx context.Context, sel Selection, observe Observer) (Outcome, error) {
	if err := sel.Validate(); err != nil {
		s.set(Failed(err.Error()), observe)
		return Outcome{}, err
	}

	s.set(State{Status: StatusUploading, Message: MsgUploading, Progress: 0}, observe)

	last := 0
	uploaded := false
	onProgress := func(sent, total int64) {
		if uploaded || total <= 0 {
			return
		}
		if sent >= total {
			uploaded = true
			s.set(State{Status: StatusProcessing, Message: MsgProcessing, Progress: 25}, observe)
			return
		}
		if pct := int(sent * 25 / total); pct > last {
			last = pct
			s.set(State{Status: StatusUploading, Message: MsgUploading, Progress: pct}, observe)
		}
	}

	req := sel.Request()
	log.Debug("Submitting CSV", "file", sel.File.Path, "languages", req.Codes(), "output", req.OutputFilename)

	resp, err := s.backend.GenerateFromCSV(ctx, sel.File.Path, req, onProgress)
	if err != nil {
		s.set(Failed(msgFailedPrefix+err.Error()), observe)
		return Outcome{}, err
	}
	if !uploaded {
		s.set(State{Status: StatusProcessing, Message: MsgProcessing, Progress: 25}, observe)
	}
	s.set(State{Status: StatusProcessing, Message: MsgFinalizing, Progress: 75}, observe)
	s.set(State{Status: StatusCompleted, Message: MsgCompleted, Progress: 100}, observe)

	out := Outcome{Response: resp}
	out.Files, out.FilesErr = s.backend.ListFiles(ctx)
	if out.FilesErr != nil {
		log.Warn("Could not refresh file list", "err", out.FilesErr)
	}
	return out, nil
}

// Delete removes a generated file and returns the refreshed list.
func (s *Submitter) Delete(ctx context.Context, name string) ([]storage.FileInfo, error) {
	if err := s.backend.Delete(ctx, name); err != nil {
		return nil, err
	}
	return s.backend.ListFiles(ctx)
}
