// Package storage keeps generated audio files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a file does not exist.
	ErrNotFound = errors.New("audio file not found")

	// ErrInvalidName is returned for names that are not a bare file name.
	ErrInvalidName = errors.New("invalid file name")
)

// AudioExt is the only extension listed by stores.
const AudioExt = ".mp3"

// FileInfo describes a stored file. Created is a unix timestamp in seconds.
type FileInfo struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Created  int64  `json:"created"`
}

// Store is where generated tracks live.
type Store interface {
	// Save writes r under name, replacing any previous file. size may be
	// -1 when unknown.
	Save(ctx context.Context, name string, r io.Reader, size int64) error
	Open(ctx context.Context, name string) (io.ReadCloser, FileInfo, error)
	// List returns audio files, newest first.
	List(ctx context.Context) ([]FileInfo, error)
	Delete(ctx context.Context, name string) error
}

// ValidateName rejects anything but a plain file name.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: hidden file %q", ErrInvalidName, name)
	}
	return nil
}

func isAudio(name string) bool {
	return strings.EqualFold(path.Ext(name), AudioExt)
}

func sortNewestFirst(files []FileInfo) {
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Created != files[j].Created {
			return files[i].Created > files[j].Created
		}
		return files[i].Filename < files[j].Filename
	})
}
