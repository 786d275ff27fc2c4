package audio

import (
	"bytes"
	"io"
	"time"
)

// Track is an append-only PCM buffer. It is not safe for concurrent use;
// the service assembles each track on a single goroutine.
type Track struct {
	format   Format
	buf      bytes.Buffer
	segments int
}

// NewTrack returns an empty track in format f.
func NewTrack(f Format) *Track {
	return &Track{format: f}
}

// Format returns the PCM format of the track.
func (t *Track) Format() Format {
	return t.format
}

// AppendSilence adds d of silence.
func (t *Track) AppendSilence(d time.Duration) {
	t.buf.Write(Silence(d, t.format))
}

// AppendSegment adds a speech segment. Misaligned data is rejected so one
// bad segment cannot shift every following sample.
func (t *Track) AppendSegment(pcm []byte) error {
	if err := ValidatePCM(pcm, t.format); err != nil {
		return err
	}
	t.buf.Write(pcm)
	t.segments++
	return nil
}

// Segments returns how many speech segments were appended.
func (t *Track) Segments() int {
	return t.segments
}

// Len returns the track size in bytes.
func (t *Track) Len() int {
	return t.buf.Len()
}

// Duration returns the playing time of the track.
func (t *Track) Duration() time.Duration {
	return Duration(t.buf.Len(), t.format)
}

// Bytes returns the PCM data. The slice aliases the track buffer.
func (t *Track) Bytes() []byte {
	return t.buf.Bytes()
}

// Reader returns a reader over the PCM data without consuming the track.
func (t *Track) Reader() io.Reader {
	return bytes.NewReader(t.buf.Bytes())
}
