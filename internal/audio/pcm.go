// Package audio assembles raw PCM speech segments into a study track and
// encodes the result to MP3.
package audio

import (
	"errors"
	"fmt"
	"time"
)

// Format describes signed little endian PCM audio.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat matches what Google TTS produces: 24 kHz, mono, 16 bit.
func DefaultFormat() Format {
	return Format{SampleRate: 24000, Channels: 1, BitDepth: 16}
}

// BytesPerFrame returns the size of one sample across all channels.
func (f Format) BytesPerFrame() int {
	return f.BitDepth / 8 * f.Channels
}

// BytesPerSecond returns the data rate of the format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.BytesPerFrame()
}

// Validate checks that the format can be handed to ffmpeg as s16le.
func (f Format) Validate() error {
	switch {
	case f.SampleRate < 8000 || f.SampleRate > 192000:
		return fmt.Errorf("sample rate %d out of range", f.SampleRate)
	case f.Channels < 1 || f.Channels > 2:
		return fmt.Errorf("unsupported channel count %d", f.Channels)
	case f.BitDepth != 16:
		return fmt.Errorf("unsupported bit depth %d (only 16)", f.BitDepth)
	}
	return nil
}

// FFmpegArgs returns the raw input description for ffmpeg.
func (f Format) FFmpegArgs() []string {
	return []string{
		"-f", "s16le",
		"-ar", fmt.Sprint(f.SampleRate),
		"-ac", fmt.Sprint(f.Channels),
	}
}

// Silence returns zeroed PCM lasting d. Negative durations yield nothing.
func Silence(d time.Duration, f Format) []byte {
	if d <= 0 {
		return nil
	}
	return make([]byte, Frames(d, f)*f.BytesPerFrame())
}

// Frames returns how many frames last d, rounded down.
func Frames(d time.Duration, f Format) int {
	if d <= 0 {
		return 0
	}
	return int(int64(d) * int64(f.SampleRate) / int64(time.Second))
}

// Duration returns how long n bytes of PCM play for.
func Duration(n int, f Format) time.Duration {
	bps := f.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	frames := n / f.BytesPerFrame()
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// ValidatePCM checks that data is non empty and frame aligned.
func ValidatePCM(data []byte, f Format) error {
	if len(data) == 0 {
		return errors.New("empty PCM data")
	}
	if n := f.BytesPerFrame(); n == 0 || len(data)%n != 0 {
		return fmt.Errorf("PCM data length %d is not aligned to %d-byte frames", len(data), n)
	}
	return nil
}
