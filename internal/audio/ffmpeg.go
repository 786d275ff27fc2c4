package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/dgnsrekt/lingocast/internal/proc"
)

// Encoder turns PCM into a compressed container written to w.
type Encoder interface {
	Encode(ctx context.Context, pcm io.Reader, f Format, w io.Writer) error
}

// FFmpegEncoder encodes MP3 by piping PCM through ffmpeg.
type FFmpegEncoder struct {
	runner  proc.Runner
	bitrate string
}

// NewFFmpegEncoder returns an MP3 encoder. An empty bitrate means 128k.
func NewFFmpegEncoder(r proc.Runner, bitrate string) *FFmpegEncoder {
	if bitrate == "" {
		bitrate = "128k"
	}
	return &FFmpegEncoder{runner: r, bitrate: bitrate}
}

// Encode implements Encoder.
func (e *FFmpegEncoder) Encode(ctx context.Context, pcm io.Reader, f Format, w io.Writer) error {
	if err := f.Validate(); err != nil {
		return err
	}

	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, f.FFmpegArgs()...)
	args = append(args,
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-b:a", e.bitrate,
		"-f", "mp3",
		"pipe:1",
	)

	if err := e.runner.Run(ctx, proc.Command{Name: "ffmpeg", Args: args, Stdin: pcm, Stdout: w}); err != nil {
		return fmt.Errorf("MP3 encoding failed: %w", err)
	}
	return nil
}

// DecodeMP3 converts MP3 bytes into PCM of format f using ffmpeg.
func DecodeMP3(ctx context.Context, r proc.Runner, mp3 []byte, f Format) ([]byte, error) {
	if len(mp3) == 0 {
		return nil, fmt.Errorf("no MP3 data to decode")
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-i", "pipe:0"}
	args = append(args, f.FFmpegArgs()...)
	args = append(args, "pipe:1")

	pcm, err := proc.Output(ctx, r, bytes.NewReader(mp3), "ffmpeg", args...)
	if err != nil {
		return nil, fmt.Errorf("MP3 to PCM conversion failed: %w", err)
	}

	// ffmpeg may emit a trailing partial frame; trim it so segments stay aligned
	if n := f.BytesPerFrame(); n > 0 {
		pcm = pcm[:len(pcm)-len(pcm)%n]
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no PCM output")
	}
	return pcm, nil
}
