package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"
)

// Transcoder converts an audio file of any supported container into a mono
// 16-bit WAV at the requested sample rate.
type Transcoder interface {
	ToWAV(ctx context.Context, src, dst string, sampleRate int) error
}

// FFmpeg shells out to the ffmpeg binary.
type FFmpeg struct {
	Path    string
	Timeout time.Duration
}

func NewFFmpeg(path string, timeout time.Duration) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FFmpeg{Path: path, Timeout: timeout}
}

func (f *FFmpeg) ToWAV(ctx context.Context, src, dst string, sampleRate int) error {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", src,
		"-ac", "1",
		"-ar", fmt.Sprint(sampleRate),
		"-sample_fmt", "s16",
		"-f", "wav",
		dst,
	}

	cmd := exec.CommandContext(ctx, f.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	log.Debug().Str("src", src).Str("dst", dst).Int("rate", sampleRate).Msg("transcoding audio")

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg timed out: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}
