// Package audio turns uploaded voice clips into fixed-size MFCC matrices.
package audio

import (
	"context"
	"fmt"
	"os"

	"emotion-backend/pkg/audio/mfcc"
	"emotion-backend/pkg/models"

	"github.com/rs/zerolog/log"
)

const (
	SampleRate      = 22050
	NumCoefficients = 40
	NumFrames       = 174

	// MinDuration is the clip length below which extraction still succeeds
	// but logs a warning.
	MinDuration = 0.5
)

// FeatureMatrix is the classifier input: NumCoefficients rows of NumFrames
// columns, zero padded or truncated on the time axis.
type FeatureMatrix [NumCoefficients][NumFrames]float32

type Extractor struct {
	transcoder Transcoder
	tempDir    string
	mfcc       *mfcc.Extractor
}

func NewExtractor(transcoder Transcoder, tempDir string) (*Extractor, error) {
	m, err := mfcc.New(mfcc.DefaultConfig(SampleRate))
	if err != nil {
		return nil, err
	}
	return &Extractor{transcoder: transcoder, tempDir: tempDir, mfcc: m}, nil
}

// Extract decodes raw in the given container format and computes its MFCC
// matrix. Every failure wraps models.ErrInvalidAudio. Temporary files are
// removed before returning.
func (e *Extractor) Extract(ctx context.Context, raw []byte, format string) (*FeatureMatrix, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty upload", models.ErrInvalidAudio)
	}

	pcm, err := e.load(ctx, raw, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidAudio, err)
	}

	if d := pcm.Duration(); d < MinDuration {
		log.Warn().Float64("seconds", d).Msg("audio clip is very short")
	}

	coeffs := e.mfcc.Extract(pcm.Samples)
	fm := Fit(coeffs)

	log.Debug().
		Int("samples", len(pcm.Samples)).
		Int("frames", len(coeffs[0])).
		Msg("extracted mfcc features")
	return fm, nil
}

// Fit copies an MFCC matrix into a FeatureMatrix, zero padding or
// truncating columns to NumFrames.
func Fit(coeffs [][]float64) *FeatureMatrix {
	var fm FeatureMatrix
	for k := 0; k < NumCoefficients && k < len(coeffs); k++ {
		row := coeffs[k]
		for t := 0; t < NumFrames && t < len(row); t++ {
			fm[k][t] = float32(row[t])
		}
	}
	return &fm
}

func (e *Extractor) load(ctx context.Context, raw []byte, format string) (PCM, error) {
	if format == "wav" {
		pcm, err := DecodeWAV(raw)
		if err == nil {
			return Resample(pcm, SampleRate)
		}
		// encodings the decoder cannot read still go through ffmpeg
		log.Debug().Err(err).Msg("direct wav decode failed, transcoding")
	}

	if e.transcoder == nil {
		return PCM{}, fmt.Errorf("no transcoder configured for %s input", format)
	}

	src, err := e.writeTemp(raw, format)
	if err != nil {
		return PCM{}, err
	}
	defer os.Remove(src)

	dst, err := e.reserveTemp("wav")
	if err != nil {
		return PCM{}, err
	}
	defer os.Remove(dst)

	if err := e.transcoder.ToWAV(ctx, src, dst, SampleRate); err != nil {
		return PCM{}, err
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		return PCM{}, fmt.Errorf("read transcoded audio: %w", err)
	}
	pcm, err := DecodeWAV(data)
	if err != nil {
		return PCM{}, err
	}
	return Resample(pcm, SampleRate)
}

func (e *Extractor) writeTemp(data []byte, ext string) (string, error) {
	f, err := os.CreateTemp(e.tempDir, "voice-*."+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), nil
}

func (e *Extractor) reserveTemp(ext string) (string, error) {
	f, err := os.CreateTemp(e.tempDir, "voice-*-converted."+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	f.Close()
	return name, nil
}
