package audio

import (
	"bytes"
	"fmt"

	"github.com/go-audio/wav"
	resampling "github.com/tphakala/go-audio-resampling"
)

// PCM is mono audio normalised to [-1, 1].
type PCM struct {
	Samples    []float64
	SampleRate int
}

func (p PCM) Duration() float64 {
	if p.SampleRate == 0 {
		return 0
	}
	return float64(len(p.Samples)) / float64(p.SampleRate)
}

// DecodeWAV reads a RIFF/WAVE payload and downmixes it to mono.
func DecodeWAV(data []byte) (PCM, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return PCM{}, fmt.Errorf("not a valid wav file")
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return PCM{}, fmt.Errorf("wav header has no usable format")
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(d.BitDepth)
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return PCM{}, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	scale := float64(int64(1) << (bitDepth - 1))
	// 8-bit wav is unsigned.
	offset := 0.0
	if bitDepth == 8 {
		offset = scale
	}

	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c]) - offset
		}
		samples[i] = sum / float64(channels) / scale
	}

	return PCM{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

// Resample converts p to the target rate. It is a no-op when the rates match.
func Resample(p PCM, rate int) (PCM, error) {
	if p.SampleRate == rate || len(p.Samples) == 0 {
		p.SampleRate = rate
		return p, nil
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(p.SampleRate),
		OutputRate: float64(rate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return PCM{}, fmt.Errorf("failed to create resampler: %w", err)
	}

	out, err := rs.Process(p.Samples)
	if err != nil {
		return PCM{}, fmt.Errorf("resample error: %w", err)
	}
	tail, err := rs.Flush()
	if err != nil {
		return PCM{}, fmt.Errorf("resample flush: %w", err)
	}
	return PCM{Samples: append(out, tail...), SampleRate: rate}, nil
}
