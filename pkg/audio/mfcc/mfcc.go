// Package mfcc computes mel-frequency cepstral coefficients from PCM audio.
//
// The pipeline mirrors the common Python front-end for speech emotion models:
//
//	window:   periodic Hann, centered frames with zero padding
//	spectrum: power (|X|^2)
//	mel:      Slaney scale and Slaney area normalisation
//	log:      10*log10 with amin 1e-10, ref 1.0 and an 80 dB dynamic range
//	cepstrum: orthonormal DCT-II, first NumCoefficients kept
package mfcc

import (
	"fmt"
	"math"
)

// Config controls MFCC extraction.
type Config struct {
	SampleRate      int
	FFTSize         int
	HopSize         int
	NumMels         int
	NumCoefficients int
	LowFreq         float64
	HighFreq        float64 // zero means SampleRate/2
	TopDB           float64 // zero disables clipping
}

func DefaultConfig(sampleRate int) Config {
	return Config{
		SampleRate:      sampleRate,
		FFTSize:         2048,
		HopSize:         512,
		NumMels:         128,
		NumCoefficients: 40,
		TopDB:           80,
	}
}

const (
	amin = 1e-10
	ref  = 1.0
)

type Extractor struct {
	cfg     Config
	window  []float64
	melBank [][]float64
	dct     [][]float64
}

func New(cfg Config) (*Extractor, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("mfcc: invalid sample rate %d", cfg.SampleRate)
	}
	if !isPowerOfTwo(cfg.FFTSize) {
		return nil, fmt.Errorf("mfcc: fft size %d is not a power of two", cfg.FFTSize)
	}
	if cfg.HopSize <= 0 || cfg.NumMels <= 0 {
		return nil, fmt.Errorf("mfcc: hop size and mel count must be positive")
	}
	if cfg.NumCoefficients <= 0 || cfg.NumCoefficients > cfg.NumMels {
		return nil, fmt.Errorf("mfcc: coefficient count must be in [1, %d]", cfg.NumMels)
	}
	if cfg.HighFreq <= 0 {
		cfg.HighFreq = float64(cfg.SampleRate) / 2
	}

	return &Extractor{
		cfg:     cfg,
		window:  hannWindow(cfg.FFTSize),
		melBank: melFilterBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, cfg.LowFreq, cfg.HighFreq),
		dct:     dctMatrix(cfg.NumCoefficients, cfg.NumMels),
	}, nil
}

func (e *Extractor) Config() Config { return e.cfg }

// NumFrames is the frame count produced for n samples: 1 + n/hop.
func (e *Extractor) NumFrames(n int) int {
	return 1 + n/e.cfg.HopSize
}

// Extract returns a [NumCoefficients][frames] matrix. An empty input yields a
// single frame of silence.
func (e *Extractor) Extract(samples []float64) [][]float64 {
	melDB := e.logMelSpectrogram(samples)
	frames := len(melDB)

	out := make([][]float64, e.cfg.NumCoefficients)
	for k := range out {
		row := make([]float64, frames)
		basis := e.dct[k]
		for t, mel := range melDB {
			sum := 0.0
			for m, v := range mel {
				sum += basis[m] * v
			}
			row[t] = sum
		}
		out[k] = row
	}
	return out
}

// logMelSpectrogram returns [frames][NumMels] in decibels.
func (e *Extractor) logMelSpectrogram(samples []float64) [][]float64 {
	cfg := e.cfg
	nfft := cfg.FFTSize
	pad := nfft / 2
	half := nfft/2 + 1
	frames := e.NumFrames(len(samples))

	re := make([]float64, nfft)
	im := make([]float64, nfft)
	power := make([]float64, half)

	out := make([][]float64, frames)
	peak := math.Inf(-1)

	for t := 0; t < frames; t++ {
		start := t*cfg.HopSize - pad
		for i := 0; i < nfft; i++ {
			idx := start + i
			s := 0.0
			if idx >= 0 && idx < len(samples) {
				s = samples[idx]
			}
			re[i] = s * e.window[i]
			im[i] = 0
		}
		fft(re, im)

		for k := 0; k < half; k++ {
			power[k] = re[k]*re[k] + im[k]*im[k]
		}

		mel := make([]float64, cfg.NumMels)
		for m, filter := range e.melBank {
			sum := 0.0
			for k, w := range filter {
				if w != 0 {
					sum += w * power[k]
				}
			}
			db := 10*math.Log10(math.Max(amin, sum)) - 10*math.Log10(math.Max(amin, ref))
			mel[m] = db
			if db > peak {
				peak = db
			}
		}
		out[t] = mel
	}

	if cfg.TopDB > 0 {
		floor := peak - cfg.TopDB
		for _, mel := range out {
			for m, v := range mel {
				if v < floor {
					mel[m] = floor
				}
			}
		}
	}
	return out
}
