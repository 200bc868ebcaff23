package mfcc

import "math"

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	melFSP      = 200.0 / 3
	melMinLogHz = 1000.0
	melMinLog   = melMinLogHz / melFSP
)

var melLogStep = math.Log(6.4) / 27.0

func hzToMel(hz float64) float64 {
	if hz >= melMinLogHz {
		return melMinLog + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSP
}

func melToHz(mel float64) float64 {
	if mel >= melMinLog {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLog))
	}
	return melFSP * mel
}

// melFilterBank builds Slaney-normalised triangular filters.
// Returns [numMels][nfft/2+1].
func melFilterBank(numMels, nfft, sampleRate int, fmin, fmax float64) [][]float64 {
	bins := nfft/2 + 1

	fftFreqs := make([]float64, bins)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * float64(sampleRate) / float64(nfft)
	}

	lo, hi := hzToMel(fmin), hzToMel(fmax)
	melF := make([]float64, numMels+2)
	for i := range melF {
		melF[i] = melToHz(lo + (hi-lo)*float64(i)/float64(numMels+1))
	}

	bank := make([][]float64, numMels)
	for m := 0; m < numMels; m++ {
		left, center, right := melF[m], melF[m+1], melF[m+2]
		enorm := 2.0 / (right - left)

		filter := make([]float64, bins)
		for k, f := range fftFreqs {
			lower := (f - left) / (center - left)
			upper := (right - f) / (right - center)
			w := math.Min(lower, upper)
			if w > 0 {
				filter[k] = w * enorm
			}
		}
		bank[m] = filter
	}
	return bank
}

// dctMatrix returns the orthonormal DCT-II basis truncated to numCoeffs rows.
func dctMatrix(numCoeffs, n int) [][]float64 {
	m := make([][]float64, numCoeffs)
	for k := range m {
		scale := math.Sqrt(2.0 / float64(n))
		if k == 0 {
			scale = math.Sqrt(1.0 / float64(n))
		}
		row := make([]float64, n)
		for i := range row {
			row[i] = scale * math.Cos(math.Pi*float64(k)*float64(2*i+1)/float64(2*n))
		}
		m[k] = row
	}
	return m
}
