// Package phash computes 64 bit perceptual fingerprints of images and compares them.
package phash

import (
	"errors"
	"fmt"
	"image"
	"math/bits"
	"strings"

	"github.com/corona10/goimagehash"
	"golang.org/x/xerrors"
)

// Size is the bit length of every fingerprint regardless of algorithm.
const Size = 64

var (
	UnknownAlgorithmError  = errors.New("unknown hash algorithm")
	AlgorithmMismatchError = errors.New("fingerprints come from different hash algorithms")
	EmptyImageError        = errors.New("image has no pixels")
)

type Algorithm int

const (
	Average Algorithm = iota + 1
	Difference
	Perceptual
	Wavelet
)

func (a Algorithm) String() string {
	switch a {
	case Average:
		return "ahash"
	case Difference:
		return "dhash"
	case Perceptual:
		return "phash"
	case Wavelet:
		return "whash"
	default:
		return "unknown"
	}
}

func (a Algorithm) MarshalText() ([]byte, error) {
	if a < Average || a > Wavelet {
		return nil, xerrors.Errorf("failed to marshal %d: %w", int(a), UnknownAlgorithmError)
	}
	return []byte(a.String()), nil
}

func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Algorithms lists every supported algorithm in a stable order.
func Algorithms() []Algorithm {
	return []Algorithm{Average, Difference, Perceptual, Wavelet}
}

func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ahash", "average":
		return Average, nil
	case "dhash", "difference":
		return Difference, nil
	case "phash", "perceptual":
		return Perceptual, nil
	case "whash", "wavelet", "whash-haar":
		return Wavelet, nil
	default:
		return 0, xerrors.Errorf("failed to parse %q: %w", s, UnknownAlgorithmError)
	}
}

type Fingerprint struct {
	Algorithm Algorithm
	Bits      uint64
}

func (f Fingerprint) String() string {
	return fmt.Sprintf("%s:%016x", f.Algorithm, f.Bits)
}

// Compute fingerprints img with the given algorithm.
func Compute(algorithm Algorithm, img image.Image) (Fingerprint, error) {
	if img.Bounds().Empty() {
		return Fingerprint{}, xerrors.Errorf("failed to hash %v: %w", img.Bounds(), EmptyImageError)
	}

	var (
		hash *goimagehash.ImageHash
		err  error
	)
	switch algorithm {
	case Average:
		hash, err = goimagehash.AverageHash(img)
	case Difference:
		hash, err = goimagehash.DifferenceHash(img)
	case Perceptual:
		hash, err = goimagehash.PerceptionHash(img)
	case Wavelet:
		return Fingerprint{Algorithm: Wavelet, Bits: waveletHash(img)}, nil
	default:
		return Fingerprint{}, xerrors.Errorf("failed to hash with %d: %w", int(algorithm), UnknownAlgorithmError)
	}
	if err != nil {
		return Fingerprint{}, xerrors.Errorf("failed to compute %s: %w", algorithm, err)
	}
	return Fingerprint{Algorithm: algorithm, Bits: hash.GetHash()}, nil
}

// Distance is the Hamming distance between two fingerprints of the same algorithm.
func Distance(a Fingerprint, b Fingerprint) (int, error) {
	if a.Algorithm != b.Algorithm {
		return 0, xerrors.Errorf("failed to compare %s with %s: %w", a.Algorithm, b.Algorithm, AlgorithmMismatchError)
	}
	return bits.OnesCount64(a.Bits ^ b.Bits), nil
}

// Percent maps a distance onto 0..100.
func Percent(distance int) float64 {
	return 100 * float64(distance) / Size
}

// Hasher binds an algorithm once so that callers cannot mix algorithms within a run.
type Hasher struct {
	algorithm Algorithm
}

func NewHasher(algorithm Algorithm) (*Hasher, error) {
	if algorithm < Average || algorithm > Wavelet {
		return nil, xerrors.Errorf("failed to create hasher: %w", UnknownAlgorithmError)
	}
	return &Hasher{algorithm: algorithm}, nil
}

func (h *Hasher) Algorithm() Algorithm {
	return h.algorithm
}

// Distance fingerprints both images and returns their Hamming distance.
func (h *Hasher) Distance(a image.Image, b image.Image) (int, error) {
	fa, err := Compute(h.algorithm, a)
	if err != nil {
		return 0, err
	}
	fb, err := Compute(h.algorithm, b)
	if err != nil {
		return 0, err
	}
	return Distance(fa, fb)
}
