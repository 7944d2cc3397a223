package image

import (
	"errors"

	"regiondiff/internal/phash"
)

var (
	SizeMismatchError     = errors.New("images differ in size")
	InvalidThresholdError = errors.New("invalid threshold")
	InvalidTileEdgeError  = errors.New("invalid tile edge")

	AlgorithmMismatchError = phash.AlgorithmMismatchError
)
