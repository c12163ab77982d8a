package storage

import "errors"

var (
	ErrUnreachable         = errors.New("qdrant server unreachable")
	ErrDimensionMismatch   = errors.New("embedding dimension mismatch")
	ErrVectorCountMismatch = errors.New("vector count does not match payload count")
)
