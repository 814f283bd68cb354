package pu

import "github.com/moratsam/quantis-extractor/matrix"

type PU interface {
	// mat: k x n extractor matrix, in: raw blocks of n/8 bytes.
	// Fills out with len(out)/(k/8) extracted blocks.
	Extract(mat *matrix.Matrix, in, out []byte) error
	// Frees the resources held by the unit. Safe to call more than once.
	Release()
}

type StreamerPU interface {
	// Returns the channel over which extracted chunks are delivered, in input order.
	// It is closed once the stream ended, either after Close or on error.
	InitExtractor(mat *matrix.Matrix) (chan []byte, error)
	// Chunk length must be a multiple of n/8.
	Extract([]byte)
	// No more chunks will follow.
	Close()
	// Error that ended the stream early, nil otherwise.
	Err() error
	// Waits for the stream to end and frees the resources held by the unit.
	Release()
}
