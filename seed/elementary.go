// Package seed builds extractor matrices from device entropy.
//
// An elementary matrix is the output of one sampling run: raw bytes are
// under-sampled, de-biased with von Neumann and accumulated until a whole
// n*k bit matrix is filled. Several elementary matrices, ideally produced by
// different devices, are then XOR-ed into the final extractor matrix, which
// stays unpredictable unless every contributing source is.
package seed

import (
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/moratsam/quantis-extractor/io"
	"github.com/moratsam/quantis-extractor/matrix"
	"github.com/moratsam/quantis-extractor/source"
	u "github.com/moratsam/quantis-extractor/util"
)

// RawChunkSize is the number of raw bytes read per sampling round.
const RawChunkSize = 32768

// A round needs 16 samples (8 bit pairs) to have a chance at one debiased byte.
const min_round_samples = 16

// Elementary fills an n*k/8 byte elementary matrix from src.
func Elementary(src source.Source, n, k, period int) ([]byte, error) {
	if err := matrix.CheckDims(n, k); err != nil {
		return nil, err
	}
	if period <= 0 || RawChunkSize/period < min_round_samples {
		return nil, xerrors.Errorf("under-sampling period %d: %w", period, u.ErrInvalidParameter)
	}

	mat := make([]byte, n*k/8)
	processed := 0
	for round:=0; processed < len(mat); round++ {
		sampled, err := UnderSamplingRead(src, RawChunkSize, period)
		if err != nil {
			return nil, u.WrapErr("under-sampling read", err)
		}
		debiased := VonNeumann(sampled)
		if len(debiased) == 0 {
			// A working device never yields a constant bit stream.
			return nil, xerrors.Errorf("round %d produced no debiased bytes: %w", round, u.ErrSeedCreationFailure)
		}
		// Copy truncates whatever overshoots the matrix.
		processed += copy(mat[processed:], debiased)

		log.WithFields(log.Fields{
			"round":		round,
			"processed":	humanize.Bytes(uint64(processed)),
			"target":		humanize.Bytes(uint64(len(mat))),
		}).Trace("elementary matrix progress")
	}
	return mat, nil
}

// CreateElementary builds an elementary matrix from src and writes it to filepath.
func CreateElementary(src source.Source, n, k, period int, filepath string) error {
	mat, err := Elementary(src, n, k, period)
	if err != nil {
		return err
	}
	if err := io.WriteFile(filepath, mat); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"file":	filepath,
		"size":	humanize.Bytes(uint64(len(mat))),
	}).Info("wrote elementary matrix")
	return nil
}
