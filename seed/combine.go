package seed

import (
	"github.com/cespare/xxhash/v2"
	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/moratsam/quantis-extractor/io"
	u "github.com/moratsam/quantis-extractor/util"
)

// Combine XORs the first byte_count bytes of every elementary matrix file.
// Each file must hold at least byte_count bytes.
func Combine(filepaths []string, byte_count int) ([]byte, error) {
	if len(filepaths) < 2 {
		return nil, xerrors.Errorf("%d elementary matrices: %w", len(filepaths), u.ErrNotEnoughElementaryMatrices)
	}
	if byte_count <= 0 {
		return nil, xerrors.Errorf("byte count %d: %w", byte_count, u.ErrInvalidParameter)
	}

	mat := make([]byte, byte_count)
	elementary := make([]byte, byte_count)
	for _,path := range filepaths {
		if err := readElementary(path, elementary); err != nil {
			return nil, err
		}
		u.XOR(mat, elementary)
	}
	return mat, nil
}

func readElementary(filepath string, buf []byte) error {
	f, err := io.OpenFile(filepath, u.ErrMatrixFileNotFound)
	if err != nil {
		return err
	}
	defer f.Close()

	count, err := io.ReadFull(f, buf)
	if err != nil {
		return u.WrapErr(filepath, err)
	}
	if count != len(buf) {
		return xerrors.Errorf("%s has %d of %d bytes: %w", filepath, count, len(buf), u.ErrReadSizeMismatch)
	}
	return nil
}

// CreateMatrix combines the elementary matrix files and writes the extractor matrix file.
func CreateMatrix(filepaths []string, byte_count int, out_filepath string) error {
	mat, err := Combine(filepaths, byte_count)
	if err != nil {
		return err
	}
	if err := io.WriteFile(out_filepath, mat); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"file":				out_filepath,
		"elementaries":	len(filepaths),
		"fingerprint":		xxhash.Sum64(mat),
	}).Info("wrote extractor matrix")
	return nil
}
