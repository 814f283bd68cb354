package matrix

import (
	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/moratsam/quantis-extractor/io"
	u "github.com/moratsam/quantis-extractor/util"
)

// Load reads an n-input, k-output matrix from a matrix file: exactly n*k/64
// native byte order words, no header. Extra trailing bytes are ignored.
func Load(filepath string, n, k int) (*Matrix, error) {
	if err := CheckDims(n, k); err != nil {
		return nil, err
	}
	f, err := io.OpenFile(filepath, u.ErrMatrixFileNotFound)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data := make([]byte, n*k/8)
	count, err := io.ReadFull(f, data)
	if err != nil {
		return nil, u.WrapErr(filepath, err)
	}
	if count != len(data) {
		return nil, xerrors.Errorf("%s has %d of %d bytes: %w", filepath, count, len(data), u.ErrMatrixFileTooSmall)
	}

	mat, err := FromBytes(n, k, data)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"file":			filepath,
		"n":				n,
		"k":				k,
		"fingerprint":	mat.Fingerprint(),
	}).Debug("loaded extractor matrix")
	return mat, nil
}

// Save writes the matrix file.
func (m *Matrix) Save(filepath string) error {
	return io.WriteFile(filepath, m.Bytes())
}
