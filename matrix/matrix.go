// Package matrix holds the extractor matrix: a k x n bit matrix over GF(2)
// that maps n raw input bits onto k extracted output bits.
//
// Rows are stored packed into uint64 words, row major, n/64 words per row.
// A matrix is immutable once built and may be shared between goroutines.
package matrix

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/xerrors"

	u "github.com/moratsam/quantis-extractor/util"
)

const WordBits = 64

type Matrix struct {
	n		int // Number of input bits (columns).
	k		int // Number of output bits (rows).
	words	[]uint64 // k rows of n/64 words.
}

// CheckDims validates the extractor parameters: both sizes multiples of 64 and n > k.
func CheckDims(n, k int) error {
	if n <= k || k <= 0 || n%WordBits != 0 || k%WordBits != 0 {
		return xerrors.Errorf("n=%d k=%d: %w", n, k, u.ErrWrongExtractionParameters)
	}
	return nil
}

// New wraps words as an n-input, k-output matrix. words must hold at least n*k/64 elements,
// the surplus is ignored.
func New(n, k int, words []uint64) (*Matrix, error) {
	if err := CheckDims(n, k); err != nil {
		return nil, err
	}
	if len(words) < n*k/WordBits {
		return nil, xerrors.Errorf("%d words for %dx%d: %w", len(words), k, n, u.ErrMatrixFileTooSmall)
	}
	mat := make([]uint64, n*k/WordBits)
	copy(mat, words)
	return &Matrix{n: n, k: k, words: mat}, nil
}

// FromBytes decodes native byte order words, the layout of matrix files.
func FromBytes(n, k int, data []byte) (*Matrix, error) {
	if err := CheckDims(n, k); err != nil {
		return nil, err
	}
	n_words := n*k/WordBits
	if len(data) < 8*n_words {
		return nil, xerrors.Errorf("%d bytes for %dx%d: %w", len(data), k, n, u.ErrMatrixFileTooSmall)
	}
	words := make([]uint64, n_words)
	for i := range words {
		words[i] = binary.NativeEndian.Uint64(data[8*i:])
	}
	return &Matrix{n: n, k: k, words: words}, nil
}

func (m *Matrix) In() int { return m.n }
func (m *Matrix) Out() int { return m.k }

// BytesIn is the size of one raw input block.
func (m *Matrix) BytesIn() int { return m.n/8 }

// BytesOut is the size of one extracted output block.
func (m *Matrix) BytesOut() int { return m.k/8 }

func (m *Matrix) WordsIn() int { return m.n/WordBits }
func (m *Matrix) WordsOut() int { return m.k/WordBits }

// Row returns output row r as n/64 words. The slice aliases the matrix and must not be modified.
func (m *Matrix) Row(r int) []uint64 {
	w := m.WordsIn()
	return m.words[r*w : (r+1)*w]
}

// Words returns the packed matrix. The slice aliases the matrix and must not be modified.
func (m *Matrix) Words() []uint64 {
	return m.words
}

// Bytes encodes the matrix in native byte order.
func (m *Matrix) Bytes() []byte {
	data := make([]byte, 8*len(m.words))
	for i,w := range m.words {
		binary.NativeEndian.PutUint64(data[8*i:], w)
	}
	return data
}

// Fingerprint identifies the matrix content. Matrix files carry no checksum,
// so this is what gets logged to tell matrices apart.
func (m *Matrix) Fingerprint() uint64 {
	return xxhash.Sum64(m.Bytes())
}
