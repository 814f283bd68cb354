package matrix

import (
	"encoding/binary"

	"golang.org/x/xerrors"

	u "github.com/moratsam/quantis-extractor/util"
)

// ProcessBlock multiplies one n-bit input block by the matrix.
// in holds n/64 words, out receives k/64 words.
// Bit j of output word i is the parity of row 64*i+j AND the input.
func ProcessBlock(m *Matrix, in, out []uint64) {
	w_in := m.WordsIn()
	ix := 0
	for i:=0; i<m.WordsOut(); i++ {
		var word uint64
		for j:=0; j<WordBits; j++ {
			word |= u.Dot(m.words[ix:ix+w_in], in[:w_in]) << j
			ix += w_in
		}
		out[i] = word
	}
}

// ExtractBlocks runs the blocks [from, to) of in through the matrix, writing to out.
// Both buffers are in native byte order, as read from the device.
func ExtractBlocks(m *Matrix, in, out []byte, from, to int) {
	bytes_in, bytes_out := m.BytesIn(), m.BytesOut()
	in_words := make([]uint64, m.WordsIn())
	out_words := make([]uint64, m.WordsOut())
	for b:=from; b<to; b++ {
		block := in[b*bytes_in : (b+1)*bytes_in]
		for i := range in_words {
			in_words[i] = binary.NativeEndian.Uint64(block[8*i:])
		}
		ProcessBlock(m, in_words, out_words)
		dst := out[b*bytes_out : (b+1)*bytes_out]
		for i,w := range out_words {
			binary.NativeEndian.PutUint64(dst[8*i:], w)
		}
	}
}

// GetDataFromBuffer fills out with len(out)/(k/8) extracted blocks taken
// sequentially from in.
func GetDataFromBuffer(m *Matrix, in, out []byte) error {
	n_blocks, err := CheckBuffers(m, in, out)
	if err != nil {
		return err
	}
	ExtractBlocks(m, in, out, 0, n_blocks)
	return nil
}

// CheckBuffers verifies that out is a whole number of output blocks and that in
// holds the matching raw blocks. It returns the number of blocks.
func CheckBuffers(m *Matrix, in, out []byte) (int, error) {
	if len(out)%m.BytesOut() != 0 {
		return 0, xerrors.Errorf("output of %d bytes is not a multiple of %d: %w", len(out), m.BytesOut(), u.ErrWrongExtractionParameters)
	}
	n_blocks := len(out)/m.BytesOut()
	if len(in) < n_blocks*m.BytesIn() {
		return 0, xerrors.Errorf("%d input bytes for %d blocks: %w", len(in), n_blocks, u.ErrNotEnoughInputBytes)
	}
	return n_blocks, nil
}

// ComputeBufferSize returns, for requested output bytes, the number of bytes the
// extractor will produce (whole k-bit blocks, never less than requested) and the
// number of raw bytes it has to consume for that.
func ComputeBufferSize(n, k, requested int) (after, before int, err error) {
	if k == 0 {
		return 0, 0, u.ErrWrongExtractionParameters
	}
	n_blocks := (requested*8 + k - 1) / k
	return n_blocks * (k/8), n_blocks * (n/WordBits) * 8, nil
}

// BufferSize is ComputeBufferSize for m.
func (m *Matrix) BufferSize(requested int) (after, before int) {
	after, before, _ = ComputeBufferSize(m.n, m.k, requested)
	return after, before
}

// OutputSize is the number of bytes extracted from input_len raw bytes: every
// whole input block yields one output block, a trailing partial block is ignored.
func (m *Matrix) OutputSize(input_len int) (int, error) {
	n_blocks := input_len / m.BytesIn()
	if n_blocks < 1 {
		return 0, xerrors.Errorf("%d input bytes, block is %d: %w", input_len, m.BytesIn(), u.ErrNotEnoughInputBytes)
	}
	return n_blocks * m.BytesOut(), nil
}
