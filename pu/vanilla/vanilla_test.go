package vanilla

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moratsam/quantis-extractor/matrix"
	u "github.com/moratsam/quantis-extractor/util"
)

func randomMatrix(t *testing.T, n, k int) *matrix.Matrix {
	t.Helper()
	r := rand.New(rand.NewSource(11))
	words := make([]uint64, n*k/64)
	for i := range words {
		words[i] = r.Uint64()
	}
	mat, err := matrix.New(n, k, words)
	require.NoError(t, err)
	return mat
}

func randomBytes(seed int64, n int) []byte {
	data := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(data)
	return data
}

func TestExtractMatchesSequential(t *testing.T) {
	mat := randomMatrix(t, 1024, 768)
	n_blocks := 300
	in := randomBytes(1, n_blocks*mat.BytesIn())

	want := make([]byte, n_blocks*mat.BytesOut())
	require.NoError(t, matrix.GetDataFromBuffer(mat, in, want))

	for _,workers := range []int{1, 2, 7, 64} {
		v := &VanillaPU{workers: workers}
		got := make([]byte, len(want))
		require.NoError(t, v.Extract(mat, in, got))
		assert.Equal(t, want, got, "workers=%d", workers)
	}
}

func TestExtractRejectsPartialBlocks(t *testing.T) {
	mat := randomMatrix(t, 1024, 768)
	err := NewVanillaPU().Extract(mat, make([]byte, 128), make([]byte, 95))
	assert.ErrorIs(t, err, u.ErrWrongExtractionParameters)
}

func TestStreamerKeepsOrder(t *testing.T) {
	mat := randomMatrix(t, 512, 256)
	s := NewStreamerPU()
	c_out, err := s.InitExtractor(mat)
	require.NoError(t, err)

	chunks := make([][]byte, 10)
	for i := range chunks {
		chunks[i] = randomBytes(int64(i), (i+1)*mat.BytesIn())
	}
	go func() {
		for _,chunk := range chunks {
			s.Extract(chunk)
		}
		s.Close()
	}()

	i := 0
	for out := range c_out {
		want := make([]byte, (i+1)*mat.BytesOut())
		require.NoError(t, matrix.GetDataFromBuffer(mat, chunks[i], want))
		assert.Equal(t, want, out, "chunk %d", i)
		i++
	}
	assert.Equal(t, len(chunks), i)
	assert.NoError(t, s.Err())
}

func TestStreamerReleaseAfterClose(t *testing.T) {
	mat := randomMatrix(t, 128, 64)
	s := NewStreamerPU()
	c_out, err := s.InitExtractor(mat)
	require.NoError(t, err)

	s.Extract(make([]byte, 16*mat.BytesIn()))
	s.Close()
	for range c_out {
	}
	s.Release()
	s.Release()
	assert.NoError(t, s.Err())

	NewVanillaPU().Release()
}
