package extractor

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/moratsam/quantis-extractor/matrix"
	"github.com/moratsam/quantis-extractor/pu/vanilla"
	u "github.com/moratsam/quantis-extractor/util"
)

// countingSource yields a deterministic byte stream and counts read calls.
type countingSource struct {
	r			*rand.Rand
	reads		int
	bytes		int
	max_read	int
}

func newCountingSource(seed int64) *countingSource {
	return &countingSource{r: rand.New(rand.NewSource(seed))}
}

func (s *countingSource) Read(buf []byte) (int, error) {
	s.reads++
	s.bytes += len(buf)
	if len(buf) > s.max_read {
		s.max_read = len(buf)
	}
	return s.r.Read(buf)
}

// releaseCounter is a CPU unit that counts Release calls.
type releaseCounter struct {
	*vanilla.VanillaPU
	released int
}

func (r *releaseCounter) Release() { r.released++ }

type failingSource struct{}

var errBroken = xerrors.New("device unplugged")

func (failingSource) Read(buf []byte) (int, error) { return 0, errBroken }

func testMatrix(t *testing.T, n, k int) *matrix.Matrix {
	t.Helper()
	r := rand.New(rand.NewSource(int64(n*k)))
	words := make([]uint64, n*k/64)
	for i := range words {
		words[i] = r.Uint64()
	}
	mat, err := matrix.New(n, k, words)
	require.NoError(t, err)
	return mat
}

// expected extracts what a fresh source with the same seed yields for raw_len bytes.
func expected(t *testing.T, mat *matrix.Matrix, seed int64, raw_len int) []byte {
	t.Helper()
	raw := make([]byte, raw_len)
	rand.New(rand.NewSource(seed)).Read(raw)
	out := make([]byte, raw_len/mat.BytesIn()*mat.BytesOut())
	require.NoError(t, matrix.GetDataFromBuffer(mat, raw, out))
	return out
}

func TestPartialRequestServedFromStorage(t *testing.T) {
	mat := testMatrix(t, 1024, 768)
	e := New(nil, mat)
	e.EnableStorage(OverflowDrop)
	src := newCountingSource(1)

	first, err := e.GetData(src, 5)
	require.NoError(t, err)
	assert.Len(t, first, 5)
	assert.Equal(t, 128, src.bytes)
	size, err := e.StorageSize()
	require.NoError(t, err)
	assert.Equal(t, 91, size)

	reads := src.reads
	second, err := e.GetData(src, 91)
	require.NoError(t, err)
	assert.Len(t, second, 91)
	assert.Equal(t, reads, src.reads, "second request must not touch the source")

	size, err = e.StorageSize()
	require.NoError(t, err)
	assert.Zero(t, size)
	assert.Equal(t, expected(t, mat, 1, 128), append(first, second...))
}

func TestGetDataHeldLessThanRequested(t *testing.T) {
	mat := testMatrix(t, 1024, 768)
	e := New(nil, mat)
	e.EnableStorage(OverflowDrop)
	src := newCountingSource(2)

	a, err := e.GetData(src, 90) // 6 bytes left in storage.
	require.NoError(t, err)
	b, err := e.GetData(src, 100) // 6 from storage, 94 from one new block.
	require.NoError(t, err)
	assert.Len(t, b, 100)
	assert.Equal(t, 2*128, src.bytes)

	size, err := e.StorageSize()
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	rest, err := e.GetData(src, size)
	require.NoError(t, err)
	all := append(append(a, b...), rest...)
	assert.Equal(t, expected(t, mat, 2, 2*128), all)
}

func TestFailedGetDataKeepsStorage(t *testing.T) {
	mat := testMatrix(t, 1024, 768)
	e := New(nil, mat)
	e.EnableStorage(OverflowDrop)
	src := newCountingSource(8)

	a, err := e.GetData(src, 90)
	require.NoError(t, err)
	size, _ := e.StorageSize()
	require.Equal(t, 6, size)

	_, err = e.GetData(failingSource{}, 100)
	assert.ErrorIs(t, err, errBroken)
	size, err = e.StorageSize()
	require.NoError(t, err)
	assert.Equal(t, 6, size, "held bytes survive a failed read")

	// The kept bytes are the ones that follow the first request.
	b, err := e.GetData(src, 6)
	require.NoError(t, err)
	assert.Equal(t, expected(t, mat, 8, 128), append(a, b...))
}

func TestGetDataWithoutStorageDiscardsSurplus(t *testing.T) {
	mat := testMatrix(t, 1024, 768)
	e := New(nil, mat)
	src := newCountingSource(3)

	for i := 0; i < 3; i++ {
		out, err := e.GetData(src, 5)
		require.NoError(t, err)
		assert.Len(t, out, 5)
	}
	assert.Equal(t, 3*128, src.bytes)
	_, err := e.StorageSize()
	assert.ErrorIs(t, err, u.ErrStorageBufferDisabled)
}

func TestGetDataChunksRawReads(t *testing.T) {
	mat := testMatrix(t, 1024, 768)
	e := New(nil, mat)
	src := newCountingSource(4)

	out, err := e.GetData(src, 96*100)
	require.NoError(t, err)
	assert.Len(t, out, 96*100)
	assert.Equal(t, 128*100, src.bytes)
	assert.LessOrEqual(t, src.max_read, 4096)
	assert.Equal(t, expected(t, mat, 4, 128*100), out)
}

func TestGetDataEdgeCases(t *testing.T) {
	mat := testMatrix(t, 1024, 768)
	e := New(nil, mat)
	e.EnableStorage(OverflowDrop)

	out, err := e.GetData(newCountingSource(5), 0)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = e.GetData(newCountingSource(5), -1)
	assert.ErrorIs(t, err, u.ErrInvalidParameter)

	_, err = e.GetData(failingSource{}, 10)
	assert.ErrorIs(t, err, errBroken)
}

func TestStorageControl(t *testing.T) {
	mat := testMatrix(t, 1024, 768)
	e := New(nil, mat)
	assert.False(t, e.StorageEnabled())
	assert.ErrorIs(t, e.ClearStorage(), u.ErrStorageBufferDisabled)

	e.EnableStorage(OverflowError)
	assert.True(t, e.StorageEnabled())
	_, err := e.GetData(newCountingSource(6), 1)
	require.NoError(t, err)
	size, _ := e.StorageSize()
	assert.Equal(t, 95, size)

	require.NoError(t, e.ClearStorage())
	size, _ = e.StorageSize()
	assert.Zero(t, size)

	n, err := e.SetStorage([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	out, err := e.GetData(failingSource{}, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, out)

	e.DisableStorage()
	assert.False(t, e.StorageEnabled())
}

func TestExtractFile(t *testing.T) {
	mat := testMatrix(t, 1024, 768)
	dir := t.TempDir()
	inpath := filepath.Join(dir, "raw")
	raw := make([]byte, 128*2500+17) // Spans several chunks, with a partial block at the end.
	rand.New(rand.NewSource(7)).Read(raw)
	require.NoError(t, os.WriteFile(inpath, raw, 0644))
	want := expected(t, mat, 7, 128*2500)

	t.Run("vanilla", func(t *testing.T) {
		outpath := filepath.Join(dir, "vanilla.out")
		n, err := ExtractFile(vanilla.NewVanillaPU(), mat, inpath, outpath)
		require.NoError(t, err)
		assert.Equal(t, len(want), n)
		got, err := os.ReadFile(outpath)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("streamer", func(t *testing.T) {
		outpath := filepath.Join(dir, "streamer.out")
		n, err := StreamExtractFile(vanilla.NewStreamerPU(), mat, inpath, outpath)
		require.NoError(t, err)
		assert.Equal(t, len(want), n)
		got, err := os.ReadFile(outpath)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}

func TestExtractFileTooSmall(t *testing.T) {
	mat := testMatrix(t, 1024, 768)
	dir := t.TempDir()
	inpath := filepath.Join(dir, "raw")
	require.NoError(t, os.WriteFile(inpath, make([]byte, 127), 0644))

	_, err := ExtractFile(vanilla.NewVanillaPU(), mat, inpath, filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, u.ErrNotEnoughInputBytes)
	_, err = StreamExtractFile(vanilla.NewStreamerPU(), mat, inpath, filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, u.ErrNotEnoughInputBytes)
	assert.Equal(t, u.CodeNotEnoughInputBytes, u.Code(err))
}

func TestExtractFileWriteFailure(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	mat := testMatrix(t, 1024, 768)
	inpath := filepath.Join(t.TempDir(), "raw")
	raw := make([]byte, 128*100)
	rand.New(rand.NewSource(9)).Read(raw)
	require.NoError(t, os.WriteFile(inpath, raw, 0644))

	_, err := ExtractFile(vanilla.NewVanillaPU(), mat, inpath, "/dev/full")
	assert.ErrorIs(t, err, u.ErrUnableToWriteFile)
	_, err = StreamExtractFile(vanilla.NewStreamerPU(), mat, inpath, "/dev/full")
	assert.ErrorIs(t, err, u.ErrUnableToWriteFile)
}

func TestCloseOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, closeOutput(f, path))

	// A second close fails and is reported as a write failure.
	err = closeOutput(f, path)
	assert.ErrorIs(t, err, u.ErrUnableToWriteFile)
}

func TestReleaseFreesProcessingUnit(t *testing.T) {
	pu := &releaseCounter{VanillaPU: vanilla.NewVanillaPU()}
	e := New(pu, testMatrix(t, 1024, 768))
	out, err := e.GetData(newCountingSource(10), 16)
	require.NoError(t, err)
	assert.Len(t, out, 16)

	e.Release()
	assert.Equal(t, 1, pu.released)
}
