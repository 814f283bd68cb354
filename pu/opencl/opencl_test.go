package opencl

import (
	"math/rand"
	"testing"

	"github.com/jgillich/go-opencl/cl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moratsam/quantis-extractor/matrix"
	u "github.com/moratsam/quantis-extractor/util"
)

func skipWithoutDevice(t *testing.T) {
	t.Helper()
	platforms, err := cl.GetPlatforms()
	if err != nil || len(platforms) == 0 {
		t.Skip("no OpenCL platform available")
	}
	devices, err := platforms[0].GetDevices(cl.DeviceTypeAll)
	if err != nil || len(devices) == 0 {
		t.Skip("no OpenCL device available")
	}
}

func testMatrix(t *testing.T) *matrix.Matrix {
	t.Helper()
	r := rand.New(rand.NewSource(5))
	words := make([]uint64, 1024*768/64)
	for i := range words {
		words[i] = r.Uint64()
	}
	mat, err := matrix.New(1024, 768, words)
	require.NoError(t, err)
	return mat
}

func TestOpenCLMatchesCPU(t *testing.T) {
	skipWithoutDevice(t)
	mat := testMatrix(t)
	pu, err := NewOpenCLPU()
	require.NoError(t, err)
	defer pu.Release()

	in := make([]byte, 50*mat.BytesIn())
	rand.New(rand.NewSource(6)).Read(in)
	want := make([]byte, 50*mat.BytesOut())
	require.NoError(t, matrix.GetDataFromBuffer(mat, in, want))

	got := make([]byte, len(want))
	require.NoError(t, pu.Extract(mat, in, got))
	assert.Equal(t, want, got)
}

func TestStreamerMatchesCPU(t *testing.T) {
	skipWithoutDevice(t)
	mat := testMatrix(t)
	s, err := NewStreamerPU()
	require.NoError(t, err)
	c_out, err := s.InitExtractor(mat)
	require.NoError(t, err)

	chunks := make([][]byte, 5)
	r := rand.New(rand.NewSource(7))
	for i := range chunks {
		chunks[i] = make([]byte, (i+1)*mat.BytesIn())
		r.Read(chunks[i])
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
		assert.Equal(t, want, out)
		i++
	}
	assert.Equal(t, len(chunks), i)
	assert.NoError(t, s.Err())
	s.Release()
	s.Release()
}

func TestReleasedPURejectsWork(t *testing.T) {
	skipWithoutDevice(t)
	mat := testMatrix(t)
	pu, err := NewOpenCLPU()
	require.NoError(t, err)

	in := make([]byte, mat.BytesIn())
	out := make([]byte, mat.BytesOut())
	require.NoError(t, pu.Extract(mat, in, out))
	pu.Release()
	pu.Release()
	assert.ErrorIs(t, pu.Extract(mat, in, out), u.ErrExtractionFailed)
}
