package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	u "github.com/moratsam/quantis-extractor/util"
)

func TestScalarRanges(t *testing.T) {
	e := New(nil, testMatrix(t, 1024, 768))
	e.EnableStorage(OverflowDrop)
	src := newCountingSource(11)

	for i := 0; i < 200; i++ {
		d, err := e.ReadDouble01(src)
		require.NoError(t, err)
		assert.True(t, d >= 0 && d < 1, "double %v", d)

		f, err := e.ReadFloat01(src)
		require.NoError(t, err)
		assert.True(t, f >= 0 && f < 1, "float %v", f)

		sd, err := e.ReadScaledDouble(src, -3, 7)
		require.NoError(t, err)
		assert.True(t, sd >= -3 && sd < 7, "scaled double %v", sd)

		sf, err := e.ReadScaledFloat(src, 10, 11)
		require.NoError(t, err)
		assert.True(t, sf >= 10 && sf <= 11, "scaled float %v", sf)

		si, err := e.ReadScaledInt(src, -5, 5)
		require.NoError(t, err)
		assert.True(t, si >= -5 && si <= 5, "scaled int %v", si)

		ss, err := e.ReadScaledShort(src, 100, 102)
		require.NoError(t, err)
		assert.True(t, ss >= 100 && ss <= 102, "scaled short %v", ss)
	}
}

func TestScaledIntFullRange(t *testing.T) {
	e := New(nil, testMatrix(t, 1024, 768))
	e.EnableStorage(OverflowDrop)
	src := newCountingSource(12)

	_, err := e.ReadScaledInt(src, -1<<31, 1<<31-1)
	require.NoError(t, err)
	_, err = e.ReadScaledShort(src, -1<<15, 1<<15-1)
	require.NoError(t, err)

	v, err := e.ReadScaledInt(src, 42, 42)
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)
}

func TestScaledCoversRange(t *testing.T) {
	e := New(nil, testMatrix(t, 1024, 768))
	e.EnableStorage(OverflowDrop)
	src := newCountingSource(13)

	seen := make(map[int16]bool)
	for i := 0; i < 500; i++ {
		v, err := e.ReadScaledShort(src, 0, 3)
		require.NoError(t, err)
		seen[v] = true
	}
	assert.Len(t, seen, 4)
}

func TestScalarInvalidRange(t *testing.T) {
	e := New(nil, testMatrix(t, 1024, 768))
	src := newCountingSource(14)

	_, err := e.ReadScaledDouble(src, 2, 1)
	assert.ErrorIs(t, err, u.ErrInvalidParameter)
	_, err = e.ReadScaledFloat(src, 2, 1)
	assert.ErrorIs(t, err, u.ErrInvalidParameter)
	_, err = e.ReadScaledInt(src, 2, 1)
	assert.ErrorIs(t, err, u.ErrInvalidParameter)
	_, err = e.ReadScaledShort(src, 2, 1)
	assert.ErrorIs(t, err, u.ErrInvalidParameter)
	assert.Zero(t, src.reads)
}
