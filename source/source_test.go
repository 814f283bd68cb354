package source

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	u "github.com/moratsam/quantis-extractor/util"
)

// recorder remembers the size of every read it serves.
type recorder struct {
	r		*bytes.Reader
	sizes	[]int
}

func (r *recorder) Read(buf []byte) (int, error) {
	r.sizes = append(r.sizes, len(buf))
	return r.r.Read(buf)
}

type failing struct{ err error }

func (f failing) Read(buf []byte) (int, error) { return 0, f.err }

func TestDrainChunks(t *testing.T) {
	data := make([]byte, 10000)
	for i := range data {
		data[i] = byte(i)
	}
	rec := &recorder{r: bytes.NewReader(data)}
	buf := make([]byte, len(data))

	require.NoError(t, Drain(rec, buf, ChunkSize))
	assert.Equal(t, data, buf)
	assert.Equal(t, []int{4096, 4096, 1808}, rec.sizes)
}

func TestDrainShortSource(t *testing.T) {
	rec := &recorder{r: bytes.NewReader(make([]byte, 100))}
	err := Drain(rec, make([]byte, 200), ChunkSize)
	assert.ErrorIs(t, err, u.ErrReadSizeMismatch)
}

func TestReadExactPropagates(t *testing.T) {
	device_err := xerrors.New("device unplugged")
	err := ReadExact(failing{device_err}, make([]byte, 8))
	assert.ErrorIs(t, err, device_err)
	assert.Equal(t, u.CodeOther, u.Code(err))
}

func TestDevicePath(t *testing.T) {
	assert.Equal(t, "/dev/qrandom0", DevicePath(0))
	assert.Equal(t, "/dev/qrandom3", DevicePath(3))
}
