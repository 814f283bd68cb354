package opencl

import (
	"sync"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"
	"golang.org/x/xerrors"

	"github.com/moratsam/quantis-extractor/matrix"
	u "github.com/moratsam/quantis-extractor/util"
)

// OpenCLPU extracts one buffer at a time. The kernel and the device copy of the
// matrix are built on first use and rebuilt only when a different matrix comes in.
type OpenCLPU struct {
	mu			sync.Mutex
	context	*cl.Context
	queue		*cl.CommandQueue

	mat		*matrix.Matrix
	kernel	*cl.Kernel
	buf_mat	*cl.MemObject
}

func NewOpenCLPU() (*OpenCLPU, error) {
	device, context, err := firstDevice()
	if err != nil {
		return nil, err
	}
	queue, err := context.CreateCommandQueue(device, 0)
	if err != nil {
		return nil, u.WrapErr("create command queue", err)
	}
	return &OpenCLPU{context: context, queue: queue}, nil
}

func (c *OpenCLPU) Extract(mat *matrix.Matrix, in, out []byte) error {
	n_blocks, err := matrix.CheckBuffers(mat, in, out)
	if err != nil {
		return err
	}
	if n_blocks == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.context == nil {
		return xerrors.Errorf("processing unit released: %w", u.ErrExtractionFailed)
	}
	if err := c.useMatrix(mat); err != nil {
		return err
	}

	buf_in, err := enqueueArr(in[:n_blocks*mat.BytesIn()], c.context, c.queue)
	if err != nil {
		return u.WrapErr("enqueue input", err)
	}
	defer buf_in.Release()

	buf_out, err := c.context.CreateEmptyBuffer(cl.MemWriteOnly, len(out))
	if err != nil {
		return u.WrapErr("create output buffer", err)
	}
	defer buf_out.Release()

	// Set kernel args.
	if err := c.kernel.SetArgs(c.buf_mat, buf_in, buf_out); err != nil {
		return u.WrapErr("set args", err)
	}

	// Enqueue kernel.
	if _, err := c.queue.EnqueueNDRangeKernel(c.kernel, nil, []int{mat.WordsOut(), n_blocks}, nil, nil); err != nil {
		return u.WrapErr("enqueue kernel", err)
	}

	// Block until queue is finished.
	if err := c.queue.Finish(); err != nil {
		return u.WrapErr("waiting to finish kernel", err)
	}

	// Copy data from OpenCL's output buffer to the go output array.
	ptr := unsafe.Pointer(&out[0])
	if _, err := c.queue.EnqueueReadBuffer(buf_out, true, 0, len(out), ptr, nil); err != nil {
		return u.WrapErr("reading data from buffer", err)
	}
	return nil
}

func (c *OpenCLPU) useMatrix(mat *matrix.Matrix) error {
	if c.mat == mat {
		return nil
	}
	kernel, err := createKernel(c.context, mat)
	if err != nil {
		return u.WrapErr("create kernel", err)
	}
	buf_mat, err := enqueueArr(mat.Bytes(), c.context, c.queue)
	if err != nil {
		kernel.Release()
		return u.WrapErr("enqueue mat", err)
	}
	if c.kernel != nil {
		c.kernel.Release()
		c.buf_mat.Release()
	}
	c.mat, c.kernel, c.buf_mat = mat, kernel, buf_mat
	return nil
}

// Release frees the device resources. Later calls do nothing.
func (c *OpenCLPU) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kernel != nil {
		c.kernel.Release()
		c.buf_mat.Release()
		c.kernel, c.buf_mat, c.mat = nil, nil, nil
	}
	if c.queue != nil {
		c.queue.Release()
		c.queue = nil
	}
	if c.context != nil {
		c.context.Release()
		c.context = nil
	}
}
