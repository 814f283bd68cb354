package opencl

import (
	"context"
	"sync"

	"github.com/jgillich/go-opencl/cl"
	"github.com/moratsam/etherscan/pipeline"
	log "github.com/sirupsen/logrus"

	"github.com/moratsam/quantis-extractor/matrix"
	u "github.com/moratsam/quantis-extractor/util"
)

type Streamer struct {
	device			*cl.Device
	context			*cl.Context
	queue_kernel	*cl.CommandQueue // Queue over which kernel commands are sent.
	queue_read		*cl.CommandQueue // Queue over which read commands are sent.
	queue_write		*cl.CommandQueue // Queue over which write commands are sent.
	kernel 			*cl.Kernel
	cl_buf_mat		*cl.MemObject

	mat	*matrix.Matrix
	pip	*pipeline.Pipeline

	c_in	chan []byte // Raw chunks.
	c_out	chan []byte // Extracted chunks.
	done	chan struct{} // Closed once the pipeline stopped.

	mu			sync.Mutex
	err		error
	closed	bool
}

func NewStreamerPU() (*Streamer, error) {
	device, context, err := firstDevice()
	if err != nil {
		return nil, err
	}
	return &Streamer{ context: context, device: device }, nil
}

func (s *Streamer) InitExtractor(mat *matrix.Matrix) (chan []byte, error) {
	if err := s.init(mat); err != nil {
		return nil, u.WrapErr("init extractor", err)
	}
	go s.runExtract(context.Background()) // Spawn extractor routine.
	return s.c_out, nil // Return channel over which the extracted data will be returned.
}

// Extract queues a raw chunk. It returns immediately if the pipeline already stopped.
func (s *Streamer) Extract(chunk []byte) {
	select {
	case s.c_in <- chunk:
	case <-s.done:
	}
}

func (s *Streamer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		close(s.c_in)
		s.closed = true
	}
}

func (s *Streamer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Release waits for a running stream to end, then frees the device resources.
func (s *Streamer) Release() {
	if s.done != nil {
		<-s.done
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _,queue := range []*cl.CommandQueue{s.queue_kernel, s.queue_read, s.queue_write} {
		if queue != nil {
			queue.Release()
		}
	}
	s.queue_kernel, s.queue_read, s.queue_write = nil, nil, nil
	if s.kernel != nil {
		s.kernel.Release()
		s.kernel = nil
	}
	if s.cl_buf_mat != nil {
		s.cl_buf_mat.Release()
		s.cl_buf_mat = nil
	}
	if s.context != nil {
		s.context.Release()
		s.context = nil
	}
}

func (s *Streamer) setErr(err error) {
	log.WithError(err).Error("OpenCL extraction pipeline stopped")
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *Streamer) init(mat *matrix.Matrix) error {
	// Create kernel.
	kernel, err := createKernel(s.context, mat)
	if err != nil {
		return u.WrapErr("create kernel", err)
	}
	s.kernel = kernel

	// Create queues.
	queue_kernel, err := s.context.CreateCommandQueue(s.device, 0)
	if err != nil {
		return u.WrapErr("create proc command queue", err)
	}
	s.queue_kernel = queue_kernel
	queue_read, err := s.context.CreateCommandQueue(s.device, 0)
	if err != nil {
		return u.WrapErr("create read command queue", err)
	}
	s.queue_read = queue_read
	queue_write, err := s.context.CreateCommandQueue(s.device, 0)
	if err != nil {
		return u.WrapErr("create write command queue", err)
	}
	s.queue_write = queue_write

	// Enqueue & set the constant kernel arg (matrix).
	buf_mat, err := enqueueArr(mat.Bytes(), s.context, s.queue_write)
	if err != nil {
		return u.WrapErr("enqueue mat", err)
	}
	if err := kernel.SetArg(0, buf_mat); err != nil {
		return u.WrapErr("set arg mat", err)
	}
	s.cl_buf_mat = buf_mat
	s.mat = mat

	// Assemble pipeline.
	pipeline_cfg := pipelineConfig{
		dev_context:	s.context,
		kernel: 			s.kernel,
		queue_kernel:	s.queue_kernel,
		queue_read:		s.queue_read,
		queue_write:	s.queue_write,
	}
	s.pip = assemblePipeline(pipeline_cfg)

	// Create in&out chans.
	s.c_in = make(chan []byte, streamer_depth)
	s.c_out = make(chan []byte, streamer_depth)
	s.done = make(chan struct{})
	s.closed = false
	s.err = nil

	return nil
}
