package opencl

import (
	"context"

	"github.com/jgillich/go-opencl/cl"
	"github.com/moratsam/etherscan/pipeline"

	u "github.com/moratsam/quantis-extractor/util"
)

type kernelRunner struct {
	kernel 	*cl.Kernel
	queue		*cl.CommandQueue
}

func newKernelRunner(kernel *cl.Kernel, queue *cl.CommandQueue) *kernelRunner {
	return &kernelRunner{kernel, queue }
}

func (k *kernelRunner) Process(_ context.Context, payload pipeline.Payload) (pipeline.Payload, error) {
	p := payload.(*streamerPayload)

	// Set kernel args, the matrix (arg 0) is set once when the streamer is initialised.
	if err := k.kernel.SetArg(1, p.cl_buf_in); err != nil {
		return nil, u.WrapErr("set args cl_buf_in", err)
	}
	if err := k.kernel.SetArg(2, p.cl_buf_out); err != nil {
		return nil, u.WrapErr("set args cl_buf_out", err)
	}

	// Enqueue kernel.
	if _, err := k.queue.EnqueueNDRangeKernel(k.kernel, nil, p.global_work_size, nil, nil); err != nil {
		return nil, u.WrapErr("enqueue kernel", err)
	}

	// Block until queue is finished.
	if err := k.queue.Finish(); err != nil {
		return nil, u.WrapErr("kernel finish", err)
	}

	return p, nil
}
