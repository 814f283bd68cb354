package opencl

import (
	"context"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"
	"github.com/moratsam/etherscan/pipeline"

	u "github.com/moratsam/quantis-extractor/util"
)

type reader struct {
	queue *cl.CommandQueue
}

func newReader(queue *cl.CommandQueue) *reader {
	return &reader{ queue }
}

// This step in the processing pipeline copies the extracted chunk from the device to the host.
func (r *reader) Process(_ context.Context, payload pipeline.Payload) (pipeline.Payload, error) {
	p := payload.(*streamerPayload)

	ptr := unsafe.Pointer(&p.host_out[0])
	if _, err := r.queue.EnqueueReadBuffer(p.cl_buf_out, true, 0, len(p.host_out), ptr, nil); err != nil {
		return nil, u.WrapErr("enqueue cl_buf_out", err)
	}

	return p, nil
}
