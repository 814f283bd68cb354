package opencl

import (
	"sync"

	"github.com/jgillich/go-opencl/cl"
	"github.com/moratsam/etherscan/pipeline"
)

var payloadPool = sync.Pool{ New: func() interface{} {return new(streamerPayload)} }

type streamerPayload struct {
	n_blocks				int // Number of extractor blocks in the chunk.
	global_work_size	[]int // Output words x blocks.
	host_in				[]byte // Raw chunk (copied to the device).
	host_out				[]byte // Extracted chunk (device output is copied here).
	cl_buf_in			*cl.MemObject // Device input array (kernel reads from here).
	cl_buf_out			*cl.MemObject // Device output array (kernel writes here).
}

// Doesn't really clone, cloning isn't needed.
func (p *streamerPayload) Clone() pipeline.Payload {
	return payloadPool.Get().(*streamerPayload)
}

func (p *streamerPayload) MarkAsProcessed() {
	// Clear up resources before putting the payload struct back in the pool.
	p.global_work_size = p.global_work_size[:0]
	p.host_in = nil
	p.host_out = nil
	if p.cl_buf_in != nil {
		p.cl_buf_in.Release()
		p.cl_buf_in = nil
	}
	if p.cl_buf_out != nil {
		p.cl_buf_out.Release()
		p.cl_buf_out = nil
	}
	payloadPool.Put(p)
}
