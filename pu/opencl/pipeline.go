package opencl

import (
	"context"

	"github.com/jgillich/go-opencl/cl"
	"github.com/moratsam/etherscan/pipeline"

	u "github.com/moratsam/quantis-extractor/util"
)

type pipelineConfig struct {
	dev_context		*cl.Context
	kernel 			*cl.Kernel
	queue_kernel	*cl.CommandQueue
	queue_read		*cl.CommandQueue
	queue_write		*cl.CommandQueue
}

// Single workers keep the chunks in order while the three stages overlap.
func assemblePipeline(cfg pipelineConfig) *pipeline.Pipeline {
	return pipeline.New(
		pipeline.DynamicWorkerPool(newWriter(cfg.dev_context, cfg.queue_write), 1),
		pipeline.FIFO(newKernelRunner(cfg.kernel, cfg.queue_kernel)),
		pipeline.DynamicWorkerPool(newReader(cfg.queue_read), 1),
	)
}

func (s *Streamer) runExtract(ctx context.Context) {
	defer close(s.c_out)
	defer close(s.done)
	source := &extSource{words_out: s.mat.WordsOut(), bytes_in: s.mat.BytesIn(), bytes_out: s.mat.BytesOut(), c: s.c_in}
	sink := &extSink{c: s.c_out}
	if err := s.pip.Process(ctx, source, sink); err != nil {
		s.setErr(u.WrapErr("extraction process", err))
	}
}

// Source of the extraction pipeline.
type extSource struct {
	words_out	int
	bytes_in		int
	bytes_out	int
	c 				chan []byte // Channel over which raw chunks are received.
	cur			[]byte
}
func (s *extSource) Error()	error	{ return nil }
func (s *extSource) Next(ctx context.Context) bool {
	for {
		select {
		case chunk, ok := <-s.c:
			if !ok {
				return false
			}
			if len(chunk) < s.bytes_in { // Nothing to extract.
				continue
			}
			s.cur = chunk
			return true
		case <-ctx.Done():
			return false
		}
	}
}
// The extraction source loads the current raw chunk into a payload.
func (s *extSource) Payload() pipeline.Payload {
	n_blocks := len(s.cur)/s.bytes_in

	p := payloadPool.Get().(*streamerPayload)
	p.n_blocks = n_blocks
	p.global_work_size = append(p.global_work_size[:0], s.words_out, n_blocks)
	p.host_in = s.cur[:n_blocks*s.bytes_in]
	p.host_out = make([]byte, n_blocks*s.bytes_out)
	return p
}

// Sink of the extraction pipeline.
type extSink struct { c chan []byte }
// The sink hands the extracted chunk over to the output channel.
func (s *extSink) Consume(ctx context.Context, payload pipeline.Payload) error {
	p := payload.(*streamerPayload)
	select {
	case s.c <- p.host_out:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
