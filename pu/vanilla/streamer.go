package vanilla

import (
	"context"
	"sync"

	"github.com/moratsam/etherscan/pipeline"
	log "github.com/sirupsen/logrus"

	"github.com/moratsam/quantis-extractor/matrix"
	u "github.com/moratsam/quantis-extractor/util"
)

// Streamer runs extraction as a single FIFO stage of a pipeline, so chunks come out
// in the order they went in while reading and writing overlap with extraction.
type Streamer struct {
	pu		*VanillaPU
	mat	*matrix.Matrix
	pip	*pipeline.Pipeline

	c_in	chan []byte // Raw chunks.
	c_out	chan []byte // Extracted chunks.
	done	chan struct{} // Closed once the pipeline stopped.

	mu		sync.Mutex
	err	error
	closed	bool
}

func NewStreamerPU() *Streamer {
	return &Streamer{pu: NewVanillaPU()}
}

func (s *Streamer) InitExtractor(mat *matrix.Matrix) (chan []byte, error) {
	s.mat = mat
	s.pip = pipeline.New(pipeline.FIFO(&extractStage{pu: s.pu, mat: mat}))
	s.c_in = make(chan []byte, 1)
	s.c_out = make(chan []byte, 1)
	s.done = make(chan struct{})
	s.closed = false
	s.err = nil

	go s.run(context.Background())
	return s.c_out, nil
}

func (s *Streamer) run(ctx context.Context) {
	defer close(s.c_out)
	defer close(s.done)
	if err := s.pip.Process(ctx, &chunkSource{c: s.c_in}, &chunkSink{c: s.c_out}); err != nil {
		log.WithError(err).Error("vanilla extraction pipeline stopped")
		s.mu.Lock()
		s.err = u.WrapErr("extraction pipeline", err)
		s.mu.Unlock()
	}
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

// Release waits for a running stream to end.
func (s *Streamer) Release() {
	if s.done != nil {
		<-s.done
	}
}

// Err returns the error that stopped the pipeline, if any.
func (s *Streamer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

type chunkPayload struct {
	in		[]byte
	out	[]byte
}

func (p *chunkPayload) Clone() pipeline.Payload {
	return &chunkPayload{
		in:	append([]byte(nil), p.in...),
		out:	append([]byte(nil), p.out...),
	}
}

// Buffers are handed over to the consumer, nothing to release.
func (p *chunkPayload) MarkAsProcessed() {}

type extractStage struct {
	pu		*VanillaPU
	mat	*matrix.Matrix
}

func (e *extractStage) Process(_ context.Context, payload pipeline.Payload) (pipeline.Payload, error) {
	p := payload.(*chunkPayload)
	p.out = make([]byte, len(p.in)/e.mat.BytesIn()*e.mat.BytesOut())
	if err := e.pu.Extract(e.mat, p.in, p.out); err != nil {
		return nil, err
	}
	return p, nil
}

// Source of the extraction pipeline.
type chunkSource struct {
	c		chan []byte
	cur	[]byte
}

func (s *chunkSource) Error() error { return nil }

func (s *chunkSource) Next(ctx context.Context) bool {
	select {
	case chunk, ok := <-s.c:
		s.cur = chunk
		return ok
	case <-ctx.Done():
		return false
	}
}

func (s *chunkSource) Payload() pipeline.Payload {
	return &chunkPayload{in: s.cur}
}

// Sink of the extraction pipeline.
type chunkSink struct{ c chan []byte }

func (s *chunkSink) Consume(ctx context.Context, payload pipeline.Payload) error {
	select {
	case s.c <- payload.(*chunkPayload).out:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
