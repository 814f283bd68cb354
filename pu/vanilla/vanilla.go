package vanilla

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/moratsam/quantis-extractor/matrix"
)

// Below this many blocks the work is done on the calling goroutine.
const min_parallel_blocks = 64

type VanillaPU struct {
	workers int
}

func NewVanillaPU() *VanillaPU {
	return &VanillaPU{workers: runtime.GOMAXPROCS(0)}
}

// Release does nothing, the CPU unit holds no resources.
func (v *VanillaPU) Release() {}

func (v *VanillaPU) Extract(mat *matrix.Matrix, in, out []byte) error {
	n_blocks, err := matrix.CheckBuffers(mat, in, out)
	if err != nil {
		return err
	}
	if n_blocks < min_parallel_blocks || v.workers < 2 {
		matrix.ExtractBlocks(mat, in, out, 0, n_blocks)
		return nil
	}

	// Split the blocks into one contiguous range per worker.
	per_worker := (n_blocks + v.workers - 1) / v.workers
	var g errgroup.Group
	g.SetLimit(v.workers)
	for from:=0; from<n_blocks; from+=per_worker {
		from := from
		to := from+per_worker
		if to > n_blocks {
			to = n_blocks
		}
		g.Go(func() error {
			matrix.ExtractBlocks(mat, in, out, from, to)
			return nil
		})
	}
	return g.Wait()
}
