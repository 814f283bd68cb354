package extractor

import (
	"os"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/moratsam/quantis-extractor/io"
	"github.com/moratsam/quantis-extractor/matrix"
	proc_unit "github.com/moratsam/quantis-extractor/pu"
	u "github.com/moratsam/quantis-extractor/util"
)

// Number of extractor blocks read from the input file at once.
const CHUNK_BLOCKS = 1024

type fileHandle struct {
	f		*os.File
	size	int64
}

// openInput opens the raw input file and checks it holds at least one block.
func openInput(mat *matrix.Matrix, inpath string) (*fileHandle, error) {
	fsize, err := io.FileSize(inpath)
	if err != nil {
		return nil, u.WrapErr("input size", u.ErrUnableToOpenFile)
	}
	if fsize < int64(mat.BytesIn()) {
		return nil, xerrors.Errorf("input of %d bytes: %w", fsize, u.ErrNotEnoughInputBytes)
	}
	f, err := io.OpenFile(inpath, u.ErrUnableToOpenFile)
	if err != nil {
		return nil, err
	}
	return &fileHandle{f, fsize}, nil
}

// ExtractFile extracts every whole block of inpath into outpath and returns the number of bytes written.
// A trailing partial block is ignored.
func ExtractFile(pu proc_unit.PU, mat *matrix.Matrix, inpath, outpath string) (int, error) {
	in, err := openInput(mat, inpath)
	if err != nil {
		return 0, err
	}
	defer in.f.Close()

	out, err := io.CreateFile(outpath)
	if err != nil {
		return 0, err
	}
	defer out.Close() // Error paths only.

	chunk_size := int64(CHUNK_BLOCKS*mat.BytesIn())
	written := 0
	for {
		// Read chunk of input file.
		chunk, err := io.ReadFrom(in.f, chunk_size)
		if err != nil {
			return written, u.WrapErr("read input", u.ErrUnableToReadFile)
		}
		n_blocks := len(chunk)/mat.BytesIn()
		if n_blocks == 0 { // EOF
			break
		}

		// Extract chunk.
		ext := make([]byte, n_blocks*mat.BytesOut())
		if err := pu.Extract(mat, chunk[:n_blocks*mat.BytesIn()], ext); err != nil {
			return written, u.WrapErr("extract chunk", err)
		}

		// Write it to the output file.
		if err := io.WriteTo(out, ext); err != nil {
			return written, err
		}
		written += len(ext)
	}
	if err := closeOutput(out, outpath); err != nil {
		return written, err
	}
	logWritten(in.size, written, outpath)
	return written, nil
}

// StreamExtractFile does what ExtractFile does, through a streaming processing unit.
func StreamExtractFile(spu proc_unit.StreamerPU, mat *matrix.Matrix, inpath, outpath string) (int, error) {
	in, err := openInput(mat, inpath)
	if err != nil {
		return 0, err
	}
	defer in.f.Close()

	out, err := io.CreateFile(outpath)
	if err != nil {
		return 0, err
	}
	defer out.Close() // Error paths only.

	// Receive channel over which the extracted data will be sent by the streamer.
	c_data, err := spu.InitExtractor(mat)
	if err != nil {
		return 0, err
	}

	// Separate routine feeds the input file to the streamer.
	var g errgroup.Group
	g.Go(func() error {
		defer spu.Close()
		chunk_size := int64(CHUNK_BLOCKS*mat.BytesIn())
		for {
			chunk, err := io.ReadFrom(in.f, chunk_size)
			if err != nil {
				return u.WrapErr("read input", u.ErrUnableToReadFile)
			}
			n_blocks := len(chunk)/mat.BytesIn()
			if n_blocks == 0 { // EOF
				return nil
			}
			spu.Extract(chunk[:n_blocks*mat.BytesIn()])
		}
	})

	// The channel is drained to the end even after a failed write, so the streamer can finish.
	written := 0
	var write_err error
	for ext := range c_data {
		if write_err != nil {
			continue
		}
		if write_err = io.WriteTo(out, ext); write_err == nil {
			written += len(ext)
		}
	}

	if err := g.Wait(); err != nil {
		return written, err
	}
	if write_err != nil {
		return written, write_err
	}
	if err := spu.Err(); err != nil {
		return written, u.WrapErr("streamer", err)
	}
	if err := closeOutput(out, outpath); err != nil {
		return written, err
	}
	logWritten(in.size, written, outpath)
	return written, nil
}

// closeOutput closes the output file; the deferred Close then only returns os.ErrClosed.
func closeOutput(f *os.File, outpath string) error {
	if err := f.Close(); err != nil {
		return u.WrapErr(outpath, u.ErrUnableToWriteFile)
	}
	return nil
}

func logWritten(in_size int64, written int, outpath string) {
	log.WithFields(log.Fields{
		"in":		humanize.Bytes(uint64(in_size)),
		"out":	humanize.Bytes(uint64(written)),
		"file":	outpath,
	}).Debug("extracted file")
}
