// Package source deals with raw, unprocessed random bytes: the Quantis
// character device or anything else that can be read from.
package source

import (
	"io"

	"golang.org/x/xerrors"

	u "github.com/moratsam/quantis-extractor/util"
)

// ChunkSize bounds a single read call when draining a source.
const ChunkSize = 4096

// Source provides raw bytes. A read either fills buf or fails; a short count
// without an error is treated as ErrReadSizeMismatch.
type Source interface {
	Read(buf []byte) (int, error)
}

// ReadExact issues a single read for len(buf) bytes.
func ReadExact(src Source, buf []byte) error {
	count, err := src.Read(buf)
	if err != nil && !(err == io.EOF && count == len(buf)) {
		return u.WrapErr("raw read", err)
	}
	if count != len(buf) {
		return xerrors.Errorf("read %d of %d bytes: %w", count, len(buf), u.ErrReadSizeMismatch)
	}
	return nil
}

// Drain fills buf with reads of at most chunk_size bytes each.
func Drain(src Source, buf []byte, chunk_size int) error {
	if chunk_size <= 0 {
		chunk_size = ChunkSize
	}
	for off:=0; off<len(buf); off+=chunk_size {
		end := off+chunk_size
		if end > len(buf) {
			end = len(buf)
		}
		if err := ReadExact(src, buf[off:end]); err != nil {
			return err
		}
	}
	return nil
}
