package io

import (
	"errors"
	"io"
	"io/fs"
	"os"

	u "github.com/moratsam/quantis-extractor/util"
)

func CreateFile(filepath string) (*os.File, error) {
	f, err := os.Create(filepath)
	if err != nil {
		return nil, u.WrapErr(filepath, u.ErrUnableToOpenFile)
	}
	return f, nil
}

// OpenFile opens filepath for reading. A missing file is reported as notFound,
// every other failure as ErrUnableToOpenFile.
func OpenFile(filepath string, notFound error) (*os.File, error) {
	f, err := os.Open(filepath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, u.WrapErr(filepath, notFound)
		}
		return nil, u.WrapErr(filepath, u.ErrUnableToOpenFile)
	}
	return f, nil
}

func FileSize(filepath string) (int64, error) {
	fi, err := os.Stat(filepath)
	if err != nil {
		return 0, u.WrapErr("get stat", err)
	}
	return fi.Size(), nil
}

// ReadFrom reads up to chunk_size bytes. An empty chunk means EOF.
func ReadFrom(f io.Reader, chunk_size int64) ([]byte, error) {
	chunk := make([]byte, chunk_size)
	count, err := io.ReadFull(f, chunk)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return chunk[:count], nil
		}
		return nil, u.WrapErr("read", err)
	}
	return chunk[:count], nil
}

// ReadFull fills buf from f. It returns the number of bytes read, which is
// smaller than len(buf) only if the file ended first.
func ReadFull(f io.Reader, buf []byte) (int, error) {
	count, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return count, u.WrapErr("read", u.ErrUnableToReadFile)
	}
	return count, nil
}

func WriteTo(f io.Writer, chunk []byte) error {
	if _, err := f.Write(chunk); err != nil {
		return u.WrapErr("write", u.ErrUnableToWriteFile)
	}
	return nil
}

// WriteFile creates filepath and writes data to it.
func WriteFile(filepath string, data []byte) error {
	f, err := CreateFile(filepath)
	if err != nil {
		return err
	}
	if err := WriteTo(f, data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return u.WrapErr(filepath, u.ErrUnableToWriteFile)
	}
	return nil
}
