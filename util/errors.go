package util

import (
	"errors"
	"fmt"

	"golang.org/x/xerrors"
)

// Error codes of the Quantis extensions library. Success is 0, failures are
// small negative integers.
const (
	Success											= 0
	CodeUnableToAllocateMemory				= -10
	CodeMatrixFileNotFound					= -11
	CodeUnableToReadFile						= -12
	CodeUnableToOpenFile						= -13
	CodeUnableToWriteFile					= -14
	CodeMatrixFileTooSmall					= -15
	CodeReadSizeMismatch						= -16
	CodeSeedCreationFailure					= -17
	CodeSampledRead							= -18
	CodeVonNeumann								= -19
	CodeExtractionFailed						= -20
	CodeWrongExtractionParameters			= -21
	CodeNotEnoughBytesInStorageBuffer	= -22
	CodeNotEnoughInputBytes					= -23
	CodeStorageBufferDisabled				= -24
	CodeNotEnoughElementaryMatrices		= -25
	CodeInvalidParameter						= -26
	CodeStorageBufferOverflow				= -27
	CodeOther									= -99
)

var (
	ErrUnableToAllocateMemory			= xerrors.New("unable to allocate memory")
	ErrMatrixFileNotFound				= xerrors.New("extractor matrix file not found")
	ErrUnableToReadFile					= xerrors.New("unable to read file")
	ErrUnableToOpenFile					= xerrors.New("unable to open file")
	ErrUnableToWriteFile					= xerrors.New("unable to write file")
	ErrMatrixFileTooSmall				= xerrors.New("extractor matrix file is too small for the requested matrix size")
	ErrReadSizeMismatch					= xerrors.New("the size of the read differs from the requested size")
	ErrSeedCreationFailure				= xerrors.New("error in the creation of the seed")
	ErrExtractionFailed					= xerrors.New("error in the randomness extraction process")
	ErrWrongExtractionParameters		= xerrors.New("extractor parameters are not consistent (n and k must be multiples of 64 and n>k)")
	ErrNotEnoughBytesInStorageBuffer	= xerrors.New("not enough bytes in the storage buffer")
	ErrNotEnoughInputBytes				= xerrors.New("at least one block should be input to the extractor")
	ErrStorageBufferDisabled			= xerrors.New("storage buffer is not enabled")
	ErrNotEnoughElementaryMatrices	= xerrors.New("at least 2 elementary matrices are required to produce an extractor matrix")
	ErrInvalidParameter					= xerrors.New("invalid parameter")
	ErrStorageBufferOverflow			= xerrors.New("storage buffer capacity exceeded")
)

var codes = []struct{
	err	error
	code	int
}{
	{ErrUnableToAllocateMemory, CodeUnableToAllocateMemory},
	{ErrMatrixFileNotFound, CodeMatrixFileNotFound},
	{ErrUnableToReadFile, CodeUnableToReadFile},
	{ErrUnableToOpenFile, CodeUnableToOpenFile},
	{ErrUnableToWriteFile, CodeUnableToWriteFile},
	{ErrMatrixFileTooSmall, CodeMatrixFileTooSmall},
	{ErrReadSizeMismatch, CodeReadSizeMismatch},
	{ErrSeedCreationFailure, CodeSeedCreationFailure},
	{ErrExtractionFailed, CodeExtractionFailed},
	{ErrWrongExtractionParameters, CodeWrongExtractionParameters},
	{ErrNotEnoughBytesInStorageBuffer, CodeNotEnoughBytesInStorageBuffer},
	{ErrNotEnoughInputBytes, CodeNotEnoughInputBytes},
	{ErrStorageBufferDisabled, CodeStorageBufferDisabled},
	{ErrNotEnoughElementaryMatrices, CodeNotEnoughElementaryMatrices},
	{ErrInvalidParameter, CodeInvalidParameter},
	{ErrStorageBufferOverflow, CodeStorageBufferOverflow},
}

// Code maps err onto the numeric error enumeration. nil is Success, errors
// that don't originate here (e.g. a failing raw source) are CodeOther.
func Code(err error) int {
	if err == nil {
		return Success
	}
	for _,c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeOther
}

func StrError(code int) string {
	switch code {
	case Success:
		return "success"
	case CodeSampledRead:
		return "error in sampled read, while creating the seed"
	case CodeVonNeumann:
		return "error in von Neumann processing, while creating the seed"
	case CodeOther:
		return "other error"
	}
	for _,c := range codes {
		if c.code == code {
			return c.err.Error()
		}
	}
	return fmt.Sprintf("undefined error: %d", code)
}
