// Package extractor turns raw device bytes into extracted random bytes of any
// requested length. An Extractor owns a matrix, a processing unit and a
// storage buffer that keeps the part of the last extracted block no caller
// asked for yet.
package extractor

import (
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/moratsam/quantis-extractor/matrix"
	proc_unit "github.com/moratsam/quantis-extractor/pu"
	"github.com/moratsam/quantis-extractor/pu/vanilla"
	"github.com/moratsam/quantis-extractor/source"
	u "github.com/moratsam/quantis-extractor/util"
)

// LibVersion is the version of the extraction library this package is compatible with.
const LibVersion = 20.2

type Extractor struct {
	mu			sync.Mutex // Held across a whole GetData call.
	pu			proc_unit.PU
	mat		*matrix.Matrix
	storage	*StorageBuffer
}

// New returns an extractor with a disabled storage buffer. A nil pu means the CPU one.
func New(pu proc_unit.PU, mat *matrix.Matrix) *Extractor {
	if pu == nil {
		pu = vanilla.NewVanillaPU()
	}
	return &Extractor{
		pu:		pu,
		mat:		mat,
		storage:	NewStorageBuffer(OverflowDrop),
	}
}

func (e *Extractor) Matrix() *matrix.Matrix { return e.mat }

// Release frees the processing unit. The extractor must not be used afterwards.
func (e *Extractor) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pu.Release()
}

// GetData returns n extracted bytes, reading from src only what the storage buffer can't serve.
func (e *Extractor) GetData(src source.Source, n int) ([]byte, error) {
	if n < 0 {
		return nil, xerrors.Errorf("request of %d bytes: %w", n, u.ErrInvalidParameter)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]byte, 0, n)
	held := 0
	if e.storage.Enabled() && n > 0 {
		held, _ = e.storage.Size()
		if held >= n {
			return e.storage.Read(n)
		}
		// Held bytes stay in storage until the extraction succeeded.
		out = append(out, e.storage.peek(held)...)
		n -= held
	}
	if n == 0 {
		return out, nil
	}

	after, before := e.mat.BufferSize(n)
	raw := make([]byte, before)
	if err := source.Drain(src, raw, source.ChunkSize); err != nil {
		return nil, u.WrapErr("drain raw source", err)
	}
	extracted := make([]byte, after)
	if err := e.pu.Extract(e.mat, raw, extracted); err != nil {
		return nil, xerrors.Errorf("extract %d bytes: %w", after, err)
	}
	if held > 0 {
		if _, err := e.storage.Read(held); err != nil {
			return nil, err
		}
	}
	out = append(out, extracted[:n]...)

	if surplus := extracted[n:]; len(surplus) > 0 && e.storage.Enabled() {
		if _, err := e.storage.Append(surplus); err != nil {
			return nil, u.WrapErr("store surplus", err)
		}
		log.WithField("bytes", len(surplus)).Trace("stored extraction surplus")
	}
	return out, nil
}

// EnableStorage allocates the storage buffer. Bytes beyond its capacity are handled per policy.
func (e *Extractor) EnableStorage(policy OverflowPolicy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.storage.policy = policy
	e.storage.Enable()
}

func (e *Extractor) DisableStorage() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.storage.Disable()
}

func (e *Extractor) ClearStorage() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.storage.Clear()
}

func (e *Extractor) StorageSize() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.storage.Size()
}

func (e *Extractor) StorageEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.storage.Enabled()
}

// SetStorage replaces the held bytes with data.
func (e *Extractor) SetStorage(data []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.storage.Set(data)
}
