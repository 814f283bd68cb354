package extractor

import (
	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	u "github.com/moratsam/quantis-extractor/util"
)

// MaxStorageBufferSize is the capacity of a StorageBuffer in bytes.
const MaxStorageBufferSize = 65535

// OverflowPolicy decides what Append and Set do with bytes beyond the remaining capacity.
type OverflowPolicy int

const (
	// OverflowDrop keeps what fits and silently discards the rest.
	OverflowDrop OverflowPolicy = iota
	// OverflowError rejects the whole write with ErrStorageBufferOverflow.
	OverflowError
)

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowDrop:
		return "drop"
	case OverflowError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseOverflowPolicy is the inverse of OverflowPolicy.String.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch s {
	case "drop", "":
		return OverflowDrop, nil
	case "error":
		return OverflowError, nil
	default:
		return OverflowDrop, xerrors.Errorf("overflow policy %q: %w", s, u.ErrInvalidParameter)
	}
}

// StorageBuffer holds extracted bytes not yet handed out to a caller.
// It is not safe for concurrent use; Extractor guards it with its own lock.
type StorageBuffer struct {
	policy	OverflowPolicy
	buf		[]byte // nil while disabled.
	size		int
}

func NewStorageBuffer(policy OverflowPolicy) *StorageBuffer {
	return &StorageBuffer{policy: policy}
}

// Enable allocates the backing storage. Enabling an enabled buffer empties it.
func (s *StorageBuffer) Enable() {
	if s.buf == nil {
		s.buf = make([]byte, MaxStorageBufferSize)
	}
	s.size = 0
}

// Disable releases the backing storage, dropping whatever it held.
func (s *StorageBuffer) Disable() {
	s.buf = nil
	s.size = 0
}

func (s *StorageBuffer) Enabled() bool { return s.buf != nil }

func (s *StorageBuffer) Policy() OverflowPolicy { return s.policy }

func (s *StorageBuffer) Clear() error {
	if !s.Enabled() {
		return u.ErrStorageBufferDisabled
	}
	s.size = 0
	return nil
}

func (s *StorageBuffer) Size() (int, error) {
	if !s.Enabled() {
		return 0, u.ErrStorageBufferDisabled
	}
	return s.size, nil
}

// Set replaces the content of the buffer with data.
func (s *StorageBuffer) Set(data []byte) (int, error) {
	if !s.Enabled() {
		return 0, u.ErrStorageBufferDisabled
	}
	if len(data) > MaxStorageBufferSize && s.policy == OverflowError {
		return 0, xerrors.Errorf("set %d bytes: %w", len(data), u.ErrStorageBufferOverflow)
	}
	s.size = 0
	return s.Append(data)
}

// Append adds data at the end of the buffer and returns how many bytes were stored.
func (s *StorageBuffer) Append(data []byte) (int, error) {
	if !s.Enabled() {
		return 0, u.ErrStorageBufferDisabled
	}
	free := MaxStorageBufferSize - s.size
	if len(data) > free {
		if s.policy == OverflowError {
			return 0, xerrors.Errorf("append %d bytes with %d free: %w", len(data), free, u.ErrStorageBufferOverflow)
		}
		log.WithFields(log.Fields{
			"dropped":	len(data)-free,
			"held":		s.size,
		}).Debug("storage buffer full, dropping extracted bytes")
		data = data[:free]
	}
	copy(s.buf[s.size:], data)
	s.size += len(data)
	return len(data), nil
}

// peek copies the first n held bytes without removing them. n must not exceed the size.
func (s *StorageBuffer) peek(n int) []byte {
	return append([]byte(nil), s.buf[:n]...)
}

// Read removes n bytes from the front of the buffer.
func (s *StorageBuffer) Read(n int) ([]byte, error) {
	if !s.Enabled() {
		return nil, u.ErrStorageBufferDisabled
	}
	if n < 0 {
		return nil, xerrors.Errorf("read %d bytes: %w", n, u.ErrInvalidParameter)
	}
	if n > s.size {
		return nil, xerrors.Errorf("read %d bytes, %d held: %w", n, s.size, u.ErrNotEnoughBytesInStorageBuffer)
	}
	out := make([]byte, n)
	copy(out, s.buf[:n])
	copy(s.buf, s.buf[n:s.size])
	s.size -= n
	return out, nil
}
