package extractor

import (
	"encoding/binary"
	"math"

	"golang.org/x/xerrors"

	"github.com/moratsam/quantis-extractor/source"
	u "github.com/moratsam/quantis-extractor/util"
)

func (e *Extractor) readUint64(src source.Source) (uint64, error) {
	b, err := e.GetData(src, 8)
	if err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint64(b), nil
}

func (e *Extractor) readUint32(src source.Source) (uint32, error) {
	b, err := e.GetData(src, 4)
	if err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint32(b), nil
}

func (e *Extractor) readUint16(src source.Source) (uint16, error) {
	b, err := e.GetData(src, 2)
	if err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint16(b), nil
}

// ReadDouble01 returns a value in [0, 1) built from 52 random mantissa bits.
func (e *Extractor) ReadDouble01(src source.Source) (float64, error) {
	x, err := e.readUint64(src)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(x&0x000FFFFFFFFFFFFF | 0x3FF0000000000000) - 1, nil
}

// ReadFloat01 returns a value in [0, 1) built from 23 random mantissa bits.
func (e *Extractor) ReadFloat01(src source.Source) (float32, error) {
	x, err := e.readUint32(src)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(x&0x007FFFFF | 0x3F800000) - 1, nil
}

func (e *Extractor) ReadInt(src source.Source) (int32, error) {
	x, err := e.readUint32(src)
	return int32(x), err
}

func (e *Extractor) ReadShort(src source.Source) (int16, error) {
	x, err := e.readUint16(src)
	return int16(x), err
}

// ReadScaledDouble returns a value in [min, max).
func (e *Extractor) ReadScaledDouble(src source.Source, min, max float64) (float64, error) {
	if min > max {
		return 0, xerrors.Errorf("range [%v, %v): %w", min, max, u.ErrInvalidParameter)
	}
	x, err := e.ReadDouble01(src)
	if err != nil {
		return 0, err
	}
	return min + x*(max-min), nil
}

// ReadScaledFloat returns a value in [min, max).
func (e *Extractor) ReadScaledFloat(src source.Source, min, max float32) (float32, error) {
	if min > max {
		return 0, xerrors.Errorf("range [%v, %v): %w", min, max, u.ErrInvalidParameter)
	}
	x, err := e.ReadFloat01(src)
	if err != nil {
		return 0, err
	}
	return min + x*(max-min), nil
}

// ReadScaledInt returns a uniformly distributed value in [min, max].
func (e *Extractor) ReadScaledInt(src source.Source, min, max int32) (int32, error) {
	if min > max {
		return 0, xerrors.Errorf("range [%d, %d]: %w", min, max, u.ErrInvalidParameter)
	}
	span := uint64(int64(max) - int64(min) + 1)
	// Values at or above limit would bias the modulo.
	limit := uint64(1<<32) - uint64(1<<32)%span
	for {
		x, err := e.readUint32(src)
		if err != nil {
			return 0, err
		}
		if uint64(x) < limit {
			return int32(int64(min) + int64(uint64(x)%span)), nil
		}
	}
}

// ReadScaledShort returns a uniformly distributed value in [min, max].
func (e *Extractor) ReadScaledShort(src source.Source, min, max int16) (int16, error) {
	if min > max {
		return 0, xerrors.Errorf("range [%d, %d]: %w", min, max, u.ErrInvalidParameter)
	}
	span := uint32(int32(max) - int32(min) + 1)
	limit := uint32(1<<16) - uint32(1<<16)%span
	for {
		x, err := e.readUint16(src)
		if err != nil {
			return 0, err
		}
		if uint32(x) < limit {
			return int16(int32(min) + int32(uint32(x)%span)), nil
		}
	}
}
