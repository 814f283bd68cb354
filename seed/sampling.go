package seed

import (
	"golang.org/x/xerrors"

	"github.com/moratsam/quantis-extractor/source"
	u "github.com/moratsam/quantis-extractor/util"
)

// RecommendedPeriod is the decorrelation distance of the Quantis chip packets.
const RecommendedPeriod = 13

// UnderSample keeps the lowest bit of every period-th byte of raw (bytes 0, p, 2p, ...)
// and packs the kept bits LSB first. It returns floor(len(raw)/period)/8 bytes;
// kept bits that don't fill a whole byte are dropped.
func UnderSample(raw []byte, period int) ([]byte, error) {
	if period <= 0 {
		return nil, xerrors.Errorf("under-sampling period %d: %w", period, u.ErrInvalidParameter)
	}
	n_samples := len(raw)/period
	out := make([]byte, n_samples/8)
	for i := range out {
		var b byte
		for bit:=0; bit<8; bit++ {
			b |= (raw[(8*i+bit)*period] & 0x01) << bit
		}
		out[i] = b
	}
	return out, nil
}

// UnderSamplingRead reads n raw bytes from src and under-samples them.
func UnderSamplingRead(src source.Source, n, period int) ([]byte, error) {
	if period <= 0 {
		return nil, xerrors.Errorf("under-sampling period %d: %w", period, u.ErrInvalidParameter)
	}
	raw := make([]byte, n)
	if err := source.ReadExact(src, raw); err != nil {
		return nil, err
	}
	return UnderSample(raw, period)
}

// VonNeumann de-biases in. Every byte is split into four non-overlapping bit
// pairs, lowest pair first; 01 yields a 1, 10 yields a 0, 00 and 11 yield
// nothing. Output bits are packed LSB first and a trailing partial byte is
// dropped, so the output is at most half as long as the input.
func VonNeumann(in []byte) []byte {
	out := make([]byte, 0, len(in)/2)
	var acc byte
	n_bits := 0
	for _,b := range in {
		for i:=0; i<4; i++ {
			pair := (b >> (2*i)) & 0x03
			if pair != 0x01 && pair != 0x02 {
				continue
			}
			if pair == 0x01 {
				acc |= 1 << n_bits
			}
			n_bits++
			if n_bits == 8 {
				out = append(out, acc)
				acc = 0
				n_bits = 0
			}
		}
	}
	return out
}
