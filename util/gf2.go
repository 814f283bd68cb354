package util

// Here basic operations over the galois field 2 are implemented.
// Addition is XOR, multiplication is AND, so a dot product of two bit vectors
// is the parity of their bitwise AND.

const nibble_ones = 0x1111111111111111

// Parity returns 1 if x has an odd number of set bits, 0 otherwise.
func Parity(x uint64) uint64 {
	// Fold every nibble's parity into its lowest bit.
	x ^= x >> 1
	x ^= x >> 2
	// Sum the nibble parities into the top nibble.
	x = (x & nibble_ones) * nibble_ones
	return (x >> 60) & 1
}

// Dot computes the GF(2) inner product of two equally long word vectors.
func Dot(a, b []uint64) uint64 {
	var acc uint64
	for i := range a {
		acc ^= a[i] & b[i]
	}
	return Parity(acc)
}

// XOR adds src to dst byte by byte. Only the first min(len(dst), len(src)) bytes are touched.
func XOR(dst, src []byte) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i:=0; i<n; i++ {
		dst[i] ^= src[i]
	}
}
