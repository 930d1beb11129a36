// SPDX-License-Identifier: Unlicense OR MIT

package bundle

import "encoding/binary"

// FixedPointScale is the denominator used to serialize anchor
// coordinates as 32-bit fixed-point values (see putFixed32/fixed32At).
const FixedPointScale = 16384

// putUint32 writes v as a big-endian uint32 at the start of buf.
func putUint32(buf []byte, v uint32) {
	binary.BigEndian.PutUint32(buf, v)
}

// uint32At reads a big-endian uint32 from the start of buf.
func uint32At(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf)
}

// putUint64 writes v as a big-endian uint64 at the start of buf.
func putUint64(buf []byte, v uint64) {
	binary.BigEndian.PutUint64(buf, v)
}

// uint64At reads a big-endian uint64 from the start of buf.
func uint64At(buf []byte) uint64 {
	return binary.BigEndian.Uint64(buf)
}

// putFixed32 encodes x as round(x * FixedPointScale) in a big-endian uint32.
func putFixed32(buf []byte, x float32) {
	putUint32(buf, uint32(int32(x*FixedPointScale+sign(x)*0.5)))
}

// fixed32At decodes a value previously written by putFixed32.
func fixed32At(buf []byte) float32 {
	return float32(int32(uint32At(buf))) / FixedPointScale
}

func sign(x float32) float32 {
	if x < 0 {
		return -1
	}
	return 1
}
