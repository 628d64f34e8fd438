package types

import (
	"encoding/binary"
	"fmt"
)

const (
	FatHeaderSize = 8
	FatArchSize   = 20
)

// A FatHeader is the header of a universal (fat) binary. The container
// structures are always big-endian on disk, whatever the byte order of
// the embedded slices.
type FatHeader struct {
	Magic    Magic
	NFatArch uint32
}

// A FatArch describes one slice of a universal binary: its target
// architecture and where the embedded Mach-O lives in the container.
// Align is a power-of-two exponent.
type FatArch struct {
	CPU    CPU
	SubCPU CPUSubtype
	Offset uint32
	Size   uint32
	Align  uint32
}

// Put writes the arch record to b in the given byte order and returns
// FatArchSize.
func (a *FatArch) Put(b []byte, o binary.ByteOrder) int {
	o.PutUint32(b[0:], uint32(a.CPU))
	o.PutUint32(b[4:], uint32(a.SubCPU))
	o.PutUint32(b[8:], a.Offset)
	o.PutUint32(b[12:], a.Size)
	o.PutUint32(b[16:], a.Align)
	return FatArchSize
}

func (a FatArch) String() string {
	return fmt.Sprintf("%s, %s (offset=%#x, size=%#x, align=2^%d)",
		a.CPU, a.SubCPU.String(a.CPU), a.Offset, a.Size, a.Align)
}
