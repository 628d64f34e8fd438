package macho

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/machlab/go-macho/types"
)

// A FatFile is a universal binary: a table of architecture slices,
// each holding a complete Mach-O at its own offset. The arch table is
// validated up front, all-or-nothing; the slices themselves are parsed
// lazily via Slice.
type FatFile struct {
	types.FatHeader
	Arches    []types.FatArch
	ByteOrder binary.ByteOrder // of the container, normally big-endian

	src    Source
	closer io.Closer
}

// OpenFat opens the named file using os.Open and prepares it for use
// as a universal binary.
func OpenFat(name string) (*FatFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	ff, err := NewFatFile(io.NewSectionReader(f, 0, fi.Size()))
	if err != nil {
		f.Close()
		return nil, err
	}
	ff.closer = f
	return ff, nil
}

// Close closes the FatFile.
// If the FatFile was created using NewFatFile directly instead of
// OpenFat, Close has no effect.
func (ff *FatFile) Close() error {
	var err error
	if ff.closer != nil {
		err = ff.closer.Close()
		ff.closer = nil
	}
	return err
}

// NewFatFile creates a new FatFile for accessing a universal binary in
// src. Every arch record is bounds-checked against the source before
// any slice is exposed: callers need an all-or-nothing manifest to
// choose a slice safely.
func NewFatFile(src Source) (*FatFile, error) {
	ff := new(FatFile)
	ff.src = src

	magic, bo, err := Peek(src)
	if err != nil {
		return nil, err
	}
	if magic != types.MagicFat {
		return nil, formatError(0, ErrInvalidMagic, "not a universal binary, magic %#x", uint32(magic))
	}
	ff.ByteOrder = bo

	hdr, err := readFull(src, 0, types.FatHeaderSize)
	if err != nil {
		return nil, err
	}
	ff.Magic = types.Magic(bo.Uint32(hdr[0:4]))
	ff.NFatArch = bo.Uint32(hdr[4:8])

	// The whole arch table shares the container's byte order.
	dat, err := readFull(src, types.FatHeaderSize, int64(ff.NFatArch)*types.FatArchSize)
	if err != nil {
		return nil, err
	}
	ff.Arches = make([]types.FatArch, ff.NFatArch)
	if err := binary.Read(bytes.NewReader(dat), bo, ff.Arches); err != nil {
		return nil, formatError(types.FatHeaderSize, ErrOutOfBounds, "reading %d arch records: %v", ff.NFatArch, err)
	}
	for i, a := range ff.Arches {
		if int64(a.Offset)+int64(a.Size) > src.Size() {
			return nil, formatError(types.FatHeaderSize+int64(i)*types.FatArchSize, ErrOutOfBounds,
				"arch %d (%s) slice %#x+%#x exceeds file size %#x", i, a.CPU, a.Offset, a.Size, src.Size())
		}
	}

	return ff, nil
}

// Slice parses the i'th architecture slice as a Mach-O file.
func (ff *FatFile) Slice(i int) (*File, error) {
	if i < 0 || i >= len(ff.Arches) {
		return nil, formatError(0, ErrOutOfBounds, "arch index %d of %d", i, len(ff.Arches))
	}
	return NewFile(ff.src, FileConfig{Offset: int64(ff.Arches[i].Offset)})
}

// Arch returns the first arch record matching cpu, if any.
func (ff *FatFile) Arch(cpu types.CPU) (types.FatArch, bool) {
	for _, a := range ff.Arches {
		if a.CPU == cpu {
			return a, true
		}
	}
	return types.FatArch{}, false
}

func (ff *FatFile) String() string {
	s := "Universal binary:\n"
	for i, a := range ff.Arches {
		s += fmt.Sprintf("%03d: %s\n", i, a)
	}
	return s
}
