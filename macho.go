// Package macho provides read access to 64-bit Mach-O object files and
// the universal (fat) containers that hold them.
//
// Mach-O header data structures
// Originally at:
// http://developer.apple.com/mac/library/documentation/DeveloperTools/Conceptual/MachORuntime/Reference/reference.html (since deleted by Apple)
// Archived copy at:
// https://web.archive.org/web/20090819232456/http://developer.apple.com/documentation/DeveloperTools/Conceptual/MachORuntime/index.html
// For cloned PDF see:
// https://github.com/aidansteele/osx-abi-macho-file-format-reference
package macho

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/machlab/go-macho/types"
)

// A Source is the byte source a Mach-O is parsed from: random-access
// reads plus a known total length. io.SectionReader satisfies it.
// Nothing here buffers the whole source; every decoder reads only the
// bytes it needs, at explicit offsets.
type Source interface {
	io.ReaderAt
	Size() int64
}

// Peek reads exactly the first 4 bytes of src and classifies them,
// returning the native-form magic and the byte order every multi-byte
// field of the file must be read in. A match on a swapped ("cigam")
// constant simply reports the opposite byte order; the returned magic
// is always the native constant.
func Peek(src Source) (types.Magic, binary.ByteOrder, error) {
	return peekAt(src, 0)
}

func peekAt(src Source, offset int64) (types.Magic, binary.ByteOrder, error) {
	var ident [4]byte
	if offset < 0 || offset+4 > src.Size() {
		return types.MagicUnknown, nil, formatError(offset, ErrOutOfBounds, "reading magic")
	}
	if _, err := src.ReadAt(ident[:], offset); err != nil {
		return types.MagicUnknown, nil, formatError(offset, ErrOutOfBounds, "reading magic: %v", err)
	}
	be := types.Magic(binary.BigEndian.Uint32(ident[:]))
	le := types.Magic(binary.LittleEndian.Uint32(ident[:]))
	switch be {
	case types.Magic32, types.Magic64, types.MagicFat:
		return be, binary.BigEndian, nil
	}
	switch le {
	case types.Magic32, types.Magic64, types.MagicFat:
		return le, binary.LittleEndian, nil
	}
	return types.MagicUnknown, nil, formatError(offset, ErrInvalidMagic, "magic %#x", binary.BigEndian.Uint32(ident[:]))
}

// readFull reads n bytes at off, failing with ErrOutOfBounds if the
// range exceeds the source's extent. It never reads past a truncated
// source.
func readFull(src Source, off, n int64) ([]byte, error) {
	if off < 0 || n < 0 || off+n > src.Size() {
		return nil, formatError(off, ErrOutOfBounds, "need %d bytes, source is %d", n, src.Size())
	}
	if n == 0 {
		// ReaderAt implementations report EOF for zero-length reads at
		// the end of the source; an empty range that passed the bounds
		// check is valid.
		return nil, nil
	}
	b := make([]byte, n)
	if _, err := src.ReadAt(b, off); err != nil {
		return nil, formatError(off, ErrOutOfBounds, "short read of %d bytes: %v", n, err)
	}
	return b, nil
}

func cstring(b []byte) string {
	i := bytes.IndexByte(b, 0)
	if i == -1 {
		i = len(b)
	}
	return string(b[0:i])
}
