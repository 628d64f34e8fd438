package macho

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/machlab/go-macho/types"
)

// A File represents an open 64-bit Mach-O file.
//
// Anomalies collects the non-fatal findings of the parse, currently
// only a sizeofcmds mismatch between the header and the parsed
// commands. A File with anomalies is still fully usable.
type File struct {
	types.FileHeader
	ByteOrder binary.ByteOrder
	Loads     []Load
	Anomalies []error

	Symtab   *Symtab
	Dysymtab *Dysymtab

	src    Source
	base   int64
	closer io.Closer
}

// FileConfig configures NewFile. Offset is where the Mach-O starts
// within the source, e.g. a universal-binary slice offset.
type FileConfig struct {
	Offset int64
}

// Open opens the named file using os.Open and prepares it for use as a
// Mach-O binary.
func Open(name string) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	ff, err := NewFile(io.NewSectionReader(f, 0, fi.Size()))
	if err != nil {
		f.Close()
		return nil, err
	}
	ff.closer = f
	return ff, nil
}

// Close closes the File.
// If the File was created using NewFile directly instead of Open,
// Close has no effect.
func (f *File) Close() error {
	var err error
	if f.closer != nil {
		err = f.closer.Close()
		f.closer = nil
	}
	return err
}

// NewFile creates a new File for accessing a Mach-O binary in src.
// The binary is expected to start at position 0 unless a config with
// an offset is given.
//
// Header parsing is all-or-nothing: a bad magic, a 32-bit file, or a
// truncated header returns a typed error and no File. Inside the
// load-command table, a command whose payload cannot be decoded is
// kept as an opaque LoadCmdBytes with the error attached, so one bad
// command does not hide the rest.
func NewFile(src Source, config ...FileConfig) (*File, error) {
	f := new(File)
	f.src = src
	if len(config) > 0 {
		f.base = config[0].Offset
	}

	magic, bo, err := peekAt(src, f.base)
	if err != nil {
		return nil, err
	}
	switch magic {
	case types.Magic64:
		// supported
	case types.Magic32:
		return nil, formatError(f.base, ErrUnsupportedArchitecture, "32-bit Mach-O")
	case types.MagicFat:
		return nil, formatError(f.base, ErrUnsupportedArchitecture, "universal binary, use NewFatFile")
	default:
		return nil, formatError(f.base, ErrInvalidMagic, "magic %#x", uint32(magic))
	}
	f.ByteOrder = bo

	hdr, err := readFull(src, f.base, types.FileHeaderSize64)
	if err != nil {
		return nil, err
	}
	if err := binary.Read(bytes.NewReader(hdr), bo, &f.FileHeader); err != nil {
		return nil, fmt.Errorf("failed to read file header: %v", err)
	}

	// Slurp the whole command table once; every cursor move below is
	// bounded by it.
	offset := f.base + types.FileHeaderSize64
	dat, err := readFull(src, offset, int64(f.SizeCommands))
	if err != nil {
		return nil, err
	}

	// Every command is at least the 8-byte prefix, so ncmds beyond
	// sizeofcmds/8 cannot be satisfied. Checking before sizing the
	// slice keeps a hostile ncmds from forcing a huge allocation.
	if uint64(f.NCommands) > uint64(f.SizeCommands)/types.LoadCmdSize {
		return nil, formatError(f.base, ErrMalformedLoadCommand,
			"ncmds %d cannot fit in sizeofcmds %d", f.NCommands, f.SizeCommands)
	}

	f.Loads = make([]Load, 0, f.NCommands)
	for i := uint32(0); i < f.NCommands; i++ {
		// Each load command begins with uint32 command and length.
		if len(dat) < types.LoadCmdSize {
			return nil, formatError(offset, ErrMalformedLoadCommand, "command %d of %d extends past sizeofcmds", i, f.NCommands)
		}
		cmd, siz := types.LoadCmd(bo.Uint32(dat[0:4])), bo.Uint32(dat[4:8])
		if siz < types.LoadCmdSize || siz > uint32(len(dat)) {
			return nil, formatError(offset, ErrMalformedLoadCommand, "cmdsize %d in %s", siz, cmd)
		}

		var cmddat []byte
		cmddat, dat = dat[0:siz], dat[siz:]
		f.Loads = append(f.Loads, f.decodeLoad(cmd, cmddat, offset))
		offset += int64(siz)
	}

	if len(dat) != 0 {
		f.Anomalies = append(f.Anomalies,
			formatError(f.base, ErrSizeofCmdsMismatch, "header says %d, commands sum to %d",
				f.SizeCommands, f.SizeCommands-uint32(len(dat))))
	}

	return f, nil
}

// decodeLoad decodes one load command from cmddat, which is exactly
// cmdsize bytes. Decode failures degrade the record to an opaque
// LoadCmdBytes carrying the error.
func (f *File) decodeLoad(cmd types.LoadCmd, cmddat []byte, offset int64) Load {
	bo := f.ByteOrder
	base := loadBase{LoadBytes: LoadBytes(cmddat), off: offset}

	opaque := func(err error) Load {
		return LoadCmdBytes{LoadCmd: cmd, loadBase: base, Err: err}
	}
	overrun := func(what string) Load {
		return opaque(formatError(offset, ErrTrailingDataOverrun, "%s in %s", what, cmd))
	}

	switch cmd {
	case types.LC_SYMTAB:
		var hdr types.SymtabCmd
		if err := binary.Read(bytes.NewReader(cmddat), bo, &hdr); err != nil {
			return overrun("fixed fields")
		}
		st := &Symtab{loadBase: base, SymtabCmd: hdr}
		f.Symtab = st
		return st
	case types.LC_DYSYMTAB:
		var hdr types.DysymtabCmd
		if err := binary.Read(bytes.NewReader(cmddat), bo, &hdr); err != nil {
			return overrun("fixed fields")
		}
		dt := &Dysymtab{loadBase: base, DysymtabCmd: hdr}
		f.Dysymtab = dt
		return dt
	case types.LC_LOAD_DYLIB, types.LC_ID_DYLIB, types.LC_LOAD_WEAK_DYLIB,
		types.LC_REEXPORT_DYLIB, types.LC_LAZY_LOAD_DYLIB, types.LC_LOAD_UPWARD_DYLIB:
		var hdr types.DylibCmd
		if err := binary.Read(bytes.NewReader(cmddat), bo, &hdr); err != nil {
			return overrun("fixed fields")
		}
		if hdr.Name < types.LoadCmdSize || hdr.Name >= uint32(len(cmddat)) {
			return overrun(fmt.Sprintf("name offset %#x", hdr.Name))
		}
		return &Dylib{loadBase: base, DylibCmd: hdr, Name: cstring(cmddat[hdr.Name:])}
	case types.LC_LOAD_DYLINKER, types.LC_ID_DYLINKER, types.LC_DYLD_ENVIRONMENT:
		var hdr types.DylinkerCmd
		if err := binary.Read(bytes.NewReader(cmddat), bo, &hdr); err != nil {
			return overrun("fixed fields")
		}
		if hdr.Name < types.LoadCmdSize || hdr.Name >= uint32(len(cmddat)) {
			return overrun(fmt.Sprintf("name offset %#x", hdr.Name))
		}
		return &Dylinker{loadBase: base, DylinkerCmd: hdr, Name: cstring(cmddat[hdr.Name:])}
	case types.LC_RPATH:
		var hdr types.RpathCmd
		if err := binary.Read(bytes.NewReader(cmddat), bo, &hdr); err != nil {
			return overrun("fixed fields")
		}
		if hdr.Path < types.LoadCmdSize || hdr.Path >= uint32(len(cmddat)) {
			return overrun(fmt.Sprintf("path offset %#x", hdr.Path))
		}
		return &Rpath{loadBase: base, RpathCmd: hdr, Path: cstring(cmddat[hdr.Path:])}
	case types.LC_UUID:
		var hdr types.UUIDCmd
		if err := binary.Read(bytes.NewReader(cmddat), bo, &hdr); err != nil {
			return overrun("fixed fields")
		}
		return &UUID{loadBase: base, UUIDCmd: hdr}
	case types.LC_DYLD_INFO, types.LC_DYLD_INFO_ONLY:
		var hdr types.DyldInfoCmd
		if err := binary.Read(bytes.NewReader(cmddat), bo, &hdr); err != nil {
			return overrun("fixed fields")
		}
		return &DyldInfo{loadBase: base, DyldInfoCmd: hdr}
	case types.LC_MAIN:
		var hdr types.EntryPointCmd
		if err := binary.Read(bytes.NewReader(cmddat), bo, &hdr); err != nil {
			return overrun("fixed fields")
		}
		return &EntryPoint{loadBase: base, EntryPointCmd: hdr}
	case types.LC_CODE_SIGNATURE, types.LC_SEGMENT_SPLIT_INFO, types.LC_FUNCTION_STARTS,
		types.LC_DATA_IN_CODE, types.LC_DYLIB_CODE_SIGN_DRS, types.LC_LINKER_OPTIMIZATION_HINT,
		types.LC_DYLD_EXPORTS_TRIE, types.LC_DYLD_CHAINED_FIXUPS:
		var hdr types.LinkEditDataCmd
		if err := binary.Read(bytes.NewReader(cmddat), bo, &hdr); err != nil {
			return overrun("fixed fields")
		}
		return &LinkEditData{loadBase: base, LinkEditDataCmd: hdr}
	case types.LC_SOURCE_VERSION:
		var hdr types.SourceVersionCmd
		if err := binary.Read(bytes.NewReader(cmddat), bo, &hdr); err != nil {
			return overrun("fixed fields")
		}
		return &SourceVersion{loadBase: base, SourceVersionCmd: hdr}
	case types.LC_BUILD_VERSION:
		var hdr types.BuildVersionCmd
		b := bytes.NewReader(cmddat)
		if err := binary.Read(b, bo, &hdr); err != nil {
			return overrun("fixed fields")
		}
		// 24-byte fixed part, then NumTools 8-byte entries, all inside
		// cmdsize.
		if uint64(24)+uint64(hdr.NumTools)*8 > uint64(len(cmddat)) {
			return overrun(fmt.Sprintf("%d build tools", hdr.NumTools))
		}
		bv := &BuildVersion{loadBase: base, BuildVersionCmd: hdr}
		if hdr.NumTools > 0 {
			bv.Tools = make([]types.BuildToolVersion, hdr.NumTools)
			if err := binary.Read(b, bo, bv.Tools); err != nil {
				return overrun("build tool entries")
			}
		}
		return bv
	default:
		return opaque(nil)
	}
}

// FindFirst returns the first load command matching any of the given
// tags, or nil if none is present.
func (f *File) FindFirst(cmds ...types.LoadCmd) Load {
	for _, l := range f.Loads {
		for _, cmd := range cmds {
			if l.Command() == cmd {
				return l
			}
		}
	}
	return nil
}

// FindAll returns every load command matching any of the given tags,
// in file order.
func (f *File) FindAll(cmds ...types.LoadCmd) []Load {
	var found []Load
	for _, l := range f.Loads {
		for _, cmd := range cmds {
			if l.Command() == cmd {
				found = append(found, l)
				break
			}
		}
	}
	return found
}

// UUID returns the file's LC_UUID value, if present.
func (f *File) UUID() (types.UUID, bool) {
	if l, ok := f.FindFirst(types.LC_UUID).(*UUID); ok {
		return l.UUIDCmd.UUID, true
	}
	return types.UUID{}, false
}

// DylibLoads returns every dynamic-library load command, in file order.
func (f *File) DylibLoads() []Load {
	return f.FindAll(types.LC_LOAD_DYLIB, types.LC_ID_DYLIB, types.LC_LOAD_WEAK_DYLIB,
		types.LC_REEXPORT_DYLIB, types.LC_LAZY_LOAD_DYLIB, types.LC_LOAD_UPWARD_DYLIB)
}

func pad(length int) string {
	if length > 0 {
		return strings.Repeat(" ", length)
	}
	return " "
}

// LoadsString returns a string representation of all the file's load
// commands.
func (f *File) LoadsString() string {
	var loadsStr string
	for i, l := range f.Loads {
		loadsStr += fmt.Sprintf("%03d: %s%s%v\n", i, l.Command(), pad(28-len(l.Command().String())), l)
	}
	return loadsStr
}

func (f *File) String() string {
	return f.FileHeader.String() + f.LoadsString()
}

// ReadAt reads data at offset within the Mach-O, relative to its base.
func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	return f.src.ReadAt(p, f.base+off)
}
