package macho

import (
	"fmt"

	"github.com/machlab/go-macho/types"
)

// A Load represents any Mach-O load command.
type Load interface {
	Command() types.LoadCmd
	Offset() int64 // file offset of the command record
	Raw() []byte
	String() string
}

// A LoadBytes is the uninterpreted bytes of a Mach-O load command.
type LoadBytes []byte

func (b LoadBytes) String() string {
	s := "["
	for i, a := range b {
		if i > 0 {
			s += " "
			if len(b) > 48 && i >= 16 {
				s += fmt.Sprintf("... (%d bytes)", len(b))
				break
			}
		}
		s += fmt.Sprintf("%x", a)
	}
	s += "]"
	return s
}

func (b LoadBytes) Raw() []byte { return b }

// loadBase carries what every decoded command record has in common:
// its raw bytes and the file offset it was read from.
type loadBase struct {
	LoadBytes
	off int64
}

func (b loadBase) Offset() int64 { return b.off }

// LoadCmdBytes is a command-tagged sequence of bytes. This is used for
// load commands that are not decoded here, and for commands whose
// payload could not be decoded: those carry the failure in Err.
type LoadCmdBytes struct {
	types.LoadCmd
	loadBase
	Err error
}

func (s LoadCmdBytes) String() string {
	if s.Err != nil {
		return s.LoadCmd.String() + ": " + s.Err.Error()
	}
	return s.LoadCmd.String() + ": " + s.LoadBytes.String()
}

/*******************************************************************************
 * LC_SYMTAB
 *******************************************************************************/

// A Symtab represents a Mach-O symbol table descriptor. Only the
// offsets and counts are decoded; the tables themselves are not read.
type Symtab struct {
	loadBase
	types.SymtabCmd
}

func (s *Symtab) String() string {
	if s.Nsyms == 0 && s.Strsize == 0 {
		return "Symbols stripped"
	}
	return fmt.Sprintf("Symbol offset=0x%08X, Num Syms: %d, String offset=0x%08X-0x%08X", s.Symoff, s.Nsyms, s.Stroff, s.Stroff+s.Strsize)
}

/*******************************************************************************
 * LC_DYSYMTAB
 *******************************************************************************/

// A Dysymtab represents a Mach-O dynamic symbol table descriptor.
type Dysymtab struct {
	loadBase
	types.DysymtabCmd
}

func (d *Dysymtab) String() string {
	return fmt.Sprintf("%d local, %d ext def, %d undef, %d indirect syms",
		d.Nlocalsym, d.Nextdefsym, d.Nundefsym, d.Nindirectsyms)
}

/*******************************************************************************
 * LC_LOAD_DYLIB, LC_ID_DYLIB, LC_LOAD_WEAK_DYLIB, LC_REEXPORT_DYLIB,
 * LC_LAZY_LOAD_DYLIB, LC_LOAD_UPWARD_DYLIB
 *******************************************************************************/

// A Dylib represents any of the dynamic-library load command family.
// The tag distinguishing ordinary, weak, re-export, lazy and upward
// loads is preserved in the embedded command.
type Dylib struct {
	loadBase
	types.DylibCmd
	Name string
}

func (d *Dylib) String() string {
	return fmt.Sprintf("%s (%s)", d.Name, d.CurrentVersion)
}

/*******************************************************************************
 * LC_LOAD_DYLINKER, LC_ID_DYLINKER, LC_DYLD_ENVIRONMENT
 *******************************************************************************/

// A Dylinker represents a dynamic linker command: the path of the
// linker to load, the identity of this file as a linker, or an
// environment string for dyld.
type Dylinker struct {
	loadBase
	types.DylinkerCmd
	Name string
}

func (d *Dylinker) String() string { return d.Name }

/*******************************************************************************
 * LC_RPATH
 *******************************************************************************/

// A Rpath represents a Mach-O run-path addition command.
type Rpath struct {
	loadBase
	types.RpathCmd
	Path string
}

func (r *Rpath) String() string { return r.Path }

/*******************************************************************************
 * LC_UUID
 *******************************************************************************/

// A UUID represents a Mach-O UUID command.
type UUID struct {
	loadBase
	types.UUIDCmd
}

func (u *UUID) String() string { return u.UUID.String() }

/*******************************************************************************
 * LC_DYLD_INFO, LC_DYLD_INFO_ONLY
 *******************************************************************************/

// A DyldInfo represents the compressed dyld info command: offsets and
// sizes of the rebase, bind and export streams. The opcode streams are
// not decoded.
type DyldInfo struct {
	loadBase
	types.DyldInfoCmd
}

func (d *DyldInfo) String() string {
	return fmt.Sprintf(
		"rebase=(0x%08x, %d), bind=(0x%08x, %d), weak=(0x%08x, %d), lazy=(0x%08x, %d), export=(0x%08x, %d)",
		d.RebaseOff, d.RebaseSize,
		d.BindOff, d.BindSize,
		d.WeakBindOff, d.WeakBindSize,
		d.LazyBindOff, d.LazyBindSize,
		d.ExportOff, d.ExportSize)
}

/*******************************************************************************
 * LC_MAIN
 *******************************************************************************/

// An EntryPoint represents a Mach-O LC_MAIN command.
type EntryPoint struct {
	loadBase
	types.EntryPointCmd
}

// Offset disambiguates the embedded command's Offset field from the
// record's own file offset.
func (e *EntryPoint) Offset() int64 { return e.off }

// EntryOffset is the file offset of the entry point within __TEXT.
func (e *EntryPoint) EntryOffset() uint64 { return e.EntryPointCmd.Offset }

func (e *EntryPoint) String() string {
	return fmt.Sprintf("Entry Point: 0x%016x, Stack Size: %#x", e.EntryOffset(), e.StackSize)
}

/*******************************************************************************
 * LC_CODE_SIGNATURE, LC_SEGMENT_SPLIT_INFO, LC_FUNCTION_STARTS,
 * LC_DATA_IN_CODE, LC_DYLIB_CODE_SIGN_DRS, LC_LINKER_OPTIMIZATION_HINT,
 * LC_DYLD_EXPORTS_TRIE, LC_DYLD_CHAINED_FIXUPS
 *******************************************************************************/

// A LinkEditData represents any of the linkedit-data command family: a
// bare (offset, size) descriptor of a blob in __LINKEDIT. The blob is
// not read.
type LinkEditData struct {
	loadBase
	types.LinkEditDataCmd
}

func (l *LinkEditData) Offset() int64 { return l.off }

// DataOffset is the file offset of the described __LINKEDIT blob.
func (l *LinkEditData) DataOffset() uint32 { return l.LinkEditDataCmd.Offset }

func (l *LinkEditData) String() string {
	return fmt.Sprintf("offset=0x%08x, size=%#x", l.LinkEditDataCmd.Offset, l.Size)
}

/*******************************************************************************
 * LC_SOURCE_VERSION
 *******************************************************************************/

// A SourceVersion represents the version of the sources used to build
// the binary.
type SourceVersion struct {
	loadBase
	types.SourceVersionCmd
}

func (s *SourceVersion) String() string { return s.Version.String() }

/*******************************************************************************
 * LC_BUILD_VERSION
 *******************************************************************************/

// A BuildVersion represents a Mach-O build-for-platform command,
// including all trailing build-tool entries.
type BuildVersion struct {
	loadBase
	types.BuildVersionCmd
	Tools []types.BuildToolVersion
}

func (b *BuildVersion) String() string {
	s := fmt.Sprintf("Platform: %s, MinOS: %s, SDK: %s", b.Platform, b.Minos, b.Sdk)
	for _, t := range b.Tools {
		s += fmt.Sprintf(", Tool: %s", t)
	}
	return s
}
