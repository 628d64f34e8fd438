// Mach-O header data structures
// Originally at:
// http://developer.apple.com/mac/library/documentation/DeveloperTools/Conceptual/MachORuntime/Reference/reference.html (since deleted by Apple)
// Archived copy at:
// https://web.archive.org/web/20090819232456/http://developer.apple.com/documentation/DeveloperTools/Conceptual/MachORuntime/index.html

package types

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// A FileHeader represents a Mach-O file header.
type FileHeader struct {
	Magic        Magic
	CPU          CPU
	SubCPU       CPUSubtype
	Type         HeaderFileType
	NCommands    uint32
	SizeCommands uint32
	Flags        HeaderFlag
	Reserved     uint32
}

const (
	FileHeaderSize32 = 7 * 4
	FileHeaderSize64 = 8 * 4
)

// Put writes the header to b in the given byte order and returns the
// number of bytes written: 28 for 32-bit headers, 32 for 64-bit ones
// (the 64-bit header carries a trailing reserved word).
func (h *FileHeader) Put(b []byte, o binary.ByteOrder) int {
	o.PutUint32(b[0:], uint32(h.Magic))
	o.PutUint32(b[4:], uint32(h.CPU))
	o.PutUint32(b[8:], uint32(h.SubCPU))
	o.PutUint32(b[12:], uint32(h.Type))
	o.PutUint32(b[16:], h.NCommands)
	o.PutUint32(b[20:], h.SizeCommands)
	o.PutUint32(b[24:], uint32(h.Flags))
	if h.Magic == Magic32 {
		return FileHeaderSize32
	}
	o.PutUint32(b[28:], h.Reserved)
	return FileHeaderSize64
}

func (h FileHeader) String() string {
	return fmt.Sprintf(
		"Magic         = %s\n"+
			"Type          = %s\n"+
			"CPU           = %s, %s\n"+
			"Commands      = %d (Size: %d)\n"+
			"Flags         = %s\n",
		h.Magic,
		h.Type,
		h.CPU, h.SubCPU.String(h.CPU),
		h.NCommands,
		h.SizeCommands,
		h.Flags.Flags(),
	)
}

// Magic is a Mach-O or universal-binary magic number. The swapped
// ("cigam") constants are what the native constants look like when the
// file was written on a machine of the opposite byte order; a match on
// one of them means every multi-byte field must be byte-swapped.
type Magic uint32

const (
	Magic32      Magic = 0xfeedface
	Magic64      Magic = 0xfeedfacf
	MagicFat     Magic = 0xcafebabe
	Cigam32      Magic = 0xcefaedfe
	Cigam64      Magic = 0xcffaedfe
	CigamFat     Magic = 0xbebafeca
	MagicUnknown Magic = 0x0
)

var magicStrings = []intName{
	{uint32(Magic32), "32-bit MachO"},
	{uint32(Magic64), "64-bit MachO"},
	{uint32(MagicFat), "Fat MachO"},
}

func (m Magic) Int() uint32      { return uint32(m) }
func (m Magic) String() string   { return stringName(uint32(m), magicStrings, false) }
func (m Magic) GoString() string { return stringName(uint32(m), magicStrings, true) }

// A HeaderFileType is the Mach-O file type, e.g. an object file,
// executable, or dynamic library.
type HeaderFileType uint32

const (
	MH_OBJECT      HeaderFileType = 0x1 /* relocatable object file */
	MH_EXECUTE     HeaderFileType = 0x2 /* demand paged executable file */
	MH_FVMLIB      HeaderFileType = 0x3 /* fixed VM shared library file */
	MH_CORE        HeaderFileType = 0x4 /* core file */
	MH_PRELOAD     HeaderFileType = 0x5 /* preloaded executable file */
	MH_DYLIB       HeaderFileType = 0x6 /* dynamically bound shared library */
	MH_DYLINKER    HeaderFileType = 0x7 /* dynamic link editor */
	MH_BUNDLE      HeaderFileType = 0x8 /* dynamically bound bundle file */
	MH_DYLIB_STUB  HeaderFileType = 0x9 /* shared library stub for static linking only */
	MH_DSYM        HeaderFileType = 0xa /* companion file with only debug sections */
	MH_KEXT_BUNDLE HeaderFileType = 0xb /* x86_64 kexts */
	MH_FILESET     HeaderFileType = 0xc /* a collection of Mach-Os sharing a single linkedit */
)

var headerFileTypeStrings = []intName{
	{uint32(MH_OBJECT), "Relocatable Object File (MH_OBJECT)"},
	{uint32(MH_EXECUTE), "Executable (MH_EXECUTE)"},
	{uint32(MH_FVMLIB), "Fixed VM Shared Library (MH_FVMLIB)"},
	{uint32(MH_CORE), "Core File (MH_CORE)"},
	{uint32(MH_PRELOAD), "Preloaded Executable (MH_PRELOAD)"},
	{uint32(MH_DYLIB), "Dynamic Library (MH_DYLIB)"},
	{uint32(MH_DYLINKER), "Dynamic Link Editor (MH_DYLINKER)"},
	{uint32(MH_BUNDLE), "Bundle (MH_BUNDLE)"},
	{uint32(MH_DYLIB_STUB), "Dynamic Library Stub (MH_DYLIB_STUB)"},
	{uint32(MH_DSYM), "Debug Companion (MH_DSYM)"},
	{uint32(MH_KEXT_BUNDLE), "Kernel Extension Bundle (MH_KEXT_BUNDLE)"},
	{uint32(MH_FILESET), "File Set (MH_FILESET)"},
}

var headerFileTypeShortStrings = []intName{
	{uint32(MH_OBJECT), "Object"},
	{uint32(MH_EXECUTE), "Executable"},
	{uint32(MH_FVMLIB), "FVMLib"},
	{uint32(MH_CORE), "Core"},
	{uint32(MH_PRELOAD), "Preload"},
	{uint32(MH_DYLIB), "Dylib"},
	{uint32(MH_DYLINKER), "Dylinker"},
	{uint32(MH_BUNDLE), "Bundle"},
	{uint32(MH_DYLIB_STUB), "Dylib Stub"},
	{uint32(MH_DSYM), "dSYM"},
	{uint32(MH_KEXT_BUNDLE), "KEXT"},
	{uint32(MH_FILESET), "FileSet"},
}

// String is the long rendering of the file type; unknown values fall
// back to their hex form.
func (t HeaderFileType) String() string {
	return stringName(uint32(t), headerFileTypeStrings, false)
}

// Short is the one-word rendering of the file type.
func (t HeaderFileType) Short() string {
	return stringName(uint32(t), headerFileTypeShortStrings, false)
}

// A HeaderFlag is the flags bitfield of a Mach-O header.
type HeaderFlag uint32

const (
	None                  HeaderFlag = 0x0
	NoUndefs              HeaderFlag = 0x1
	IncrLink              HeaderFlag = 0x2
	DyldLink              HeaderFlag = 0x4
	BindAtLoad            HeaderFlag = 0x8
	Prebound              HeaderFlag = 0x10
	SplitSegs             HeaderFlag = 0x20
	LazyInit              HeaderFlag = 0x40
	TwoLevel              HeaderFlag = 0x80
	ForceFlat             HeaderFlag = 0x100
	NoMultiDefs           HeaderFlag = 0x200
	NoFixPrebinding       HeaderFlag = 0x400
	Prebindable           HeaderFlag = 0x800
	AllModsBound          HeaderFlag = 0x1000
	SubsectionsViaSymbols HeaderFlag = 0x2000
	Canonical             HeaderFlag = 0x4000
	WeakDefines           HeaderFlag = 0x8000
	BindsToWeak           HeaderFlag = 0x10000
	AllowStackExecution   HeaderFlag = 0x20000
	RootSafe              HeaderFlag = 0x40000
	SetuidSafe            HeaderFlag = 0x80000
	NoReexportedDylibs    HeaderFlag = 0x100000
	PIE                   HeaderFlag = 0x200000
	DeadStrippableDylib   HeaderFlag = 0x400000
	HasTLVDescriptors     HeaderFlag = 0x800000
	NoHeapExecution       HeaderFlag = 0x1000000
	AppExtensionSafe      HeaderFlag = 0x2000000
	SimSupport            HeaderFlag = 0x8000000
	DylibInCache          HeaderFlag = 0x80000000
)

var headerFlagNames = []struct {
	flag HeaderFlag
	name string
}{
	{NoUndefs, "NoUndefs"},
	{IncrLink, "IncrLink"},
	{DyldLink, "DyldLink"},
	{BindAtLoad, "BindAtLoad"},
	{Prebound, "Prebound"},
	{SplitSegs, "SplitSegs"},
	{LazyInit, "LazyInit"},
	{TwoLevel, "TwoLevel"},
	{ForceFlat, "ForceFlat"},
	{NoMultiDefs, "NoMultiDefs"},
	{NoFixPrebinding, "NoFixPrebinding"},
	{Prebindable, "Prebindable"},
	{AllModsBound, "AllModsBound"},
	{SubsectionsViaSymbols, "SubsectionsViaSymbols"},
	{Canonical, "Canonical"},
	{WeakDefines, "WeakDefines"},
	{BindsToWeak, "BindsToWeak"},
	{AllowStackExecution, "AllowStackExecution"},
	{RootSafe, "RootSafe"},
	{SetuidSafe, "SetuidSafe"},
	{NoReexportedDylibs, "NoReexportedDylibs"},
	{PIE, "PIE"},
	{DeadStrippableDylib, "DeadStrippableDylib"},
	{HasTLVDescriptors, "HasTLVDescriptors"},
	{NoHeapExecution, "NoHeapExecution"},
	{AppExtensionSafe, "AppExtensionSafe"},
	{SimSupport, "SimSupport"},
	{DylibInCache, "DylibInCache"},
}

// Has reports whether flag is set.
func (f HeaderFlag) Has(flag HeaderFlag) bool { return f&flag != 0 }

// Set sets or clears flag.
func (f *HeaderFlag) Set(flag HeaderFlag, set bool) {
	if set {
		*f |= flag
	} else {
		*f &^= flag
	}
}

// List returns the names of all set flags.
func (f HeaderFlag) List() []string {
	var flags []string
	if f == None {
		return []string{"None"}
	}
	for _, fn := range headerFlagNames {
		if f.Has(fn.flag) {
			flags = append(flags, fn.name)
		}
	}
	return flags
}

func (f HeaderFlag) Flags() string {
	return strings.Join(f.List(), ", ")
}
