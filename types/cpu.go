package types

// A CPU is a Mach-O cpu type: a base architecture id, optionally OR'd
// with an ABI-width mask for the 64-bit variants.
type CPU uint32

const (
	CPUArchMask    CPU = 0xff000000 // mask for architecture bits
	CPUArchABI64   CPU = 0x01000000 // 64 bit ABI
	CPUArchABI6432 CPU = 0x02000000 // ABI for 64-bit hardware with 32-bit types; LP32
)

const (
	CPU386     CPU = 7
	CPUAmd64   CPU = CPU386 | CPUArchABI64
	CPUArm     CPU = 12
	CPUArm64   CPU = CPUArm | CPUArchABI64
	CPUArm6432 CPU = CPUArm | CPUArchABI6432
	CPUPpc     CPU = 18
	CPUPpc64   CPU = CPUPpc | CPUArchABI64
)

// Is64bit reports whether the cpu type carries the 64-bit ABI mask.
func (c CPU) Is64bit() bool { return c&CPUArchABI64 != 0 }

// Base strips the ABI-width mask, leaving the base architecture id.
func (c CPU) Base() CPU { return c &^ CPUArchMask }

var cpuStrings = []intName{
	{uint32(CPU386), "i386"},
	{uint32(CPUAmd64), "x86_64"},
	{uint32(CPUArm), "ARM"},
	{uint32(CPUArm64), "AARCH64"},
	{uint32(CPUArm6432), "ARM64_32"},
	{uint32(CPUPpc), "PowerPC"},
	{uint32(CPUPpc64), "PowerPC 64"},
}

func (c CPU) String() string   { return stringName(uint32(c), cpuStrings, false) }
func (c CPU) GoString() string { return stringName(uint32(c), cpuStrings, true) }

// CPUSubtype is a machine specifier; its meaning depends on the cpu type.
type CPUSubtype uint32

// X86 subtypes
const (
	CPUSubtypeX8664All CPUSubtype = 3
	CPUSubtypeX86Arch1 CPUSubtype = 4
	CPUSubtypeX86_64H  CPUSubtype = 8
)

// ARM subtypes
const (
	CPUSubtypeArmAll CPUSubtype = 0
	CPUSubtypeArmV7  CPUSubtype = 9
	CPUSubtypeArmV7S CPUSubtype = 11
	CPUSubtypeArmV7K CPUSubtype = 12
	CPUSubtypeArmV8  CPUSubtype = 13
)

// ARM64 subtypes
const (
	CPUSubtypeArm64All CPUSubtype = 0
	CPUSubtypeArm64V8  CPUSubtype = 1
	CPUSubtypeArm64E   CPUSubtype = 2
)

// Capability bits used in the definition of cpu_subtype.
const (
	CPUSubtypeFeatureMask CPUSubtype = 0xff000000                         /* mask for feature flags */
	CPUSubtypeMask                   = CPUSubtype(^CPUSubtypeFeatureMask) /* mask for cpu subtype */
	CPUSubtypeLib64       CPUSubtype = 0x80000000                         /* 64 bit libraries */
	CPUSubtypePtrauthABI  CPUSubtype = 0x80000000                         /* pointer authentication with versioned ABI */
)

var cpuSubtypeX86Strings = []intName{
	{uint32(CPUSubtypeX8664All), "x86_64 All"},
	{uint32(CPUSubtypeX86Arch1), "x86 Arch1"},
	{uint32(CPUSubtypeX86_64H), "x86_64 (Haswell)"},
}
var cpuSubtypeArmStrings = []intName{
	{uint32(CPUSubtypeArmAll), "ARM All"},
	{uint32(CPUSubtypeArmV7), "ARMv7"},
	{uint32(CPUSubtypeArmV7S), "ARMv7s"},
	{uint32(CPUSubtypeArmV7K), "ARMv7k"},
	{uint32(CPUSubtypeArmV8), "ARMv8"},
}
var cpuSubtypeArm64Strings = []intName{
	{uint32(CPUSubtypeArm64All), "ARM64"},
	{uint32(CPUSubtypeArm64V8), "ARM64 (ARMv8)"},
	{uint32(CPUSubtypeArm64E), "ARM64e (ARMv8.3)"},
}

// String renders the subtype for the given cpu type; unknown values
// fall back to their hex form.
func (st CPUSubtype) String(cpu CPU) string {
	switch cpu {
	case CPU386, CPUAmd64:
		return stringName(uint32(st&CPUSubtypeMask), cpuSubtypeX86Strings, false)
	case CPUArm:
		return stringName(uint32(st&CPUSubtypeMask), cpuSubtypeArmStrings, false)
	case CPUArm64, CPUArm6432:
		return stringName(uint32(st&CPUSubtypeMask), cpuSubtypeArm64Strings, false)
	}
	return stringName(uint32(st&CPUSubtypeMask), nil, false)
}
