package types

import (
	"fmt"
	"strconv"
)

// UUID is the 128-bit unique identifier from an LC_UUID command.
type UUID [16]byte

// String renders the UUID in the canonical hyphenated 8-4-4-4-12 form.
func (u UUID) String() string {
	return fmt.Sprintf("%02X%02X%02X%02X-%02X%02X-%02X%02X-%02X%02X-%02X%02X%02X%02X%02X%02X",
		u[0], u[1], u[2], u[3], u[4], u[5], u[6], u[7], u[8], u[9], u[10], u[11], u[12], u[13], u[14], u[15])
}

// A Version is an OS or tool version packed into a uint32 as
// xxxx.yy.zz nibbles: X in the high 16 bits, Y and Z in a byte each.
type Version uint32

// PackVersion packs an X.Y.Z triple into its on-disk form.
func PackVersion(x uint16, y, z uint8) Version {
	return Version(uint32(x)<<16 | uint32(y)<<8 | uint32(z))
}

// Triple unpacks the X.Y.Z components.
func (v Version) Triple() (x uint16, y, z uint8) {
	return uint16(v >> 16), uint8(v >> 8), uint8(v)
}

func (v Version) String() string {
	x, y, z := v.Triple()
	return fmt.Sprintf("%d.%d.%d", x, y, z)
}

// A SrcVersion is an LC_SOURCE_VERSION value: A.B.C.D.E packed as
// a24.b10.c10.d10.e10 (A in the high 24 bits, then four 10-bit fields).
type SrcVersion uint64

// PackSrcVersion packs the five source-version components into their
// on-disk form.
func PackSrcVersion(a uint32, b, c, d, e uint16) SrcVersion {
	return SrcVersion(uint64(a)<<40 |
		uint64(b&0x3ff)<<30 |
		uint64(c&0x3ff)<<20 |
		uint64(d&0x3ff)<<10 |
		uint64(e&0x3ff))
}

// Components unpacks the five source-version components.
func (sv SrcVersion) Components() (a uint32, b, c, d, e uint16) {
	return uint32(sv >> 40),
		uint16(sv>>30) & 0x3ff,
		uint16(sv>>20) & 0x3ff,
		uint16(sv>>10) & 0x3ff,
		uint16(sv) & 0x3ff
}

func (sv SrcVersion) String() string {
	a, b, c, d, e := sv.Components()
	return fmt.Sprintf("%d.%d.%d.%d.%d", a, b, c, d, e)
}

// Platform is the target platform of an LC_BUILD_VERSION command.
type Platform uint32

const (
	PlatformMacOS            Platform = 1  // PLATFORM_MACOS
	PlatformIOS              Platform = 2  // PLATFORM_IOS
	PlatformTvOS             Platform = 3  // PLATFORM_TVOS
	PlatformWatchOS          Platform = 4  // PLATFORM_WATCHOS
	PlatformBridgeOS         Platform = 5  // PLATFORM_BRIDGEOS
	PlatformMacCatalyst      Platform = 6  // PLATFORM_MACCATALYST
	PlatformIOSSimulator     Platform = 7  // PLATFORM_IOSSIMULATOR
	PlatformTvOSSimulator    Platform = 8  // PLATFORM_TVOSSIMULATOR
	PlatformWatchOSSimulator Platform = 9  // PLATFORM_WATCHOSSIMULATOR
	PlatformDriverKit        Platform = 10 // PLATFORM_DRIVERKIT
)

var platformStrings = []intName{
	{uint32(PlatformMacOS), "macOS"},
	{uint32(PlatformIOS), "iOS"},
	{uint32(PlatformTvOS), "tvOS"},
	{uint32(PlatformWatchOS), "watchOS"},
	{uint32(PlatformBridgeOS), "bridgeOS"},
	{uint32(PlatformMacCatalyst), "macCatalyst"},
	{uint32(PlatformIOSSimulator), "iOS Simulator"},
	{uint32(PlatformTvOSSimulator), "tvOS Simulator"},
	{uint32(PlatformWatchOSSimulator), "watchOS Simulator"},
	{uint32(PlatformDriverKit), "DriverKit"},
}

func (p Platform) String() string { return stringName(uint32(p), platformStrings, false) }

// Tool identifies the build tool of a build_tool_version entry.
type Tool uint32

const (
	ToolClang Tool = 1 // TOOL_CLANG
	ToolSwift Tool = 2 // TOOL_SWIFT
	ToolLD    Tool = 3 // TOOL_LD
)

var toolStrings = []intName{
	{uint32(ToolClang), "clang"},
	{uint32(ToolSwift), "swift"},
	{uint32(ToolLD), "ld"},
}

func (t Tool) String() string { return stringName(uint32(t), toolStrings, false) }

// A BuildToolVersion is one trailing (tool, version) pair of an
// LC_BUILD_VERSION command.
type BuildToolVersion struct {
	Tool    Tool    /* enum for the tool */
	Version Version /* version number of the tool */
}

func (b BuildToolVersion) String() string {
	return fmt.Sprintf("%s (%s)", b.Tool, b.Version)
}

type intName struct {
	i uint32
	s string
}

func stringName(i uint32, names []intName, goSyntax bool) string {
	for _, n := range names {
		if n.i == i {
			if goSyntax {
				return "types." + n.s
			}
			return n.s
		}
	}
	return "0x" + strconv.FormatUint(uint64(i), 16)
}
