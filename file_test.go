package macho

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/machlab/go-macho/types"
)

// newCmd builds a full load command: the 8-byte (cmd, cmdsize) prefix
// followed by the encoded fields and any trailing bytes.
func newCmd(bo binary.ByteOrder, cmd types.LoadCmd, fields ...interface{}) []byte {
	var body bytes.Buffer
	for _, f := range fields {
		if s, ok := f.(string); ok {
			body.WriteString(s)
			body.WriteByte(0)
			continue
		}
		if err := binary.Write(&body, bo, f); err != nil {
			panic(err)
		}
	}
	b := make([]byte, 8+body.Len())
	bo.PutUint32(b[0:], uint32(cmd))
	bo.PutUint32(b[4:], uint32(len(b)))
	copy(b[8:], body.Bytes())
	return b
}

// newImage assembles a 64-bit Mach-O: header plus command table, with
// ncmds and sizeofcmds derived from the commands given.
func newImage(bo binary.ByteOrder, cmds ...[]byte) []byte {
	hdr := types.FileHeader{
		Magic:  types.Magic64,
		CPU:    types.CPUArm64,
		SubCPU: types.CPUSubtypeArm64All,
		Type:   types.MH_EXECUTE,
		Flags:  types.NoUndefs | types.DyldLink | types.TwoLevel | types.PIE,
	}
	for _, c := range cmds {
		hdr.NCommands++
		hdr.SizeCommands += uint32(len(c))
	}
	img := make([]byte, types.FileHeaderSize64)
	hdr.Put(img, bo)
	for _, c := range cmds {
		img = append(img, c...)
	}
	return img
}

func parseImage(t *testing.T, img []byte) *File {
	t.Helper()
	f, err := NewFile(bytes.NewReader(img))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	return f
}

func TestEmptyHeader(t *testing.T) {
	for _, bo := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		img := newImage(bo)
		// a header-only file ends exactly where the (empty) command
		// table begins; the zero-length table read must not error
		if len(img) != types.FileHeaderSize64 {
			t.Fatalf("header-only image is %d bytes, want %d", len(img), types.FileHeaderSize64)
		}
		f := parseImage(t, img)
		if f.ByteOrder != bo {
			t.Errorf("ByteOrder = %v, want %v", f.ByteOrder, bo)
		}
		if f.Magic != types.Magic64 {
			t.Errorf("Magic = %v, want Magic64", f.Magic)
		}
		if f.CPU != types.CPUArm64 || f.Type != types.MH_EXECUTE {
			t.Errorf("header decoded as %s %s", f.CPU, f.Type)
		}
		if len(f.Loads) != 0 {
			t.Errorf("Loads = %d commands, want 0", len(f.Loads))
		}
		if len(f.Anomalies) != 0 {
			t.Errorf("Anomalies = %v, want none", f.Anomalies)
		}
	}
}

func TestReparseIsIdentical(t *testing.T) {
	img := newImage(binary.LittleEndian,
		newCmd(binary.LittleEndian, types.LC_UUID, types.UUID{1, 2, 3}),
		newCmd(binary.LittleEndian, types.LC_SOURCE_VERSION, types.PackSrcVersion(1, 2, 3, 4, 5)),
	)
	r := bytes.NewReader(img)
	f1, err := NewFile(r)
	if err != nil {
		t.Fatalf("first parse: %v", err)
	}
	f2, err := NewFile(r)
	if err != nil {
		t.Fatalf("second parse: %v", err)
	}
	if f1.String() != f2.String() {
		t.Errorf("re-parse differs:\n%s\nvs\n%s", f1, f2)
	}
}

func Test32BitRejected(t *testing.T) {
	img := newImage(binary.LittleEndian)
	binary.LittleEndian.PutUint32(img[0:], uint32(types.Magic32))
	_, err := NewFile(bytes.NewReader(img))
	if !errors.Is(err, ErrUnsupportedArchitecture) {
		t.Fatalf("NewFile on 32-bit magic = %v, want ErrUnsupportedArchitecture", err)
	}
}

func TestInvalidMagic(t *testing.T) {
	_, err := NewFile(bytes.NewReader([]byte{0xde, 0xad, 0xbe, 0xef, 0, 0, 0, 0}))
	if !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("NewFile on garbage = %v, want ErrInvalidMagic", err)
	}
}

func TestFatHandedToNewFile(t *testing.T) {
	var img [32]byte
	binary.BigEndian.PutUint32(img[0:], uint32(types.MagicFat))
	_, err := NewFile(bytes.NewReader(img[:]))
	if !errors.Is(err, ErrUnsupportedArchitecture) {
		t.Fatalf("NewFile on fat magic = %v, want ErrUnsupportedArchitecture", err)
	}
}

func TestTruncation(t *testing.T) {
	img := newImage(binary.LittleEndian,
		newCmd(binary.LittleEndian, types.LC_UUID, types.UUID{1}),
	)
	// Any cut before the command table completes must surface as an
	// out-of-bounds read, never a partial model.
	for _, n := range []int{0, 3, 4, 16, 31, 32, len(img) - 1} {
		_, err := NewFile(bytes.NewReader(img[:n]))
		if !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("NewFile on %d-byte prefix = %v, want ErrOutOfBounds", n, err)
		}
	}
}

func TestUUIDCommand(t *testing.T) {
	want := types.UUID{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef, 0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}
	f := parseImage(t, newImage(binary.LittleEndian,
		newCmd(binary.LittleEndian, types.LC_SOURCE_VERSION, types.SrcVersion(0)),
		newCmd(binary.LittleEndian, types.LC_UUID, want),
	))
	l := f.FindFirst(types.LC_UUID)
	if l == nil {
		t.Fatal("FindFirst(LC_UUID) = nil")
	}
	u, ok := l.(*UUID)
	if !ok {
		t.Fatalf("FindFirst(LC_UUID) = %T, want *UUID", l)
	}
	if u.UUID != want {
		t.Errorf("UUID = %v, want %v", u.UUID, want)
	}
	if got := u.String(); got != "01234567-89AB-CDEF-0123-456789ABCDEF" {
		t.Errorf("UUID.String() = %q", got)
	}
	if got, ok := f.UUID(); !ok || got != want {
		t.Errorf("File.UUID() = %v, %v", got, ok)
	}
	if u.Offset() != types.FileHeaderSize64+16 {
		t.Errorf("UUID record offset = %#x, want %#x", u.Offset(), types.FileHeaderSize64+16)
	}
}

func TestBuildVersionCommand(t *testing.T) {
	tools := []types.BuildToolVersion{
		{Tool: types.ToolClang, Version: types.PackVersion(1500, 3, 9)},
		{Tool: types.ToolLD, Version: types.PackVersion(1053, 12, 0)},
	}
	f := parseImage(t, newImage(binary.LittleEndian,
		newCmd(binary.LittleEndian, types.LC_BUILD_VERSION,
			types.PlatformIOS, uint32(0x000d0000), types.PackVersion(16, 4, 0), uint32(2),
			tools[0], tools[1]),
	))
	bv, ok := f.FindFirst(types.LC_BUILD_VERSION).(*BuildVersion)
	if !ok {
		t.Fatalf("FindFirst(LC_BUILD_VERSION) = %T, want *BuildVersion", f.Loads[0])
	}
	if bv.Platform != types.PlatformIOS {
		t.Errorf("Platform = %v, want iOS", bv.Platform)
	}
	if got := bv.Minos.String(); got != "13.0.0" {
		t.Errorf("Minos = %q, want 13.0.0", got)
	}
	if diff := cmp.Diff(tools, bv.Tools); diff != "" {
		t.Errorf("Tools mismatch (-want +got):\n%s", diff)
	}
}

func TestDylibCommands(t *testing.T) {
	le := binary.LittleEndian
	f := parseImage(t, newImage(le,
		newCmd(le, types.LC_LOAD_DYLIB,
			uint32(24), uint32(2), types.PackVersion(1, 2, 3), types.PackVersion(1, 0, 0),
			"/usr/lib/libSystem.B.dylib"),
		newCmd(le, types.LC_LOAD_WEAK_DYLIB,
			uint32(24), uint32(2), types.PackVersion(7, 0, 0), types.PackVersion(1, 0, 0),
			"/usr/lib/swift/libswiftCore.dylib"),
		newCmd(le, types.LC_RPATH, uint32(12), "@executable_path/Frameworks"),
		newCmd(le, types.LC_LOAD_DYLINKER, uint32(12), "/usr/lib/dyld"),
	))

	dylibs := f.DylibLoads()
	if len(dylibs) != 2 {
		t.Fatalf("DylibLoads() = %d records, want 2", len(dylibs))
	}
	d, ok := dylibs[0].(*Dylib)
	if !ok {
		t.Fatalf("dylib record is %T", dylibs[0])
	}
	if d.Name != "/usr/lib/libSystem.B.dylib" {
		t.Errorf("Name = %q", d.Name)
	}
	if got := d.CurrentVersion.String(); got != "1.2.3" {
		t.Errorf("CurrentVersion = %q", got)
	}
	if w := dylibs[1]; w.Command() != types.LC_LOAD_WEAK_DYLIB {
		t.Errorf("second dylib tag = %v", w.Command())
	}

	r, ok := f.FindFirst(types.LC_RPATH).(*Rpath)
	if !ok || r.Path != "@executable_path/Frameworks" {
		t.Errorf("rpath = %#v", f.FindFirst(types.LC_RPATH))
	}
	dl, ok := f.FindFirst(types.LC_LOAD_DYLINKER).(*Dylinker)
	if !ok || dl.Name != "/usr/lib/dyld" {
		t.Errorf("dylinker = %#v", f.FindFirst(types.LC_LOAD_DYLINKER))
	}
}

func TestUnterminatedNameIsBounded(t *testing.T) {
	le := binary.LittleEndian
	// Name with no NUL terminator: extraction stops at cmdsize.
	cmd := newCmd(le, types.LC_RPATH, uint32(12))
	cmd = append(cmd, []byte("abc")...)
	le.PutUint32(cmd[4:], uint32(len(cmd)))
	f := parseImage(t, newImage(le, cmd))
	r, ok := f.Loads[0].(*Rpath)
	if !ok {
		t.Fatalf("record is %T, want *Rpath", f.Loads[0])
	}
	if r.Path != "abc" {
		t.Errorf("Path = %q, want %q", r.Path, "abc")
	}
}

func TestSymtabAndFriends(t *testing.T) {
	le := binary.LittleEndian
	f := parseImage(t, newImage(le,
		newCmd(le, types.LC_SYMTAB, uint32(0x4000), uint32(25), uint32(0x5000), uint32(0x300)),
		newCmd(le, types.LC_DYSYMTAB, make([]uint32, 18)),
		newCmd(le, types.LC_MAIN, uint64(0x1f30), uint64(0)),
		newCmd(le, types.LC_FUNCTION_STARTS, uint32(0x3f00), uint32(0x20)),
		newCmd(le, types.LC_DYLD_INFO_ONLY, make([]uint32, 10)),
	))
	if f.Symtab == nil || f.Symtab.Nsyms != 25 || f.Symtab.Symoff != 0x4000 {
		t.Errorf("Symtab = %+v", f.Symtab)
	}
	if f.Dysymtab == nil {
		t.Error("Dysymtab not set")
	}
	ep, ok := f.FindFirst(types.LC_MAIN).(*EntryPoint)
	if !ok || ep.EntryOffset() != 0x1f30 {
		t.Errorf("entry point = %#v", f.FindFirst(types.LC_MAIN))
	}
	fs, ok := f.FindFirst(types.LC_FUNCTION_STARTS).(*LinkEditData)
	if !ok || fs.DataOffset() != 0x3f00 || fs.Size != 0x20 {
		t.Errorf("function starts = %#v", f.FindFirst(types.LC_FUNCTION_STARTS))
	}
	if _, ok := f.FindFirst(types.LC_DYLD_INFO, types.LC_DYLD_INFO_ONLY).(*DyldInfo); !ok {
		t.Errorf("dyld info = %#v", f.FindFirst(types.LC_DYLD_INFO_ONLY))
	}
	if f.FindFirst(types.LC_CODE_SIGNATURE) != nil {
		t.Error("FindFirst on absent tag should return nil")
	}
}

func TestSourceVersionCommand(t *testing.T) {
	le := binary.LittleEndian
	f := parseImage(t, newImage(le,
		newCmd(le, types.LC_SOURCE_VERSION, types.PackSrcVersion(2107, 60, 5, 0, 1)),
	))
	sv, ok := f.Loads[0].(*SourceVersion)
	if !ok {
		t.Fatalf("record is %T, want *SourceVersion", f.Loads[0])
	}
	if got := sv.String(); got != "2107.60.5.0.1" {
		t.Errorf("SourceVersion = %q", got)
	}
}

func TestUnknownCommandIsOpaque(t *testing.T) {
	le := binary.LittleEndian
	f := parseImage(t, newImage(le,
		newCmd(le, types.LoadCmd(0x7777), uint32(0xabad1dea)),
		newCmd(le, types.LC_UUID, types.UUID{9}),
	))
	op, ok := f.Loads[0].(LoadCmdBytes)
	if !ok {
		t.Fatalf("unknown command parsed as %T, want LoadCmdBytes", f.Loads[0])
	}
	if op.Err != nil {
		t.Errorf("opaque record carries error: %v", op.Err)
	}
	if op.Command() != types.LoadCmd(0x7777) || len(op.Raw()) != 12 {
		t.Errorf("opaque record = %v raw=%d bytes", op.Command(), len(op.Raw()))
	}
	// the unknown tag must not stop the iteration
	if _, ok := f.Loads[1].(*UUID); !ok {
		t.Errorf("command after unknown tag is %T, want *UUID", f.Loads[1])
	}
}

func TestMalformedCmdsize(t *testing.T) {
	le := binary.LittleEndian

	// cmdsize smaller than the 8-byte prefix
	small := newCmd(le, types.LC_UUID, types.UUID{})
	le.PutUint32(small[4:], 4)
	_, err := NewFile(bytes.NewReader(newImage(le, small)))
	if !errors.Is(err, ErrMalformedLoadCommand) {
		t.Errorf("cmdsize<8 = %v, want ErrMalformedLoadCommand", err)
	}

	// cmdsize advancing past sizeofcmds
	big := newCmd(le, types.LC_UUID, types.UUID{})
	img := newImage(le, big)
	le.PutUint32(img[types.FileHeaderSize64+4:], 4096)
	_, err = NewFile(bytes.NewReader(img))
	if !errors.Is(err, ErrMalformedLoadCommand) {
		t.Errorf("cmdsize>sizeofcmds = %v, want ErrMalformedLoadCommand", err)
	}

	// ncmds claiming more commands than sizeofcmds holds
	img = newImage(le, big)
	le.PutUint32(img[16:], 2) // ncmds
	_, err = NewFile(bytes.NewReader(img))
	if !errors.Is(err, ErrMalformedLoadCommand) {
		t.Errorf("ncmds overrun = %v, want ErrMalformedLoadCommand", err)
	}
}

func TestHostileNCommands(t *testing.T) {
	le := binary.LittleEndian
	// a tiny file claiming a billion commands must be rejected before
	// the command list is sized, not crash the process allocating it
	img := newImage(le, newCmd(le, types.LC_UUID, types.UUID{}))
	le.PutUint32(img[16:], 1<<30) // ncmds
	_, err := NewFile(bytes.NewReader(img))
	if !errors.Is(err, ErrMalformedLoadCommand) {
		t.Fatalf("hostile ncmds = %v, want ErrMalformedLoadCommand", err)
	}
}

func TestSizeofCmdsMismatchAnomaly(t *testing.T) {
	le := binary.LittleEndian
	img := newImage(le, newCmd(le, types.LC_UUID, types.UUID{1}))
	// inflate sizeofcmds by 8 and pad the table: the commands no longer
	// sum to the declared budget
	le.PutUint32(img[20:], le.Uint32(img[20:])+8)
	img = append(img, make([]byte, 8)...)

	f := parseImage(t, img)
	if len(f.Loads) != 1 {
		t.Fatalf("Loads = %d, want 1", len(f.Loads))
	}
	if len(f.Anomalies) != 1 || !errors.Is(f.Anomalies[0], ErrSizeofCmdsMismatch) {
		t.Errorf("Anomalies = %v, want one ErrSizeofCmdsMismatch", f.Anomalies)
	}
}

func TestTrailingDataOverrunDegradesRecord(t *testing.T) {
	le := binary.LittleEndian

	// LC_BUILD_VERSION declaring five tools but carrying none
	bad := newCmd(le, types.LC_BUILD_VERSION,
		types.PlatformMacOS, types.PackVersion(14, 0, 0), types.PackVersion(14, 2, 0), uint32(5))
	f := parseImage(t, newImage(le,
		bad,
		newCmd(le, types.LC_UUID, types.UUID{7}),
	))

	op, ok := f.Loads[0].(LoadCmdBytes)
	if !ok {
		t.Fatalf("overrunning command parsed as %T, want LoadCmdBytes", f.Loads[0])
	}
	if !errors.Is(op.Err, ErrTrailingDataOverrun) {
		t.Errorf("record error = %v, want ErrTrailingDataOverrun", op.Err)
	}
	// one bad command must not hide the rest
	if _, ok := f.Loads[1].(*UUID); !ok {
		t.Errorf("command after degraded record is %T, want *UUID", f.Loads[1])
	}

	// dylib name offset outside the command degrades the same way
	baddylib := newCmd(le, types.LC_LOAD_DYLIB,
		uint32(200), uint32(0), types.Version(0), types.Version(0))
	f = parseImage(t, newImage(le, baddylib))
	op, ok = f.Loads[0].(LoadCmdBytes)
	if !ok || !errors.Is(op.Err, ErrTrailingDataOverrun) {
		t.Errorf("bad name offset record = %#v", f.Loads[0])
	}
}

func TestLoadsString(t *testing.T) {
	le := binary.LittleEndian
	f := parseImage(t, newImage(le,
		newCmd(le, types.LC_UUID, types.UUID{1, 2}),
		newCmd(le, types.LC_RPATH, uint32(12), "@loader_path"),
	))
	out := f.String()
	for _, want := range []string{"LC_UUID", "LC_RPATH", "@loader_path", "64-bit MachO"} {
		if !strings.Contains(out, want) {
			t.Errorf("File.String() missing %q:\n%s", want, out)
		}
	}
}
