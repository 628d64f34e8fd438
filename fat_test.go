package macho

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/machlab/go-macho/types"
)

// newFatImage lays out a universal binary: big-endian (or given order)
// header and arch table, then each slice's bytes at its recorded
// offset.
func newFatImage(bo binary.ByteOrder, slices ...[]byte) ([]byte, []types.FatArch) {
	offset := uint32(types.FatHeaderSize + len(slices)*types.FatArchSize)
	arches := make([]types.FatArch, len(slices))
	cpus := []types.CPU{types.CPUArm64, types.CPUAmd64, types.CPUArm}
	for i, s := range slices {
		arches[i] = types.FatArch{
			CPU:    cpus[i%len(cpus)],
			SubCPU: 0,
			Offset: offset,
			Size:   uint32(len(s)),
			Align:  2,
		}
		offset += uint32(len(s))
	}

	img := make([]byte, types.FatHeaderSize)
	bo.PutUint32(img[0:], uint32(types.MagicFat))
	bo.PutUint32(img[4:], uint32(len(slices)))
	for i := range arches {
		var rec [types.FatArchSize]byte
		arches[i].Put(rec[:], bo)
		img = append(img, rec[:]...)
	}
	for _, s := range slices {
		img = append(img, s...)
	}
	return img, arches
}

func TestFatTwoArches(t *testing.T) {
	le := binary.LittleEndian
	img, want := newFatImage(binary.BigEndian,
		newImage(le, newCmd(le, types.LC_UUID, types.UUID{1})),
		newImage(le, newCmd(le, types.LC_UUID, types.UUID{2})),
	)
	ff, err := NewFatFile(bytes.NewReader(img))
	if err != nil {
		t.Fatalf("NewFatFile: %v", err)
	}
	if ff.NFatArch != 2 {
		t.Errorf("NFatArch = %d, want 2", ff.NFatArch)
	}
	if diff := cmp.Diff(want, ff.Arches); diff != "" {
		t.Errorf("arch table mismatch (-want +got):\n%s", diff)
	}

	for i := range want {
		f, err := ff.Slice(i)
		if err != nil {
			t.Fatalf("Slice(%d): %v", i, err)
		}
		u, ok := f.UUID()
		if !ok || u[0] != byte(i+1) {
			t.Errorf("Slice(%d) UUID = %v, %v", i, u, ok)
		}
	}

	if _, ok := ff.Arch(types.CPUArm64); !ok {
		t.Error("Arch(CPUArm64) not found")
	}
	if _, ok := ff.Arch(types.CPUPpc); ok {
		t.Error("Arch(CPUPpc) found in arm64/amd64 binary")
	}
	if _, err := ff.Slice(2); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Slice(2) = %v, want ErrOutOfBounds", err)
	}
}

func TestFatSwappedContainer(t *testing.T) {
	le := binary.LittleEndian
	img, want := newFatImage(le,
		newImage(le, newCmd(le, types.LC_UUID, types.UUID{1})),
	)
	ff, err := NewFatFile(bytes.NewReader(img))
	if err != nil {
		t.Fatalf("NewFatFile: %v", err)
	}
	if ff.ByteOrder != le {
		t.Errorf("ByteOrder = %v, want LittleEndian", ff.ByteOrder)
	}
	if diff := cmp.Diff(want, ff.Arches); diff != "" {
		t.Errorf("arch table mismatch (-want +got):\n%s", diff)
	}
}

func TestFatArchOutOfBounds(t *testing.T) {
	le := binary.LittleEndian
	img, _ := newFatImage(binary.BigEndian,
		newImage(le, newCmd(le, types.LC_UUID, types.UUID{1})),
		newImage(le, newCmd(le, types.LC_UUID, types.UUID{2})),
	)
	// corrupt the second arch record's size so offset+size overruns:
	// the whole parse must fail, not return a partial manifest
	binary.BigEndian.PutUint32(img[types.FatHeaderSize+types.FatArchSize+12:], 1<<30)
	_, err := NewFatFile(bytes.NewReader(img))
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("NewFatFile = %v, want ErrOutOfBounds", err)
	}
}

func TestFatTruncatedArchTable(t *testing.T) {
	le := binary.LittleEndian
	img, _ := newFatImage(binary.BigEndian,
		newImage(le, newCmd(le, types.LC_UUID, types.UUID{1})),
	)
	_, err := NewFatFile(bytes.NewReader(img[:types.FatHeaderSize+4]))
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("NewFatFile on truncated table = %v, want ErrOutOfBounds", err)
	}
}

func TestFatNoArches(t *testing.T) {
	// a header-only container ends exactly where the (empty) arch
	// table begins; the zero-length table read must not error
	var img [types.FatHeaderSize]byte
	binary.BigEndian.PutUint32(img[0:], uint32(types.MagicFat))
	ff, err := NewFatFile(bytes.NewReader(img[:]))
	if err != nil {
		t.Fatalf("NewFatFile: %v", err)
	}
	if ff.NFatArch != 0 || len(ff.Arches) != 0 {
		t.Errorf("Arches = %d records, want 0", len(ff.Arches))
	}
}

func TestFatOnThinFile(t *testing.T) {
	img := newImage(binary.LittleEndian)
	_, err := NewFatFile(bytes.NewReader(img))
	if !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("NewFatFile on thin Mach-O = %v, want ErrInvalidMagic", err)
	}
}
