package macho

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMagic means the first 4 bytes match none of the known
	// Mach-O or universal-binary constants.
	ErrInvalidMagic = errors.New("invalid magic number")
	// ErrUnsupportedArchitecture means the magic is recognized but the
	// file class is not parsed here (32-bit Mach-O, or a universal
	// binary handed to NewFile instead of NewFatFile).
	ErrUnsupportedArchitecture = errors.New("unsupported architecture")
	// ErrOutOfBounds means a computed offset or length exceeds the
	// byte source's extent.
	ErrOutOfBounds = errors.New("read out of bounds")
	// ErrMalformedLoadCommand means a command's cmdsize is below the
	// 8-byte prefix or would advance the cursor past the command-table
	// budget.
	ErrMalformedLoadCommand = errors.New("malformed load command")
	// ErrSizeofCmdsMismatch is the non-fatal anomaly reported when the
	// parsed commands do not sum to the header's sizeofcmds.
	ErrSizeofCmdsMismatch = errors.New("sizeofcmds does not match parsed commands")
	// ErrTrailingDataOverrun means a command's variable-length payload
	// (string, tool list) would exceed its own cmdsize. The record is
	// kept undecoded with the error attached.
	ErrTrailingDataOverrun = errors.New("payload overruns load command")
)

// FormatError is returned by parsing operations when the data does not
// have the correct format. It wraps one of the sentinel errors above
// and records the file offset of the offending record.
type FormatError struct {
	off int64
	msg string
	err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s in record at byte %#x: %v", e.msg, e.off, e.err)
}

func (e *FormatError) Unwrap() error { return e.err }

// Offset is the file offset of the record the error was found in.
func (e *FormatError) Offset() int64 { return e.off }

func formatError(off int64, err error, format string, a ...interface{}) *FormatError {
	return &FormatError{off: off, msg: fmt.Sprintf(format, a...), err: err}
}
