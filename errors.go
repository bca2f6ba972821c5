package vfsbox

import (
	"errors"
	"os"
)

// Common storage errors. Where possible, these alias os package errors
// for compatibility with os.IsNotExist, os.IsPermission, etc.
var (
	ErrNotFound   = os.ErrNotExist
	ErrExist      = os.ErrExist
	ErrPermission = os.ErrPermission
	ErrInvalid    = os.ErrInvalid
	ErrClosed     = errors.New("vfsbox: already closed")

	// ErrCantOpen reports missing or invalid required open-time
	// configuration.
	ErrCantOpen = errors.New("vfsbox: cannot open file")

	// ErrFull reports a write or truncate that would grow a file past
	// its fixed capacity.
	ErrFull = errors.New("vfsbox: file capacity exceeded")

	// ErrSnapshot reports a failed checkpoint commit. The buffer
	// mutation that triggered the commit has already been applied.
	ErrSnapshot = errors.New("vfsbox: checkpoint commit failed")

	// ErrInternal reports that a checkpoint session could not start.
	ErrInternal = errors.New("vfsbox: checkpoint session start failed")

	// ErrShmUnsupported reports a shared-memory map or lock request on
	// a driver that does not coordinate shared memory.
	ErrShmUnsupported = errors.New("vfsbox: shared-memory operation not supported")

	// ErrNotSupported reports an operation or fileControl op the driver
	// does not implement.
	ErrNotSupported = errors.New("vfsbox: operation not supported by this driver")
)
