package vfsbox

import (
	"time"
)

// Provider defines the unified interface for all storage providers.
// All driver implementations must satisfy this interface.
//
// A Provider owns the provider-level operations of the contract; the
// per-file operations live on the [File] values it opens.
type Provider interface {
	// Open opens the file identified by name. Flags describe the role of
	// the file (main database, journal, WAL, ...) and the access mode.
	// The returned flags report the access mode actually granted.
	Open(name string, flags OpenFlag) (File, OpenFlag, error)

	// Delete removes the file identified by name. If syncDir is true the
	// containing directory is synced before returning.
	Delete(name string, syncDir bool) error

	// Access reports whether the file identified by name satisfies the
	// requested access check.
	Access(name string, flag AccessFlag) (bool, error)

	// FullPathname returns the canonical form of name.
	FullPathname(name string) (string, error)

	// Randomness fills p with random bytes and returns the number written.
	Randomness(p []byte) (int, error)

	// Sleep pauses the calling goroutine for at least d and returns the
	// duration actually slept.
	Sleep(d time.Duration) time.Duration

	// CurrentTime returns the current time.
	CurrentTime() (time.Time, error)

	// LastError returns the most recent provider-level error, or nil.
	LastError() error
}

// File is an open file handle. Every per-file operation of the storage
// contract is a method here; a driver that cannot support an operation
// returns ErrNotSupported (or ErrShmUnsupported for the shared-memory
// operations) rather than panicking.
type File interface {
	// ReadAt copies len(p) bytes from offset off into p.
	ReadAt(p []byte, off int64) (int, error)

	// WriteAt copies len(p) bytes from p to offset off.
	WriteAt(p []byte, off int64) (int, error)

	// Truncate sets the file length to size.
	Truncate(size int64) error

	// Sync flushes the file to durable storage.
	Sync(flags SyncFlag) error

	// Size returns the current file length in bytes.
	Size() (int64, error)

	// Lock upgrades the handle's lock to at least lvl.
	Lock(lvl LockLevel) error

	// Unlock downgrades the handle's lock to at most lvl.
	Unlock(lvl LockLevel) error

	// CheckReservedLock reports whether any handle holds a lock at
	// LockReserved or higher on this file.
	CheckReservedLock() (bool, error)

	// FileControl performs the driver-specific operation op. Results are
	// returned through arg (for example *string for FcntlVFSName).
	// Unrecognized operations return ErrNotSupported.
	FileControl(op FcntlOp, arg any) error

	// SectorSize returns the natural write granularity of the
	// underlying device.
	SectorSize() int

	// DeviceCharacteristics reports the durability properties of the
	// underlying device.
	DeviceCharacteristics() DeviceFlag

	// ShmMap maps region index region (pageSize bytes each) of the
	// file's shared-memory area, extending it when extend is true.
	ShmMap(region, pageSize int, extend bool) ([]byte, error)

	// ShmLock acquires or releases locks on shared-memory slots
	// [offset, offset+n).
	ShmLock(offset, n int, flags ShmLockFlag) error

	// ShmBarrier establishes a memory barrier over the shared-memory area.
	ShmBarrier()

	// ShmUnmap releases the handle's shared-memory mappings; when del is
	// true the underlying region is deleted as well.
	ShmUnmap(del bool) error

	// Fetch returns n bytes at offset off, directly referencing the
	// underlying storage when the driver supports memory-mapped access.
	Fetch(off int64, n int) ([]byte, error)

	// Unfetch releases a region previously returned by Fetch.
	Unfetch(off int64, p []byte) error

	// Close releases the handle.
	Close() error
}

// Checkpointer is the external commit facility consumed by drivers that
// checkpoint an in-memory region. It is opaque beyond success or
// failure; sessions are keyed by an opaque integer identifier.
type Checkpointer interface {
	// Begin starts a checkpoint session for the identifier.
	Begin(session int64) error

	// Commit durably commits everything written since the last
	// successful Commit for the identifier. Blocking and synchronous.
	Commit(session int64) error
}
