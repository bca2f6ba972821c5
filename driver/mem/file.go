package mem

import (
	"fmt"

	"github.com/nuln/vfsbox"
)

// ckptTrigger tracks bytes written since the last successful commit and
// decides when to invoke the external checkpoint facility. The counter
// resets only on commit success, so the next evaluation still owes any
// bytes written before a failed commit.
type ckptTrigger struct {
	ckpt      vfsbox.Checkpointer
	session   int64
	threshold int64 // 0 disables write-triggered commits
	onSync    bool
	written   int64
}

// noteWrite records n freshly written bytes and commits when the
// threshold is crossed.
func (t *ckptTrigger) noteWrite(n int) error {
	t.written += int64(n)
	if t.threshold == 0 {
		return nil
	}
	if t.written > t.threshold {
		if err := t.ckpt.Commit(t.session); err != nil {
			return fmt.Errorf("vfsbox/mem: commit session %d: %w", t.session, vfsbox.ErrSnapshot)
		}
		t.written = 0
	}
	return nil
}

// syncCommit commits on Sync when configured and anything is pending.
func (t *ckptTrigger) syncCommit() error {
	if !t.onSync || t.written == 0 {
		return nil
	}
	if err := t.ckpt.Commit(t.session); err != nil {
		return fmt.Errorf("vfsbox/mem: commit session %d: %w", t.session, vfsbox.ErrSnapshot)
	}
	t.written = 0
	return nil
}

// memFile is a memory-backed file handle. The region behind data is
// owned by the caller that opened the file; the handle never allocates,
// grows or frees it. Single writer is an external precondition: no
// internal mutual exclusion is provided.
type memFile struct {
	data    []byte // full-capacity view of the caller-owned region
	addr    uint64
	size    int64 // current logical size, size <= len(data)
	trigger ckptTrigger
	name    string

	// Parallel handle on the delegate provider. Never used for data
	// I/O; kept so external tooling sees a filesystem entry, closed
	// with this handle.
	delegate vfsbox.File
}

// ReadAt copies from the region without bounds validation against size
// or capacity: the engine is trusted to request in-range reads only.
// Requests past the capacity violate the precondition and panic.
func (f *memFile) ReadAt(b []byte, off int64) (int, error) {
	return copy(b, f.data[off:]), nil
}

func (f *memFile) WriteAt(b []byte, off int64) (int, error) {
	end := off + int64(len(b))
	if end > int64(len(f.data)) {
		return 0, fmt.Errorf("vfsbox/mem: write [%d,%d) exceeds capacity %d: %w",
			off, end, len(f.data), vfsbox.ErrFull)
	}

	copy(f.data[off:], b)
	if end > f.size {
		f.size = end
	}

	// The copy above is final regardless of the commit outcome: a
	// failed commit reports an error without undoing it.
	if err := f.trigger.noteWrite(len(b)); err != nil {
		return len(b), err
	}
	return len(b), nil
}

func (f *memFile) Truncate(size int64) error {
	if size > f.size {
		if size > int64(len(f.data)) {
			return fmt.Errorf("vfsbox/mem: truncate to %d exceeds capacity %d: %w",
				size, len(f.data), vfsbox.ErrFull)
		}
		clear(f.data[f.size:size])
	}
	// Shrinking leaves the tail bytes in place; a later regrowth
	// re-zeroes them via the branch above.
	f.size = size
	return nil
}

func (f *memFile) Sync(flags vfsbox.SyncFlag) error {
	return f.trigger.syncCommit()
}

func (f *memFile) Size() (int64, error) {
	return f.size, nil
}

// Lock, Unlock and CheckReservedLock succeed without doing anything:
// mutual exclusion over the region is the caller's responsibility.
func (f *memFile) Lock(lvl vfsbox.LockLevel) error   { return nil }
func (f *memFile) Unlock(lvl vfsbox.LockLevel) error { return nil }

func (f *memFile) CheckReservedLock() (bool, error) {
	return false, nil
}

func (f *memFile) FileControl(op vfsbox.FcntlOp, arg any) error {
	if op == vfsbox.FcntlVFSName {
		if s, ok := arg.(*string); ok {
			*s = fmt.Sprintf("mem(0x%x,%d)", f.addr, f.size)
			return nil
		}
		return vfsbox.ErrInvalid
	}
	return vfsbox.ErrNotSupported
}

func (f *memFile) SectorSize() int {
	return 1024
}

// DeviceCharacteristics reports memory semantics: atomic, power-safe,
// append-safe, sequential. The engine may skip rollback journaling on
// the strength of these.
func (f *memFile) DeviceCharacteristics() vfsbox.DeviceFlag {
	return vfsbox.DeviceAtomic |
		vfsbox.DevicePowersafeOverwrite |
		vfsbox.DeviceSafeAppend |
		vfsbox.DeviceSequential
}

// ShmMap and ShmLock are deliberately unimplemented: multi-process
// shared-memory coordination over a caller-owned region is out of
// scope.
func (f *memFile) ShmMap(region, pageSize int, extend bool) ([]byte, error) {
	return nil, vfsbox.ErrShmUnsupported
}

func (f *memFile) ShmLock(offset, n int, flags vfsbox.ShmLockFlag) error {
	return vfsbox.ErrShmUnsupported
}

func (f *memFile) ShmBarrier() {}

func (f *memFile) ShmUnmap(del bool) error {
	return nil
}

// Fetch returns a direct view into the region, no copy.
func (f *memFile) Fetch(off int64, n int) ([]byte, error) {
	return f.data[off : off+int64(n) : off+int64(n)], nil
}

func (f *memFile) Unfetch(off int64, b []byte) error {
	return nil
}

// Close closes the parallel delegate handle. The region itself is owned
// by the caller and is not released.
func (f *memFile) Close() error {
	return f.delegate.Close()
}

// Compile-time interface check.
var _ vfsbox.File = (*memFile)(nil)
