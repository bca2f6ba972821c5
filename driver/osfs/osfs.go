// Package osfs implements the conventional file-storage provider on top
// of afero. It is the always-available fallback and the delegate used
// by wrapping drivers for journals, WALs and other auxiliary files.
package osfs

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/nuln/vfsbox"
)

// Auto-register conventional storage driver. It also installs itself as
// the process default so wrapping drivers always find a delegate.
func init() {
	vfsbox.Register("os", func(cfg *vfsbox.Config) (vfsbox.Provider, error) {
		if cfg.BasePath == "" {
			return New(".")
		}
		return New(cfg.BasePath)
	})
	if p, err := New("."); err == nil {
		vfsbox.SetDefaultIfUnset(p)
	}
}

// Provider implements vfsbox.Provider for conventional file storage.
type Provider struct {
	fs    afero.Fs
	root  string
	locks *lockTable
	shm   *shmRegistry

	mu      sync.Mutex
	lastErr error
}

// New creates a Provider rooted at the given directory.
func New(root string) (*Provider, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(absRoot, 0750); err != nil {
		return nil, err
	}
	return NewWithFs(afero.NewBasePathFs(afero.NewOsFs(), absRoot)), nil
}

// NewWithFs creates a Provider backed by a custom afero.Fs.
// This is useful for testing with afero.MemMapFs.
func NewWithFs(fs afero.Fs) *Provider {
	return &Provider{
		fs:    fs,
		root:  ".",
		locks: newLockTable(),
		shm:   newShmRegistry(),
	}
}

func (p *Provider) fail(err error) error {
	if err != nil {
		p.mu.Lock()
		p.lastErr = err
		p.mu.Unlock()
	}
	return err
}

// Open opens the file identified by name. URI-style query parameters in
// the name are not interpreted by this driver; they are stripped before
// touching the filesystem so a wrapped name still maps to one entry.
func (p *Provider) Open(name string, flags vfsbox.OpenFlag) (vfsbox.File, vfsbox.OpenFlag, error) {
	path, _ := vfsbox.SplitName(name)

	oflag := os.O_RDONLY
	outFlags := vfsbox.OpenReadOnly
	if flags&vfsbox.OpenReadWrite != 0 {
		oflag = os.O_RDWR
		outFlags = vfsbox.OpenReadWrite
	}
	if flags&vfsbox.OpenCreate != 0 {
		oflag |= os.O_CREATE
		if err := p.fs.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, 0, p.fail(err)
		}
	}

	f, err := p.fs.OpenFile(path, oflag, 0644)
	if err != nil {
		return nil, 0, p.fail(err)
	}
	return &file{p: p, f: f, path: path}, outFlags, nil
}

func (p *Provider) Delete(name string, syncDir bool) error {
	path, _ := vfsbox.SplitName(name)
	if err := p.fs.Remove(path); err != nil {
		return p.fail(err)
	}
	if syncDir {
		// Best effort. MemMapFs directories do not support Sync.
		if d, err := p.fs.Open(filepath.Dir(path)); err == nil {
			_ = d.Sync()
			_ = d.Close()
		}
	}
	return nil
}

func (p *Provider) Access(name string, flag vfsbox.AccessFlag) (bool, error) {
	path, _ := vfsbox.SplitName(name)
	info, err := p.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, p.fail(err)
	}
	switch flag {
	case vfsbox.AccessReadWrite:
		return info.Mode().Perm()&0200 != 0, nil
	default:
		return true, nil
	}
}

func (p *Provider) FullPathname(name string) (string, error) {
	path, _ := vfsbox.SplitName(name)
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return filepath.Join(string(filepath.Separator), filepath.Clean(path)), nil
}

func (p *Provider) Randomness(b []byte) (int, error) {
	return rand.Read(b)
}

func (p *Provider) Sleep(d time.Duration) time.Duration {
	start := time.Now()
	time.Sleep(d)
	return time.Since(start)
}

func (p *Provider) CurrentTime() (time.Time, error) {
	return time.Now(), nil
}

func (p *Provider) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// file implements vfsbox.File over an afero.File.
type file struct {
	p    *Provider
	f    afero.File
	path string
	lvl  vfsbox.LockLevel
	shm  *shmRegion
}

func (f *file) ReadAt(b []byte, off int64) (int, error) {
	n, err := f.f.ReadAt(b, off)
	if err == io.EOF && n > 0 {
		// Short read at end of file; the engine zero-pads.
		err = nil
	}
	return n, err
}

func (f *file) WriteAt(b []byte, off int64) (int, error) {
	return f.f.WriteAt(b, off)
}

func (f *file) Truncate(size int64) error {
	return f.f.Truncate(size)
}

func (f *file) Sync(flags vfsbox.SyncFlag) error {
	return f.f.Sync()
}

func (f *file) Size() (int64, error) {
	info, err := f.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (f *file) Lock(lvl vfsbox.LockLevel) error {
	if lvl <= f.lvl {
		return nil
	}
	if err := f.p.locks.lock(f.path, f.lvl, lvl); err != nil {
		return err
	}
	f.lvl = lvl
	return nil
}

func (f *file) Unlock(lvl vfsbox.LockLevel) error {
	if lvl >= f.lvl {
		return nil
	}
	f.p.locks.unlock(f.path, f.lvl, lvl)
	f.lvl = lvl
	return nil
}

func (f *file) CheckReservedLock() (bool, error) {
	return f.p.locks.reserved(f.path), nil
}

func (f *file) FileControl(op vfsbox.FcntlOp, arg any) error {
	return vfsbox.ErrNotSupported
}

func (f *file) SectorSize() int {
	return 4096
}

func (f *file) DeviceCharacteristics() vfsbox.DeviceFlag {
	return 0
}

func (f *file) ShmMap(region, pageSize int, extend bool) ([]byte, error) {
	if f.shm == nil {
		f.shm = f.p.shm.acquire(f.path)
	}
	return f.shm.mapRegion(region, pageSize, extend)
}

func (f *file) ShmLock(offset, n int, flags vfsbox.ShmLockFlag) error {
	// Single-process sharing only: mappings are served from one
	// registry, so slot locks reduce to no-ops.
	if f.shm == nil {
		return fmt.Errorf("vfsbox/osfs: shm not mapped: %w", vfsbox.ErrInvalid)
	}
	return nil
}

func (f *file) ShmBarrier() {
	if f.shm != nil {
		f.shm.barrier()
	}
}

func (f *file) ShmUnmap(del bool) error {
	if f.shm == nil {
		return nil
	}
	f.p.shm.release(f.path, del)
	f.shm = nil
	return nil
}

func (f *file) Fetch(off int64, n int) ([]byte, error) {
	// No mmap support; the engine falls back to ReadAt.
	return nil, vfsbox.ErrNotSupported
}

func (f *file) Unfetch(off int64, b []byte) error {
	return nil
}

func (f *file) Close() error {
	if f.shm != nil {
		_ = f.ShmUnmap(false)
	}
	if f.lvl > vfsbox.LockNone {
		_ = f.Unlock(vfsbox.LockNone)
	}
	return f.f.Close()
}

// Compile-time interface checks.
var (
	_ vfsbox.Provider = (*Provider)(nil)
	_ vfsbox.File     = (*file)(nil)
)
