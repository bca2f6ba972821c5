// Package rclone implements the storage-provider contract over any
// rclone-supported remote. Remotes hold whole objects, so a handle
// works on an in-memory image of the file: reads and writes mutate the
// image, Sync and Close upload it. Suitable as a delegate for journals
// and logs kept on remote storage; not for files larger than memory.
package rclone

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"github.com/rclone/rclone/fs"
	"github.com/rclone/rclone/fs/operations"

	"github.com/nuln/vfsbox"
)

// Auto-register rclone storage driver.
func init() {
	vfsbox.Register("rclone", func(cfg *vfsbox.Config) (vfsbox.Provider, error) {
		remote := ""
		if v, ok := cfg.Options["remote"]; ok {
			remote, _ = v.(string)
		}
		if remote == "" {
			remote = cfg.BasePath
		}
		if remote == "" {
			return nil, fmt.Errorf("vfsbox/rclone: remote path is required (set Options[\"remote\"] or BasePath)")
		}
		return New(remote)
	})
}

// Provider implements vfsbox.Provider using rclone's fs.Fs.
type Provider struct {
	remote fs.Fs
	ctx    context.Context

	mu      sync.Mutex
	lastErr error
}

// New creates a Provider from a remote path (e.g., "gdrive:backup").
func New(remotePath string) (*Provider, error) {
	ctx := context.Background()
	remote, err := fs.NewFs(ctx, remotePath)
	if err != nil {
		return nil, err
	}
	return &Provider{remote: remote, ctx: ctx}, nil
}

func (p *Provider) fail(err error) error {
	if err != nil {
		p.mu.Lock()
		p.lastErr = err
		p.mu.Unlock()
	}
	return err
}

func (p *Provider) Open(name string, flags vfsbox.OpenFlag) (vfsbox.File, vfsbox.OpenFlag, error) {
	objPath, _ := vfsbox.SplitName(name)
	objPath = cleanRemotePath(objPath)

	outFlags := flags & (vfsbox.OpenReadOnly | vfsbox.OpenReadWrite)

	obj, err := p.remote.NewObject(p.ctx, objPath)
	if err != nil {
		if flags&vfsbox.OpenCreate == 0 {
			return nil, 0, p.fail(convertError(err))
		}
		// New object; start from an empty image.
		return &file{p: p, path: objPath, dirty: true}, outFlags, nil
	}

	rc, err := obj.Open(p.ctx)
	if err != nil {
		return nil, 0, p.fail(err)
	}
	img, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return nil, 0, p.fail(err)
	}
	return &file{p: p, path: objPath, img: img}, outFlags, nil
}

func (p *Provider) Delete(name string, syncDir bool) error {
	objPath, _ := vfsbox.SplitName(name)
	obj, err := p.remote.NewObject(p.ctx, cleanRemotePath(objPath))
	if err != nil {
		return p.fail(convertError(err))
	}
	return p.fail(obj.Remove(p.ctx))
}

func (p *Provider) Access(name string, flag vfsbox.AccessFlag) (bool, error) {
	objPath, _ := vfsbox.SplitName(name)
	_, err := p.remote.NewObject(p.ctx, cleanRemotePath(objPath))
	if err != nil {
		if convertError(err) == vfsbox.ErrNotFound {
			return false, nil
		}
		return false, p.fail(err)
	}
	return true, nil
}

func (p *Provider) FullPathname(name string) (string, error) {
	objPath, _ := vfsbox.SplitName(name)
	return cleanRemotePath(objPath), nil
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

// file implements vfsbox.File over an in-memory image of a remote
// object. Locking is not coordinated with other clients of the remote:
// a single writer is assumed, as with any whole-object store.
type file struct {
	p     *Provider
	path  string
	img   []byte
	dirty bool
}

func (f *file) ReadAt(b []byte, off int64) (int, error) {
	if off >= int64(len(f.img)) {
		return 0, io.EOF
	}
	n := copy(b, f.img[off:])
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

func (f *file) WriteAt(b []byte, off int64) (int, error) {
	end := off + int64(len(b))
	if end > int64(len(f.img)) {
		grown := make([]byte, end)
		copy(grown, f.img)
		f.img = grown
	}
	copy(f.img[off:], b)
	f.dirty = true
	return len(b), nil
}

func (f *file) Truncate(size int64) error {
	switch {
	case size < int64(len(f.img)):
		f.img = f.img[:size]
	case size > int64(len(f.img)):
		grown := make([]byte, size)
		copy(grown, f.img)
		f.img = grown
	}
	f.dirty = true
	return nil
}

func (f *file) Sync(flags vfsbox.SyncFlag) error {
	return f.upload()
}

func (f *file) Size() (int64, error) {
	return int64(len(f.img)), nil
}

func (f *file) Lock(lvl vfsbox.LockLevel) error   { return nil }
func (f *file) Unlock(lvl vfsbox.LockLevel) error { return nil }

func (f *file) CheckReservedLock() (bool, error) {
	return false, nil
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
	return nil, vfsbox.ErrShmUnsupported
}

func (f *file) ShmLock(offset, n int, flags vfsbox.ShmLockFlag) error {
	return vfsbox.ErrShmUnsupported
}

func (f *file) ShmBarrier() {}

func (f *file) ShmUnmap(del bool) error {
	return nil
}

func (f *file) Fetch(off int64, n int) ([]byte, error) {
	return nil, vfsbox.ErrNotSupported
}

func (f *file) Unfetch(off int64, b []byte) error {
	return nil
}

func (f *file) Close() error {
	if !f.dirty {
		return nil
	}
	return f.upload()
}

func (f *file) upload() error {
	if !f.dirty {
		return nil
	}
	rc := io.NopCloser(io.NewSectionReader(newBytesReaderAt(f.img), 0, int64(len(f.img))))
	if _, err := operations.Rcat(f.p.ctx, f.p.remote, f.path, rc, time.Now(), nil); err != nil {
		return f.p.fail(err)
	}
	f.dirty = false
	return nil
}

// Helpers

func cleanRemotePath(p string) string {
	clean := path.Clean("/" + p)
	return clean[1:]
}

func convertError(err error) error {
	if err == nil {
		return nil
	}
	if err == fs.ErrorObjectNotFound || err == fs.ErrorDirNotFound {
		return vfsbox.ErrNotFound
	}
	return err
}

// bytesReaderAt implements io.ReaderAt for a byte slice.
type bytesReaderAt struct {
	data []byte
}

func newBytesReaderAt(data []byte) *bytesReaderAt {
	return &bytesReaderAt{data: data}
}

func (r *bytesReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n = copy(p, r.data[off:])
	if n < len(p) {
		err = io.EOF
	}
	return
}

// Compile-time interface checks.
var (
	_ vfsbox.Provider = (*Provider)(nil)
	_ vfsbox.File     = (*file)(nil)
)
