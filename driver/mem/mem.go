// Package mem implements the memory-backed storage provider: the
// engine's primary database file lives in an externally supplied,
// pre-allocated memory region, with periodic checkpoint commits into an
// external facility, while every other file is delegated to a
// conventional provider.
//
// Open-time configuration rides on the file name as URI-style query
// parameters:
//
//	file:/main.db?ptr=0xf05538&sz=14336&maxsz=65536&fd=7&threshold=4096&ckptOnSync=1
//
//	ptr=         Base address of the memory region holding the database.
//	sz=          Current size of the database file. Required.
//	maxsz=       Capacity of the region. Defaults to sz.
//	fd=          Checkpoint session identifier. Required, nonzero.
//	threshold=   Bytes written between write-triggered commits. 0 (the
//	             default) disables write-time checkpointing.
//	ckptOnSync=  Whether Sync also commits. Default on.
//
// Values may be decimal or 0x-prefixed hexadecimal. The region is owned
// by the caller: it must stay alive and unmoved while a handle is open,
// and nothing is freed on close. Use [BufferAddr] to build the ptr=
// value from a Go slice.
package mem

import (
	"fmt"
	"sync"
	"time"

	"github.com/nuln/vfsbox"
)

// Auto-register memory-backed storage driver. The registration is
// permanent: the driver cannot be uninstalled for the life of the
// process.
func init() {
	vfsbox.RegisterPermanent("mem", func(cfg *vfsbox.Config) (vfsbox.Provider, error) {
		ckpt, _ := cfg.Options["checkpointer"].(vfsbox.Checkpointer)
		if ckpt == nil {
			return nil, fmt.Errorf("vfsbox/mem: Options[\"checkpointer\"] is required")
		}
		delegate, _ := cfg.Options["delegate"].(vfsbox.Provider)
		if delegate == nil {
			delegate = vfsbox.Default()
		}
		if delegate == nil {
			return nil, fmt.Errorf("vfsbox/mem: no delegate provider (set Options[\"delegate\"] or install a default)")
		}
		return New(delegate, ckpt), nil
	})
}

// Provider implements vfsbox.Provider. Files opened with OpenMainDB are
// served from the caller-supplied memory region; everything else is
// delegated.
type Provider struct {
	delegate vfsbox.Provider
	ckpt     vfsbox.Checkpointer

	mu       sync.Mutex
	mainName string // name of the last-opened primary database
}

// New creates a Provider delegating non-primary files to delegate and
// committing through ckpt.
func New(delegate vfsbox.Provider, ckpt vfsbox.Checkpointer) *Provider {
	return &Provider{delegate: delegate, ckpt: ckpt}
}

// Install wraps the current default provider and makes the wrapped
// provider the new default. It fails when no default provider is
// installed.
func Install(ckpt vfsbox.Checkpointer) (*Provider, error) {
	delegate := vfsbox.Default()
	if delegate == nil {
		return nil, fmt.Errorf("vfsbox/mem: no default provider to wrap")
	}
	p := New(delegate, ckpt)
	vfsbox.SetDefault(p)
	return p, nil
}

// Open opens name. The mode is fixed here for the life of the handle:
// OpenMainDB selects memory-backed operation, anything else delegates.
func (p *Provider) Open(name string, flags vfsbox.OpenFlag) (vfsbox.File, vfsbox.OpenFlag, error) {
	if flags&vfsbox.OpenMainDB == 0 {
		return p.delegate.Open(name, flags)
	}

	cfg, err := parseConfig(name)
	if err != nil {
		return nil, 0, err
	}
	if err := p.ckpt.Begin(cfg.session); err != nil {
		return nil, 0, fmt.Errorf("vfsbox/mem: begin checkpoint session %d: %w", cfg.session, vfsbox.ErrInternal)
	}

	// Record the primary database name for the Access override. Written
	// once per open, never cleared on close.
	p.mu.Lock()
	p.mainName = name
	p.mu.Unlock()

	// Open the parallel delegate handle for the same name. It is never
	// used for data I/O; it keeps a filesystem entry visible to
	// external tooling and is closed together with this handle.
	df, outFlags, err := p.delegate.Open(name, flags)
	if err != nil {
		return nil, 0, err
	}

	f := &memFile{
		data: bufferAt(cfg.addr, cfg.max),
		addr: cfg.addr,
		size: cfg.size,
		trigger: ckptTrigger{
			ckpt:      p.ckpt,
			session:   cfg.session,
			threshold: cfg.threshold,
			onSync:    cfg.ckptOnSync,
		},
		name:     name,
		delegate: df,
	}
	return f, outFlags, nil
}

// Access reports the recorded primary database name as existing even
// when no filesystem entry backs it; other names are delegated.
func (p *Provider) Access(name string, flag vfsbox.AccessFlag) (bool, error) {
	p.mu.Lock()
	main := p.mainName
	p.mu.Unlock()

	if main != "" && name == main {
		return true, nil
	}
	return p.delegate.Access(name, flag)
}

func (p *Provider) Delete(name string, syncDir bool) error {
	return p.delegate.Delete(name, syncDir)
}

func (p *Provider) FullPathname(name string) (string, error) {
	return p.delegate.FullPathname(name)
}

func (p *Provider) Randomness(b []byte) (int, error) {
	return p.delegate.Randomness(b)
}

func (p *Provider) Sleep(d time.Duration) time.Duration {
	return p.delegate.Sleep(d)
}

func (p *Provider) CurrentTime() (time.Time, error) {
	return p.delegate.CurrentTime()
}

func (p *Provider) LastError() error {
	return p.delegate.LastError()
}

// OpenLibrary forwards dynamic-library loading to the delegate when it
// supports it.
func (p *Provider) OpenLibrary(path string) (vfsbox.Library, error) {
	if l, ok := p.delegate.(vfsbox.LibraryLoader); ok {
		return l.OpenLibrary(path)
	}
	return nil, vfsbox.ErrNotSupported
}

// Unwrap returns the delegate provider.
func (p *Provider) Unwrap() vfsbox.Provider {
	return p.delegate
}

// Compile-time interface checks.
var (
	_ vfsbox.Provider      = (*Provider)(nil)
	_ vfsbox.LibraryLoader = (*Provider)(nil)
	_ vfsbox.Unwrapper     = (*Provider)(nil)
)
