package mem_test

import (
	"errors"
	"fmt"
	"runtime"
	"testing"

	"github.com/spf13/afero"

	"github.com/nuln/vfsbox"
	"github.com/nuln/vfsbox/driver/mem"
	"github.com/nuln/vfsbox/driver/osfs"
	"github.com/nuln/vfsbox/vfstest"
)

// fakeCkpt is a scriptable checkpoint facility.
type fakeCkpt struct {
	begun      []int64
	commits    []int64
	failBegin  bool
	failCommit bool
}

func (c *fakeCkpt) Begin(session int64) error {
	if c.failBegin {
		return errors.New("facility down")
	}
	c.begun = append(c.begun, session)
	return nil
}

func (c *fakeCkpt) Commit(session int64) error {
	if c.failCommit {
		return errors.New("facility down")
	}
	c.commits = append(c.commits, session)
	return nil
}

func newProvider(ckpt vfsbox.Checkpointer) *mem.Provider {
	return mem.New(osfs.NewWithFs(afero.NewMemMapFs()), ckpt)
}

func mainDBName(buf []byte, sz int64, extra string) string {
	name := fmt.Sprintf("file:/main.db?ptr=0x%x&sz=%d", mem.BufferAddr(buf), sz)
	if extra != "" {
		name += "&" + extra
	}
	return name
}

const mainFlags = vfsbox.OpenReadWrite | vfsbox.OpenCreate | vfsbox.OpenMainDB | vfsbox.OpenURI

func TestOpenMemoryBacked(t *testing.T) {
	buf := make([]byte, 1000)
	ckpt := &fakeCkpt{}
	p := newProvider(ckpt)

	name := mainDBName(buf, 100, "maxsz=1000&fd=7")
	f, _, err := p.Open(name, mainFlags)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = f.Close() }()

	if len(ckpt.begun) != 1 || ckpt.begun[0] != 7 {
		t.Errorf("begun sessions = %v, want [7]", ckpt.begun)
	}

	size, err := f.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 100 {
		t.Errorf("Size = %d, want 100", size)
	}

	runtime.KeepAlive(buf)
}

func TestOpenCantOpen(t *testing.T) {
	buf := make([]byte, 64)
	addr := mem.BufferAddr(buf)

	tests := []struct {
		name string
		uri  string
	}{
		{"missing ptr", "file:/main.db?sz=10&fd=7"},
		{"zero ptr", "file:/main.db?ptr=0&sz=10&fd=7"},
		{"missing sz", fmt.Sprintf("file:/main.db?ptr=0x%x&fd=7", addr)},
		{"negative sz", fmt.Sprintf("file:/main.db?ptr=0x%x&sz=-1&fd=7", addr)},
		{"maxsz below sz", fmt.Sprintf("file:/main.db?ptr=0x%x&sz=64&maxsz=10&fd=7", addr)},
		{"missing fd", fmt.Sprintf("file:/main.db?ptr=0x%x&sz=10", addr)},
		{"zero fd", fmt.Sprintf("file:/main.db?ptr=0x%x&sz=10&fd=0", addr)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProvider(&fakeCkpt{})
			_, _, err := p.Open(tt.uri, mainFlags)
			if !errors.Is(err, vfsbox.ErrCantOpen) {
				t.Errorf("Open(%q) err = %v, want ErrCantOpen", tt.uri, err)
			}
		})
	}

	runtime.KeepAlive(buf)
}

func TestOpenSessionStartFailure(t *testing.T) {
	buf := make([]byte, 64)
	p := newProvider(&fakeCkpt{failBegin: true})

	_, _, err := p.Open(mainDBName(buf, 64, "fd=7"), mainFlags)
	if !errors.Is(err, vfsbox.ErrInternal) {
		t.Errorf("Open err = %v, want ErrInternal", err)
	}

	runtime.KeepAlive(buf)
}

func TestAccessOverride(t *testing.T) {
	buf := make([]byte, 64)
	p := newProvider(&fakeCkpt{})

	name := mainDBName(buf, 64, "fd=7")
	f, _, err := p.Open(name, mainFlags)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	exists, err := p.Access(name, vfsbox.AccessExists)
	if err != nil {
		t.Fatalf("Access: %v", err)
	}
	if !exists {
		t.Error("Access reports primary database as missing")
	}

	// Other names fall through to the delegate.
	exists, err = p.Access("no-such-file", vfsbox.AccessExists)
	if err != nil {
		t.Fatalf("Access delegate: %v", err)
	}
	if exists {
		t.Error("Access reports unknown name as existing")
	}

	// The record survives close.
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	exists, err = p.Access(name, vfsbox.AccessExists)
	if err != nil {
		t.Fatalf("Access after close: %v", err)
	}
	if !exists {
		t.Error("Access override lost after close")
	}

	runtime.KeepAlive(buf)
}

func TestParallelDelegateHandle(t *testing.T) {
	buf := make([]byte, 64)
	fs := afero.NewMemMapFs()
	p := mem.New(osfs.NewWithFs(fs), &fakeCkpt{})

	name := mainDBName(buf, 64, "fd=7")
	f, _, err := p.Open(name, mainFlags)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = f.Close() }()

	// The delegate entry exists on the underlying filesystem even
	// though no data I/O goes through it.
	if _, err := fs.Stat("/main.db"); err != nil {
		t.Errorf("delegate filesystem entry missing: %v", err)
	}

	runtime.KeepAlive(buf)
}

func TestDelegatedModeConformance(t *testing.T) {
	// Every non-primary file is forwarded to the delegate verbatim, so
	// the wrapped provider must pass the full conformance suite through
	// the wrapper.
	p := newProvider(&fakeCkpt{})
	vfstest.ProviderTestSuite(t, p, vfstest.Options{})
}

func TestInstall(t *testing.T) {
	orig := vfsbox.Default()
	defer vfsbox.SetDefault(orig)

	vfsbox.SetDefault(nil)
	if _, err := mem.Install(&fakeCkpt{}); err == nil {
		t.Error("Install without a default provider: expected error")
	}

	delegate := osfs.NewWithFs(afero.NewMemMapFs())
	vfsbox.SetDefault(delegate)
	p, err := mem.Install(&fakeCkpt{})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if vfsbox.Default() != vfsbox.Provider(p) {
		t.Error("Install did not make the wrapper the default provider")
	}
	if p.Unwrap() != vfsbox.Provider(delegate) {
		t.Error("Unwrap() does not return the wrapped delegate")
	}
}

func TestFactoryRequiresCheckpointer(t *testing.T) {
	if _, err := vfsbox.Open(&vfsbox.Config{Type: "mem"}); err == nil {
		t.Error("factory without checkpointer: expected error")
	}

	p, err := vfsbox.Open(&vfsbox.Config{Type: "mem", Options: map[string]any{
		"checkpointer": &fakeCkpt{},
		"delegate":     osfs.NewWithFs(afero.NewMemMapFs()),
	}})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if p == nil {
		t.Fatal("factory returned nil provider")
	}
}
