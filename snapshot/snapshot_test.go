package snapshot_test

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"testing"

	"github.com/spf13/afero"

	"github.com/nuln/vfsbox"
	"github.com/nuln/vfsbox/driver/mem"
	"github.com/nuln/vfsbox/driver/osfs"
	"github.com/nuln/vfsbox/snapshot"
)

func TestBeginRequiresAttach(t *testing.T) {
	fac := snapshot.New(afero.NewMemMapFs())

	if err := fac.Begin(7); err == nil {
		t.Error("Begin of unattached session: expected error")
	}
	if err := fac.Commit(7); err == nil {
		t.Error("Commit of unattached session: expected error")
	}
	if err := fac.Attach(0, make([]byte, 8), nil); err == nil {
		t.Error("Attach with zero identifier: expected error")
	}
}

func TestCommitRestore(t *testing.T) {
	fac := snapshot.New(afero.NewMemMapFs())

	buf := []byte("generation one padding padding")
	live := int64(14) // "generation one"
	if err := fac.Attach(7, buf, func() int64 { return live }); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := fac.Begin(7); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if err := fac.Commit(7); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	copy(buf, []byte("generation TWO"))
	if err := fac.Commit(7); err != nil {
		t.Fatalf("second Commit: %v", err)
	}

	gens, err := fac.Generations(7)
	if err != nil {
		t.Fatalf("Generations: %v", err)
	}
	if len(gens) != 2 {
		t.Fatalf("got %d generations, want 2", len(gens))
	}
	if gens[0].Seq != 1 || gens[1].Seq != 2 {
		t.Errorf("sequence numbers = %d,%d, want 1,2", gens[0].Seq, gens[1].Seq)
	}
	if gens[0].Size != live {
		t.Errorf("generation size = %d, want %d", gens[0].Size, live)
	}

	dst := make([]byte, live)
	if _, err := fac.Restore(7, 1, dst); err != nil {
		t.Fatalf("Restore gen 1: %v", err)
	}
	if string(dst) != "generation one" {
		t.Errorf("gen 1 = %q, want %q", dst, "generation one")
	}
	if _, err := fac.Restore(7, 2, dst); err != nil {
		t.Fatalf("Restore gen 2: %v", err)
	}
	if string(dst) != "generation TWO" {
		t.Errorf("gen 2 = %q, want %q", dst, "generation TWO")
	}

	if _, err := fac.Restore(7, 99, dst); err == nil {
		t.Error("Restore of missing generation: expected error")
	}
	if _, err := fac.Restore(7, 1, make([]byte, 3)); err == nil {
		t.Error("Restore into short destination: expected error")
	}
}

func TestCommitDeduplicates(t *testing.T) {
	fs := afero.NewMemMapFs()
	fac := snapshot.New(fs)

	buf := bytes.Repeat([]byte{0xAB}, 128)
	if err := fac.Attach(3, buf, nil); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := fac.Begin(3); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := fac.Commit(3); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := fac.Commit(3); err != nil {
		t.Fatalf("identical Commit: %v", err)
	}

	gens, err := fac.Generations(3)
	if err != nil {
		t.Fatalf("Generations: %v", err)
	}
	if len(gens) != 2 {
		t.Fatalf("got %d generations, want 2", len(gens))
	}
	if gens[0].Hash != gens[1].Hash {
		t.Error("identical content produced different hashes")
	}

	// One shared blob behind both generations.
	blobs := 0
	walkErr := afero.Walk(fs, "blobs", func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			blobs++
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("Walk: %v", walkErr)
	}
	if blobs != 1 {
		t.Errorf("blob count = %d, want 1", blobs)
	}
}

func TestResumeSession(t *testing.T) {
	fs := afero.NewMemMapFs()
	buf := []byte("resume me")

	fac := snapshot.New(fs)
	if err := fac.Attach(5, buf, nil); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := fac.Begin(5); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := fac.Commit(5); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	// A new facility over the same store resumes the numbering.
	fac2 := snapshot.New(fs)
	if err := fac2.Attach(5, buf, nil); err != nil {
		t.Fatalf("Attach 2: %v", err)
	}
	if err := fac2.Begin(5); err != nil {
		t.Fatalf("Begin 2: %v", err)
	}
	if err := fac2.Commit(5); err != nil {
		t.Fatalf("Commit 2: %v", err)
	}

	gens, err := fac2.Generations(5)
	if err != nil {
		t.Fatalf("Generations: %v", err)
	}
	if len(gens) != 2 || gens[1].Seq != 2 {
		t.Errorf("resumed session generations = %+v, want two with seq 1,2", gens)
	}
}

// TestMemDriverEndToEnd drives the memory-backed provider with the
// facility as its checkpoint target and restores the committed state.
func TestMemDriverEndToEnd(t *testing.T) {
	fac := snapshot.New(afero.NewMemMapFs())

	buf := make([]byte, 1024)
	var handle vfsbox.File
	if err := fac.Attach(9, buf, func() int64 {
		if handle == nil {
			return 0
		}
		n, _ := handle.Size()
		return n
	}); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	p := mem.New(osfs.NewWithFs(afero.NewMemMapFs()), fac)
	name := fmt.Sprintf("file:/main.db?ptr=0x%x&sz=0&maxsz=1024&fd=9&threshold=64", mem.BufferAddr(buf))
	f, _, err := p.Open(name, vfsbox.OpenReadWrite|vfsbox.OpenCreate|vfsbox.OpenMainDB|vfsbox.OpenURI)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	handle = f
	defer func() { _ = f.Close() }()

	payload := bytes.Repeat([]byte("abcdefgh"), 16) // 128 bytes > threshold
	if _, err := f.WriteAt(payload, 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}

	gens, err := fac.Generations(9)
	if err != nil {
		t.Fatalf("Generations: %v", err)
	}
	if len(gens) != 1 {
		t.Fatalf("got %d generations after threshold write, want 1", len(gens))
	}

	dst := make([]byte, gens[0].Size)
	if _, err := fac.Restore(9, 1, dst); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !bytes.Equal(dst, payload) {
		t.Error("restored snapshot differs from written payload")
	}

	runtime.KeepAlive(buf)
}
