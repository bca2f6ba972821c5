// Package snapshot provides a file-based checkpoint facility
// implementing vfsbox.Checkpointer. Each commit captures the live
// prefix of an attached memory region as an lz4-compressed,
// content-addressed blob keyed by its blake3 hash, and records a
// generation entry in a per-session manifest. Identical consecutive
// commits share one blob.
package snapshot

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pierrec/lz4/v4"
	"github.com/spf13/afero"
	"github.com/zeebo/blake3"

	"github.com/nuln/vfsbox"
)

// Generation is one committed snapshot of a session.
type Generation struct {
	Seq       int       `json:"seq"`
	Hash      string    `json:"hash"` // blake3 of the uncompressed content
	Size      int64     `json:"size"` // uncompressed length in bytes
	CreatedAt time.Time `json:"createdAt"`
}

// Facility stores snapshots on an afero.Fs. It implements
// vfsbox.Checkpointer; sessions must be attached to a memory region
// before Begin is called for them.
type Facility struct {
	fs afero.Fs

	mu       sync.Mutex
	sessions map[int64]*session
}

type session struct {
	buf    []byte
	size   func() int64
	gens   []Generation
	active bool
}

// New creates a Facility over fs.
func New(fs afero.Fs) *Facility {
	return &Facility{fs: fs, sessions: make(map[int64]*session)}
}

// NewAt creates a Facility rooted at dir on the OS filesystem.
func NewAt(dir string) (*Facility, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0750); err != nil {
		return nil, err
	}
	return New(afero.NewBasePathFs(afero.NewOsFs(), abs)), nil
}

// Attach binds a session identifier to the caller-owned region buf.
// size reports the live prefix length at commit time; nil means the
// whole of buf. Attach takes no ownership of buf.
func (f *Facility) Attach(id int64, buf []byte, size func() int64) error {
	if id == 0 {
		return fmt.Errorf("vfsbox/snapshot: session identifier must be nonzero")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id] = &session{buf: buf, size: size}
	return nil
}

// Begin starts (or resumes) the checkpoint session for id. The session
// must have been attached; resuming loads the existing manifest so
// generation numbering continues.
func (f *Facility) Begin(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[id]
	if !ok {
		return fmt.Errorf("vfsbox/snapshot: session %d is not attached", id)
	}
	if err := f.fs.MkdirAll(f.sessionDir(id), 0750); err != nil {
		return err
	}
	gens, err := f.loadManifest(id)
	if err != nil {
		return err
	}
	s.gens = gens
	s.active = true
	return nil
}

// Commit snapshots the live prefix of the attached region.
func (f *Facility) Commit(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[id]
	if !ok || !s.active {
		return fmt.Errorf("vfsbox/snapshot: session %d has no active checkpoint session", id)
	}

	n := int64(len(s.buf))
	if s.size != nil {
		n = s.size()
	}
	if n < 0 || n > int64(len(s.buf)) {
		return fmt.Errorf("vfsbox/snapshot: session %d reports size %d outside region of %d bytes", id, n, len(s.buf))
	}
	content := s.buf[:n]

	sum := blake3.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	if err := f.writeBlob(hash, content); err != nil {
		return err
	}

	gen := Generation{
		Seq:       len(s.gens) + 1,
		Hash:      hash,
		Size:      n,
		CreatedAt: time.Now().UTC(),
	}
	s.gens = append(s.gens, gen)
	if err := f.saveManifest(id, s.gens); err != nil {
		s.gens = s.gens[:len(s.gens)-1]
		return err
	}
	return nil
}

// Generations returns the committed generations of a session, oldest
// first.
func (f *Facility) Generations(id int64) ([]Generation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.sessions[id]; ok && s.active {
		out := make([]Generation, len(s.gens))
		copy(out, s.gens)
		return out, nil
	}
	return f.loadManifest(id)
}

// Restore reads generation seq of a session back into dst and returns
// the uncompressed length. The blob's blake3 hash is verified. dst must
// be at least Generation.Size bytes.
func (f *Facility) Restore(id int64, seq int, dst []byte) (int64, error) {
	gens, err := f.Generations(id)
	if err != nil {
		return 0, err
	}
	var gen *Generation
	for i := range gens {
		if gens[i].Seq == seq {
			gen = &gens[i]
			break
		}
	}
	if gen == nil {
		return 0, fmt.Errorf("vfsbox/snapshot: session %d has no generation %d: %w", id, seq, vfsbox.ErrNotFound)
	}
	if int64(len(dst)) < gen.Size {
		return 0, fmt.Errorf("vfsbox/snapshot: destination holds %d bytes, generation needs %d", len(dst), gen.Size)
	}

	blob, err := f.fs.Open(blobPath(gen.Hash))
	if err != nil {
		return 0, err
	}
	defer func() { _ = blob.Close() }()

	zr := lz4.NewReader(blob)
	if _, err := io.ReadFull(zr, dst[:gen.Size]); err != nil {
		return 0, err
	}

	sum := blake3.Sum256(dst[:gen.Size])
	if hex.EncodeToString(sum[:]) != gen.Hash {
		return 0, fmt.Errorf("vfsbox/snapshot: generation %d of session %d is corrupt", seq, id)
	}
	return gen.Size, nil
}

func (f *Facility) sessionDir(id int64) string {
	return filepath.Join("sessions", fmt.Sprintf("%d", id))
}

func (f *Facility) manifestPath(id int64) string {
	return filepath.Join(f.sessionDir(id), "manifest.json")
}

func (f *Facility) loadManifest(id int64) ([]Generation, error) {
	data, err := afero.ReadFile(f.fs, f.manifestPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var gens []Generation
	if err := json.Unmarshal(data, &gens); err != nil {
		return nil, fmt.Errorf("vfsbox/snapshot: manifest of session %d: %w", id, err)
	}
	return gens, nil
}

func (f *Facility) saveManifest(id int64, gens []Generation) error {
	data, err := json.MarshalIndent(gens, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(f.fs, f.manifestPath(id), data, 0640)
}

// writeBlob stores content compressed under its hash-sharded path.
// Content addressing makes the write idempotent: an existing blob is
// left alone.
func (f *Facility) writeBlob(hash string, content []byte) error {
	path := blobPath(hash)
	if ok, err := afero.Exists(f.fs, path); err == nil && ok {
		return nil
	}
	if err := f.fs.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	blob, err := f.fs.Create(path)
	if err != nil {
		return err
	}
	zw := lz4.NewWriter(blob)
	if _, err := zw.Write(content); err != nil {
		_ = zw.Close()
		_ = blob.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		_ = blob.Close()
		return err
	}
	return blob.Close()
}

// Compile-time interface check.
var _ vfsbox.Checkpointer = (*Facility)(nil)
