// Package vfstest provides a reusable conformance suite for
// vfsbox.Provider implementations.
package vfstest

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/nuln/vfsbox"
)

// Options tunes the suite for drivers with known contract gaps.
type Options struct {
	// SkipLocks skips the lock-cycle checks for drivers whose locks are
	// deliberate no-ops.
	SkipLocks bool

	// SkipDelete skips deletion checks for read-only stores.
	SkipDelete bool
}

// ProviderTestSuite runs a comprehensive set of tests against a
// Provider implementation. Call this in your driver tests to verify
// correctness:
//
//	func TestOSProvider(t *testing.T) {
//	    p := setupProvider(t)
//	    vfstest.ProviderTestSuite(t, p, vfstest.Options{})
//	}
func ProviderTestSuite(t *testing.T, p vfsbox.Provider, opts Options) { //nolint:gocyclo
	t.Helper()

	t.Run("Open_Write_Read_Size", func(t *testing.T) {
		name := "suite/journal-0"
		f, _, err := p.Open(name, vfsbox.OpenReadWrite|vfsbox.OpenCreate|vfsbox.OpenMainJournal)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}

		content := []byte("hello storage contract")
		if _, err := f.WriteAt(content, 0); err != nil {
			t.Fatalf("WriteAt: %v", err)
		}
		if _, err := f.WriteAt([]byte("WORLD"), 6); err != nil {
			t.Fatalf("WriteAt overlap: %v", err)
		}

		size, err := f.Size()
		if err != nil {
			t.Fatalf("Size: %v", err)
		}
		if size != int64(len(content)) {
			t.Errorf("Size = %d, want %d", size, len(content))
		}

		got := make([]byte, len(content))
		if _, err := f.ReadAt(got, 0); err != nil {
			t.Fatalf("ReadAt: %v", err)
		}
		want := []byte("hello WORLDge contract")
		if !bytes.Equal(got, want) {
			t.Errorf("content = %q, want %q", got, want)
		}

		if err := f.Sync(vfsbox.SyncNormal); err != nil {
			t.Fatalf("Sync: %v", err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})

	t.Run("Reopen_Persistence", func(t *testing.T) {
		name := "suite/persist-0"
		f, _, err := p.Open(name, vfsbox.OpenReadWrite|vfsbox.OpenCreate)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if _, err := f.WriteAt([]byte("durable"), 0); err != nil {
			t.Fatalf("WriteAt: %v", err)
		}
		if err := f.Sync(vfsbox.SyncFull); err != nil {
			t.Fatalf("Sync: %v", err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		f2, _, err := p.Open(name, vfsbox.OpenReadWrite)
		if err != nil {
			t.Fatalf("reopen: %v", err)
		}
		got := make([]byte, 7)
		if _, err := f2.ReadAt(got, 0); err != nil {
			t.Fatalf("ReadAt after reopen: %v", err)
		}
		if string(got) != "durable" {
			t.Errorf("after reopen = %q, want %q", got, "durable")
		}
		_ = f2.Close()
	})

	t.Run("Truncate", func(t *testing.T) {
		name := "suite/trunc-0"
		f, _, err := p.Open(name, vfsbox.OpenReadWrite|vfsbox.OpenCreate)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if _, err := f.WriteAt([]byte("0123456789"), 0); err != nil {
			t.Fatalf("WriteAt: %v", err)
		}
		if err := f.Truncate(4); err != nil {
			t.Fatalf("Truncate: %v", err)
		}
		size, err := f.Size()
		if err != nil {
			t.Fatalf("Size: %v", err)
		}
		if size != 4 {
			t.Errorf("Size after Truncate = %d, want 4", size)
		}
		_ = f.Close()
	})

	t.Run("Access_FullPathname", func(t *testing.T) {
		name := "suite/access-0"
		f, _, err := p.Open(name, vfsbox.OpenReadWrite|vfsbox.OpenCreate)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if _, err := f.WriteAt([]byte("x"), 0); err != nil {
			t.Fatalf("WriteAt: %v", err)
		}
		if err := f.Sync(vfsbox.SyncNormal); err != nil {
			t.Fatalf("Sync: %v", err)
		}
		_ = f.Close()

		exists, err := p.Access(name, vfsbox.AccessExists)
		if err != nil {
			t.Fatalf("Access: %v", err)
		}
		if !exists {
			t.Error("Access reports created file as missing")
		}

		exists, err = p.Access("suite/never-created", vfsbox.AccessExists)
		if err != nil {
			t.Fatalf("Access missing: %v", err)
		}
		if exists {
			t.Error("Access reports a never-created file as existing")
		}

		full, err := p.FullPathname(name)
		if err != nil {
			t.Fatalf("FullPathname: %v", err)
		}
		if full == "" {
			t.Error("FullPathname returned empty string")
		}
	})

	if !opts.SkipDelete {
		t.Run("Delete", func(t *testing.T) {
			name := "suite/delete-0"
			f, _, err := p.Open(name, vfsbox.OpenReadWrite|vfsbox.OpenCreate)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if _, err := f.WriteAt([]byte("bye"), 0); err != nil {
				t.Fatalf("WriteAt: %v", err)
			}
			if err := f.Sync(vfsbox.SyncNormal); err != nil {
				t.Fatalf("Sync: %v", err)
			}
			_ = f.Close()

			if err := p.Delete(name, false); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			exists, err := p.Access(name, vfsbox.AccessExists)
			if err != nil {
				t.Fatalf("Access after Delete: %v", err)
			}
			if exists {
				t.Error("file still exists after Delete")
			}
		})
	}

	if !opts.SkipLocks {
		t.Run("LockCycle", func(t *testing.T) {
			name := "suite/lock-0"
			f, _, err := p.Open(name, vfsbox.OpenReadWrite|vfsbox.OpenCreate)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer func() { _ = f.Close() }()

			if err := f.Lock(vfsbox.LockShared); err != nil {
				t.Fatalf("Lock shared: %v", err)
			}
			if err := f.Lock(vfsbox.LockReserved); err != nil {
				t.Fatalf("Lock reserved: %v", err)
			}
			held, err := f.CheckReservedLock()
			if err != nil {
				t.Fatalf("CheckReservedLock: %v", err)
			}
			if !held {
				t.Error("CheckReservedLock = false while reserved is held")
			}
			if err := f.Lock(vfsbox.LockExclusive); err != nil {
				t.Fatalf("Lock exclusive: %v", err)
			}
			if err := f.Unlock(vfsbox.LockNone); err != nil {
				t.Fatalf("Unlock: %v", err)
			}
			held, err = f.CheckReservedLock()
			if err != nil {
				t.Fatalf("CheckReservedLock after Unlock: %v", err)
			}
			if held {
				t.Error("CheckReservedLock = true after full unlock")
			}
		})
	}

	t.Run("FileControl_Unknown", func(t *testing.T) {
		name := "suite/fcntl-0"
		f, _, err := p.Open(name, vfsbox.OpenReadWrite|vfsbox.OpenCreate)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		defer func() { _ = f.Close() }()

		err = f.FileControl(vfsbox.FcntlOp(9999), nil)
		if err == nil {
			t.Error("unknown FileControl op: expected error")
		} else if !errors.Is(err, vfsbox.ErrNotSupported) {
			t.Errorf("unknown FileControl op: err = %v, want ErrNotSupported", err)
		}
	})

	t.Run("Fetch_Fallback", func(t *testing.T) {
		name := "suite/fetch-0"
		f, _, err := p.Open(name, vfsbox.OpenReadWrite|vfsbox.OpenCreate)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteAt([]byte("fetchable"), 0); err != nil {
			t.Fatalf("WriteAt: %v", err)
		}

		view, err := f.Fetch(0, 5)
		switch {
		case errors.Is(err, vfsbox.ErrNotSupported):
			// Legitimate: the engine falls back to ReadAt.
		case err != nil:
			t.Fatalf("Fetch: %v", err)
		default:
			if string(view) != "fetch" {
				t.Errorf("Fetch = %q, want %q", view, "fetch")
			}
			if err := f.Unfetch(0, view); err != nil {
				t.Fatalf("Unfetch: %v", err)
			}
		}
	})

	t.Run("ProviderLevel", func(t *testing.T) {
		buf := make([]byte, 16)
		n, err := p.Randomness(buf)
		if err != nil {
			t.Fatalf("Randomness: %v", err)
		}
		if n != len(buf) {
			t.Errorf("Randomness filled %d bytes, want %d", n, len(buf))
		}

		now, err := p.CurrentTime()
		if err != nil {
			t.Fatalf("CurrentTime: %v", err)
		}
		if now.IsZero() {
			t.Error("CurrentTime returned zero time")
		}

		slept := p.Sleep(time.Millisecond)
		if slept < 0 {
			t.Errorf("Sleep returned negative duration %v", slept)
		}
	})
}
