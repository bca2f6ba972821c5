package osfs

import (
	"errors"
	"sync"

	"github.com/nuln/vfsbox"
)

// ErrBusy reports a lock request that conflicts with a lock held by
// another handle on the same file.
var ErrBusy = errors.New("vfsbox/osfs: file is locked")

// lockTable implements the five-level advisory locking protocol for
// handles within one process. Cross-process locking is out of scope:
// the provider assumes it is the only process touching its root.
type lockTable struct {
	mu    sync.Mutex
	files map[string]*lockState
}

type lockState struct {
	shared    int  // handles at LockShared
	reserved  bool // one handle at LockReserved or higher (pre-pending)
	pending   bool
	exclusive bool
}

func newLockTable() *lockTable {
	return &lockTable{files: make(map[string]*lockState)}
}

func (t *lockTable) state(path string) *lockState {
	s, ok := t.files[path]
	if !ok {
		s = &lockState{}
		t.files[path] = s
	}
	return s
}

// lock upgrades a handle from level from to level to. On failure the
// table is left as it was and the handle keeps its old level.
func (t *lockTable) lock(path string, from, to vfsbox.LockLevel) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state(path)

	// A handle at LockShared or above contributes one shared reference;
	// higher levels are flags on top of it.
	switch to {
	case vfsbox.LockShared:
		if s.exclusive || s.pending {
			return ErrBusy
		}
		s.shared++
		return nil

	case vfsbox.LockReserved:
		if s.reserved || s.pending || s.exclusive {
			return ErrBusy
		}
		if from < vfsbox.LockShared {
			s.shared++
		}
		s.reserved = true
		return nil

	case vfsbox.LockPending, vfsbox.LockExclusive:
		if s.exclusive {
			return ErrBusy
		}
		wasPending, wasReserved := s.pending, s.reserved
		if !s.pending {
			// Reserved held by someone else blocks the upgrade.
			if s.reserved && from < vfsbox.LockReserved {
				return ErrBusy
			}
			s.pending = true
			s.reserved = false
		}
		if to == vfsbox.LockPending {
			return nil
		}
		own := 0
		if from >= vfsbox.LockShared {
			own = 1
		}
		if s.shared > own {
			s.pending, s.reserved = wasPending, wasReserved
			return ErrBusy
		}
		s.shared = 0
		s.pending = false
		s.exclusive = true
		return nil

	default:
		return vfsbox.ErrInvalid
	}
}

// unlock downgrades a handle from level from to level to.
func (t *lockTable) unlock(path string, from, to vfsbox.LockLevel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state(path)

	switch from {
	case vfsbox.LockExclusive:
		s.exclusive = false
	case vfsbox.LockPending:
		s.pending = false
	case vfsbox.LockReserved:
		s.reserved = false
	}

	switch {
	case from == vfsbox.LockShared && to < vfsbox.LockShared:
		if s.shared > 0 {
			s.shared--
		}
	case from == vfsbox.LockExclusive && to >= vfsbox.LockShared:
		// The exclusive holder's shared reference was consumed by the
		// upgrade; restore it on downgrade.
		s.shared++
	case from > vfsbox.LockShared && from != vfsbox.LockExclusive && to < vfsbox.LockShared:
		if s.shared > 0 {
			s.shared--
		}
	}

	if s.shared == 0 && !s.reserved && !s.pending && !s.exclusive {
		delete(t.files, path)
	}
}

// reserved reports whether any handle holds LockReserved or stronger.
func (t *lockTable) reserved(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.files[path]
	if !ok {
		return false
	}
	return s.reserved || s.pending || s.exclusive
}
