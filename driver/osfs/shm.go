package osfs

import (
	"sync"
)

// shmRegistry serves shared-memory regions to every handle of a file
// within the process, so WAL index pages are genuinely shared between
// in-process connections. Cross-process sharing is not provided.
type shmRegistry struct {
	mu    sync.Mutex
	areas map[string]*shmRegion
}

func newShmRegistry() *shmRegistry {
	return &shmRegistry{areas: make(map[string]*shmRegion)}
}

func (r *shmRegistry) acquire(path string) *shmRegion {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.areas[path]
	if !ok {
		a = &shmRegion{}
		r.areas[path] = a
	}
	a.refs++
	return a
}

func (r *shmRegistry) release(path string, del bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.areas[path]
	if !ok {
		return
	}
	a.refs--
	if a.refs <= 0 && del {
		delete(r.areas, path)
	}
}

// shmRegion is the shared-memory area of one file: a list of
// equally-sized page regions allocated on demand.
type shmRegion struct {
	mu      sync.Mutex
	refs    int
	regions [][]byte
}

// mapRegion returns region index i, allocating it when extend is true.
// When the region does not exist and extend is false, (nil, nil) is
// returned and the caller treats the area as not yet created.
func (a *shmRegion) mapRegion(i, pageSize int, extend bool) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i >= len(a.regions) {
		if !extend {
			return nil, nil
		}
		for len(a.regions) <= i {
			a.regions = append(a.regions, make([]byte, pageSize))
		}
	}
	return a.regions[i], nil
}

// barrier establishes a happens-before edge between handles touching
// the area.
func (a *shmRegion) barrier() {
	a.mu.Lock()
	//lint:ignore SA2001 intentional fence
	a.mu.Unlock()
}
