package mem

import (
	"fmt"
	"unsafe"

	"github.com/nuln/vfsbox"
)

// config holds the decoded open-time parameters of a memory-backed
// file. Only primary database opens are parsed; auxiliary files never
// reach this code.
type config struct {
	addr       uint64 // base address of the caller-owned region
	size       int64  // current logical size
	max        int64  // capacity of the region
	session    int64  // checkpoint session identifier
	threshold  int64  // write-triggered commit threshold, 0 = off
	ckptOnSync bool
}

func parseConfig(name string) (config, error) {
	_, params := vfsbox.SplitName(name)
	var cfg config

	cfg.addr = params.Uint64("ptr", 0)
	if cfg.addr == 0 {
		return cfg, fmt.Errorf("vfsbox/mem: open %q: missing or zero ptr=: %w", name, vfsbox.ErrCantOpen)
	}

	cfg.size = params.Int64("sz", -1)
	if cfg.size < 0 {
		return cfg, fmt.Errorf("vfsbox/mem: open %q: missing or negative sz=: %w", name, vfsbox.ErrCantOpen)
	}

	cfg.max = params.Int64("maxsz", cfg.size)
	if cfg.max < cfg.size {
		return cfg, fmt.Errorf("vfsbox/mem: open %q: maxsz= below sz=: %w", name, vfsbox.ErrCantOpen)
	}

	cfg.session = params.Int64("fd", 0)
	if cfg.session == 0 {
		return cfg, fmt.Errorf("vfsbox/mem: open %q: missing or zero fd=: %w", name, vfsbox.ErrCantOpen)
	}

	cfg.threshold = params.Int64("threshold", 0)
	cfg.ckptOnSync = params.Bool("ckptOnSync", true)

	return cfg, nil
}

// BufferAddr returns the base address of buf for use as the ptr= name
// parameter. The caller must keep buf alive, and must not let anything
// move or free it, for as long as any handle opened over it exists.
func BufferAddr(buf []byte) uint64 {
	if len(buf) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&buf[0])))
}

// bufferAt materializes the caller-owned region as a byte slice of the
// configured capacity. The region was mapped by the caller before the
// open; this takes no ownership of it.
func bufferAt(addr uint64, max int64) []byte {
	if max == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), max)
}
