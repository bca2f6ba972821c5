// Package vfsbox provides a pluggable storage-provider layer for
// embedded database engines.
//
// It defines a [Provider]/[File] contract covering the full operation
// set an engine expects from its storage layer (read/write/truncate/
// sync/locking/shared memory/memory-mapped access plus provider-level
// path, randomness and time operations), backed by interchangeable
// drivers through a registration mechanism.
//
// # Supported Drivers
//
//   - os     — Conventional file storage via afero (import _ "github.com/nuln/vfsbox/driver/osfs")
//   - mem    — Memory-backed primary file over a caller-supplied buffer,
//     with checkpoint commits into an external facility
//     (import _ "github.com/nuln/vfsbox/driver/mem")
//   - rclone — Any rclone-supported remote (import _ "github.com/nuln/vfsbox/driver/rclone")
//
// # Quick Start
//
//	import (
//	    "github.com/nuln/vfsbox"
//	    _ "github.com/nuln/vfsbox/driver/osfs"
//	)
//
//	p, err := vfsbox.Open(&vfsbox.Config{Type: "os", BasePath: "./data"})
//
// # Import All Drivers
//
//	import _ "github.com/nuln/vfsbox/drivers"
package vfsbox
