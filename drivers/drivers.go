// Package drivers is a convenience package that registers all built-in
// storage drivers. Import it with a blank identifier to make all
// drivers available:
//
//	import _ "github.com/nuln/vfsbox/drivers"
package drivers

import (
	"github.com/nuln/vfsbox"
	_ "github.com/nuln/vfsbox/driver/mem"
	_ "github.com/nuln/vfsbox/driver/osfs"
	_ "github.com/nuln/vfsbox/driver/rclone"
)

// Init ensures all built-in drivers are registered.
// This is called automatically by importing the package.
func Init() {}

// List returns a list of all registered storage drivers.
func List() []string {
	return vfsbox.List()
}
