package vfsbox

// Library is an opaque handle to a dynamically loaded library.
type Library interface {
	// Symbol resolves a symbol by name to its address.
	Symbol(name string) (uintptr, error)

	// Close releases the library handle.
	Close() error
}

// LibraryLoader supports dynamic-library loading. Providers that cannot
// load libraries simply do not implement it; wrapping providers forward
// to the wrapped provider when it does.
// Use type assertion to check: if l, ok := p.(vfsbox.LibraryLoader); ok { ... }
type LibraryLoader interface {
	OpenLibrary(path string) (Library, error)
}

// Unwrapper is implemented by providers layered over another provider.
type Unwrapper interface {
	// Unwrap returns the provider operations are delegated to.
	Unwrap() Provider
}
