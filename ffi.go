package tokenizerffi

// Memory is a foreign address space the boundary reads arguments from and
// writes results into. Addresses are plain integers: a C heap pointer on a
// native host, an offset into linear memory for a wasm guest. Address 0 is
// the null pointer and is never valid.
type Memory interface {
	Read(addr uint64, length uint64) ([]byte, error)
	Write(addr uint64, data []byte) error
	// ReadCString reads a NUL-terminated byte string starting at addr.
	ReadCString(addr uint64) ([]byte, error)
}

// Allocator allocates memory inside the foreign address space. Memory
// returned by Alloc is owned by whoever receives the address until it is
// passed back to Free.
type Allocator interface {
	Alloc(size, align uint64) (uint64, error)
	Free(addr, size, align uint64)
}

// Space is a foreign address space together with its allocator.
type Space interface {
	Memory
	Allocator
}
