// Package arena provides the bump-allocated byte buffer that backs every
// compiled artifact for one loaded game. Nothing allocated from a Buffer is
// ever individually freed; the whole chain is dropped together when the
// game unloads.
package arena

const (
	minChunkSize = 256
	// growThreshold is the chunk size below which the chain still doubles;
	// past it growth becomes additive so one huge trigger can't blow the
	// arena out to gigabytes.
	growThreshold = 16 * 1024
)

type chunk struct {
	data []byte
	used int
}

// Buffer is an append-only bump allocator. Growth multiplies the chunk size
// while small and grows additively past growThreshold. There is no
// individual free; only Reset (whole-arena destruction) reclaims memory.
type Buffer struct {
	chunks    []*chunk
	nextSize  int
	measuring bool
	measured  int
}

// NewBuffer creates an empty Buffer for a building pass; Measure (below)
// creates one for a measuring pass.
func NewBuffer() *Buffer {
	return &Buffer{nextSize: minChunkSize}
}

// Measure returns a Buffer that never actually allocates storage; every
// Reserve/Alloc/Strcpy call instead accumulates the byte count that a real
// Buffer of the same size would need. Mirrors the parser's two-pass
// "measure with a NULL destination, then build with a sized destination"
// discipline (spec §4.3): both passes run the exact same code, gated only
// on this flag.
func Measure() *Buffer {
	return &Buffer{measuring: true}
}

// Measured returns the number of bytes a measuring Buffer has accounted
// for. Calling it on a non-measuring Buffer panics: it is a programmer
// error to mix the two passes.
func (b *Buffer) Measured() int {
	if !b.measuring {
		panic("arena: Measured called on a building buffer")
	}
	return b.measured
}

func align(n, to int) int {
	return (n + to - 1) &^ (to - 1)
}

// Reserve returns a slice of n zeroed bytes inside the current chunk,
// growing the chain if the current chunk doesn't have room. The slice is
// not yet committed to the chunk's "used" count: callers that reserved
// more than they need must call Consume to commit only the prefix used.
// Most callers use Alloc, which reserves and commits in one step.
func (b *Buffer) Reserve(n int) []byte {
	if b.measuring {
		b.measured += n
		return make([]byte, n)
	}

	if len(b.chunks) == 0 || b.chunks[len(b.chunks)-1].used+n > len(b.chunks[len(b.chunks)-1].data) {
		b.growTo(n)
	}
	c := b.chunks[len(b.chunks)-1]
	return c.data[c.used : c.used+n]
}

// Alloc reserves n bytes and commits them immediately. It is the common
// case; Reserve+Consume exists only for callers that don't know the exact
// size until after writing into the reservation (e.g. a string of unknown
// encoded length).
func (b *Buffer) Alloc(n int) []byte {
	s := b.Reserve(n)
	b.commit(n)
	return s
}

// Consume commits the first (end-start) bytes of the most recent
// reservation. start and end are byte offsets into the slice returned by
// Reserve, typically 0 and the number of bytes actually written.
func (b *Buffer) Consume(start, end int) {
	b.commit(end - start)
}

func (b *Buffer) commit(n int) {
	if b.measuring {
		return
	}
	b.chunks[len(b.chunks)-1].used += n
}

func (b *Buffer) growTo(need int) {
	size := b.nextSize
	if size < need {
		size = need
	}
	if size < minChunkSize {
		size = minChunkSize
	}
	b.chunks = append(b.chunks, &chunk{data: make([]byte, size)})

	if b.nextSize < growThreshold {
		b.nextSize *= 2
	} else {
		b.nextSize += growThreshold
	}
}

// Strcpy interns s as a NUL-terminated byte string inside the arena and
// returns it without the trailing NUL, as a slice borrowed from arena
// storage. Callers must not retain the slice past the arena's lifetime and
// must not mutate it.
func (b *Buffer) Strcpy(s string) []byte {
	buf := b.Alloc(len(s) + 1)
	copy(buf, s)
	buf[len(s)] = 0
	return buf[:len(s)]
}

// Chunks reports the number of chunks currently allocated, for tests and
// diagnostics only.
func (b *Buffer) Chunks() int {
	return len(b.chunks)
}
