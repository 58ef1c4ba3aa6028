package memref

// Graph owns every memref allocated for one game: the de-duplicated list,
// allocation-time sharing, and the two-pass per-frame refresh (spec §4.2).
// Its lifetime matches the owning game's arena — there is no per-memref
// free and no reset; a Graph is dropped as a whole.
type Graph struct {
	head Node
	tail Node

	// invalidated accumulates addresses that went bad (short read) during
	// the most recent Refresh call, so the runtime can disable whatever
	// triggers/values reference them. Cleared at the start of each
	// Refresh.
	invalidated []uint32
	everInvalid map[uint32]bool
}

// NewGraph creates an empty memref graph.
func NewGraph() *Graph {
	return &Graph{everInvalid: make(map[uint32]bool)}
}

func (g *Graph) append(n Node) {
	if g.tail == nil {
		g.head = n
	} else {
		g.tail.setNextNode(n)
	}
	g.tail = n
}

// Alloc returns a plain memref for (address, size), reusing an existing
// one if the parser already allocated one with the identical address and
// size — a linear scan, acceptable given the typical memref counts this
// engine sees (spec §9: "a linear scan is acceptable given typical counts
// ≤ a few hundred").
func (g *Graph) Alloc(address uint32, size Size) *Memref {
	for n := g.head; n != nil; n = n.nextNode() {
		if mr, ok := n.(*Memref); ok && mr.Address == address && mr.Size == size {
			return mr
		}
	}
	mr := NewMemref(address, size)
	g.append(mr)
	return mr
}

// AllocNonShared always creates a fresh, non-shared memref at (address,
// size), bypassing deduplication. Used by the parser's prior-value
// tie-break (spec §4.2): when a Prior operand's size doesn't share a mask
// with the already-allocated cell at the same address, a separate cell is
// needed so its prior tracks the narrow field independently.
func (g *Graph) AllocNonShared(address uint32, size Size) *Memref {
	mr := NewMemref(address, size)
	mr.nonShared = true
	g.append(mr)
	return mr
}

// AllocModified returns a modified memref keyed on (parent, parentView,
// op, modifier) structural equality, reusing an existing one when every
// component matches exactly — mirroring rc_alloc_modified_memref.
func (g *Graph) AllocModified(size Size, parent *Memref, parentView ParentView, op ModifierOp, modifier Modifier) *ModifiedMemref {
	key := modifier.StructuralKey()
	for n := g.head; n != nil; n = n.nextNode() {
		mm, ok := n.(*ModifiedMemref)
		if !ok || mm.Size != size || mm.Parent != parent || mm.ParentView != parentView || mm.Op != op {
			continue
		}
		if mm.Modifier.StructuralKey() == key {
			return mm
		}
	}

	mm := &ModifiedMemref{
		Memref:     Memref{Size: size, valid: true},
		Parent:     parent,
		ParentView: parentView,
		Op:         op,
		Modifier:   modifier,
	}
	g.append(mm)
	return mm
}

// Refresh drives one frame's worth of memref updates: first every plain
// memref (in list/allocation order), then every modified memref (also in
// list order, which equals dependency order because a parent is always
// allocated, and therefore appears earlier in the list, before any child
// that references it). It returns the addresses that went invalid this
// frame for the first time.
func (g *Graph) Refresh(r Reader) []uint32 {
	g.invalidated = g.invalidated[:0]

	for n := g.head; n != nil; n = n.nextNode() {
		mr, ok := n.(*Memref)
		if !ok {
			continue
		}
		wasValid := mr.valid
		mr.refresh(r)
		if wasValid && !mr.valid {
			g.markInvalid(mr.Address)
		}
	}

	for n := g.head; n != nil; n = n.nextNode() {
		mm, ok := n.(*ModifiedMemref)
		if !ok {
			continue
		}
		wasValid := mm.valid
		mm.refresh(r)
		if wasValid && !mm.valid {
			g.markInvalid(mm.Address)
		}
	}

	return g.invalidated
}

func (g *Graph) markInvalid(address uint32) {
	// Invalidation happens at most once per address per session (spec
	// §4.2): once recorded, later frames' already-false Valid() transition
	// never re-fires it.
	if g.everInvalid[address] {
		return
	}
	g.everInvalid[address] = true
	g.invalidated = append(g.invalidated, address)
}

// All returns every memref node in allocation order, for progress
// serialization and diagnostics.
func (g *Graph) All() []Node {
	var out []Node
	for n := g.head; n != nil; n = n.nextNode() {
		out = append(out, n)
	}
	return out
}
