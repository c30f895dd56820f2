// Package fg implements the per-frame frame graph: a declarative scheduler
// for GPU rendering work. Client code declares passes and the virtual
// resources they read and write; the graph validates the declarations,
// culls unreferenced passes and resources, allocates concrete backend
// resources with lifetimes fitted to the surviving passes, computes
// per-attachment discard hints, and finally executes the surviving passes
// in declaration order.
//
// Versioned handles stand in for mutable pointers, an arena of
// index-addressed nodes stands in for an owning-pointer graph, and
// reference counting drives culling instead of garbage collection.
package fg

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vk/framegraph/internal/backend"
	"github.com/vk/framegraph/internal/ctxlog"
)

// TextureHandle is the handle kind every public FrameGraph operation deals
// in today; see Texture for why the phantom parameter exists.
type TextureHandle = Handle[Texture]

// FrameGraph owns one frame's worth of declared passes and virtual
// resources. It is rebuilt every frame: call Reset between frames to reuse
// the allocation, or simply construct a new FrameGraph with New.
type FrameGraph struct {
	entries []*resourceEntry
	resNodes []*resourceNode
	passes   []*passNode
	rts      []*virtualRenderTarget
	aliases  []aliasRecord

	concreteRTs []*concreteRenderTarget

	compiled bool

	// lastWarnings accumulates non-fatal compile-time diagnostics (cycles
	// that left a pass with a dangling refcount). Cleared by Reset and by
	// each Compile call.
	lastWarnings []error
}

type aliasRecord struct {
	fromNode int32
	toNode   int32
}

// New returns an empty FrameGraph, ready for pass declaration. Index 0 of
// every internal arena is reserved as a sentinel so the zero Handle is
// never a valid reference.
func New() *FrameGraph {
	fg := &FrameGraph{}
	fg.entries = append(fg.entries, &resourceEntry{id: 0})
	fg.resNodes = append(fg.resNodes, &resourceNode{id: 0, entry: 0, writerPass: -1})
	fg.passes = append(fg.passes, &passNode{id: 0, name: "<sentinel>"})
	fg.rts = append(fg.rts, &virtualRenderTarget{id: 0})
	return fg
}

// Reset releases all declared passes, resources and render targets, as if
// FrameGraph had just been constructed with New. It exists so a long-lived
// engine can reuse one FrameGraph's backing arrays frame over frame instead
// of allocating a fresh one.
func (fg *FrameGraph) Reset() {
	fg.entries = fg.entries[:1]
	fg.resNodes = fg.resNodes[:1]
	fg.passes = fg.passes[:1]
	fg.rts = fg.rts[:1]
	fg.aliases = fg.aliases[:0]
	fg.concreteRTs = fg.concreteRTs[:0]
	fg.compiled = false
	fg.lastWarnings = nil
}

// AddPass declares a new pass. setup runs synchronously and must use the
// supplied Builder to declare every resource the pass reads or writes;
// execute is stored and invoked later, during Execute, once per surviving
// pass in declaration order.
func (fg *FrameGraph) AddPass(name string, setup func(b *Builder), execute ExecuteFunc) PassRef {
	idx := int32(len(fg.passes))
	fg.passes = append(fg.passes, newPassNode(idx, name, execute))

	b := &Builder{fg: fg, pidx: idx, pass: fg.passes[idx]}
	setup(b)

	return PassRef{fg: fg, idx: idx}
}

// Present pins h (and transitively its producers) as an output: it will
// never be culled by Compile. Equivalent to an extra declared read.
func (fg *FrameGraph) Present(h TextureHandle) {
	if !fg.isValidHandle(h) {
		return
	}
	fg.resNodes[h.nodeIndex()].readRefCount++
}

// Import wraps an externally owned, pre-instantiated texture. The returned
// entry is never destroyed by Execute; writing to it implicitly marks the
// writing pass as having a side effect.
func (fg *FrameGraph) Import(name string, desc backend.TextureDescriptor, concrete backend.Texture) TextureHandle {
	id := int32(len(fg.entries))
	fg.entries = append(fg.entries, newImportedEntry(id, name, desc, concrete))
	nodeIdx := int32(len(fg.resNodes))
	fg.resNodes = append(fg.resNodes, newResourceNode(nodeIdx, id, 0, -1))
	return newHandle[Texture](nodeIdx, 0)
}

// ImportRenderTarget wraps an externally owned render target as a single
// virtual RT bound to a single imported color attachment, carrying
// caller-supplied initial/final discard flags.
func (fg *FrameGraph) ImportRenderTarget(name string, desc backend.RenderTargetDescriptor, concrete backend.RenderTarget, width, height uint32, discardStart, discardEnd backend.AttachmentMask) TextureHandle {
	texDesc := backend.TextureDescriptor{Width: width, Height: height, Depth: 1, SampleCount: desc.SampleCount}
	if desc.Color[0] != nil {
		texDesc.Format = desc.Color[0].Format
	}
	h := fg.Import(name, texDesc, backend.Texture(concrete))

	rtIdx := int32(len(fg.rts))
	vrt := newVirtualRenderTarget(rtIdx, 0, name)
	vrt.colorNodes[0] = h.nodeIndex()
	vrt.width, vrt.height, vrt.sampleCount = width, height, desc.SampleCount
	vrt.descriptor = desc
	vrt.imported = true
	vrt.importedConcrete = concrete
	vrt.importedDiscardStart = discardStart
	vrt.importedDiscardEnd = discardEnd
	fg.rts = append(fg.rts, vrt)
	return h
}

// MoveResource records an alias: from's entry is moved onto to's identity.
// It is resolved during Compile. from becomes invalid immediately; to
// remains valid.
func (fg *FrameGraph) MoveResource(from, to TextureHandle) error {
	if !fg.isValidHandle(from) {
		return declErrorf("<move>", "move() source handle %s is out of version", from)
	}
	if !fg.isValidHandle(to) {
		return declErrorf("<move>", "move() destination handle %s is out of version", to)
	}
	fg.aliases = append(fg.aliases, aliasRecord{fromNode: from.nodeIndex(), toNode: to.nodeIndex()})
	// from is superseded the moment the move is declared, the same way a
	// write supersedes its prior version.
	fg.resNodes[from.nodeIndex()].writerPass = movedAwaySentinel
	return nil
}

// movedAwaySentinel marks a resourceNode whose handle was consumed by
// MoveResource as the `from` argument; IsValid and Builder.Read/Write treat
// it as permanently stale, independent of compile having run yet.
const movedAwaySentinel = -2

// IsValid reports whether h still refers to the current version of its
// resource node.
func (fg *FrameGraph) IsValid(h TextureHandle) bool {
	return fg.isValidHandle(h)
}

func (fg *FrameGraph) isValidHandle(h TextureHandle) bool {
	idx := h.nodeIndex()
	if idx <= 0 || int(idx) >= len(fg.resNodes) {
		return false
	}
	n := fg.resNodes[idx]
	if n.version != h.handleVersion() {
		return false
	}
	if n.writerPass == movedAwaySentinel {
		return false
	}
	return fg.isHeadNode(idx)
}

// isHeadNode reports whether resNodes[idx] is the most recently written
// node for its entry: no later write() has re-versioned the entry since
// idx was minted.
func (fg *FrameGraph) isHeadNode(idx int32) bool {
	n := fg.resNodes[idx]
	for i := int(idx) + 1; i < len(fg.resNodes); i++ {
		if fg.resNodes[i].entry == n.entry {
			return false
		}
	}
	return true
}

// GetDescriptor returns the descriptor of h's underlying entry. h must be
// valid.
func (fg *FrameGraph) GetDescriptor(h TextureHandle) (backend.TextureDescriptor, error) {
	if !fg.isValidHandle(h) {
		return backend.TextureDescriptor{}, declErrorf("<getDescriptor>", "handle %s is out of version", h)
	}
	return fg.entries[fg.resNodes[h.nodeIndex()].entry].desc, nil
}

// LastCompileWarnings returns the non-fatal diagnostics (e.g. CycleWarning)
// produced by the most recent Compile call.
func (fg *FrameGraph) LastCompileWarnings() []error {
	return fg.lastWarnings
}

func (fg *FrameGraph) logger(ctx context.Context) *slog.Logger {
	return ctxlog.FromContext(ctx)
}

// frameTraceID stamps a per-Execute trace id onto the logger so overlapping
// frames in a shared log stream stay distinguishable.
func frameTraceID() string {
	return uuid.New().String()
}
