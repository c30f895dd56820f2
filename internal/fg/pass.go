package fg

import "context"

// ExecuteFunc is the deferred callback a pass runs during FrameGraph.Execute.
// It should capture its working set by copy, not by reference to
// builder-phase state; the frame graph does not enforce this mechanically.
type ExecuteFunc func(ctx context.Context, res *Resources) error

// readRef is one declared read: the node read, and whether the pass
// promised (via doesntNeedTexture) to only use it as an attachment.
type readRef struct {
	node              int32
	doesntNeedTexture bool
}

// passNode holds everything a declared pass recorded during setup: its
// reads and writes, any render targets it declared, whether it is pinned by
// a side effect, its cull refcount, and the execute callback to run later.
type passNode struct {
	id   int32
	name string

	reads  []readRef
	writes []int32 // resourceNode indices, in write() call order

	renderTargets []int32 // indices into FrameGraph.rts declared by this pass

	hasSideEffect bool
	refCount      int32
	culled        bool

	execute ExecuteFunc
}

func newPassNode(id int32, name string, execute ExecuteFunc) *passNode {
	return &passNode{id: id, name: name, execute: execute}
}

// PassRef is returned by FrameGraph.AddPass. It exposes the pass's declared
// name and whether Compile culled it; it exists so callers can hold a stable reference to
// a pass across the declaration/compile boundary.
type PassRef struct {
	fg  *FrameGraph
	idx int32
}

// Name returns the pass's declared name.
func (p PassRef) Name() string {
	return p.fg.passes[p.idx].name
}

// Culled reports whether the pass was culled by the last Compile. It is
// only meaningful after Compile has run.
func (p PassRef) Culled() bool {
	return p.fg.passes[p.idx].culled
}
