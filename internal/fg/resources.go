package fg

import (
	"fmt"

	"github.com/vk/framegraph/internal/backend"
)

// Resources is the read-only view an ExecuteFunc uses to resolve its
// declared handles into concrete backend objects. It is only valid for the
// duration of the single Execute call that constructs it.
type Resources struct {
	fg  *FrameGraph
	pass *passNode
}

// Texture resolves h to the concrete backend texture instantiated for it.
// h must have been Read or Written by the pass this Resources was handed
// to.
func (r *Resources) Texture(h TextureHandle) (backend.Texture, error) {
	if !r.fg.isValidHandle(h) && !r.declaredHistorically(h) {
		return 0, fmt.Errorf("framegraph: %s did not declare handle %s", r.pass.name, h)
	}
	entry := r.fg.entries[r.fg.resNodes[h.nodeIndex()].entry]
	if !entry.instantiated {
		return 0, fmt.Errorf("framegraph: resource %q is not instantiated at this point", entry.name)
	}
	return entry.concreteTex, nil
}

// RenderTarget resolves rtIdx (as returned by Builder.CreateRenderTarget)
// to its concrete backend render target.
func (r *Resources) RenderTarget(rtIdx int32) (backend.RenderTarget, backend.RenderTargetDescriptor, error) {
	vrt := r.fg.rts[rtIdx]
	if vrt.imported {
		return vrt.importedConcrete, vrt.descriptor, nil
	}
	if vrt.concrete < 0 {
		return 0, backend.RenderTargetDescriptor{}, fmt.Errorf("framegraph: render target %q was not pooled", vrt.name)
	}
	cr := r.fg.concreteRTs[vrt.concrete]
	return cr.handle, cr.desc, nil
}

// declaredHistorically allows a pass to resolve a handle it wrote earlier
// in its own setup even after a later write superseded it within the same
// pass, the common "read back what I just cleared" pattern. It checks
// declaration membership rather than current validity.
func (r *Resources) declaredHistorically(h TextureHandle) bool {
	idx := h.nodeIndex()
	for _, w := range r.pass.writes {
		if w == idx {
			return true
		}
	}
	for _, rr := range r.pass.reads {
		if rr.node == idx {
			return true
		}
	}
	return false
}
